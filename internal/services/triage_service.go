package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/santai/backend/internal/logger"
	"github.com/santai/backend/internal/metrics"
	"github.com/santai/backend/internal/models"
)

const (
	// ExcerptLength bounds the raw log excerpt after a successful detection.
	ExcerptLength = 1000
	// DegradedExcerptLength bounds the excerpt when the detector was unreachable.
	DegradedExcerptLength = 500

	excerptEllipsis = "..."
)

// TriageService runs the detect → summarize → compose → generate pipeline.
// It holds no per-request state; every result is built fresh.
type TriageService struct {
	detector   AnomalyDetector
	model      ChatCompleter
	reputation ReputationLookup
	audit      AuditRecorder
	now        func() time.Time
}

// NewTriageService wires the pipeline. reputation and audit may be nil.
func NewTriageService(detector AnomalyDetector, model ChatCompleter, reputation ReputationLookup, audit AuditRecorder) *TriageService {
	return &TriageService{
		detector:   detector,
		model:      model,
		reputation: reputation,
		audit:      audit,
		now:        time.Now,
	}
}

// ReputationEnabled reports whether IP lookups are configured.
func (ts *TriageService) ReputationEnabled() bool {
	return ts.reputation != nil
}

// TriageText analyzes pasted log text.
func (ts *TriageService) TriageText(ctx context.Context, logContent, knowledgeJSON string) (*models.TriageResult, error) {
	if strings.TrimSpace(logContent) == "" {
		metrics.ObserveTriage(string(models.TriageKindText), metrics.OutcomeRejected, 0)
		return nil, ErrEmptyLog
	}
	return ts.triageLog(ctx, models.TriageKindText, logContent, knowledgeJSON)
}

// TriageFile analyzes an uploaded log file. An empty file is not an error; it
// yields the empty-input sentinel without calling the detector.
func (ts *TriageService) TriageFile(ctx context.Context, logBytes []byte, knowledgeJSON string) (*models.TriageResult, error) {
	if logBytes == nil {
		metrics.ObserveTriage(string(models.TriageKindFile), metrics.OutcomeRejected, 0)
		return nil, ErrMissingFile
	}
	content := strings.ToValidUTF8(string(logBytes), "\uFFFD")
	return ts.triageLog(ctx, models.TriageKindFile, content, knowledgeJSON)
}

// TriageImage analyzes a screenshot with the vision model.
func (ts *TriageService) TriageImage(ctx context.Context, imageBytes []byte, mimeType, knowledgeJSON string) (*models.TriageResult, error) {
	kind := models.TriageKindImage
	if len(imageBytes) == 0 {
		metrics.ObserveTriage(string(kind), metrics.OutcomeRejected, 0)
		return nil, ErrEmptyImage
	}
	imageType := normalizeImageType(imageBytes, mimeType)
	if !strings.HasPrefix(imageType, "image/") {
		metrics.ObserveTriage(string(kind), metrics.OutcomeRejected, 0)
		return nil, ErrUnsupportedImage
	}
	if ts.model == nil {
		return nil, ErrNotConfigured
	}

	start := ts.now()
	log := logger.WithTriage(RequestIDFrom(ctx), string(kind))

	knowledge := ParseKnowledge(knowledgeJSON)
	dataURL := fmt.Sprintf("data:%s;base64,%s", imageType, base64.StdEncoding.EncodeToString(imageBytes))
	prompt := ComposePrompt(IMAGE_ANALYSIS_PROMPT, knowledge)

	answer := ts.generateVision(ctx, prompt, dataURL)

	log.WithField("image_type", imageType).
		WithField("image_bytes", len(imageBytes)).
		WithField("model_degraded", answer.Degraded).
		Info("Image triage completed")

	ts.finish(ctx, start, &models.TriageAudit{
		Kind:          kind,
		KnowledgeUsed: len(SelectKnowledge(knowledge)),
		ModelDegraded: answer.Degraded,
	})

	return &models.TriageResult{
		ImageAnalysis: answer.Content,
		ImageDataURL:  dataURL,
	}, nil
}

// CheckIP looks up one IP address. Each call is independent of any other.
func (ts *TriageService) CheckIP(ctx context.Context, ip string) (*models.ReputationRecord, error) {
	if ts.reputation == nil {
		return nil, ErrReputationNotConfigured
	}
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return nil, ErrMissingIP
	}
	if net.ParseIP(ip) == nil {
		return nil, ErrInvalidIP
	}
	return ts.reputation.Lookup(ctx, ip)
}

type detection struct {
	incident  *models.IncidentRecord
	lineCount int
	rawCount  int
	outcome   Outcome
}

func (ts *TriageService) triageLog(ctx context.Context, kind models.TriageKind, content, knowledgeJSON string) (*models.TriageResult, error) {
	if ts.detector == nil || ts.model == nil {
		return nil, ErrNotConfigured
	}

	start := ts.now()
	log := logger.WithTriage(RequestIDFrom(ctx), string(kind))

	knowledge := ParseKnowledge(knowledgeJSON)
	det := ts.detect(ctx, content)
	prompt := ComposePrompt(BuildIncidentPrompt(det.incident), knowledge)
	answer := ts.generateText(ctx, prompt)

	log.WithField("lines", det.lineCount).
		WithField("raw_anomalies", det.rawCount).
		WithField("knowledge_used", len(SelectKnowledge(knowledge))).
		WithField("detector_degraded", det.outcome.Degraded).
		WithField("model_degraded", answer.Degraded).
		Info("Log triage completed")

	ts.finish(ctx, start, &models.TriageAudit{
		Kind:             kind,
		LineCount:        det.lineCount,
		AnomalyCount:     det.rawCount,
		Summarized:       IsSummarized(det.rawCount),
		KnowledgeUsed:    len(SelectKnowledge(knowledge)),
		DetectorDegraded: det.outcome.Degraded,
		ModelDegraded:    answer.Degraded,
	})

	return &models.TriageResult{
		IncidentData:     det.incident,
		ModelArkResponse: answer.Content,
		CandidateIOCs:    ExtractIPv4s(det.incident.RawLogExcerpt),
	}, nil
}

func (ts *TriageService) detect(ctx context.Context, content string) detection {
	lines := splitLogLines(content)
	if len(lines) == 0 {
		return detection{
			incident: &models.IncidentRecord{
				Timestamp:      ts.now().UTC(),
				AnomaliesFound: []string{EMPTY_INPUT_SENTINEL},
				RawLogExcerpt:  "",
			},
			outcome: Ok(EMPTY_INPUT_SENTINEL),
		}
	}

	anomalies, err := ts.detector.Detect(ctx, lines)
	if err != nil {
		logger.WithError(err, "triage_service").Error("Failed to reach the anomaly detection service")
		return detection{
			incident: &models.IncidentRecord{
				Timestamp:      ts.now().UTC(),
				AnomaliesFound: []string{DETECTOR_UNREACHABLE_SENTINEL},
				RawLogExcerpt:  truncateExcerpt(content, DegradedExcerptLength),
			},
			lineCount: len(lines),
			outcome:   Degraded(DETECTOR_UNREACHABLE_SENTINEL, err),
		}
	}

	return detection{
		incident: &models.IncidentRecord{
			Timestamp:      ts.now().UTC(),
			AnomaliesFound: SummarizeAnomalies(anomalies),
			RawLogExcerpt:  truncateExcerpt(content, ExcerptLength),
		},
		lineCount: len(lines),
		rawCount:  len(anomalies),
		outcome:   Ok(""),
	}
}

func (ts *TriageService) generateText(ctx context.Context, prompt string) Outcome {
	content, err := ts.model.Complete(ctx, prompt)
	if err == nil {
		return Ok(content)
	}
	if errors.Is(err, ErrEmptyCompletion) {
		return Degraded(TEXT_MODEL_EMPTY_RESPONSE, err)
	}
	return Degraded(fmt.Sprintf(TEXT_MODEL_ERROR_FORMAT, err.Error()), err)
}

func (ts *TriageService) generateVision(ctx context.Context, prompt, dataURL string) Outcome {
	content, err := ts.model.CompleteWithImage(ctx, prompt, dataURL)
	if err == nil {
		return Ok(content)
	}
	if errors.Is(err, ErrEmptyCompletion) {
		return Degraded(VISION_MODEL_EMPTY_RESPONSE, err)
	}
	return Degraded(fmt.Sprintf(VISION_MODEL_ERROR_FORMAT, err.Error()), err)
}

// finish records metrics and the audit row. Audit failures are logged only.
func (ts *TriageService) finish(ctx context.Context, start time.Time, audit *models.TriageAudit) {
	elapsed := ts.now().Sub(start)

	outcome := metrics.OutcomeSuccess
	if audit.DetectorDegraded || audit.ModelDegraded {
		outcome = metrics.OutcomeDegraded
	}
	metrics.ObserveTriage(string(audit.Kind), outcome, elapsed)

	if ts.audit == nil {
		return
	}
	audit.RequestID = RequestIDFrom(ctx)
	audit.UserID = UserIDFrom(ctx)
	audit.DurationMs = elapsed.Milliseconds()
	if err := ts.audit.Record(context.WithoutCancel(ctx), audit); err != nil {
		logger.WithError(err, "triage_service").Warn("Failed to record triage audit")
	}
}

// splitLogLines returns the non-blank lines of content, without CR line endings.
func splitLogLines(content string) []string {
	raw := strings.Split(content, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// truncateExcerpt keeps the first n characters and marks the cut.
func truncateExcerpt(content string, n int) string {
	if utf8.RuneCountInString(content) <= n {
		return content
	}
	count := 0
	for idx := range content {
		if count == n {
			return content[:idx] + excerptEllipsis
		}
		count++
	}
	return content
}

func normalizeImageType(data []byte, declared string) string {
	if declared != "" {
		if mediaType, _, err := mime.ParseMediaType(declared); err == nil && mediaType != "application/octet-stream" {
			return mediaType
		}
	}
	detected, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return detected
}
