package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/santai/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDetector struct {
	mu        sync.Mutex
	calls     int
	lastLines []string
	anomalies []string
	err       error
}

func (s *stubDetector) Detect(ctx context.Context, lines []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lastLines = lines
	return s.anomalies, s.err
}

type stubModel struct {
	mu           sync.Mutex
	textCalls    int
	visionCalls  int
	lastPrompt   string
	lastImageURL string
	response     string
	err          error
}

func (s *stubModel) Complete(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.textCalls++
	s.lastPrompt = prompt
	return s.response, s.err
}

func (s *stubModel) CompleteWithImage(ctx context.Context, prompt, imageDataURL string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visionCalls++
	s.lastPrompt = prompt
	s.lastImageURL = imageDataURL
	return s.response, s.err
}

type stubReputation struct {
	record *models.ReputationRecord
	err    error
	calls  []string
}

func (s *stubReputation) Lookup(ctx context.Context, ip string) (*models.ReputationRecord, error) {
	s.calls = append(s.calls, ip)
	return s.record, s.err
}

type stubAudit struct {
	records []*models.TriageAudit
	err     error
}

func (s *stubAudit) Record(ctx context.Context, audit *models.TriageAudit) error {
	s.records = append(s.records, audit)
	return s.err
}

func TestTriageTextRejectsBlankInput(t *testing.T) {
	detector := &stubDetector{}
	model := &stubModel{}
	ts := NewTriageService(detector, model, nil, nil)

	for _, input := range []string{"", "   ", "\n\t\n"} {
		_, err := ts.TriageText(context.Background(), input, "")
		assert.ErrorIs(t, err, ErrEmptyLog)
	}
	assert.Zero(t, detector.calls)
	assert.Zero(t, model.textCalls)
}

func TestTriageFileEmptyContentUsesSentinel(t *testing.T) {
	detector := &stubDetector{}
	model := &stubModel{response: "narrative"}
	ts := NewTriageService(detector, model, nil, nil)

	for _, content := range [][]byte{{}, []byte("\n  \n\r\n")} {
		result, err := ts.TriageFile(context.Background(), content, "")
		require.NoError(t, err)
		require.NotNil(t, result.IncidentData)
		assert.Equal(t, []string{EMPTY_INPUT_SENTINEL}, result.IncidentData.AnomaliesFound)
		assert.Empty(t, result.IncidentData.RawLogExcerpt)
		assert.Equal(t, "narrative", result.ModelArkResponse)
	}
	assert.Zero(t, detector.calls, "detector must not be called for empty input")
	assert.Equal(t, 2, model.textCalls)
}

func TestTriageFileMissing(t *testing.T) {
	ts := NewTriageService(&stubDetector{}, &stubModel{}, nil, nil)
	_, err := ts.TriageFile(context.Background(), nil, "")
	assert.ErrorIs(t, err, ErrMissingFile)
}

func TestTriageTextSummarizesLargeAnomalyList(t *testing.T) {
	anomalies := make([]string, 150)
	for i := range anomalies {
		anomalies[i] = fmt.Sprintf("anomaly-%03d", i)
	}
	detector := &stubDetector{anomalies: anomalies}
	model := &stubModel{response: "narrative"}
	ts := NewTriageService(detector, model, nil, nil)

	input := strings.Repeat("a\nb\n", 60)
	result, err := ts.TriageText(context.Background(), input, "")
	require.NoError(t, err)

	assert.Equal(t, 1, detector.calls)
	assert.Len(t, detector.lastLines, 120)

	found := result.IncidentData.AnomaliesFound
	require.Len(t, found, 53)
	assert.Contains(t, found[0], "150")
	assert.Equal(t, anomalies[:25], found[2:27])
	assert.Equal(t, anomalies[125:], found[28:])
	assert.Equal(t, input, result.IncidentData.RawLogExcerpt)
	assert.Equal(t, "narrative", result.ModelArkResponse)
	assert.Contains(t, model.lastPrompt, "anomaly-000")
	assert.NotContains(t, model.lastPrompt, "anomaly-030")
}

func TestTriageTextExcerptTruncation(t *testing.T) {
	detector := &stubDetector{anomalies: []string{"x"}}
	ts := NewTriageService(detector, &stubModel{response: "ok"}, nil, nil)

	input := strings.Repeat("0123456789\n", 200)
	result, err := ts.TriageText(context.Background(), input, "")
	require.NoError(t, err)

	excerpt := result.IncidentData.RawLogExcerpt
	assert.Equal(t, input[:1000]+"...", excerpt)
	assert.Equal(t, []string{"x"}, result.IncidentData.AnomaliesFound)
}

func TestTriageTextDetectorFailureDegrades(t *testing.T) {
	detector := &stubDetector{err: errors.New("connection refused")}
	model := &stubModel{response: "degraded narrative"}
	ts := NewTriageService(detector, model, nil, nil)

	input := strings.Repeat("failed login for root from 10.0.0.1\n", 50)
	result, err := ts.TriageText(context.Background(), input, "")
	require.NoError(t, err)

	assert.Equal(t, []string{DETECTOR_UNREACHABLE_SENTINEL}, result.IncidentData.AnomaliesFound)
	assert.Equal(t, input[:500]+"...", result.IncidentData.RawLogExcerpt)
	assert.Equal(t, 1, model.textCalls, "model must still be called after detector failure")
	assert.Contains(t, model.lastPrompt, DETECTOR_UNREACHABLE_SENTINEL)
	assert.Equal(t, "degraded narrative", result.ModelArkResponse)
}

func TestTriageTextModelFailureIsSoft(t *testing.T) {
	detector := &stubDetector{anomalies: []string{"suspicious"}}
	model := &stubModel{err: errors.New("status 503")}
	ts := NewTriageService(detector, model, nil, nil)

	result, err := ts.TriageText(context.Background(), "line one", "")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf(TEXT_MODEL_ERROR_FORMAT, "status 503"), result.ModelArkResponse)
	assert.NotNil(t, result.IncidentData)
}

func TestTriageTextEmptyCompletion(t *testing.T) {
	ts := NewTriageService(&stubDetector{}, &stubModel{err: ErrEmptyCompletion}, nil, nil)

	result, err := ts.TriageText(context.Background(), "line", "")
	require.NoError(t, err)
	assert.Equal(t, TEXT_MODEL_EMPTY_RESPONSE, result.ModelArkResponse)
}

func TestTriageTextInjectsKnowledge(t *testing.T) {
	model := &stubModel{response: "ok"}
	ts := NewTriageService(&stubDetector{anomalies: []string{"a"}}, model, nil, nil)

	knowledge := `[{"id":1,"input":"old","output":"old-out"},{"id":2,"input":"mid","output":"mid-out"},{"id":3,"input":"new","output":"new-out"}]`
	_, err := ts.TriageText(context.Background(), "line", knowledge)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(model.lastPrompt, KNOWLEDGE_PREAMBLE))
	assert.NotContains(t, model.lastPrompt, `"old"`)
	assert.Contains(t, model.lastPrompt, `"mid"`)
	assert.Contains(t, model.lastPrompt, `"new"`)
}

func TestTriageTextMalformedKnowledgeFailsOpen(t *testing.T) {
	model := &stubModel{response: "ok"}
	ts := NewTriageService(&stubDetector{anomalies: []string{"a"}}, model, nil, nil)

	result, err := ts.TriageText(context.Background(), "line", "{broken")
	require.NoError(t, err)
	assert.Equal(t, "ok", result.ModelArkResponse)
	assert.Equal(t, BuildIncidentPrompt(result.IncidentData), model.lastPrompt)
}

func TestTriageTextCandidateIOCs(t *testing.T) {
	ts := NewTriageService(&stubDetector{anomalies: []string{"a"}}, &stubModel{response: "ok"}, nil, nil)

	input := "conn from 8.8.8.8\nconn from 1.2.3.4\nagain 8.8.8.8\n"
	result, err := ts.TriageText(context.Background(), input, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"8.8.8.8", "1.2.3.4"}, result.CandidateIOCs)
}

func TestTriageRecordsAudit(t *testing.T) {
	audit := &stubAudit{err: errors.New("db down")}
	ts := NewTriageService(&stubDetector{err: errors.New("down")}, &stubModel{response: "ok"}, nil, audit)

	ctx := WithUserID(WithRequestID(context.Background(), "req-1"), 42)
	_, err := ts.TriageText(ctx, "a\nb\n", `[{"input":"i","output":"o"}]`)
	require.NoError(t, err, "audit failure must not fail the triage")

	require.Len(t, audit.records, 1)
	rec := audit.records[0]
	assert.Equal(t, "req-1", rec.RequestID)
	require.NotNil(t, rec.UserID)
	assert.Equal(t, uint(42), *rec.UserID)
	assert.Equal(t, models.TriageKindText, rec.Kind)
	assert.Equal(t, 2, rec.LineCount)
	assert.Equal(t, 1, rec.KnowledgeUsed)
	assert.True(t, rec.DetectorDegraded)
	assert.False(t, rec.ModelDegraded)
}

func TestTriageImage(t *testing.T) {
	model := &stubModel{response: "phishing page"}
	ts := NewTriageService(&stubDetector{}, model, nil, nil)

	png := []byte("\x89PNG\r\n\x1a\n0000")
	result, err := ts.TriageImage(context.Background(), png, "image/png", `[{"input":"i","output":"o"}]`)
	require.NoError(t, err)

	assert.Nil(t, result.IncidentData)
	assert.Equal(t, "phishing page", result.ImageAnalysis)
	assert.Equal(t, "data:image/png;base64,iVBORw0KGgowMDAw", result.ImageDataURL)
	assert.Equal(t, result.ImageDataURL, model.lastImageURL)
	assert.True(t, strings.HasSuffix(model.lastPrompt, IMAGE_ANALYSIS_PROMPT))
	assert.Equal(t, 1, model.visionCalls)
	assert.Zero(t, model.textCalls)
}

func TestTriageImageDetectsMissingType(t *testing.T) {
	ts := NewTriageService(&stubDetector{}, &stubModel{response: "ok"}, nil, nil)

	png := []byte("\x89PNG\r\n\x1a\n0000")
	result, err := ts.TriageImage(context.Background(), png, "", "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.ImageDataURL, "data:image/png;base64,"))
}

func TestTriageImageValidation(t *testing.T) {
	model := &stubModel{}
	ts := NewTriageService(&stubDetector{}, model, nil, nil)

	_, err := ts.TriageImage(context.Background(), nil, "image/png", "")
	assert.ErrorIs(t, err, ErrEmptyImage)

	_, err = ts.TriageImage(context.Background(), []byte("plain text"), "text/plain", "")
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	assert.Zero(t, model.visionCalls)
}

func TestTriageImageModelFailureIsSoft(t *testing.T) {
	ts := NewTriageService(&stubDetector{}, &stubModel{err: errors.New("timeout")}, nil, nil)

	result, err := ts.TriageImage(context.Background(), []byte("\xff\xd8\xff\xe0jpeg"), "image/jpeg", "")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf(VISION_MODEL_ERROR_FORMAT, "timeout"), result.ImageAnalysis)
	assert.NotEmpty(t, result.ImageDataURL)
}

func TestCheckIP(t *testing.T) {
	record := &models.ReputationRecord{IP: "8.8.8.8", Owner: "GOOGLE"}
	rep := &stubReputation{record: record}
	ts := NewTriageService(&stubDetector{}, &stubModel{}, rep, nil)

	got, err := ts.CheckIP(context.Background(), " 8.8.8.8 ")
	require.NoError(t, err)
	assert.Same(t, record, got)
	assert.Equal(t, []string{"8.8.8.8"}, rep.calls)

	_, err = ts.CheckIP(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingIP)

	_, err = ts.CheckIP(context.Background(), "../../etc")
	assert.ErrorIs(t, err, ErrInvalidIP)
	assert.Len(t, rep.calls, 1)
}

func TestCheckIPNotConfigured(t *testing.T) {
	ts := NewTriageService(&stubDetector{}, &stubModel{}, nil, nil)
	assert.False(t, ts.ReputationEnabled())

	_, err := ts.CheckIP(context.Background(), "8.8.8.8")
	assert.ErrorIs(t, err, ErrReputationNotConfigured)
}

func TestCheckIPProviderErrorIsPerIP(t *testing.T) {
	rep := &stubReputation{err: &UpstreamError{Service: "VirusTotal", Status: 404}}
	ts := NewTriageService(&stubDetector{}, &stubModel{}, rep, nil)

	_, err := ts.CheckIP(context.Background(), "1.1.1.1")
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, 404, upstream.Status)

	rep.err = nil
	rep.record = &models.ReputationRecord{IP: "9.9.9.9"}
	got, err := ts.CheckIP(context.Background(), "9.9.9.9")
	require.NoError(t, err)
	assert.Equal(t, "9.9.9.9", got.IP)
}

func TestSplitLogLines(t *testing.T) {
	got := splitLogLines("first\r\n\r\n  \nsecond\n\tthird\n")
	assert.Equal(t, []string{"first", "second", "\tthird"}, got)
}

func TestTruncateExcerptMultibyte(t *testing.T) {
	input := strings.Repeat("é", 600)
	got := truncateExcerpt(input, 500)
	assert.Equal(t, strings.Repeat("é", 500)+"...", got)
	assert.Equal(t, "short", truncateExcerpt("short", 500))
}
