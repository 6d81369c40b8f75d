package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/santai/backend/internal/config"
	"github.com/santai/backend/internal/logger"
	"github.com/santai/backend/internal/metrics"
)

// AnomalyDetector flags suspicious log lines.
type AnomalyDetector interface {
	Detect(ctx context.Context, lines []string) ([]string, error)
}

type DetectRequest struct {
	Logs []string `json:"logs"`
}

type DetectResponse struct {
	Anomalies []string `json:"anomalies"`
	Error     string   `json:"error,omitempty"`
}

// DetectorClient talks to the anomaly-detection microservice over HTTP.
type DetectorClient struct {
	url    string
	client *http.Client
}

func NewDetectorClient(cfg config.DetectorConfig) *DetectorClient {
	return &DetectorClient{
		url:    cfg.URL,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Detect posts the log lines and returns the anomalies the service flagged.
// A missing anomalies field is treated as no anomalies.
func (dc *DetectorClient) Detect(ctx context.Context, lines []string) ([]string, error) {
	startTime := time.Now()
	anomalies, err := dc.detect(ctx, lines)
	elapsed := time.Since(startTime)
	metrics.ObserveUpstream("detector", err, elapsed)

	entry := logger.WithUpstream("detector_client", "detect").WithField("lines", len(lines)).WithField("duration", elapsed.String())
	if err != nil {
		entry.WithField("error", err.Error()).Warn("Anomaly detector call failed")
		return nil, err
	}
	entry.WithField("anomalies", len(anomalies)).Info("Received raw anomalies from detector")
	return anomalies, nil
}

func (dc *DetectorClient) detect(ctx context.Context, lines []string) ([]string, error) {
	jsonData, err := json.Marshal(DetectRequest{Logs: lines})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal detect request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, dc.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create detect request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := dc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detector request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &UpstreamError{Service: "anomaly detector", Status: resp.StatusCode, Body: string(body)}
	}

	var detectResp DetectResponse
	if err := json.NewDecoder(resp.Body).Decode(&detectResp); err != nil {
		return nil, fmt.Errorf("failed to decode detector response: %w", err)
	}
	if detectResp.Anomalies == nil {
		return []string{}, nil
	}
	return detectResp.Anomalies, nil
}
