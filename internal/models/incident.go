package models

import (
	"time"
)

// IncidentRecord is what the detector stage produces for one triage request.
// It is never persisted and never modified once built.
type IncidentRecord struct {
	Timestamp      time.Time `json:"timestamp"`
	AnomaliesFound []string  `json:"anomalies_found"`
	RawLogExcerpt  string    `json:"raw_log_excerpt"`
}

// TriageResult is the payload returned to the web layer. Text and file
// triage fill IncidentData and ModelArkResponse; image triage fills
// ImageAnalysis and ImageDataURL.
type TriageResult struct {
	IncidentData     *IncidentRecord `json:"incident_data,omitempty"`
	ModelArkResponse string          `json:"modelark_response,omitempty"`
	ImageAnalysis    string          `json:"image_analysis,omitempty"`
	ImageDataURL     string          `json:"image_data_url,omitempty"`

	// IPv4 literals found in the excerpt, for on-demand reputation checks.
	CandidateIOCs []string `json:"candidate_iocs,omitempty"`
}
