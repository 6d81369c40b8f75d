package models

import (
	"time"
)

type TriageKind string

const (
	TriageKindText  TriageKind = "text"
	TriageKindFile  TriageKind = "file"
	TriageKindImage TriageKind = "image"
)

// TriageAudit records that a triage ran and how it went. It holds counts and
// flags only, never log content or model output.
type TriageAudit struct {
	ID               uint       `json:"id" gorm:"primaryKey"`
	RequestID        string     `json:"requestId" gorm:"index"`
	Kind             TriageKind `json:"kind" gorm:"not null"`
	UserID           *uint      `json:"userId"`
	LineCount        int        `json:"lineCount"`
	AnomalyCount     int        `json:"anomalyCount"`
	Summarized       bool       `json:"summarized"`
	KnowledgeUsed    int        `json:"knowledgeUsed"`
	DetectorDegraded bool       `json:"detectorDegraded"`
	ModelDegraded    bool       `json:"modelDegraded"`
	DurationMs       int64      `json:"durationMs"`
	CreatedAt        time.Time  `json:"createdAt"`
}

func (TriageAudit) TableName() string {
	return "triage_audits"
}
