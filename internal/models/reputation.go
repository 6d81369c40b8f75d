package models

import (
	"time"
)

// ReputationRecord is the per-IP view of the reputation provider's answer.
type ReputationRecord struct {
	IP                string         `json:"ip"`
	Owner             string         `json:"owner"`
	Country           string         `json:"country"`
	Reputation        int            `json:"reputation"`
	LastAnalysisStats map[string]int `json:"last_analysis_stats"`
	LastAnalysisDate  string         `json:"last_analysis_date"`
	LastAnalysisAt    time.Time      `json:"-"`
}

// MaliciousRatio returns the malicious verdict count and the total of all verdicts.
func (r ReputationRecord) MaliciousRatio() (malicious, total int) {
	for verdict, count := range r.LastAnalysisStats {
		total += count
		if verdict == "malicious" {
			malicious = count
		}
	}
	return malicious, total
}
