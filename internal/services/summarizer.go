package services

import (
	"fmt"

	"github.com/santai/backend/internal/logger"
)

const (
	// MaxAnomaliesToSend is the largest anomaly list forwarded to the model as-is.
	MaxAnomaliesToSend = 100
	// AnomalySampleSize is how many anomalies are kept from each end of an oversized list.
	AnomalySampleSize = 25

	summaryMarkerLines = 3
)

// SummarizeAnomalies bounds the anomaly list sent to the model. Lists of up to
// MaxAnomaliesToSend entries are returned unchanged. Longer lists become a
// header with the real count, the first and last AnomalySampleSize entries in
// their original order, and a delimiter before each sample.
func SummarizeAnomalies(anomalies []string) []string {
	if len(anomalies) <= MaxAnomaliesToSend {
		return anomalies
	}

	logger.Info("Summarizing anomalies before prompting", map[string]interface{}{
		"total":   len(anomalies),
		"sampled": AnomalySampleSize * 2,
	})

	summary := make([]string, 0, AnomalySampleSize*2+summaryMarkerLines)
	summary = append(summary,
		fmt.Sprintf(SUMMARY_HEADER_FORMAT, len(anomalies)),
		SUMMARY_HEAD_MARKER,
	)
	summary = append(summary, anomalies[:AnomalySampleSize]...)
	summary = append(summary, SUMMARY_TAIL_MARKER)
	summary = append(summary, anomalies[len(anomalies)-AnomalySampleSize:]...)
	return summary
}

// IsSummarized reports whether SummarizeAnomalies had to sample.
func IsSummarized(rawCount int) bool {
	return rawCount > MaxAnomaliesToSend
}
