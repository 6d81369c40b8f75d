package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/santai/backend/internal/config"
	"github.com/santai/backend/internal/logger"
	"github.com/santai/backend/internal/metrics"
	"github.com/santai/backend/internal/models"
)

// ReputationDateLayout mirrors the id-ID locale date format.
const ReputationDateLayout = "2/1/2006, 15.04.05"

var ipv4Pattern = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)

// ExtractIPv4s returns the distinct IPv4-looking literals in text, in the
// order they first appear.
func ExtractIPv4s(text string) []string {
	matches := ipv4Pattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	ips := make([]string, 0, len(matches))
	for _, ip := range matches {
		if _, ok := seen[ip]; ok {
			continue
		}
		seen[ip] = struct{}{}
		ips = append(ips, ip)
	}
	return ips
}

// ReputationLookup resolves reputation metadata for a single IP.
type ReputationLookup interface {
	Lookup(ctx context.Context, ip string) (*models.ReputationRecord, error)
}

type virusTotalIPResponse struct {
	Data struct {
		Attributes struct {
			ASOwner           string         `json:"as_owner"`
			Country           string         `json:"country"`
			Reputation        int            `json:"reputation"`
			LastAnalysisStats map[string]int `json:"last_analysis_stats"`
			LastAnalysisDate  int64          `json:"last_analysis_date"`
		} `json:"attributes"`
	} `json:"data"`
}

// VirusTotalClient looks up IP addresses through the VirusTotal v3 API.
type VirusTotalClient struct {
	apiKey   string
	baseURL  string
	location *time.Location
	client   *http.Client
}

// NewVirusTotalClient returns nil when no API key is configured; callers
// treat a nil lookup as "reputation disabled".
func NewVirusTotalClient(cfg config.ReputationConfig) *VirusTotalClient {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn("Unknown reputation timezone, falling back to UTC", map[string]interface{}{
			"timezone": cfg.Timezone,
			"error":    err.Error(),
		})
		loc = time.UTC
	}

	return &VirusTotalClient{
		apiKey:   cfg.APIKey,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		location: loc,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

// Lookup fetches the IP report and maps it onto a ReputationRecord.
func (vc *VirusTotalClient) Lookup(ctx context.Context, ip string) (*models.ReputationRecord, error) {
	startTime := time.Now()
	record, err := vc.lookup(ctx, ip)
	elapsed := time.Since(startTime)
	metrics.ObserveUpstream("reputation", err, elapsed)

	log := logger.WithUpstream("reputation_client", "ip_lookup").WithField("ip", ip).WithField("duration", elapsed.String())
	if err != nil {
		log.WithField("error", err.Error()).Warn("Reputation lookup failed")
		return nil, err
	}
	log.Info("Reputation lookup completed")
	return record, nil
}

func (vc *VirusTotalClient) lookup(ctx context.Context, ip string) (*models.ReputationRecord, error) {
	endpoint := fmt.Sprintf("%s/ip_addresses/%s", vc.baseURL, url.PathEscape(ip))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("x-apikey", vc.apiKey)

	resp, err := vc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reputation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &UpstreamError{Service: "VirusTotal", Status: resp.StatusCode, Body: string(body)}
	}

	var report virusTotalIPResponse
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("failed to decode VirusTotal response: %w", err)
	}

	attr := report.Data.Attributes
	record := &models.ReputationRecord{
		IP:                ip,
		Owner:             attr.ASOwner,
		Country:           attr.Country,
		Reputation:        attr.Reputation,
		LastAnalysisStats: attr.LastAnalysisStats,
	}
	if record.LastAnalysisStats == nil {
		record.LastAnalysisStats = map[string]int{}
	}
	if attr.LastAnalysisDate > 0 {
		record.LastAnalysisAt = time.Unix(attr.LastAnalysisDate, 0).In(vc.location)
		record.LastAnalysisDate = record.LastAnalysisAt.Format(ReputationDateLayout)
	}
	return record, nil
}
