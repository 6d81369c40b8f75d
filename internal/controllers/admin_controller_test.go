package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/santai/backend/internal/models"
	"github.com/santai/backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAudits struct {
	gotLimit, gotOffset int
	err                 error
}

func (f *fakeAudits) Recent(ctx context.Context, limit, offset int) ([]models.TriageAudit, int64, error) {
	f.gotLimit, f.gotOffset = limit, offset
	if f.err != nil {
		return nil, 0, f.err
	}
	return []models.TriageAudit{{ID: 3, Kind: models.TriageKindText}}, 41, nil
}

type fakeCalls struct {
	calls   []services.LLMAPICall
	cleared bool
}

func (f *fakeCalls) GetAPICalls() []services.LLMAPICall { return f.calls }
func (f *fakeCalls) ClearAPICalls()                     { f.cleared = true; f.calls = nil }

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestGetTriagesPagination(t *testing.T) {
	audits := &fakeAudits{}
	r := gin.New()
	r.GET("/triages", NewAdminController(audits, &fakeCalls{}).GetTriages)

	w := get(r, "/triages?page=3&limit=10")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 10, audits.gotLimit)
	assert.Equal(t, 20, audits.gotOffset)

	pagination := decodeBody(t, w)["pagination"].(map[string]interface{})
	assert.Equal(t, float64(41), pagination["total"])

	w = get(r, "/triages?page=0&limit=5000")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 20, audits.gotLimit)
	assert.Equal(t, 0, audits.gotOffset)
}

func TestGetTriagesUnavailable(t *testing.T) {
	r := gin.New()
	r.GET("/triages", NewAdminController(nil, &fakeCalls{}).GetTriages)
	assert.Equal(t, http.StatusServiceUnavailable, get(r, "/triages").Code)

	r = gin.New()
	r.GET("/triages", NewAdminController(&fakeAudits{err: errors.New("db")}, &fakeCalls{}).GetTriages)
	assert.Equal(t, http.StatusInternalServerError, get(r, "/triages").Code)
}

func TestLLMAPICallsEndpoints(t *testing.T) {
	calls := &fakeCalls{calls: []services.LLMAPICall{{ID: "llm_1", CallType: "text"}}}
	ac := NewAdminController(nil, calls)
	r := gin.New()
	r.GET("/calls", ac.GetLLMAPICalls)
	r.DELETE("/calls", ac.ClearLLMAPICalls)

	w := get(r, "/calls")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["total"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/calls", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, calls.cleared)
}

type fakePinger struct{ err error }

func (f fakePinger) PingContext(ctx context.Context) error { return f.err }

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		db         Pinger
		wantStatus int
		wantDB     string
	}{
		{"no database", nil, http.StatusOK, "disabled"},
		{"healthy", fakePinger{}, http.StatusOK, "ok"},
		{"unreachable", fakePinger{err: errors.New("refused")}, http.StatusServiceUnavailable, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/health", NewHealthController(tt.db, true).Health)

			w := get(r, "/health")
			assert.Equal(t, tt.wantStatus, w.Code)
			svc := decodeBody(t, w)["services"].(map[string]interface{})
			assert.Equal(t, tt.wantDB, svc["database"].(map[string]interface{})["status"])
		})
	}
}
