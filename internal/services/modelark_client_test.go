package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/santai/backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModelArk(t *testing.T, handler http.HandlerFunc) *ModelArkClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewModelArkClient(config.ModelArkConfig{
		APIKey:            "test-key",
		ChatURL:           server.URL + "/chat/completions",
		TextModel:         "text-model",
		VisionModel:       "vision-model",
		TextTemperature:   0.7,
		VisionTemperature: 0.5,
		MaxTokens:         2048,
		Timeout:           5 * time.Second,
	})
}

func completionBody(content string) string {
	data, _ := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return string(data)
}

func TestModelArkCompleteRequestShape(t *testing.T) {
	var body map[string]interface{}
	client := newTestModelArk(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(completionBody("analysis")))
	})

	got, err := client.Complete(context.Background(), "describe the incident")
	require.NoError(t, err)
	assert.Equal(t, "analysis", got)

	assert.Equal(t, "text-model", body["model"])
	assert.Equal(t, 0.7, body["temperature"])
	assert.Equal(t, float64(2048), body["max_tokens"])
	messages := body["messages"].([]interface{})
	require.Len(t, messages, 1)
	msg := messages[0].(map[string]interface{})
	assert.Equal(t, "user", msg["role"])
	assert.Equal(t, "describe the incident", msg["content"])
}

func TestModelArkCompleteWithImageSendsParts(t *testing.T) {
	var body map[string]interface{}
	client := newTestModelArk(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(completionBody("screenshot analysis")))
	})

	got, err := client.CompleteWithImage(context.Background(), "look", "data:image/png;base64,AAAA")
	require.NoError(t, err)
	assert.Equal(t, "screenshot analysis", got)

	assert.Equal(t, "vision-model", body["model"])
	assert.Equal(t, 0.5, body["temperature"])
	msg := body["messages"].([]interface{})[0].(map[string]interface{})
	parts := msg["content"].([]interface{})
	require.Len(t, parts, 2)

	text := parts[0].(map[string]interface{})
	assert.Equal(t, "text", text["type"])
	assert.Equal(t, "look", text["text"])

	image := parts[1].(map[string]interface{})
	assert.Equal(t, "image_url", image["type"])
	assert.Equal(t, "data:image/png;base64,AAAA", image["image_url"].(map[string]interface{})["url"])
}

func TestModelArkEmptyCompletion(t *testing.T) {
	for _, payload := range []string{`{"choices":[]}`, completionBody("   \n")} {
		client := newTestModelArk(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(payload))
		})
		_, err := client.Complete(context.Background(), "prompt")
		assert.ErrorIs(t, err, ErrEmptyCompletion)
	}
}

func TestModelArkNonOKStatus(t *testing.T) {
	client := newTestModelArk(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	})

	_, err := client.Complete(context.Background(), "prompt")
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusTooManyRequests, upstream.Status)
	assert.True(t, strings.Contains(err.Error(), "rate limited"))

	calls := client.GetAPICalls()
	require.Len(t, calls, 1)
	assert.Equal(t, http.StatusTooManyRequests, calls[0].Status)
	assert.NotEmpty(t, calls[0].Error)
}

func TestModelArkTracksCalls(t *testing.T) {
	client := newTestModelArk(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(completionBody("ok")))
	})

	for i := 0; i < maxTrackedCalls+5; i++ {
		_, err := client.Complete(context.Background(), "prompt")
		require.NoError(t, err)
	}
	_, err := client.CompleteWithImage(context.Background(), "p", "data:image/png;base64,AA")
	require.NoError(t, err)

	calls := client.GetAPICalls()
	require.Len(t, calls, maxTrackedCalls)
	last := calls[len(calls)-1]
	assert.Equal(t, "vision", last.CallType)
	assert.Equal(t, "vision-model", last.Model)
	assert.True(t, strings.HasPrefix(last.ID, "llm_"))
	assert.Equal(t, http.StatusOK, last.Status)
	assert.Equal(t, 2, last.ResponseLength)

	client.ClearAPICalls()
	assert.Empty(t, client.GetAPICalls())
}
