package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/santai/backend/internal/config"
	"github.com/santai/backend/internal/logger"
	"github.com/santai/backend/internal/metrics"
)

// ChatCompleter sends a composed prompt to the generative model.
type ChatCompleter interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithImage(ctx context.Context, prompt, imageDataURL string) (string, error)
}

type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

// ChatMessage content is either a string or a []ContentPart.
type ChatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

type ChatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// LLMAPICall is one tracked call to the model API.
type LLMAPICall struct {
	ID             string        `json:"id"`
	Timestamp      time.Time     `json:"timestamp"`
	Endpoint       string        `json:"endpoint"`
	Model          string        `json:"model"`
	CallType       string        `json:"callType"` // "text" or "vision"
	PromptLength   int           `json:"promptLength"`
	Status         int           `json:"status"`
	Duration       time.Duration `json:"duration"`
	ResponseLength int           `json:"responseLength"`
	Error          string        `json:"error,omitempty"`
}

const maxTrackedCalls = 100

// ModelArkClient calls the ModelArk chat-completions endpoint.
type ModelArkClient struct {
	cfg       config.ModelArkConfig
	client    *http.Client
	apiCalls  []LLMAPICall
	callMutex sync.RWMutex
}

func NewModelArkClient(cfg config.ModelArkConfig) *ModelArkClient {
	return &ModelArkClient{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		apiCalls: make([]LLMAPICall, 0),
	}
}

// Complete runs a text-only completion.
func (mc *ModelArkClient) Complete(ctx context.Context, prompt string) (string, error) {
	request := ChatCompletionRequest{
		Model:       mc.cfg.TextModel,
		Messages:    []ChatMessage{{Role: "user", Content: prompt}},
		Temperature: mc.cfg.TextTemperature,
		MaxTokens:   mc.cfg.MaxTokens,
	}
	return mc.send(ctx, "text", len(prompt), request)
}

// CompleteWithImage runs a completion with an inline image.
func (mc *ModelArkClient) CompleteWithImage(ctx context.Context, prompt, imageDataURL string) (string, error) {
	request := ChatCompletionRequest{
		Model: mc.cfg.VisionModel,
		Messages: []ChatMessage{{
			Role: "user",
			Content: []ContentPart{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &ImageURL{URL: imageDataURL}},
			},
		}},
		Temperature: mc.cfg.VisionTemperature,
		MaxTokens:   mc.cfg.MaxTokens,
	}
	return mc.send(ctx, "vision", len(prompt), request)
}

func (mc *ModelArkClient) send(ctx context.Context, callType string, promptLength int, request ChatCompletionRequest) (string, error) {
	startTime := time.Now()
	call := LLMAPICall{
		ID:           "llm_" + uuid.NewString(),
		Timestamp:    startTime,
		Endpoint:     mc.cfg.ChatURL,
		Model:        request.Model,
		CallType:     callType,
		PromptLength: promptLength,
	}
	log := logger.WithUpstream("modelark_client", callType)

	content, status, err := mc.do(ctx, request)
	elapsed := time.Since(startTime)
	metrics.ObserveUpstream("modelark_"+callType, err, elapsed)

	call.Status = status
	call.Duration = elapsed
	call.ResponseLength = len(content)
	if err != nil {
		call.Error = err.Error()
		log.WithField("duration", elapsed.String()).WithField("error", err.Error()).Error("ModelArk request failed")
	} else {
		log.WithField("duration", elapsed.String()).WithField("prompt_length", promptLength).Info("ModelArk request completed")
	}
	mc.addAPICall(call)

	return content, err
}

func (mc *ModelArkClient) do(ctx context.Context, request ChatCompletionRequest) (string, int, error) {
	jsonData, err := json.Marshal(request)
	if err != nil {
		return "", 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, mc.cfg.ChatURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+mc.cfg.APIKey)

	resp, err := mc.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", resp.StatusCode, &UpstreamError{Service: "ModelArk API", Status: resp.StatusCode, Body: string(body)}
	}

	var completion ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", resp.StatusCode, fmt.Errorf("failed to decode ModelArk response: %w", err)
	}
	if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
		return "", resp.StatusCode, ErrEmptyCompletion
	}
	return completion.Choices[0].Message.Content, resp.StatusCode, nil
}

// GetAPICalls returns a copy of the tracked calls, oldest first.
func (mc *ModelArkClient) GetAPICalls() []LLMAPICall {
	mc.callMutex.RLock()
	defer mc.callMutex.RUnlock()

	calls := make([]LLMAPICall, len(mc.apiCalls))
	copy(calls, mc.apiCalls)
	return calls
}

// ClearAPICalls clears the API call history
func (mc *ModelArkClient) ClearAPICalls() {
	mc.callMutex.Lock()
	defer mc.callMutex.Unlock()
	mc.apiCalls = make([]LLMAPICall, 0)
}

func (mc *ModelArkClient) addAPICall(call LLMAPICall) {
	mc.callMutex.Lock()
	defer mc.callMutex.Unlock()

	if len(mc.apiCalls) >= maxTrackedCalls {
		mc.apiCalls = mc.apiCalls[1:]
	}
	mc.apiCalls = append(mc.apiCalls, call)
}
