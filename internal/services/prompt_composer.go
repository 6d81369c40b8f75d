package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santai/backend/internal/logger"
	"github.com/santai/backend/internal/models"
)

// MaxKnowledgeExamples is how many of the most recent knowledge examples go
// into a prompt. Fixed; not a tuning knob.
const MaxKnowledgeExamples = 2

// knowledgePayload is the wire shape sent by the browser. The id is ignored
// because clients have sent it both as a number and as a string.
type knowledgePayload struct {
	ID     json.RawMessage `json:"id"`
	Input  string          `json:"input"`
	Output string          `json:"output"`
}

// ParseKnowledge decodes a caller-supplied knowledge list. An empty or
// malformed payload yields an empty list; the caller never sees an error.
func ParseKnowledge(raw string) []models.KnowledgeExample {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var payload []knowledgePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		logger.WithError(err, "prompt_composer").Warn("Failed to parse knowledge base JSON, continuing without examples")
		return nil
	}

	examples := make([]models.KnowledgeExample, 0, len(payload))
	for _, p := range payload {
		examples = append(examples, models.KnowledgeExample{Input: p.Input, Output: p.Output})
	}
	return examples
}

// EncodeKnowledge is the inverse of ParseKnowledge for stored examples.
func EncodeKnowledge(examples []models.KnowledgeExample) string {
	payload := make([]knowledgePayload, 0, len(examples))
	for _, e := range examples {
		payload = append(payload, knowledgePayload{
			ID:     json.RawMessage(fmt.Sprintf("%d", e.ID)),
			Input:  e.Input,
			Output: e.Output,
		})
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// SelectKnowledge returns the insertion-order tail used for prompting.
func SelectKnowledge(knowledge []models.KnowledgeExample) []models.KnowledgeExample {
	if len(knowledge) <= MaxKnowledgeExamples {
		return knowledge
	}
	return knowledge[len(knowledge)-MaxKnowledgeExamples:]
}

// ComposePrompt prefixes basePrompt with the most recent knowledge examples.
// With no examples basePrompt comes back unchanged.
func ComposePrompt(basePrompt string, knowledge []models.KnowledgeExample) string {
	selected := SelectKnowledge(knowledge)
	if len(selected) == 0 {
		return basePrompt
	}

	rendered := make([]string, 0, len(selected))
	for _, example := range selected {
		rendered = append(rendered, fmt.Sprintf(KNOWLEDGE_EXAMPLE_TEMPLATE, example.Input, example.Output))
	}

	var b strings.Builder
	b.WriteString(KNOWLEDGE_PREAMBLE)
	b.WriteString("\n\n")
	b.WriteString(KNOWLEDGE_DELIMITER)
	b.WriteString("\n")
	b.WriteString(strings.Join(rendered, "\n"+KNOWLEDGE_DELIMITER+"\n"))
	b.WriteString("\n")
	b.WriteString(KNOWLEDGE_DELIMITER)
	b.WriteString("\n\n")
	b.WriteString(NEW_INCIDENT_HEADING)
	b.WriteString("\n\n")
	b.WriteString(basePrompt)
	return b.String()
}

// BuildIncidentPrompt renders the base text-model prompt for an incident.
func BuildIncidentPrompt(incident *models.IncidentRecord) string {
	return fmt.Sprintf(INCIDENT_ANALYSIS_PROMPT, strings.Join(incident.AnomaliesFound, "\n"), incident.RawLogExcerpt)
}
