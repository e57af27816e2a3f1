// Package openai scores defense criticality through an OpenAI-compatible
// chat-completions endpoint with a structured-output schema.
package openai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"tradelens/config"
	"tradelens/internal/domain"
)

// defaultRubric is the system instruction defining the 0-10 scale.
const defaultRubric = `You are a defense industrial base expert. Score how critical each product is for US defense/military capabilities on a scale of 0-10.

Scoring criteria:
- 10: Mission critical - Direct weapons systems (missiles, ammunition, combat vehicles) OR critical supply chain items without which defense production stops (fasteners, basic materials, essential components)
- 7-9: High importance - Dual-use critical technology (semiconductors, batteries, rare earth elements), defense manufacturing equipment, key materials
- 4-6: Moderate importance - General industrial goods used in defense, commercial dual-use items
- 1-3: Low importance - Consumer goods with minimal defense applications
- 0: No defense relevance - Pure consumer/civilian products

Consider:
1. Direct military use
2. Supply chain criticality (if this stops, defense production stops)
3. Dual-use technology importance
4. Manufacturing capability dependence
5. Strategic material importance

Be realistic - fasteners are 10 because nothing can be built without them, but luxury consumer goods are 0.`

type Scorer struct {
	apiKey  string
	model   string
	baseURL string
	rubric  string
	client  *http.Client
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string     `json:"type"`
	JSONSchema jsonSchema `json:"json_schema"`
}

type jsonSchema struct {
	Name   string          `json:"name"`
	Strict bool            `json:"strict"`
	Schema json.RawMessage `json:"schema"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *apiError    `json:"error,omitempty"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// scoreOutput is the shape the model is constrained to emit.
type scoreOutput struct {
	Score     int    `json:"score"`
	Reasoning string `json:"reasoning"`
}

var scoreSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"score": {"type": "integer", "minimum": 0, "maximum": 10},
		"reasoning": {"type": "string"}
	},
	"required": ["score", "reasoning"],
	"additionalProperties": false
}`)

// NewScorer builds a scorer from config. The API key must be present in
// the configured environment variable.
func NewScorer(cfg config.ScoringConfig) (*Scorer, error) {
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", cfg.APIKeyEnv)
	}

	rubric := cfg.Rubric
	if rubric == "" {
		rubric = defaultRubric
	}

	return &Scorer{
		apiKey:  apiKey,
		model:   cfg.Model,
		baseURL: cfg.BaseURL,
		rubric:  rubric,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// Score submits one (HS6, description) pair and returns the parsed entry.
// Any failure, including model output that violates the schema, is an
// error; no partial score is ever returned.
func (s *Scorer) Score(hs6, description string) (*domain.DefenseScore, error) {
	reqBody := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: s.rubric},
			{Role: "user", Content: fmt.Sprintf("Score defense criticality for HS6: %s - %s", hs6, description)},
		},
		ResponseFormat: &responseFormat{
			Type: "json_schema",
			JSONSchema: jsonSchema{
				Name:   "defense_score",
				Strict: true,
				Schema: scoreSchema,
			},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest("POST", s.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if chatResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("response contains no choices")
	}

	var out scoreOutput
	if err := json.Unmarshal([]byte(chatResp.Choices[0].Message.Content), &out); err != nil {
		return nil, fmt.Errorf("failed to parse model output: %w", err)
	}

	if out.Score < 0 || out.Score > 10 {
		return nil, fmt.Errorf("model returned score %d outside 0-10", out.Score)
	}

	return &domain.DefenseScore{
		HS6:         hs6,
		Description: description,
		Score:       out.Score,
		Reasoning:   out.Reasoning,
	}, nil
}
