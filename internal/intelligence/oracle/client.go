package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/turtacn/opgrader/internal/infrastructure/monitoring/logging"
)

// defaultTimeout bounds a single chat completion round trip.
const defaultTimeout = 30 * time.Second

// Client is the extraction oracle contract.  Extract never fails with an
// error for a degraded path: transport failures, malformed output and schema
// violations all surface as Fallback outcomes.
type Client interface {
	Extract(ctx context.Context, task string, payload any) Outcome
}

// Config carries the HTTP oracle's connection parameters.
type Config struct {
	// Endpoint is the full URL of an OpenAI-compatible chat completions API.
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	// Model is the model identifier sent with every request.
	Model string `yaml:"model" json:"model"`
	// APIKey is sent as a bearer token when non-empty.
	APIKey string `yaml:"api_key" json:"api_key"`
	// Bundle names the prompt bundle included in every request payload.
	Bundle string `yaml:"bundle" json:"bundle"`
	// Timeout bounds one round trip; defaults to 30s.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// httpClient calls an OpenAI-compatible chat endpoint and validates every
// response against the task's embedded JSON schema, with exactly one repair
// attempt before falling back.
type httpClient struct {
	cfg    Config
	client *http.Client
	logger logging.Logger
}

// NewClient constructs the HTTP extraction oracle.
func NewClient(cfg Config, logger logging.Logger) Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &httpClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *httpClient) Extract(ctx context.Context, task string, payload any) Outcome {
	sch, err := schemaFor(task)
	if err != nil {
		return Fallback("unknown task: " + err.Error())
	}

	system := "Return ONLY valid JSON per schema with evidence line ranges."
	user := map[string]any{"bundle": c.cfg.Bundle, "task": task, "input": payload}

	raw, err := c.complete(ctx, system, user)
	if err != nil {
		c.logger.Warn("oracle request failed", logging.String("task", task), logging.Err(err))
		return Fallback("oracle unavailable: " + err.Error())
	}
	if msgs := validateDocument(sch, raw); msgs != nil {
		c.logger.Warn("oracle output failed schema validation",
			logging.String("task", task),
			logging.String("violations", strings.Join(msgs, "; ")),
		)
		return c.repair(ctx, task, sch, payload)
	}
	return OK(raw)
}

// repair is the single retry after a schema violation: same input, with an
// explicit conform instruction.
func (c *httpClient) repair(ctx context.Context, task string, sch *jsonschema.Schema, payload any) Outcome {
	system := "Return ONLY valid JSON that satisfies the provided JSON schema."
	user := map[string]any{"bundle": c.cfg.Bundle, "task": "repair:" + task, "input": payload}

	raw, err := c.complete(ctx, system, user)
	if err != nil {
		return Fallback("oracle repair failed: " + err.Error())
	}
	if msgs := validateDocument(sch, raw); msgs != nil {
		return Fallback("oracle output failed schema validation after repair: " + strings.Join(msgs, "; "))
	}
	return OK(raw)
}

// complete runs one chat completion and returns the message content, which
// must parse as a JSON document.
func (c *httpClient) complete(ctx context.Context, system string, user any) (json.RawMessage, error) {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request payload: %w", err)
	}
	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: string(userJSON)},
		},
		Temperature: 0,
		MaxTokens:   1200,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("oracle endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("failed to decode chat response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("chat response contains no choices")
	}

	content := strings.TrimSpace(chat.Choices[0].Message.Content)
	if !strings.HasPrefix(content, "{") {
		return nil, fmt.Errorf("oracle output is not a JSON object")
	}
	var probe any
	if err := json.Unmarshal([]byte(content), &probe); err != nil {
		return nil, fmt.Errorf("oracle output is not valid JSON: %w", err)
	}
	return json.RawMessage(content), nil
}

// validateDocument decodes the raw document and runs schema validation,
// returning nil when valid.
func validateDocument(sch *jsonschema.Schema, raw json.RawMessage) []string {
	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return []string{err.Error()}
	}
	return validateInstance(sch, instance)
}
