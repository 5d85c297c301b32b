package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/YauheniMa/witcher-bot/internal/errors"
)

// Default LLM recognizer configuration.
const (
	DefaultLLMModel   = "qwen3:0.6b"
	DefaultLLMHost    = "http://localhost:11434"
	DefaultLLMTimeout = 10 * time.Second
)

// LLMConfig configures an LLMRecognizer.
type LLMConfig struct {
	Host    string
	Model   string
	Timeout time.Duration
	// Gazetteer maps returned names to corpus spellings. Optional.
	Gazetteer *Gazetteer
}

// LLMRecognizer asks an Ollama model for the named entities of a query.
type LLMRecognizer struct {
	client    *http.Client
	config    LLMConfig
	breaker   *errors.CircuitBreaker
	gazetteer *Gazetteer
}

var _ Recognizer = (*LLMRecognizer)(nil)

type llmGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Format string `json:"format"`
	Stream bool   `json:"stream"`
}

type llmGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// llmEntities is the JSON object the model is asked to produce.
type llmEntities struct {
	Characters []string `json:"characters"`
	Locations  []string `json:"locations"`
	Other      []string `json:"other"`
}

const entityPromptTemplate = `Extract named entities from the user query about The Witcher saga.

Query:
%s

Return JSON only, in this exact shape:
{"characters": [], "locations": [], "other": []}

Use the nominative form of each name. Leave a list empty when nothing fits.`

// NewLLMRecognizer creates an LLM-backed recognizer.
func NewLLMRecognizer(config LLMConfig) *LLMRecognizer {
	if config.Host == "" {
		config.Host = DefaultLLMHost
	}
	if config.Model == "" {
		config.Model = DefaultLLMModel
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultLLMTimeout
	}
	config.Host = strings.TrimRight(config.Host, "/")

	return &LLMRecognizer{
		client:    &http.Client{Timeout: config.Timeout},
		config:    config,
		breaker:   errors.NewCircuitBreaker("llm_recognizer", errors.WithMaxFailures(3)),
		gazetteer: config.Gazetteer,
	}
}

// Name implements Recognizer.
func (l *LLMRecognizer) Name() string {
	return "llm:" + l.config.Model
}

// Recognize implements Recognizer.
func (l *LLMRecognizer) Recognize(ctx context.Context, text string) ([]Span, error) {
	var raw string
	err := l.breaker.Execute(func() error {
		var genErr error
		raw, genErr = l.generate(ctx, fmt.Sprintf(entityPromptTemplate, text))
		return genErr
	})
	if err != nil {
		return nil, err
	}

	var entities llmEntities
	if err := json.Unmarshal([]byte(raw), &entities); err != nil {
		return nil, fmt.Errorf("decode entities: %w", err)
	}

	spans := make([]Span, 0, len(entities.Characters)+len(entities.Locations)+len(entities.Other))
	spans = l.appendSpans(spans, entities.Characters, TypePerson)
	spans = l.appendSpans(spans, entities.Locations, TypeLocation)
	spans = l.appendSpans(spans, entities.Other, TypeOther)

	slog.Debug("llm_entities",
		slog.String("model", l.config.Model),
		slog.Int("spans", len(spans)))
	return spans, nil
}

// appendSpans canonicalizes names through the gazetteer. A known name takes
// the gazetteer's type.
func (l *LLMRecognizer) appendSpans(spans []Span, names []string, typ SpanType) []Span {
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		span := Span{Text: name, Type: typ}
		if l.gazetteer != nil {
			if canonical, known, ok := l.gazetteer.Canonical(name); ok {
				span.Normal = canonical
				span.Type = known
			}
		}
		spans = append(spans, span)
	}
	return spans
}

func (l *LLMRecognizer) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(llmGenerateRequest{
		Model:  l.config.Model,
		Prompt: prompt,
		Format: "json",
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.config.Host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", errors.NetworkError("ollama unreachable", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var genResp llmGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return genResp.Response, nil
}
