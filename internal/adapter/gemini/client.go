// Package gemini implements the text generation gateway against the Gemini
// generateContent REST endpoint.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/skyflick/skyflick/internal/config"
	"github.com/skyflick/skyflick/internal/domain"
	"github.com/skyflick/skyflick/internal/observability"
)

const serviceLabel = "gemini"

// MaxAllowedOutputTokens bounds the output budget accepted before calling out.
const MaxAllowedOutputTokens = 8192

// Finish reasons that mean the output was cut short. Truncation is surfaced
// as its own kind so callers can retry with a shorter prompt or larger budget
// instead of treating it as corrupt data.
var truncatedFinishReasons = map[string]bool{
	"MAX_TOKENS": true,
	"LENGTH":     true,
}

// Client sends prompts to the generation service.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a generation gateway client.
func NewClient(cfg config.GeminiConfig, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		metrics:    metrics,
	}
}

// Generate sends the prompt and returns the normalized generation result.
// Invalid arguments are rejected locally and never reach the network. A
// truncated response is returned as a KindTruncated error alongside the
// partial result so the caller can decide how to retry.
func (c *Client) Generate(ctx context.Context, prompt string, temperature float64, maxOutputTokens int) (domain.GenerationResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return domain.GenerationResult{}, domain.Errorf(domain.KindInvalidInput, "empty prompt")
	}
	if temperature < 0 || temperature > 1 {
		return domain.GenerationResult{}, domain.Errorf(domain.KindInvalidInput,
			"temperature %v out of range [0,1]", temperature)
	}
	if maxOutputTokens < 1 || maxOutputTokens > MaxAllowedOutputTokens {
		return domain.GenerationResult{}, domain.Errorf(domain.KindInvalidInput,
			"max output tokens %d out of range [1,%d]", maxOutputTokens, MaxAllowedOutputTokens)
	}

	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     temperature,
			MaxOutputTokens: maxOutputTokens,
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return domain.GenerationResult{}, domain.Errorf(domain.KindInvalidInput, "encode request: %w", err)
	}

	fullURL := c.baseURL + "/models/" + c.model + ":generateContent?key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(payload))
	if err != nil {
		return domain.GenerationResult{}, domain.Errorf(domain.KindUpstreamUnavailable, "create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.UpstreamDuration.WithLabelValues(serviceLabel).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(serviceLabel, "error").Inc()
		return domain.GenerationResult{}, domain.Errorf(domain.KindUpstreamUnavailable, "generation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.UpstreamRequests.WithLabelValues(serviceLabel, "error").Inc()
		body, _ := io.ReadAll(resp.Body)
		return domain.GenerationResult{}, domain.Errorf(domain.KindUpstreamUnavailable,
			"generation API status %d: %s", resp.StatusCode, body)
	}

	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(serviceLabel, "error").Inc()
		return domain.GenerationResult{}, domain.Errorf(domain.KindMalformedUpstreamData, "decode generation response: %w", err)
	}
	if len(gr.Candidates) == 0 {
		c.metrics.UpstreamRequests.WithLabelValues(serviceLabel, "error").Inc()
		return domain.GenerationResult{}, domain.Errorf(domain.KindMalformedUpstreamData, "no candidates returned")
	}

	cand := gr.Candidates[0]
	result := domain.GenerationResult{
		Text:       cand.text(),
		TokensUsed: gr.UsageMetadata.TotalTokenCount,
		Truncated:  truncatedFinishReasons[cand.FinishReason],
	}
	c.metrics.GenerationTokens.Observe(float64(result.TokensUsed))

	if result.Truncated {
		c.metrics.UpstreamRequests.WithLabelValues(serviceLabel, "error").Inc()
		return result, domain.Errorf(domain.KindTruncated,
			"generation stopped early: finish reason %s", cand.FinishReason)
	}
	if result.Text == "" {
		c.metrics.UpstreamRequests.WithLabelValues(serviceLabel, "error").Inc()
		return domain.GenerationResult{}, domain.Errorf(domain.KindMalformedUpstreamData, "candidate has no usable text")
	}

	c.metrics.UpstreamRequests.WithLabelValues(serviceLabel, "success").Inc()
	c.logger.Debug("generation completed", "tokens_used", result.TokensUsed)
	return result, nil
}

// Generation API request/response types.

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates    []candidate `json:"candidates"`
	UsageMetadata usage       `json:"usageMetadata"`
}

type candidate struct {
	Content      content `json:"content"`
	Text         string  `json:"text"` // legacy flat shape
	FinishReason string  `json:"finishReason"`
}

// text normalizes the two candidate shapes the service returns: the current
// nested content.parts form and the legacy flat text field.
func (c candidate) text() string {
	var b strings.Builder
	for _, p := range c.Content.Parts {
		b.WriteString(p.Text)
	}
	if b.Len() > 0 {
		return b.String()
	}
	return c.Text
}

type usage struct {
	PromptTokenCount int `json:"promptTokenCount"`
	TotalTokenCount  int `json:"totalTokenCount"`
}
