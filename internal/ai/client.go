// Package ai wraps the Gemini API behind a hardened client: circuit breaker,
// client-side rate limiting and tracing. All remote model calls in the
// system go through here.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"

	"railops-assistant/internal/config"
)

// Client talks to Gemini for both completion and embeddings. The embedding
// model is pinned in configuration; index build and query embedding must use
// the same client so the model can never diverge between the two.
type Client struct {
	cfg         *config.Config
	client      *genai.Client
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter
}

type rateLimits struct {
	RPM int // Requests per minute
}

func getRateLimits(tier string) rateLimits {
	switch tier {
	case "free":
		return rateLimits{RPM: 10}
	case "tier1":
		return rateLimits{RPM: 1000}
	case "tier2":
		return rateLimits{RPM: 2000}
	default:
		return rateLimits{RPM: 10}
	}
}

func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("missing GEMINI_API_KEY")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, err
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	limits := getRateLimits(cfg.GeminiTier)
	// RPM limit with some buffer
	rateLimiter := rate.NewLimiter(rate.Limit(float64(limits.RPM)*0.9/60.0), max(limits.RPM/10, 1))

	return &Client{
		cfg:         cfg,
		client:      client,
		breaker:     breaker,
		rateLimiter: rateLimiter,
	}, nil
}

// Close releases the underlying API client.
func (c *Client) Close() error {
	return c.client.Close()
}

// Embed returns the embedding vector for text using the pinned model.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.embed")
	defer span.End()
	span.SetAttributes(
		attribute.String("gemini.model", c.cfg.EmbeddingModel),
		attribute.Int("gemini.text_len", len(text)),
	)

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		model := c.client.EmbeddingModel(c.cfg.EmbeddingModel)
		resp, err := model.EmbedContent(ctx, genai.Text(text))
		if err != nil {
			return nil, err
		}
		if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
			return nil, errors.New("no embedding returned")
		}
		return resp.Embedding.Values, nil
	})
	if err != nil {
		span.SetAttributes(attribute.Bool("gemini.error", true))
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	return result.([]float32), nil
}

// Complete generates a plain-text answer for prompt.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, prompt, "", false)
}

// CompleteJSON generates output under a system instruction with the JSON
// response MIME type set. The model still does not guarantee strict JSON;
// callers must parse defensively.
func (c *Client) CompleteJSON(ctx context.Context, systemInstruction, prompt string) (string, error) {
	return c.generate(ctx, prompt, systemInstruction, true)
}

func (c *Client) generate(ctx context.Context, prompt, systemInstruction string, jsonMode bool) (string, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.generate_content")
	defer span.End()
	span.SetAttributes(
		attribute.String("gemini.model", c.cfg.GeminiModel),
		attribute.Bool("gemini.json_mode", jsonMode),
		attribute.Int("gemini.prompt_len", len(prompt)),
	)

	if err := c.rateLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return "", err
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		model := c.client.GenerativeModel(c.cfg.GeminiModel)
		model.SetTemperature(0.2)
		model.SetMaxOutputTokens(2048)
		if systemInstruction != "" {
			model.SystemInstruction = &genai.Content{
				Parts: []genai.Part{genai.Text(systemInstruction)},
			}
		}
		if jsonMode {
			model.ResponseMIMEType = "application/json"
		}

		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return nil, err
		}
		return extractText(resp), nil
	})
	if err != nil {
		span.SetAttributes(
			attribute.Bool("gemini.error", true),
			attribute.String("gemini.error_message", err.Error()),
		)
		return "", fmt.Errorf("completion request failed: %w", err)
	}

	text := result.(string)
	if text == "" {
		return "", errors.New("empty completion response")
	}
	return text, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var out string
	for _, part := range resp.Candidates[0].Content.Parts {
		if textPart, ok := part.(genai.Text); ok {
			out += string(textPart)
		}
	}
	return out
}
