// Package backend talks to the Ollama generation endpoint.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	slogctx "github.com/veqryn/slog-context"

	"InterviewGuru/internal/serviceerr"
)

const (
	DefaultHost    = "http://localhost:11434"
	DefaultModel   = "llama3:8b"
	DefaultTimeout = 120 * time.Second

	maxDetailLength = 512
)

// Config describes the generation endpoint.
type Config struct {
	Host    string
	Model   string
	Timeout time.Duration
}

// Options are per-call generation parameters.
type Options struct {
	Temperature float64
	// KeepAlivePersist asks the endpoint to keep the model resident.
	KeepAlivePersist bool
}

// Client is a minimal non-streaming Ollama client.
type Client struct {
	host       string
	model      string
	httpClient *http.Client
	tracer     trace.Tracer
	duration   metric.Float64Histogram
	calls      metric.Int64Counter
}

// NewClient creates a client. Zero config fields take their defaults.
func NewClient(cfg Config, tracer trace.Tracer, meter metric.Meter) (*Client, error) {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	duration, err := meter.Float64Histogram(
		"http.client.request.duration",
		metric.WithDescription("Generation request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}
	calls, err := meter.Int64Counter(
		"llm.generate.calls",
		metric.WithDescription("Generation calls by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create call counter: %w", err)
	}

	return &Client{
		host:       strings.TrimRight(cfg.Host, "/"),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		tracer:     tracer,
		duration:   duration,
		calls:      calls,
	}, nil
}

// Model returns the model identifier sent with every request.
func (c *Client) Model() string { return c.model }

// Host returns the endpoint base URL.
func (c *Client) Host() string { return c.host }

// Generate sends prompt and returns the generated text. When the endpoint
// replies without a string "response" field the raw body is returned.
func (c *Client) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	ctx, span := c.tracer.Start(ctx, "ollama_generate", trace.WithAttributes(
		attribute.String("llm.model", c.model),
		attribute.Float64("llm.temperature", opts.Temperature),
		attribute.Bool("llm.keep_alive", opts.KeepAlivePersist),
		attribute.Int("llm.prompt_length", len(prompt)),
	))
	defer span.End()

	start := time.Now()
	text, err := c.generate(ctx, prompt, opts)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		if errors.Is(err, serviceerr.ErrTimeout) {
			outcome = "timeout"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	c.duration.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
	c.calls.Add(ctx, 1, attrs)

	slogctx.Debug(ctx, "generation finished", "outcome", outcome, "duration", time.Since(start), "response_length", len(text))
	return text, err
}

func (c *Client) generate(ctx context.Context, prompt string, opts Options) (string, error) {
	reqBody := GenerateRequest{
		Model:       c.model,
		Prompt:      prompt,
		Stream:      false,
		Temperature: opts.Temperature,
		Options:     GenerateOptions{Temperature: opts.Temperature},
	}
	if opts.KeepAlivePersist {
		keepAlive := keepAliveForever
		reqBody.KeepAlive = &keepAlive
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	body, status, err := c.do(ctx, http.MethodPost, "/api/generate", jsonData)
	if err != nil {
		return "", err
	}
	if status < 200 || status > 299 {
		return "", &serviceerr.UpstreamError{StatusCode: status, Detail: errorDetail(body)}
	}

	if r := gjson.GetBytes(body, "response"); r.Type == gjson.String {
		return r.Str, nil
	}
	return string(body), nil
}

// ListModels returns the models installed on the endpoint.
func (c *Client) ListModels(ctx context.Context) ([]OllamaModel, error) {
	ctx, span := c.tracer.Start(ctx, "ollama_list_models")
	defer span.End()

	body, status, err := c.do(ctx, http.MethodGet, "/api/tags", nil)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &serviceerr.UpstreamError{StatusCode: status, Detail: errorDetail(body)}
	}

	var tagsResp OllamaTagsResponse
	if err := json.Unmarshal(body, &tagsResp); err != nil {
		return nil, &serviceerr.UpstreamError{Err: fmt.Errorf("failed to unmarshal response: %w", err)}
	}
	return tagsResp.Models, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, int, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.host+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("content-type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, transportError(err)
	}
	return body, resp.StatusCode, nil
}

func transportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &serviceerr.UpstreamError{Err: fmt.Errorf("%w: %w", serviceerr.ErrTimeout, err)}
	}
	return &serviceerr.UpstreamError{Err: err}
}

// errorDetail prefers Ollama's {"error": "..."} message over the raw body.
func errorDetail(body []byte) string {
	if r := gjson.GetBytes(body, "error"); r.Type == gjson.String {
		return r.Str
	}
	detail := strings.TrimSpace(string(body))
	if len(detail) > maxDetailLength {
		detail = detail[:maxDetailLength]
	}
	return detail
}
