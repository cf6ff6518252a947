// Package voice drives an interview from a capture/speak device against the
// HTTP API.
package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"InterviewGuru/internal/reply"
	"InterviewGuru/internal/session"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
	Detail     string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("api error: status %d", e.StatusCode)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Detail != "" {
		msg += " - " + e.Detail
	}
	return msg
}

// RespondResult is the part of a respond answer the loop needs.
type RespondResult struct {
	NextQuestion *string         `json:"nextQuestion"`
	Feedback     *reply.Feedback `json:"feedback"`
	Closing      bool            `json:"closing"`
}

// Client calls the InterviewGuru HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL. timeout must cover
// a full model round trip.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) CreateSession(ctx context.Context, role, level string) (*session.Session, error) {
	var out struct {
		Session *session.Session `json:"session"`
	}
	body := map[string]string{"role": role, "level": level}
	if err := c.sendRequest(ctx, http.MethodPost, "/api/session", body, &out); err != nil {
		return nil, fmt.Errorf("create session failed: %w", err)
	}
	return out.Session, nil
}

func (c *Client) Session(ctx context.Context, id string) (*session.Session, error) {
	var out struct {
		Session *session.Session `json:"session"`
	}
	if err := c.sendRequest(ctx, http.MethodGet, "/api/session/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, fmt.Errorf("get session failed: %w", err)
	}
	return out.Session, nil
}

func (c *Client) Respond(ctx context.Context, id, text string) (*RespondResult, error) {
	var out RespondResult
	body := map[string]string{"sessionId": id, "text": text}
	if err := c.sendRequest(ctx, http.MethodPost, "/api/respond", body, &out); err != nil {
		return nil, fmt.Errorf("respond failed: %w", err)
	}
	return &out, nil
}

func (c *Client) End(ctx context.Context, id string) (*reply.Summary, error) {
	var out struct {
		Parsed *reply.Summary `json:"parsed"`
	}
	if err := c.sendRequest(ctx, http.MethodPost, "/api/end", map[string]string{"sessionId": id}, &out); err != nil {
		return nil, fmt.Errorf("end failed: %w", err)
	}
	return out.Parsed, nil
}

// sendRequest sends a JSON request and decodes the JSON answer into result
func (c *Client) sendRequest(ctx context.Context, method, path string, payload, result any) error {
	var reader io.Reader
	if payload != nil {
		requestJSON, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(requestJSON)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send HTTP request: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: httpResp.StatusCode}
		var errBody struct {
			Error  string `json:"error"`
			Detail string `json:"detail"`
		}
		if json.Unmarshal(body, &errBody) == nil {
			apiErr.Message = errBody.Error
			apiErr.Detail = errBody.Detail
		}
		return apiErr
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
