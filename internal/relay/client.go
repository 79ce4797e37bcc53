// Package relay is the bot-side HTTP client for the relay service.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

var (
	// ErrBackendTimeout reports that the relay did not answer in time.
	ErrBackendTimeout = errors.New("relay: backend timed out")
	// ErrBackendUnavailable reports that the relay could not be reached.
	ErrBackendUnavailable = errors.New("relay: backend unavailable")
)

// RemoteError carries an error reported by the relay itself, as opposed to
// a transport failure reaching it.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("relay: remote error (status %d): %s", e.Status, e.Message)
}

// SizeText is a model size as the relay reports it: either a number of
// gigabytes or the literal "N/A" when the runtime did not say.
type SizeText string

func (s *SizeText) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = SizeText(str)
		return nil
	}
	var num float64
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*s = SizeText(strconv.FormatFloat(num, 'f', -1, 64))
	return nil
}

// Known reports whether the relay gave an actual size.
func (s SizeText) Known() bool {
	return s != "" && s != "N/A"
}

// Model describes one model available on the relay.
type Model struct {
	Name string   `json:"name"`
	Size SizeText `json:"size"`
}

// ChatResult is a successful chat or generate exchange.
type ChatResult struct {
	Response    string  `json:"response"`
	ElapsedTime float64 `json:"elapsed_time"`
}

// Client talks to the relay HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a Client for the given base URL, e.g.
// "http://localhost:5000/api".
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type envelope struct {
	Success bool    `json:"success"`
	Error   string  `json:"error"`
	Models  []Model `json:"models"`
	Message string  `json:"message"`
	ChatResult
}

// Models lists the models known to the runtime behind the relay.
func (c *Client) Models(ctx context.Context) ([]Model, error) {
	env, err := c.do(ctx, http.MethodGet, "/models", nil)
	if err != nil {
		return nil, err
	}
	return env.Models, nil
}

// Pull asks the runtime to download a model.
func (c *Client) Pull(ctx context.Context, name string) error {
	_, err := c.do(ctx, http.MethodPost, "/models/pull/"+url.PathEscape(name), nil)
	return err
}

// Chat sends a conversational message for the given session.
func (c *Client) Chat(ctx context.Context, model, message, sessionID string) (*ChatResult, error) {
	env, err := c.do(ctx, http.MethodPost, "/chat", map[string]string{
		"model":      model,
		"message":    message,
		"session_id": sessionID,
	})
	if err != nil {
		return nil, err
	}
	return &env.ChatResult, nil
}

// Generate sends a stateless one-shot prompt.
func (c *Client) Generate(ctx context.Context, model, prompt string) (*ChatResult, error) {
	env, err := c.do(ctx, http.MethodPost, "/generate", map[string]string{
		"model":  model,
		"prompt": prompt,
	})
	if err != nil {
		return nil, err
	}
	return &env.ChatResult, nil
}

// ClearHistory drops the stored conversation for a session.
func (c *Client) ClearHistory(ctx context.Context, sessionID string) error {
	_, err := c.do(ctx, http.MethodPost, "/chat/clear/"+url.PathEscape(sessionID), nil)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}) (*envelope, error) {
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("relay: decode response: %w", err)
	}
	if !env.Success || resp.StatusCode >= http.StatusBadRequest {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &RemoteError{Status: resp.StatusCode, Message: msg}
	}
	return &env, nil
}

func classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrBackendTimeout, err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return fmt.Errorf("%w: %v", ErrBackendTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return err
}
