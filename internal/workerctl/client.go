// Package workerctl implements the command-line client that drives a
// running worker daemon over its HTTP protocol endpoint.
package workerctl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/appunni/llm-ts-worker/pkg/types"
)

// event mirrors types.Event with the payload kept raw so each command can
// decode the shape it expects.
type event struct {
	Type   string          `json:"type"`
	Status string          `json:"status"`
	ID     string          `json:"id,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Client talks to one worker daemon.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	// Timeout bounds non-streaming calls. Streaming requests run without a
	// client deadline; cancel their context instead.
	Timeout time.Duration
}

// NewClient builds a client for the given base URL, e.g. http://localhost:8080.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{},
		Timeout: timeout,
	}
}

// Do sends one protocol request and invokes onEvent for every NDJSON event
// until the stream ends. A non-nil error from onEvent stops reading.
func (c *Client) Do(ctx context.Context, req types.Request, onEvent func(event) error) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/worker", bytes.NewReader(body))
	if err != nil {
		return err
	}
	hreq.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(hreq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var er types.ErrorResponse
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(b, &er) == nil && er.Error != "" {
			return fmt.Errorf("server: %s", er.Error)
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var e event
		if err := json.Unmarshal(line, &e); err != nil {
			return fmt.Errorf("bad event line: %w", err)
		}
		if err := onEvent(e); err != nil {
			return err
		}
	}
	return sc.Err()
}

// errorOf extracts the message of an error event.
func errorOf(e event) string {
	var p types.ErrorPayload
	if json.Unmarshal(e.Data, &p) == nil && p.Error != "" {
		return p.Error
	}
	return "unknown error"
}

// GetModels fetches the preset table from GET /models.
func (c *Client) GetModels(ctx context.Context) (types.ModelsPayload, error) {
	var out types.ModelsPayload
	err := c.getJSON(ctx, "/models", &out)
	return out, err
}

// GetStatus fetches GET /status.
func (c *Client) GetStatus(ctx context.Context) (types.StatusResponse, error) {
	var out types.StatusResponse
	err := c.getJSON(ctx, "/status", &out)
	return out, err
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(hreq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
