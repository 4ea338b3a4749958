// Package relayhttp has the HTTP clients of the event relay API.
package relayhttp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/slok/taskflow/internal/log"
	"github.com/slok/taskflow/internal/model"
)

const (
	broadcastPath = "/api/events/broadcast"
	eventsPath    = "/api/events"
)

// ClientConfig is the configuration for the relay HTTP clients.
type ClientConfig struct {
	// ServerURL is the base URL of the relay server (e.g: http://localhost:3000).
	ServerURL string
	// HTTPClient is optional. Streams are long lived, the client must not have
	// a global timeout.
	HTTPClient *http.Client
	// PublishTimeout is the max time a publish request can take.
	PublishTimeout time.Duration
	Logger         log.Logger
}

func (c *ClientConfig) defaults() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server url is required")
	}
	if _, err := url.Parse(c.ServerURL); err != nil {
		return fmt.Errorf("invalid server url: %w", err)
	}
	c.ServerURL = strings.TrimSuffix(c.ServerURL, "/")

	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = 10 * time.Second
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "relayhttp.Client"})
	return nil
}

// Client publishes and subscribes to the events of a relay server.
type Client struct {
	serverURL      string
	http           *http.Client
	publishTimeout time.Duration
	logger         log.Logger
}

// NewClient returns a new relay HTTP client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{
		serverURL:      cfg.ServerURL,
		http:           cfg.HTTPClient,
		publishTimeout: cfg.PublishTimeout,
		logger:         cfg.Logger,
	}, nil
}

type broadcastRequest struct {
	ProjectID string          `json:"projectId"`
	Event     json.RawMessage `json:"event"`
}

// Publish sends an event to the project subscribers.
func (c *Client) Publish(ctx context.Context, projectID string, event json.RawMessage) error {
	data, err := json.Marshal(broadcastRequest{ProjectID: projectID, Event: event})
	if err != nil {
		return fmt.Errorf("could not marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.publishTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+broadcastPath, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("could not publish event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("relay returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	c.logger.Debugf("Event published to project %s", projectID)
	return nil
}

// Stream subscribes to the project events and calls emit with every received
// frame until the context is done (nil is returned) or the connection fails.
func (c *Client) Stream(ctx context.Context, projectID string, emit func(model.Frame) error) error {
	u := c.serverURL + eventsPath + "?" + url.Values{"projectId": []string{projectID}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("could not connect to relay: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("relay returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	err = readFrames(resp.Body, emit)
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("relay closed the stream: %w", io.ErrUnexpectedEOF)
}

// readFrames decodes the data lines of an event stream. Each frame is a single
// `data: <json>` line followed by a blank line.
func readFrames(r io.Reader, emit func(model.Frame) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}

		var f model.Frame
		if err := json.Unmarshal([]byte(strings.TrimSpace(data)), &f); err != nil {
			return fmt.Errorf("could not decode frame: %w", err)
		}
		if err := emit(f); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("could not read stream: %w", err)
	}
	return nil
}
