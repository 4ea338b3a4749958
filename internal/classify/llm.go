package classify

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

	"github.com/slok/taskflow/internal/log"
	"github.com/slok/taskflow/internal/model"
)

var (
	// ErrUnavailable indicates the LLM server is unreachable.
	ErrUnavailable = errors.New("llm server unavailable")

	// ErrTimeout indicates the LLM request exceeded the configured timeout.
	ErrTimeout = errors.New("llm request timed out")

	// ErrInvalidOutput indicates the LLM response could not be parsed into a
	// suggestion.
	ErrInvalidOutput = errors.New("invalid llm output format")
)

const promptTpl = `Task title: %q

Respond ONLY with valid JSON (no markdown, no extra text):
{
  "status": "TODO" | "IN_PROGRESS" | "DONE",
  "reason": "one short sentence why"
}`

// LLMClassifierConfig is the configuration for the LLM classifier.
type LLMClassifierConfig struct {
	// Endpoint is the base URL of an Ollama compatible server.
	Endpoint string
	Model    string
	Timeout  time.Duration
	// HTTPClient is optional.
	HTTPClient *http.Client
	Logger     log.Logger
}

func (c *LLMClassifierConfig) defaults() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	c.Endpoint = strings.TrimSuffix(c.Endpoint, "/")

	if c.Model == "" {
		c.Model = "llama3.2"
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 5 * time.Second,
				}).DialContext,
			},
		}
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "classify.LLMClassifier"})
	return nil
}

// LLMClassifier asks a language model served by an Ollama compatible API.
type LLMClassifier struct {
	endpoint string
	model    string
	timeout  time.Duration
	http     *http.Client
	logger   log.Logger
}

// NewLLMClassifier returns a new LLM classifier.
func NewLLMClassifier(cfg LLMClassifierConfig) (*LLMClassifier, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &LLMClassifier{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		timeout:  cfg.Timeout,
		http:     cfg.HTTPClient,
		logger:   cfg.Logger,
	}, nil
}

// generateRequest is the JSON body sent to POST /api/generate.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"`
}

// generateResponse is the JSON body returned by POST /api/generate (non-streaming).
type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
}

// Classify asks the model for a suggestion.
func (c *LLMClassifier) Classify(ctx context.Context, title string) (model.Suggestion, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	text, err := c.generate(ctx, fmt.Sprintf(promptTpl, strings.TrimSpace(title)))
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return model.Suggestion{}, ErrTimeout
		case isConnectionError(err):
			return model.Suggestion{}, ErrUnavailable
		}
		return model.Suggestion{}, err
	}
	c.logger.Debugf("LLM answered in %dms", time.Since(start).Milliseconds())

	return parseSuggestion(text)
}

func (c *LLMClassifier) generate(ctx context.Context, prompt string) (string, error) {
	data, err := json.Marshal(generateRequest{Model: c.model, Prompt: prompt, Format: "json"})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/generate", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm returned status %d: %s", resp.StatusCode, string(body))
	}

	var gr generateResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return gr.Response, nil
}

// parseSuggestion extracts the suggestion JSON object from the model text.
func parseSuggestion(text string) (model.Suggestion, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start == -1 || end < start {
		return model.Suggestion{}, fmt.Errorf("%w: no JSON object found in response", ErrInvalidOutput)
	}

	var s model.Suggestion
	if err := json.Unmarshal([]byte(text[start:end+1]), &s); err != nil {
		return model.Suggestion{}, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	if !s.Status.Valid() {
		return model.Suggestion{}, fmt.Errorf("%w: unknown status %q", ErrInvalidOutput, s.Status)
	}

	return s, nil
}

func isConnectionError(err error) bool {
	var netErr *net.OpError
	return errors.As(err, &netErr)
}
