package vision

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"picname/internal/services"
	"picname/internal/textutil"
)

const (
	defaultBaseURL       = "http://localhost:11434/v1/chat/completions"
	defaultModel         = "qwen2.5vl:7b"
	defaultHTTPTimeout   = 120 * time.Second
	defaultRetryAttempts = 2
)

// Config captures the runtime settings required to talk to the vision model.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Prompt         string
	Referer        string
	Title          string
	TimeoutSeconds int
}

func (cfg Config) normalized() Config {
	out := Config{
		APIKey:         strings.TrimSpace(cfg.APIKey),
		BaseURL:        strings.TrimSpace(cfg.BaseURL),
		Model:          strings.TrimSpace(cfg.Model),
		Prompt:         strings.TrimSpace(cfg.Prompt),
		Referer:        strings.TrimSpace(cfg.Referer),
		Title:          strings.TrimSpace(cfg.Title),
		TimeoutSeconds: cfg.TimeoutSeconds,
	}
	if out.BaseURL == "" {
		out.BaseURL = defaultBaseURL
	}
	if out.Model == "" {
		out.Model = defaultModel
	}
	if out.Prompt == "" {
		out.Prompt = DescribePrompt
	}
	return out
}

func (cfg Config) timeout() time.Duration {
	if cfg.TimeoutSeconds > 0 {
		return time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return defaultHTTPTimeout
}

// Description is the free text a model returned for one image.
type Description struct {
	Text    string        `json:"text"`
	Elapsed time.Duration `json:"elapsed"`
	Model   string        `json:"model"`
	Cached  bool          `json:"cached,omitempty"`
}

// Client talks to an OpenAI-compatible chat completion endpoint that accepts
// image input.
type Client struct {
	cfg   Config
	http  *http.Client
	retry retryPolicy
	now   func() time.Time
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client. A client without a
// timeout gets the configured one.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithRetryMaxAttempts sets the total number of attempts per call.
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retry.attempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retry.base = baseDelay
		c.retry.max = maxDelay
	}
}

// WithSleeper replaces the timer used between retries.
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.retry.sleep = sleeper
	}
}

// NewClient constructs a vision client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg:   cfg.normalized(),
		retry: defaultRetryPolicy(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	switch {
	case c.http == nil:
		c.http = &http.Client{Timeout: c.cfg.timeout()}
	case c.http.Timeout <= 0:
		clone := *c.http
		clone.Timeout = c.cfg.timeout()
		c.http = &clone
	}
	return c
}

// Model returns the model identifier sent with every request.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Prompt returns the prompt sent with every image.
func (c *Client) Prompt() string {
	return c.cfg.Prompt
}

// Endpoint returns the chat completion URL.
func (c *Client) Endpoint() string {
	return c.cfg.BaseURL
}

// Describe sends the image at imagePath to the model and returns its
// description. Every failure is marked with services.ErrInference. A model
// that keeps answering with no text yields an empty Description rather than
// an error; callers decide what an empty description means.
func (c *Client) Describe(ctx context.Context, imagePath string) (Description, error) {
	start := c.now()
	dataURI, err := encodeImage(imagePath)
	if err != nil {
		return Description{}, services.Wrap(services.ErrInference, "vision", "read image", imagePath, err)
	}

	req := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: c.cfg.Prompt},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURI}},
			},
		}},
	}
	text, err := c.complete(ctx, "vision describe", req)
	desc := Description{Text: text, Model: c.cfg.Model, Elapsed: c.now().Sub(start)}
	switch {
	case errors.Is(err, errNoAnswer):
		return desc, nil
	case err != nil:
		return Description{}, services.Wrap(services.ErrInference, "vision", "describe", imagePath, err)
	}
	return desc, nil
}

// HealthCheck issues a fast text-only request to verify the endpoint answers
// and the model is loaded.
func (c *Client) HealthCheck(ctx context.Context) error {
	req := chatRequest{
		Model:    c.cfg.Model,
		Messages: []chatMessage{{Role: "user", Content: "Reply with the single word ok."}},
	}
	text, err := c.complete(ctx, "vision health", req)
	if err != nil {
		return services.Wrap(services.ErrInference, "vision", "health", c.cfg.BaseURL, err)
	}
	if !strings.Contains(strings.ToLower(text), "ok") {
		return services.Wrap(services.ErrInference, "vision", "health",
			"unexpected response "+textutil.SummarizeSnippet(text, 80), nil)
	}
	return nil
}
