package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"picname/internal/textutil"
)

// errNoAnswer marks a well-formed response whose choices carry no text.
var errNoAnswer = errors.New("empty content")

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

// chatMessage content is either a plain string or a list of content parts.
type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// chatChoice accepts the message, streaming delta and legacy text shapes;
// local servers mix them even with stream=false.
type chatChoice struct {
	Message      chatAnswer `json:"message"`
	Delta        chatAnswer `json:"delta"`
	Text         string     `json:"text"`
	FinishReason string     `json:"finish_reason"`
}

type chatAnswer struct {
	Content string `json:"content"`
	Refusal string `json:"refusal"`
}

// answer returns the first non-blank text across choices along with the
// finish reason and refusal for diagnostics.
func (r chatResponse) answer() (text, finish, refusal string) {
	for _, choice := range r.Choices {
		if finish == "" {
			finish = strings.TrimSpace(choice.FinishReason)
		}
		if refusal == "" {
			refusal = firstNonBlank(choice.Message.Refusal, choice.Delta.Refusal)
		}
		if text = firstNonBlank(choice.Message.Content, choice.Delta.Content, choice.Text); text != "" {
			return text, finish, refusal
		}
	}
	return "", finish, refusal
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

type statusError struct {
	Code       int
	Body       string
	RetryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("vision request: http %d: %s", e.Code, e.Body)
}

// complete runs one request under the retry policy and returns the answer
// text.
func (c *Client) complete(ctx context.Context, op string, req chatRequest) (string, error) {
	for attempt := 1; ; attempt++ {
		text, err := c.exchange(ctx, op, req)
		if err == nil {
			return text, nil
		}
		delay, again := c.retry.next(ctx, err, attempt)
		if !again {
			if attempt > 1 {
				return "", fmt.Errorf("%s: failed after %d attempts: %w", op, attempt, err)
			}
			return "", err
		}
		if err := c.retry.wait(ctx, delay); err != nil {
			return "", err
		}
	}
}

func (c *Client) exchange(ctx context.Context, op string, req chatRequest) (string, error) {
	body, err := c.post(ctx, req)
	if err != nil {
		return "", err
	}
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("vision request: decode response (snippet=%s): %w", snippet(body), err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("vision request: api error: %s", strings.TrimSpace(resp.Error.Message))
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: empty choices (response_snippet=%s)", op, snippet(body))
	}
	text, finish, refusal := resp.answer()
	if text == "" {
		return "", fmt.Errorf("%s: %w (finish_reason=%q, refusal=%q, response_snippet=%s)",
			op, errNoAnswer, finish, refusal, snippet(body))
	}
	return text, nil
}

func (c *Client) post(ctx context.Context, payload chatRequest) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("vision request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("vision request: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
		req.Header.Set("Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vision request: http error (timeout=%s): %w", c.http.Timeout, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("vision request: read body (timeout=%s): %w", c.http.Timeout, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return body, &statusError{
			Code:       resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter(resp.Header.Get("Retry-After")),
		}
	}
	return body, nil
}

func snippet(body []byte) string {
	return textutil.SummarizeSnippet(string(body), 160)
}
