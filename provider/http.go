package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// ---------------------------------------------------------------------------
// Rate limit state (shared pause after a 429)
// ---------------------------------------------------------------------------

type rateLimitState struct {
	mu       sync.Mutex
	paused   atomic.Bool
	pauseEnd time.Time
}

func (r *rateLimitState) pause(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if end := time.Now().Add(d); end.After(r.pauseEnd) {
		r.pauseEnd = end
	}
	r.paused.Store(true)
}

// waitIfPaused blocks until the shared pause is over.
func (r *rateLimitState) waitIfPaused(ctx context.Context) error {
	for r.paused.Load() {
		r.mu.Lock()
		remaining := time.Until(r.pauseEnd)
		r.mu.Unlock()
		if remaining <= 0 {
			r.paused.Store(false)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(min(remaining, 100*time.Millisecond)):
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// HTTP client with proxy support
// ---------------------------------------------------------------------------

func makeHTTPClient(proxyURL string, timeout time.Duration, l zerolog.Logger) *resty.Client {
	c := resty.New().
		SetTimeout(timeout).
		SetLogger(restyLogger{l}).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "xctrans")
	// Without an explicit proxy resty's transport honours HTTP_PROXY/HTTPS_PROXY.
	if proxyURL != "" {
		c.SetProxy(proxyURL)
	}
	return c
}

// restyLogger routes resty's internal messages to zerolog.
type restyLogger struct{ l zerolog.Logger }

func (r restyLogger) Errorf(format string, v ...any) { r.l.Error().Msgf(format, v...) }
func (r restyLogger) Warnf(format string, v ...any)  { r.l.Warn().Msgf(format, v...) }
func (r restyLogger) Debugf(format string, v ...any) { r.l.Debug().Msgf(format, v...) }

// ---------------------------------------------------------------------------
// API formats and request builders
// ---------------------------------------------------------------------------

type apiFormat int

const (
	formatOpenAIChat   apiFormat = iota // OpenAI chat/completions (also Ollama)
	formatGeminiNative                  // Google Gemini generateContent
	formatAnthropic                     // Anthropic messages
)

func buildOpenAIChatRequest(model, systemPrompt, userPrompt string, temperature float64) ([]byte, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	req := struct {
		Model       string  `json:"model"`
		Messages    []msg   `json:"messages"`
		Temperature float64 `json:"temperature"`
		Stream      bool    `json:"stream"`
	}{
		Model: model,
		Messages: []msg{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: temperature,
	}
	return json.Marshal(req)
}

func buildGeminiRequest(systemPrompt, userPrompt string, temperature float64) ([]byte, error) {
	type part struct {
		Text string `json:"text"`
	}
	type content struct {
		Role  string `json:"role,omitempty"`
		Parts []part `json:"parts"`
	}
	type genConfig struct {
		Temperature float64 `json:"temperature"`
	}
	req := struct {
		Contents          []content `json:"contents"`
		GenerationConfig  genConfig `json:"generationConfig"`
		SystemInstruction *content  `json:"systemInstruction,omitempty"`
	}{
		Contents:         []content{{Role: "user", Parts: []part{{Text: userPrompt}}}},
		GenerationConfig: genConfig{Temperature: temperature},
	}
	if systemPrompt != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: systemPrompt}}}
	}
	return json.Marshal(req)
}

func buildAnthropicRequest(model, systemPrompt, userPrompt string) ([]byte, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	req := struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		System    string `json:"system,omitempty"`
		Messages  []msg  `json:"messages"`
	}{
		Model:     model,
		MaxTokens: 4096,
		System:    systemPrompt,
		Messages:  []msg{{Role: "user", Content: userPrompt}},
	}
	return json.Marshal(req)
}

// buildHTTPRequest constructs the endpoint, headers and body for one call.
func (c *Client) buildHTTPRequest(systemPrompt, userPrompt string) (string, map[string]string, []byte, error) {
	headers := map[string]string{}
	base := strings.TrimRight(c.cfg.BaseURL, "/")

	var (
		endpoint string
		body     []byte
		err      error
	)
	switch c.info.format {
	case formatGeminiNative:
		endpoint = fmt.Sprintf("%s/v1beta/models/%s:generateContent", base, c.cfg.Model)
		headers["x-goog-api-key"] = c.cfg.APIKey
		body, err = buildGeminiRequest(systemPrompt, userPrompt, 0.3)

	case formatAnthropic:
		endpoint = base + "/messages"
		headers["x-api-key"] = c.cfg.APIKey
		headers["anthropic-version"] = "2023-06-01"
		body, err = buildAnthropicRequest(c.cfg.Model, systemPrompt, userPrompt)

	default:
		endpoint = base
		if !strings.HasSuffix(endpoint, "/chat/completions") {
			endpoint += "/chat/completions"
		}
		if c.cfg.APIKey != "" {
			headers["Authorization"] = "Bearer " + c.cfg.APIKey
		}
		body, err = buildOpenAIChatRequest(c.cfg.Model, systemPrompt, userPrompt, 0.3)
	}
	if err != nil {
		return "", nil, nil, err
	}
	return endpoint, headers, body, nil
}

// ---------------------------------------------------------------------------
// Response parsing
// ---------------------------------------------------------------------------

// extractResponseText returns the reply text of a successful response.
// A reply whose content is null or missing yields "".
func extractResponseText(format apiFormat, body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("invalid JSON response: %s", truncate(string(body), 500))
	}
	res := gjson.ParseBytes(body)

	if e := res.Get("error"); e.Exists() && e.Type != gjson.Null {
		if msg := e.Get("message"); msg.Exists() {
			return "", fmt.Errorf("API error: %s", msg.String())
		}
		return "", fmt.Errorf("API error: %s", e.Raw)
	}

	switch format {
	case formatGeminiNative:
		if !res.Get("candidates.0").Exists() {
			return "", fmt.Errorf("no candidates in response: %s", truncate(string(body), 500))
		}
		var sb strings.Builder
		for _, part := range res.Get("candidates.0.content.parts").Array() {
			sb.WriteString(part.Get("text").String())
		}
		return sb.String(), nil

	case formatAnthropic:
		content := res.Get("content")
		if !content.IsArray() {
			return "", fmt.Errorf("no content in response: %s", truncate(string(body), 500))
		}
		var sb strings.Builder
		for _, block := range content.Array() {
			if block.Get("type").String() == "text" {
				sb.WriteString(block.Get("text").String())
			}
		}
		return sb.String(), nil

	default:
		if !res.Get("choices.0").Exists() {
			return "", fmt.Errorf("no choices in response: %s", truncate(string(body), 500))
		}
		return res.Get("choices.0.message.content").String(), nil
	}
}

// ---------------------------------------------------------------------------
// Rate limit: retry delay of a 429 response
// ---------------------------------------------------------------------------

// retryDelay returns how long to wait after a 429: the Retry-After header
// when present, else Google's RetryInfo detail, else 65s.
func retryDelay(header http.Header, body []byte) time.Duration {
	if ra := strings.TrimSpace(header.Get("Retry-After")); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
		if t, err := http.ParseTime(ra); err == nil {
			return max(time.Until(t), 0)
		}
	}
	return parseRetryDelay(body)
}

// parseRetryDelay extracts the retry delay from a 429 response body.
// Looks for Google's RetryInfo detail with retryDelay field.
func parseRetryDelay(body []byte) time.Duration {
	const defaultDelay = 65 * time.Second // 60s + 5s buffer

	for _, detail := range gjson.GetBytes(body, "error.details").Array() {
		if !strings.Contains(detail.Get("@type").String(), "RetryInfo") {
			continue
		}
		d := strings.TrimSuffix(detail.Get("retryDelay").String(), "s")
		if secs, err := strconv.ParseFloat(d, 64); err == nil {
			return time.Duration(secs*1000)*time.Millisecond + 5*time.Second
		}
	}
	return defaultDelay
}

// ---------------------------------------------------------------------------
// Request with retries
// ---------------------------------------------------------------------------

func (c *Client) call(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	endpoint, headers, body, err := c.buildHTTPRequest(systemPrompt, userPrompt)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	maxRetries := c.cfg.MaxRetries
	for attempt := 0; attempt <= maxRetries; attempt++ {
		// Another goroutine may have hit a 429.
		if err := c.rl.waitIfPaused(ctx); err != nil {
			return "", err
		}

		resp, err := c.http.R().
			SetContext(ctx).
			SetHeaders(headers).
			SetBody(body).
			Post(endpoint)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if attempt < maxRetries {
				c.log.Debug().Err(err).Int("attempt", attempt+1).Msg("request failed, retrying")
				if err := c.sleep(ctx, c.backoffFor(attempt)); err != nil {
					return "", err
				}
				continue
			}
			return "", fmt.Errorf("API request failed: %w", err)
		}

		switch code := resp.StatusCode(); {
		case code == http.StatusTooManyRequests:
			delay := retryDelay(resp.Header(), resp.Body())
			if attempt < maxRetries {
				c.log.Warn().Dur("wait", delay).Int("attempt", attempt+1).Msg("rate limited")
				c.rl.pause(delay)
				continue
			}
			return "", fmt.Errorf("rate limited after %d retries: %w", maxRetries, &StatusError{Code: code, Body: resp.String()})

		case code >= 500:
			if attempt < maxRetries {
				c.log.Debug().Int("status", code).Int("attempt", attempt+1).Msg("server error, retrying")
				if err := c.sleep(ctx, c.backoffFor(attempt)); err != nil {
					return "", err
				}
				continue
			}
			return "", &StatusError{Code: code, Body: resp.String()}

		case code < 200 || code > 299:
			return "", &StatusError{Code: code, Body: resp.String()}
		}

		return extractResponseText(c.info.format, resp.Body())
	}

	return "", fmt.Errorf("exhausted all %d retries", maxRetries)
}

func (c *Client) backoffFor(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * c.backoff
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
