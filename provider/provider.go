// Package provider implements the translation provider client: one HTTP
// request per text against an LLM API (OpenAI-compatible chat completions,
// Ollama, Google Gemini or Anthropic messages), with pass-through rules for
// empty and numeric text, an optional translation cache, client-side rate
// limiting and retry on transient failures.
package provider

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/minios-linux/xctrans/cache"
)

// ---------------------------------------------------------------------------
// Provider kinds
// ---------------------------------------------------------------------------

const (
	KindOpenAI    = "openai"
	KindOllama    = "ollama"
	KindGemini    = "gemini"
	KindAnthropic = "anthropic"
)

// Kinds lists every supported provider kind.
var Kinds = []string{KindOpenAI, KindOllama, KindGemini, KindAnthropic}

type kindInfo struct {
	baseURL  string
	model    string
	needsKey bool
	format   apiFormat
}

var kinds = map[string]kindInfo{
	KindOpenAI:    {baseURL: "https://api.openai.com/v1", model: "gpt-4o", needsKey: true, format: formatOpenAIChat},
	KindOllama:    {baseURL: "http://localhost:11434/v1", model: "llama3.1", format: formatOpenAIChat},
	KindGemini:    {baseURL: "https://generativelanguage.googleapis.com", model: "gemini-2.0-flash", needsKey: true, format: formatGeminiNative},
	KindAnthropic: {baseURL: "https://api.anthropic.com/v1", model: "claude-3-5-haiku-latest", needsKey: true, format: formatAnthropic},
}

// ValidKind reports whether kind names a supported provider.
func ValidKind(kind string) bool {
	_, ok := kinds[kind]
	return ok
}

// NeedsKey reports whether the provider kind requires an API key.
func NeedsKey(kind string) bool {
	return kinds[kind].needsKey
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

// ErrNoCredential is returned by New when the provider needs an API key and
// none was configured.
var ErrNoCredential = errors.New("no API key configured")

// Error reports a failed translation of one text.
type Error struct {
	Text       string
	SourceLang string
	TargetLang string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("translating %q (%s -> %s): %v", truncate(e.Text, 60), e.SourceLang, e.TargetLang, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// StatusError is returned for non-success HTTP responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.Code, truncate(e.Body, 500))
}

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// Config holds the settings of a provider client.
type Config struct {
	// Kind is one of the Kind* constants.
	Kind string
	// BaseURL overrides the kind's default API base URL.
	BaseURL string
	// APIKey is the credential. It is passed explicitly, never read from
	// the environment by this package.
	APIKey string
	// Model overrides the kind's default model.
	Model string
	// Proxy is an optional HTTP/HTTPS proxy URL.
	Proxy string
	// Timeout is the per-request timeout (default 60s).
	Timeout time.Duration
	// MaxRetries is the number of retries after a failed attempt (default 3;
	// negative disables retries).
	MaxRetries int
	// RequestsPerSecond limits outgoing requests (0 = unlimited).
	RequestsPerSecond float64
	// Prompt overrides the system prompt template.
	Prompt string
}

// Cache stores translations across runs.
type Cache interface {
	Get(ctx context.Context, k cache.Key) (string, bool, error)
	Put(ctx context.Context, k cache.Key, translation string) error
}

// Option configures a Client.
type Option func(*Client)

// WithCache makes the client consult and fill c.
func WithCache(c Cache) Option {
	return func(cl *Client) { cl.cache = c }
}

// WithLogger sets the logger used for retries and cache failures.
func WithLogger(l zerolog.Logger) Option {
	return func(cl *Client) { cl.log = l }
}

// WithBackoff sets the base delay of the exponential backoff between
// retries of transport errors and 5xx responses (default 1s).
func WithBackoff(d time.Duration) Option {
	return func(cl *Client) { cl.backoff = d }
}

// ---------------------------------------------------------------------------
// Client
// ---------------------------------------------------------------------------

// Client translates single texts. It is safe for concurrent use; all
// goroutines share one 429 pause and one rate limiter.
type Client struct {
	cfg     Config
	info    kindInfo
	http    *resty.Client
	limiter *rate.Limiter
	rl      *rateLimitState
	cache   Cache
	log     zerolog.Logger
	backoff time.Duration
}

// New validates cfg, applies defaults and returns a client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.Kind == "" {
		cfg.Kind = KindOpenAI
	}
	info, ok := kinds[cfg.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (supported: %s)", cfg.Kind, strings.Join(Kinds, ", "))
	}
	if info.needsKey && cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", cfg.Kind, ErrNoCredential)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = info.baseURL
	}
	if cfg.Model == "" {
		cfg.Model = info.model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	} else if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}

	c := &Client{
		cfg:     cfg,
		info:    info,
		rl:      &rateLimitState{},
		log:     log.Logger.With().Str("component", "provider").Logger(),
		backoff: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	c.http = makeHTTPClient(cfg.Proxy, cfg.Timeout, c.log)
	return c, nil
}

// Kind returns the configured provider kind.
func (c *Client) Kind() string { return c.cfg.Kind }

// Model returns the model requests are sent to.
func (c *Client) Model() string { return c.cfg.Model }

// Translate returns text translated from sourceLang into targetLang.
//
// Empty text and numeric literals are returned unchanged without a request.
// A provider reply without content yields "". Failures are *Error.
func (c *Client) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if text == "" || IsNumeric(text) {
		return text, nil
	}
	fail := func(err error) (string, error) {
		return "", &Error{Text: text, SourceLang: sourceLang, TargetLang: targetLang, Err: err}
	}

	prompt := RenderPrompt(c.cfg.Prompt, sourceLang, targetLang)
	key := cache.Key{
		Provider:   c.cfg.Kind,
		Model:      c.cfg.Model,
		SourceLang: sourceLang,
		TargetLang: targetLang,
		PromptHash: cache.HashPrompt(prompt),
		Text:       text,
	}
	if c.cache != nil {
		if v, ok, err := c.cache.Get(ctx, key); err != nil {
			c.log.Warn().Err(err).Msg("cache lookup failed")
		} else if ok {
			return v, nil
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fail(err)
		}
	}

	out, err := c.call(ctx, prompt, text)
	if err != nil {
		return fail(err)
	}

	if c.cache != nil && out != "" {
		if err := c.cache.Put(ctx, key, out); err != nil {
			c.log.Warn().Err(err).Msg("cache store failed")
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Numeric pass-through
// ---------------------------------------------------------------------------

var (
	decimalLiteral = regexp.MustCompile(`^[+-]?(?:[0-9]+\.?[0-9]*|\.[0-9]+)(?:[eE][+-]?[0-9]+)?$`)
	prefixedInt    = regexp.MustCompile(`^0(?:[xX][0-9a-fA-F]+|[oO][0-7]+|[bB][01]+)$`)
)

// IsNumeric reports whether s converts to a number under JavaScript's
// Number() rules: surrounding whitespace is ignored, blank strings count as
// zero, and decimal, exponent, Infinity and 0x/0o/0b integer forms are
// accepted.
func IsNumeric(s string) bool {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return true
	case decimalLiteral.MatchString(s), prefixedInt.MatchString(s):
		return true
	}
	return strings.TrimLeft(s, "+-") == "Infinity" && len(s) <= len("Infinity")+1
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
