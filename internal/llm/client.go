package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"prism-backend/internal/prism"
	"prism-backend/internal/shared/metrics"
	"prism-backend/internal/shared/telemetry"
)

const (
	// DefaultMaxRetries is the number of extra attempts after the first JSON call fails.
	DefaultMaxRetries = 2
	// DefaultBackoff is the first retry delay; the nth retry waits n times this.
	DefaultBackoff = time.Second
	// DefaultMaxURLs bounds how many discovered pages the deep strategy re-reads.
	DefaultMaxURLs = 20
)

// Options configures a Client.
type Options struct {
	Models     map[prism.ModelTier]string
	MaxRetries int
	Backoff    time.Duration
	MaxURLs    int
}

// Client wraps a Provider with retry, grounding extraction and multi-angle research.
type Client struct {
	provider   Provider
	models     map[prism.ModelTier]string
	maxRetries int
	backoff    time.Duration
	maxURLs    int
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewClient constructs a Client. A nil provider yields a client whose calls fail with ErrNoProvider.
func NewClient(provider Provider, opts Options) *Client {
	if provider == nil {
		provider = Unavailable()
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultBackoff
	}
	if opts.MaxURLs <= 0 {
		opts.MaxURLs = DefaultMaxURLs
	}
	models := map[prism.ModelTier]string{
		prism.ModelFast:     "gemini-3-flash-preview",
		prism.ModelAccurate: "gemini-3-pro-preview",
	}
	for tier, id := range opts.Models {
		if strings.TrimSpace(id) != "" {
			models[tier] = id
		}
	}
	return &Client{
		provider:   provider,
		models:     models,
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
		maxURLs:    opts.MaxURLs,
		sleep:      sleepContext,
	}
}

// Call describes one logical model call.
type Call struct {
	Model  prism.ModelTier
	System string
	Prompt string
	// Label names the call in logs and metrics.
	Label string
}

// ModelID resolves a tier to the provider model id.
func (c *Client) ModelID(tier prism.ModelTier) string {
	if id, ok := c.models[tier]; ok {
		return id
	}
	return c.models[prism.ModelFast]
}

func (c *Client) request(call Call) Request {
	return Request{
		Model:        c.ModelID(call.Model),
		SystemPrompt: call.System,
		Prompt:       call.Prompt,
	}
}

// GenerateJSON decodes a JSON completion into out, retrying with the client's retry budget.
func (c *Client) GenerateJSON(ctx context.Context, call Call, out any) error {
	return c.GenerateJSONWithRetries(ctx, call, c.maxRetries, out)
}

// GenerateJSONWithRetries is GenerateJSON with an explicit retry budget.
// It makes at most maxRetries+1 provider calls.
func (c *Client) GenerateJSONWithRetries(ctx context.Context, call Call, maxRetries int, out any) error {
	return c.generate(ctx, call, maxRetries, jsonInto(out))
}

// jsonInto decodes each attempt into a fresh value and assigns it to out only on success,
// so fields from a failed attempt never survive into the result.
func jsonInto(out any) func([]byte) error {
	return func(raw []byte) error {
		rv := reflect.ValueOf(out)
		if rv.Kind() != reflect.Pointer || rv.IsNil() {
			return json.Unmarshal(raw, out)
		}
		fresh := reflect.New(rv.Elem().Type())
		if err := json.Unmarshal(raw, fresh.Interface()); err != nil {
			return err
		}
		rv.Elem().Set(fresh.Elem())
		return nil
	}
}

// GenerateJSONAs decodes a JSON completion into a fresh T on each attempt.
func GenerateJSONAs[T any](ctx context.Context, c *Client, call Call) (T, error) {
	var result T
	err := c.generate(ctx, call, c.maxRetries, func(raw []byte) error {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}

func (c *Client) generate(ctx context.Context, call Call, maxRetries int, decode func([]byte) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	attempts := maxRetries + 1
	label := call.Label
	if label == "" {
		label = "json"
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		raw, err := c.provider.GenerateJSON(ctx, c.request(call))
		if err == nil {
			err = decodeJSON(raw, decode)
		}
		if err == nil {
			metrics.IncLLMAttempt(label, "ok")
			return nil
		}
		lastErr = err
		metrics.IncLLMAttempt(label, "error")
		telemetry.Warn("llm json attempt failed", map[string]any{
			"label":    label,
			"attempt":  attempt,
			"attempts": attempts,
			"model":    c.ModelID(call.Model),
			"error":    err.Error(),
		})
		if ctx.Err() != nil {
			return &GenerationError{Attempts: attempt, Err: ctx.Err()}
		}
		if attempt < attempts {
			if err := c.sleep(ctx, c.backoff*time.Duration(attempt)); err != nil {
				return &GenerationError{Attempts: attempt, Err: err}
			}
		}
	}
	return &GenerationError{Attempts: attempts, Err: lastErr}
}

func decodeJSON(raw string, decode func([]byte) error) error {
	cleaned := CleanJSON(raw)
	if cleaned == "" {
		return fmt.Errorf("empty response")
	}
	if err := decode([]byte(cleaned)); err != nil {
		return fmt.Errorf("parse json: %w", err)
	}
	return nil
}

// CleanJSON trims whitespace and a surrounding markdown code fence.
func CleanJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
