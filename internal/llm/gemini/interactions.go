package gemini

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"prism-backend/internal/llm"
	"prism-backend/internal/shared/telemetry"
)

const (
	DefaultBaseURL      = "https://generativelanguage.googleapis.com"
	DefaultAgent        = "deep-research-pro-preview-12-2025"
	DefaultPollInterval = 10 * time.Second

	maxEventBytes = 16 << 20
)

// AgentConfig configures the deep research agent client.
type AgentConfig struct {
	APIKey       string
	BaseURL      string
	Agent        string
	PollInterval time.Duration
	HTTPClient   *http.Client
}

// Agent runs Gemini deep research jobs through the Interactions API.
type Agent struct {
	apiKey       string
	baseURL      string
	agent        string
	pollInterval time.Duration
	httpClient   *http.Client
}

// NewAgent constructs an Agent.
func NewAgent(cfg AgentConfig) (*Agent, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("GEMINI_API_KEY is required")
	}
	a := &Agent{
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		agent:        cfg.Agent,
		pollInterval: cfg.PollInterval,
		httpClient:   cfg.HTTPClient,
	}
	if a.baseURL == "" {
		a.baseURL = DefaultBaseURL
	}
	if a.agent == "" {
		a.agent = DefaultAgent
	}
	if a.pollInterval <= 0 {
		a.pollInterval = DefaultPollInterval
	}
	if a.httpClient == nil {
		// No client timeout: jobs stream for many minutes. The caller's context bounds them.
		a.httpClient = &http.Client{}
	}
	return a, nil
}

type agentConfig struct {
	Type              string `json:"type"`
	ThinkingSummaries string `json:"thinking_summaries,omitempty"`
}

type startRequest struct {
	Input       string      `json:"input"`
	Agent       string      `json:"agent"`
	Background  bool        `json:"background"`
	Stream      bool        `json:"stream"`
	AgentConfig agentConfig `json:"agent_config"`
}

type interaction struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Outputs []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"outputs"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type streamEvent struct {
	EventType   string       `json:"event_type"`
	Interaction *interaction `json:"interaction,omitempty"`
	Delta       *struct {
		Type    string `json:"type"`
		Text    string `json:"text"`
		Content *struct {
			Text string `json:"text"`
		} `json:"content,omitempty"`
	} `json:"delta,omitempty"`
	Error *apiError `json:"error,omitempty"`
}

// Start launches a background research job and streams its deltas.
// If the stream drops before completion, the job is polled until it finishes.
func (a *Agent) Start(ctx context.Context, prompt string) (<-chan llm.AgentDelta, error) {
	body, err := json.Marshal(startRequest{
		Input:       prompt,
		Agent:       a.agent,
		Background:  true,
		Stream:      true,
		AgentConfig: agentConfig{Type: "deep-research", ThinkingSummaries: "auto"},
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1beta/interactions?alt=sse", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("x-goog-api-key", a.apiKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, &llm.ResearchAgentError{Reason: err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &llm.ResearchAgentError{Reason: fmt.Sprintf("start status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))}
	}

	out := make(chan llm.AgentDelta)
	go func() {
		defer close(out)
		defer resp.Body.Close()
		a.run(ctx, resp.Body, out)
	}()
	return out, nil
}

func (a *Agent) run(ctx context.Context, body io.Reader, out chan<- llm.AgentDelta) {
	send := func(d llm.AgentDelta) bool {
		select {
		case out <- d:
			return true
		case <-ctx.Done():
			return false
		}
	}

	var id string
	completed := false
	err := readEvents(body, func(ev streamEvent) bool {
		if ev.Interaction != nil && ev.Interaction.ID != "" {
			id = ev.Interaction.ID
		}
		switch ev.EventType {
		case "content.delta":
			if ev.Delta == nil {
				return true
			}
			switch ev.Delta.Type {
			case "text":
				return send(llm.AgentDelta{Text: ev.Delta.Text})
			case "thought_summary":
				text := ev.Delta.Text
				if ev.Delta.Content != nil && ev.Delta.Content.Text != "" {
					text = ev.Delta.Content.Text
				}
				return send(llm.AgentDelta{Thought: text})
			}
		case "interaction.complete":
			completed = true
			if ev.Interaction != nil && ev.Interaction.Status == "failed" {
				send(llm.AgentDelta{Err: &llm.ResearchAgentError{Reason: failureReason(ev.Interaction.Error, "job failed")}})
			}
			return false
		case "error":
			completed = true
			send(llm.AgentDelta{Err: &llm.ResearchAgentError{Reason: failureReason(ev.Error, "stream error")}})
			return false
		}
		return true
	})
	if completed || ctx.Err() != nil {
		return
	}
	if id == "" {
		reason := "stream ended before the job started"
		if err != nil {
			reason = err.Error()
		}
		send(llm.AgentDelta{Err: &llm.ResearchAgentError{Reason: reason}})
		return
	}

	telemetry.Warn("deep research stream dropped, polling", map[string]any{"interaction_id": id})
	final, err := a.poll(ctx, id)
	if err != nil {
		if ctx.Err() == nil {
			send(llm.AgentDelta{Err: err})
		}
		return
	}
	send(llm.AgentDelta{Text: final, Reset: true})
}

// poll waits for a job to reach a terminal status and returns its final text output.
func (a *Agent) poll(ctx context.Context, id string) (string, error) {
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()
	for {
		it, err := a.get(ctx, id)
		if err != nil {
			telemetry.Warn("deep research poll failed", map[string]any{"interaction_id": id, "error": err.Error()})
		} else {
			switch it.Status {
			case "completed":
				return lastText(it), nil
			case "failed", "cancelled":
				return "", &llm.ResearchAgentError{Reason: failureReason(it.Error, "job "+it.Status)}
			}
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

func (a *Agent) get(ctx context.Context, id string) (*interaction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/v1beta/interactions/"+id, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-goog-api-key", a.apiKey)
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("poll status %d", resp.StatusCode)
	}
	var it interaction
	if err := json.NewDecoder(resp.Body).Decode(&it); err != nil {
		return nil, fmt.Errorf("decode interaction: %w", err)
	}
	return &it, nil
}

func lastText(it *interaction) string {
	for i := len(it.Outputs) - 1; i >= 0; i-- {
		if it.Outputs[i].Type == "text" && strings.TrimSpace(it.Outputs[i].Text) != "" {
			return it.Outputs[i].Text
		}
	}
	return ""
}

func failureReason(e *apiError, fallback string) string {
	if e != nil && e.Message != "" {
		return e.Message
	}
	return fallback
}

// readEvents parses an SSE body, calling fn with each decoded data payload until fn returns false.
func readEvents(body io.Reader, fn func(streamEvent) bool) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64<<10), maxEventBytes)

	var data strings.Builder
	dispatch := func() bool {
		if data.Len() == 0 {
			return true
		}
		payload := data.String()
		data.Reset()
		if payload == "[DONE]" {
			return false
		}
		var ev streamEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			telemetry.Debug("deep research event skipped", map[string]any{"error": err.Error()})
			return true
		}
		return fn(ev)
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if !dispatch() {
				return nil
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	dispatch()
	return nil
}

var _ llm.ResearchAgent = (*Agent)(nil)
