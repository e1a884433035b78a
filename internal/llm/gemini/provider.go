package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"prism-backend/internal/llm"
	"prism-backend/internal/prism"
)

// modelsAPI is the slice of genai.Models the provider calls.
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Config configures the Gemini provider.
type Config struct {
	APIKey            string
	BaseURL           string
	RequestsPerMinute int
	Burst             int
	HTTPClient        *http.Client
}

// Provider implements llm.Provider on the Gemini API.
type Provider struct {
	models  modelsAPI
	limiter *rate.Limiter
}

// NewProvider constructs a genai-backed provider.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("GEMINI_API_KEY is required")
	}
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newProvider(client.Models, cfg.RequestsPerMinute, cfg.Burst), nil
}

func newProvider(models modelsAPI, rpm, burst int) *Provider {
	return &Provider{models: models, limiter: newLimiter(rpm, burst)}
}

func newLimiter(rpm, burst int) *rate.Limiter {
	if rpm <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst)
}

func (p *Provider) generate(ctx context.Context, req llm.Request, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	resp, err := p.models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini %s: %w", req.Model, err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil, fmt.Errorf("gemini %s: response has no candidates", req.Model)
	}
	return resp, nil
}

// GenerateJSON requests a JSON-only completion.
func (p *Provider) GenerateJSON(ctx context.Context, req llm.Request) (string, error) {
	resp, err := p.generate(ctx, req, &genai.GenerateContentConfig{ResponseMIMEType: "application/json"})
	if err != nil {
		return "", err
	}
	return candidateText(resp.Candidates[0]), nil
}

// GenerateGrounded requests a Google Search grounded completion.
func (p *Provider) GenerateGrounded(ctx context.Context, req llm.Request) (llm.GroundedResponse, error) {
	resp, err := p.generate(ctx, req, &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	})
	if err != nil {
		return llm.GroundedResponse{}, err
	}
	cand := resp.Candidates[0]
	out := llm.GroundedResponse{Text: candidateText(cand)}
	if meta := cand.GroundingMetadata; meta != nil {
		for _, chunk := range meta.GroundingChunks {
			var src prism.GroundingSource
			if chunk != nil && chunk.Web != nil {
				src = prism.GroundingSource{Title: chunk.Web.Title, URL: chunk.Web.URI}
			}
			// Keep positions aligned with GroundingChunkIndices even for non-web chunks.
			out.Chunks = append(out.Chunks, src)
		}
		for _, sup := range meta.GroundingSupports {
			if sup == nil || sup.Segment == nil {
				continue
			}
			idx := make([]int, 0, len(sup.GroundingChunkIndices))
			for _, i := range sup.GroundingChunkIndices {
				idx = append(idx, int(i))
			}
			out.Citations = append(out.Citations, llm.Citation{Text: sup.Segment.Text, ChunkIndices: idx})
		}
	}
	return out, nil
}

// ReadURLs requests a JSON completion with the URL context tool enabled.
func (p *Provider) ReadURLs(ctx context.Context, req llm.Request) (llm.URLReadResponse, error) {
	resp, err := p.generate(ctx, req, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Tools:            []*genai.Tool{{URLContext: &genai.URLContext{}}},
	})
	if err != nil {
		return llm.URLReadResponse{}, err
	}
	cand := resp.Candidates[0]
	out := llm.URLReadResponse{Text: candidateText(cand)}
	if meta := cand.URLContextMetadata; meta != nil {
		for _, m := range meta.URLMetadata {
			if m == nil || m.RetrievedURL == "" {
				continue
			}
			if m.URLRetrievalStatus != "" && m.URLRetrievalStatus != genai.URLRetrievalStatusSuccess {
				continue
			}
			out.RetrievedURLs = append(out.RetrievedURLs, m.RetrievedURL)
		}
	}
	return out, nil
}

// candidateText concatenates the non-thought text parts of a candidate.
func candidateText(c *genai.Candidate) string {
	if c == nil || c.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range c.Content.Parts {
		if part == nil || part.Thought || part.Text == "" {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}

var _ llm.Provider = (*Provider)(nil)
