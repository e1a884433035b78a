package llm

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"prism-backend/internal/prism"
	"prism-backend/internal/shared/metrics"
	"prism-backend/internal/shared/telemetry"
	"prism-backend/internal/sources"
)

// GroundedResult is grounded text with its citation sources and span mappings.
type GroundedResult struct {
	Text     string
	Sources  []prism.GroundingSource
	Segments []prism.GroundingSegment
}

// ResearchResult is the merged output of several grounded calls.
type ResearchResult struct {
	CombinedText string
	Sources      []prism.GroundingSource
	Segments     []prism.GroundingSegment
}

// BuildGrounding turns raw citation metadata into deduplicated sources and
// span-to-source segments. Spans whose indices resolve to no source are dropped.
func BuildGrounding(resp GroundedResponse) GroundedResult {
	result := GroundedResult{Text: resp.Text}
	for _, chunk := range resp.Chunks {
		if strings.TrimSpace(chunk.URL) == "" {
			continue
		}
		result.Sources = append(result.Sources, chunk)
	}
	result.Sources = sources.Dedupe(result.Sources)

	for _, cite := range resp.Citations {
		var segSources []prism.GroundingSource
		for _, idx := range cite.ChunkIndices {
			if idx < 0 || idx >= len(resp.Chunks) {
				continue
			}
			if chunk := resp.Chunks[idx]; strings.TrimSpace(chunk.URL) != "" {
				segSources = append(segSources, chunk)
			}
		}
		if len(segSources) == 0 || strings.TrimSpace(cite.Text) == "" {
			continue
		}
		result.Segments = append(result.Segments, prism.GroundingSegment{
			Text:    cite.Text,
			Sources: sources.Dedupe(segSources),
		})
	}
	return result
}

// GenerateGrounded runs one web-search grounded call. It is not retried.
func (c *Client) GenerateGrounded(ctx context.Context, call Call) (GroundedResult, error) {
	resp, err := c.provider.GenerateGrounded(ctx, c.request(call))
	if err != nil {
		metrics.IncLLMAttempt("grounded", "error")
		return GroundedResult{}, &GenerationError{Attempts: 1, Err: err}
	}
	metrics.IncLLMAttempt("grounded", "ok")
	return BuildGrounding(resp), nil
}

// MultiGroundedResearch runs one grounded call per query concurrently and merges them.
// Texts are concatenated in query order under numbered labels, sources are deduplicated
// by URL with the first occurrence kept, and segments are flattened.
func (c *Client) MultiGroundedResearch(ctx context.Context, tier prism.ModelTier, system string, queries []string) (ResearchResult, error) {
	results := make([]GroundedResult, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			r, err := c.GenerateGrounded(gctx, Call{Model: tier, System: system, Prompt: q, Label: "grounded"})
			if err != nil {
				return fmt.Errorf("search angle %d: %w", i+1, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ResearchResult{}, err
	}

	var out ResearchResult
	texts := make([]string, 0, len(results))
	var all []prism.GroundingSource
	for i, r := range results {
		texts = append(texts, fmt.Sprintf("【調査%d】\n%s", i+1, strings.TrimSpace(r.Text)))
		all = append(all, r.Sources...)
		out.Segments = append(out.Segments, r.Segments...)
	}
	out.CombinedText = strings.Join(texts, "\n\n")
	out.Sources = sources.Dedupe(all)
	return out, nil
}

// DeepRequest configures DeepResearchContent.
type DeepRequest struct {
	Model   prism.ModelTier
	System  string
	Queries []string
	// ReadPrompt builds the page-reading prompt from the URLs chosen for re-reading.
	ReadPrompt func(urls []prism.GroundingSource) string
	// FallbackPrompt builds the plain JSON re-prompt over the fetched text.
	FallbackPrompt func(fetched string, urls []prism.GroundingSource) string
}

// DeepResult reports what the deep research step discovered and read.
// Sources holds the discovered URLs plus any page the reader retrieved.
type DeepResult struct {
	CombinedText string
	Sources      []prism.GroundingSource
	ReadURLs     []string
	UsedFallback bool
}

// DeepResearchContent discovers URLs with MultiGroundedResearch, re-reads up to the
// client's URL budget with a page-fetching call that answers in JSON, and decodes into out.
// When that answer does not parse, one plain JSON call over the fetched text is made,
// outside the retry budget.
func (c *Client) DeepResearchContent(ctx context.Context, req DeepRequest, out any) (DeepResult, error) {
	research, err := c.MultiGroundedResearch(ctx, req.Model, req.System, req.Queries)
	if err != nil {
		return DeepResult{}, err
	}

	targets := research.Sources
	if len(targets) > c.maxURLs {
		targets = targets[:c.maxURLs]
	}

	read, err := c.provider.ReadURLs(ctx, c.request(Call{Model: req.Model, System: req.System, Prompt: req.ReadPrompt(targets)}))
	if err != nil {
		metrics.IncLLMAttempt("url_read", "error")
		return DeepResult{}, &GenerationError{Attempts: 1, Err: err}
	}

	result := DeepResult{
		CombinedText: research.CombinedText,
		Sources:      mergeRetrieved(research.Sources, read.RetrievedURLs),
		ReadURLs:     read.RetrievedURLs,
	}

	parseErr := decodeJSON(read.Text, jsonInto(out))
	if parseErr == nil {
		metrics.IncLLMAttempt("url_read", "ok")
		return result, nil
	}
	metrics.IncLLMAttempt("url_read", "error")
	telemetry.Warn("deep read output not json, falling back", map[string]any{"error": parseErr.Error()})

	fetched := research.CombinedText
	if text := strings.TrimSpace(read.Text); text != "" {
		fetched += "\n\n" + text
	}
	fallback := Call{Model: req.Model, System: req.System, Prompt: req.FallbackPrompt(fetched, targets), Label: "deep_fallback"}
	if err := c.GenerateJSONWithRetries(ctx, fallback, 0, out); err != nil {
		return result, err
	}
	result.UsedFallback = true
	return result, nil
}

func mergeRetrieved(discovered []prism.GroundingSource, retrieved []string) []prism.GroundingSource {
	all := append([]prism.GroundingSource(nil), discovered...)
	for _, u := range retrieved {
		all = append(all, prism.GroundingSource{Title: u, URL: u})
	}
	return sources.Dedupe(all)
}
