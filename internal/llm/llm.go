package llm

import (
	"context"
	"errors"
	"fmt"

	"prism-backend/internal/prism"
)

// Request is one model call.
type Request struct {
	Model        string
	SystemPrompt string
	Prompt       string
}

// Citation ties a span of grounded text to the indices of the chunks backing it.
type Citation struct {
	Text         string
	ChunkIndices []int
}

// GroundedResponse is the raw output of a search-grounded call.
type GroundedResponse struct {
	Text      string
	Chunks    []prism.GroundingSource
	Citations []Citation
}

// URLReadResponse is the output of a page-fetching call.
type URLReadResponse struct {
	Text          string
	RetrievedURLs []string
}

// Provider is a hosted model backend.
type Provider interface {
	// GenerateJSON returns a completion constrained to JSON output.
	GenerateJSON(ctx context.Context, req Request) (string, error)
	// GenerateGrounded returns a web-search grounded completion. It cannot be combined with JSON mode.
	GenerateGrounded(ctx context.Context, req Request) (GroundedResponse, error)
	// ReadURLs fetches the pages named in the prompt and returns a JSON completion over them.
	ReadURLs(ctx context.Context, req Request) (URLReadResponse, error)
}

// ErrNoProvider is returned when the pipeline runs without a configured model backend.
var ErrNoProvider = errors.New("GEMINI_API_KEY is not configured")

// GenerationError reports a model call that failed after its retry budget.
type GenerationError struct {
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	if e.Attempts <= 1 {
		return fmt.Sprintf("generation failed: %v", e.Err)
	}
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ResearchAgentError reports a failed or empty long-running research job.
type ResearchAgentError struct {
	Reason string
}

func (e *ResearchAgentError) Error() string {
	return "deep research agent failed: " + e.Reason
}

// IsGenerationError reports whether err wraps a GenerationError.
func IsGenerationError(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}

// IsResearchAgentError reports whether err wraps a ResearchAgentError.
func IsResearchAgentError(err error) bool {
	var re *ResearchAgentError
	return errors.As(err, &re)
}

type unavailableProvider struct{}

// Unavailable returns a Provider whose every call fails with ErrNoProvider.
func Unavailable() Provider { return unavailableProvider{} }

func (unavailableProvider) GenerateJSON(context.Context, Request) (string, error) {
	return "", ErrNoProvider
}

func (unavailableProvider) GenerateGrounded(context.Context, Request) (GroundedResponse, error) {
	return GroundedResponse{}, ErrNoProvider
}

func (unavailableProvider) ReadURLs(context.Context, Request) (URLReadResponse, error) {
	return URLReadResponse{}, ErrNoProvider
}
