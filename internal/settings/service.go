package settings

import (
	"context"
	"sort"
	"strings"

	"prism-backend/internal/prism"
	"prism-backend/internal/prompts"
	"prism-backend/internal/shared/telemetry"
)

// Service manages the stored prompt overrides.
type Service struct {
	Repo Repo
}

// NewService constructs a Service.
func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// Get returns the stored overrides, or nil when the defaults are in effect.
func (s *Service) Get(ctx context.Context) (*prism.CustomPrompts, error) {
	return s.Repo.Get(ctx)
}

// PlaceholderError rejects overrides that reference variables their template never receives.
type PlaceholderError struct {
	// Unknown maps each offending field to its unfillable placeholder names.
	Unknown map[string][]string
}

func (e *PlaceholderError) Error() string {
	keys := make([]string, 0, len(e.Unknown))
	for k := range e.Unknown {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": {{"+strings.Join(e.Unknown[k], "}}, {{")+"}}")
	}
	return "unknown placeholders: " + strings.Join(parts, "; ")
}

// Save stores p. An all-blank set resets to the defaults. Overrides with placeholders
// their template never fills are rejected with a PlaceholderError and nothing is stored.
func (s *Service) Save(ctx context.Context, p prism.CustomPrompts) error {
	if blank(p) {
		return s.Reset(ctx)
	}
	if unknown := prompts.UnknownPlaceholders(p); unknown != nil {
		telemetry.Warn("settings.prompts.rejected", map[string]any{"unknown": unknown})
		return &PlaceholderError{Unknown: unknown}
	}
	if err := s.Repo.Save(ctx, p); err != nil {
		return err
	}
	telemetry.Info("settings.prompts.saved", nil)
	return nil
}

// Reset removes the stored overrides.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.Repo.Reset(ctx); err != nil {
		return err
	}
	telemetry.Info("settings.prompts.reset", nil)
	return nil
}

// Defaults lists the compiled-in templates.
func (s *Service) Defaults() []prompts.Template {
	return prompts.Defaults()
}

func blank(p prism.CustomPrompts) bool {
	for _, v := range []string{p.SystemPrompt, p.Phase1Template, p.Phase2Template, p.Phase3Template, p.Phase4Template} {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
