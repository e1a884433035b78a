package history

import (
	"context"
	"errors"
	"strings"
	"time"

	"prism-backend/internal/prism"
	"prism-backend/internal/shared/telemetry"
)

// DefaultLimit caps how many runs List returns.
const DefaultLimit = 50

// Service stores finished runs and serves the history endpoints.
// It satisfies pipeline.Recorder.
type Service struct {
	Repo  Repo
	Limit int
	Now   func() time.Time
}

// NewService constructs a Service. A non-positive limit selects DefaultLimit.
func NewService(repo Repo, limit int) *Service {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Service{Repo: repo, Limit: limit, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// SaveRun stores a successful run under id.
func (s *Service) SaveRun(ctx context.Context, id string, in prism.AnalysisInput, result prism.Result) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("run id is required")
	}
	now := s.now()
	err := s.Repo.Create(ctx, Run{
		ID:         id,
		Timestamp:  now,
		UpdatedAt:  now,
		Input:      in,
		Result:     result,
		Iterations: []prism.IterationEntry{},
	})
	if err != nil {
		return err
	}
	telemetry.Info("history.run.saved", map[string]any{"run_id": id, "mode": string(in.ResearchDepth)})
	return nil
}

// AppendIteration records a regeneration on a stored run.
func (s *Service) AppendIteration(ctx context.Context, id string, entry prism.IterationEntry) error {
	if err := s.Repo.AppendIteration(ctx, id, entry); err != nil {
		return err
	}
	telemetry.Info("history.run.iterated", map[string]any{"run_id": id, "iteration_id": entry.ID})
	return nil
}

// List returns the newest runs.
func (s *Service) List(ctx context.Context) ([]Run, error) {
	return s.Repo.List(ctx, s.Limit)
}

// Get returns one run.
func (s *Service) Get(ctx context.Context, id string) (Run, error) {
	return s.Repo.Get(ctx, id)
}

// Delete removes one run.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.Repo.Delete(ctx, id)
}

// Clear removes every run.
func (s *Service) Clear(ctx context.Context) error {
	return s.Repo.Clear(ctx)
}

