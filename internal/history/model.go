package history

import (
	"context"
	"errors"
	"time"

	"prism-backend/internal/prism"
)

// ErrNotFound is returned when a run id does not exist.
var ErrNotFound = errors.New("run not found")

// Run is one stored pipeline run with its regeneration log.
type Run struct {
	ID         string                 `json:"id"`
	Timestamp  time.Time              `json:"timestamp"`
	UpdatedAt  time.Time              `json:"updatedAt"`
	Input      prism.AnalysisInput    `json:"input"`
	Result     prism.Result           `json:"result"`
	Iterations []prism.IterationEntry `json:"iterations"`
}

// Repo persists runs. List returns newest first. AppendIteration records the
// entry and replaces the stored result with Result.WithRegeneration(entry).
type Repo interface {
	Create(ctx context.Context, run Run) error
	AppendIteration(ctx context.Context, id string, entry prism.IterationEntry) error
	Get(ctx context.Context, id string) (Run, error)
	List(ctx context.Context, limit int) ([]Run, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}
