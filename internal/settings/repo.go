package settings

import (
	"context"

	"prism-backend/internal/prism"
)

// Repo persists the single custom prompt set. Get returns nil when nothing is stored.
type Repo interface {
	Get(ctx context.Context) (*prism.CustomPrompts, error)
	Save(ctx context.Context, p prism.CustomPrompts) error
	Reset(ctx context.Context) error
}
