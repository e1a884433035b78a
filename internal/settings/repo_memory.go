package settings

import (
	"context"
	"sync"

	"prism-backend/internal/prism"
)

// MemoryRepo keeps the prompt set in process memory.
type MemoryRepo struct {
	mu      sync.RWMutex
	prompts *prism.CustomPrompts
}

// NewMemoryRepo constructs an empty MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{}
}

func (r *MemoryRepo) Get(ctx context.Context) (*prism.CustomPrompts, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.prompts == nil {
		return nil, nil
	}
	cp := *r.prompts
	return &cp, nil
}

func (r *MemoryRepo) Save(ctx context.Context, p prism.CustomPrompts) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts = &p
	return nil
}

func (r *MemoryRepo) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts = nil
	return nil
}
