package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"prism-backend/internal/prism"
)

// PGRepo stores the prompt set in the single-row prism_custom_prompts table.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Get(ctx context.Context) (*prism.CustomPrompts, error) {
	var raw []byte
	err := r.DB.QueryRowContext(ctx, `SELECT prompts FROM prism_custom_prompts WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var p prism.CustomPrompts
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode prompts: %w", err)
	}
	return &p, nil
}

func (r *PGRepo) Save(ctx context.Context, p prism.CustomPrompts) error {
	const query = `
INSERT INTO prism_custom_prompts (id, prompts, updated_at)
VALUES (1, $1, now())
ON CONFLICT (id) DO UPDATE SET prompts = EXCLUDED.prompts, updated_at = now()`
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prompts: %w", err)
	}
	_, err = r.DB.ExecContext(ctx, query, raw)
	return err
}

func (r *PGRepo) Reset(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM prism_custom_prompts`)
	return err
}
