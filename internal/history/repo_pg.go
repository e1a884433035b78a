package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"prism-backend/internal/prism"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const selectRun = `
SELECT id, input, result, iterations, created_at, updated_at
FROM prism_runs`

// Create inserts a new run.
func (r *PGRepo) Create(ctx context.Context, run Run) error {
	const query = `
INSERT INTO prism_runs (id, product, category, depth, input, result, iterations, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`
	input, err := json.Marshal(run.Input)
	if err != nil {
		return fmt.Errorf("marshal input: %w", err)
	}
	result, err := json.Marshal(run.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	iterations, err := marshalIterations(run.Iterations)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		run.ID,
		run.Input.ProductName,
		run.Input.Category,
		string(run.Input.ResearchDepth),
		input,
		result,
		iterations,
		run.Timestamp,
	)
	return err
}

// AppendIteration locks the row, applies the regeneration and writes it back.
func (r *PGRepo) AppendIteration(ctx context.Context, id string, entry prism.IterationEntry) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var resultRaw, iterationsRaw []byte
	err = tx.QueryRowContext(ctx, `SELECT result, iterations FROM prism_runs WHERE id = $1 FOR UPDATE`, id).
		Scan(&resultRaw, &iterationsRaw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	var result prism.Result
	if err := json.Unmarshal(resultRaw, &result); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	var iterations []prism.IterationEntry
	if len(iterationsRaw) > 0 {
		if err := json.Unmarshal(iterationsRaw, &iterations); err != nil {
			return fmt.Errorf("decode iterations: %w", err)
		}
	}

	resultOut, err := json.Marshal(result.WithRegeneration(entry))
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	iterationsOut, err := marshalIterations(append(iterations, entry))
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE prism_runs SET result = $1, iterations = $2, updated_at = now() WHERE id = $3`,
		resultOut, iterationsOut, id,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// Get returns a run by ID.
func (r *PGRepo) Get(ctx context.Context, id string) (Run, error) {
	row := r.DB.QueryRowContext(ctx, selectRun+` WHERE id = $1`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	return run, err
}

// List returns up to limit runs, newest first.
func (r *PGRepo) List(ctx context.Context, limit int) ([]Run, error) {
	query := selectRun + ` ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// Delete removes a run.
func (r *PGRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM prism_runs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Clear removes every run.
func (r *PGRepo) Clear(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM prism_runs`)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		run                            Run
		input, result, iterationsBytes []byte
	)
	if err := s.Scan(&run.ID, &input, &result, &iterationsBytes, &run.Timestamp, &run.UpdatedAt); err != nil {
		return Run{}, err
	}
	if err := json.Unmarshal(input, &run.Input); err != nil {
		return Run{}, fmt.Errorf("decode input: %w", err)
	}
	if err := json.Unmarshal(result, &run.Result); err != nil {
		return Run{}, fmt.Errorf("decode result: %w", err)
	}
	run.Iterations = []prism.IterationEntry{}
	if len(iterationsBytes) > 0 {
		if err := json.Unmarshal(iterationsBytes, &run.Iterations); err != nil {
			return Run{}, fmt.Errorf("decode iterations: %w", err)
		}
	}
	return run, nil
}

func marshalIterations(entries []prism.IterationEntry) ([]byte, error) {
	if entries == nil {
		entries = []prism.IterationEntry{}
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("marshal iterations: %w", err)
	}
	return b, nil
}
