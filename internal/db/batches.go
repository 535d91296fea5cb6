package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/tanadol/reelforge/internal/models"
)

// UpsertBatchJob stores the latest snapshot of a batch job. Called on every
// observable transition, so the row always reflects the live scheduler state
// and survives restarts as history.
func (db *DB) UpsertBatchJob(ctx context.Context, job *models.BatchJob) error {
	items, err := json.Marshal(job.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal batch items: %w", err)
	}
	results, err := json.Marshal(job.Results)
	if err != nil {
		return fmt.Errorf("failed to marshal batch results: %w", err)
	}

	query := `
		INSERT INTO batch_jobs (
			id, name, status, progress, total_items, completed_items,
			failed_items, items, results, created_at, started_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			progress = EXCLUDED.progress,
			completed_items = EXCLUDED.completed_items,
			failed_items = EXCLUDED.failed_items,
			items = EXCLUDED.items,
			results = EXCLUDED.results,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at
	`
	_, err = db.ExecContext(
		ctx, query,
		job.ID, job.Name, job.Status, job.Progress, job.TotalItems,
		job.CompletedItems, job.FailedItems, items, results,
		job.CreatedAt, job.StartedAt, job.CompletedAt,
	)
	return err
}

func (db *DB) GetBatchJob(ctx context.Context, id uuid.UUID) (*models.BatchJob, error) {
	query := `
		SELECT
			id, name, status, progress, total_items, completed_items,
			failed_items, items, results, created_at, started_at, completed_at
		FROM batch_jobs
		WHERE id = $1
	`

	var itemsRaw, resultsRaw []byte
	job := &models.BatchJob{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&job.ID, &job.Name, &job.Status, &job.Progress, &job.TotalItems,
		&job.CompletedItems, &job.FailedItems, &itemsRaw, &resultsRaw,
		&job.CreatedAt, &job.StartedAt, &job.CompletedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("batch job not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch job: %w", err)
	}
	if err := json.Unmarshal(itemsRaw, &job.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal batch items: %w", err)
	}
	if err := json.Unmarshal(resultsRaw, &job.Results); err != nil {
		return nil, fmt.Errorf("failed to unmarshal batch results: %w", err)
	}
	return job, nil
}

// ListBatchJobs returns persisted batch snapshots newest first, without the
// per-item payloads.
func (db *DB) ListBatchJobs(ctx context.Context, limit, offset int) ([]models.BatchJob, error) {
	query := `
		SELECT
			id, name, status, progress, total_items, completed_items,
			failed_items, created_at, started_at, completed_at
		FROM batch_jobs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list batch jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.BatchJob
	for rows.Next() {
		var j models.BatchJob
		if err := rows.Scan(
			&j.ID, &j.Name, &j.Status, &j.Progress, &j.TotalItems,
			&j.CompletedItems, &j.FailedItems,
			&j.CreatedAt, &j.StartedAt, &j.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan batch job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}
