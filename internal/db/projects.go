package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/tanadol/reelforge/internal/models"
)

func (db *DB) CreateProject(ctx context.Context, project *models.VideoProject) error {
	query := `
		INSERT INTO video_projects (
			id, type, status, progress, metadata
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	return db.QueryRowContext(
		ctx, query,
		project.ID, project.Type, project.Status, project.Progress, project.Metadata,
	).Scan(&project.CreatedAt)
}

func (db *DB) GetProject(ctx context.Context, id uuid.UUID) (*models.VideoProject, error) {
	query := `
		SELECT
			id, type, status, progress, video_url, voiceover_url, thumbnail_url,
			duration, resolution, byte_size, error_message, metadata,
			created_at, completed_at
		FROM video_projects
		WHERE id = $1
	`

	project := &models.VideoProject{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&project.ID, &project.Type, &project.Status, &project.Progress,
		&project.VideoURL, &project.VoiceoverURL, &project.ThumbnailURL,
		&project.Duration, &project.Resolution, &project.ByteSize,
		&project.ErrorMessage, &project.Metadata,
		&project.CreatedAt, &project.CompletedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("project not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return project, nil
}

// ListProjects returns projects newest first, optionally filtered by type
// or status.
func (db *DB) ListProjects(ctx context.Context, videoType, status string, limit, offset int) ([]models.VideoProject, error) {
	query := `
		SELECT
			id, type, status, progress, video_url, voiceover_url, thumbnail_url,
			duration, resolution, byte_size, error_message, metadata,
			created_at, completed_at
		FROM video_projects
		WHERE ($1 = '' OR type = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := db.QueryContext(ctx, query, videoType, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []models.VideoProject
	for rows.Next() {
		var p models.VideoProject
		if err := rows.Scan(
			&p.ID, &p.Type, &p.Status, &p.Progress,
			&p.VideoURL, &p.VoiceoverURL, &p.ThumbnailURL,
			&p.Duration, &p.Resolution, &p.ByteSize,
			&p.ErrorMessage, &p.Metadata,
			&p.CreatedAt, &p.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (db *DB) UpdateProjectStatus(ctx context.Context, id uuid.UUID, status models.ProjectStatus, progress int) error {
	query := `UPDATE video_projects SET status = $1, progress = $2 WHERE id = $3`
	_, err := db.ExecContext(ctx, query, status, progress, id)
	return err
}

// CompleteProject records the published artifact locations and final shape
// of a finished video.
func (db *DB) CompleteProject(ctx context.Context, project *models.VideoProject) error {
	query := `
		UPDATE video_projects SET
			status = $1, progress = 100,
			video_url = $2, voiceover_url = $3, thumbnail_url = $4,
			duration = $5, resolution = $6, byte_size = $7,
			completed_at = NOW()
		WHERE id = $8
		RETURNING completed_at
	`
	return db.QueryRowContext(
		ctx, query,
		models.ProjectStatusCompleted,
		project.VideoURL, project.VoiceoverURL, project.ThumbnailURL,
		project.Duration, project.Resolution, project.ByteSize,
		project.ID,
	).Scan(&project.CompletedAt)
}

func (db *DB) FailProject(ctx context.Context, id uuid.UUID, message string) error {
	query := `
		UPDATE video_projects SET
			status = $1, error_message = $2, completed_at = NOW()
		WHERE id = $3
	`
	_, err := db.ExecContext(ctx, query, models.ProjectStatusFailed, message, id)
	return err
}

// CountProjects returns the number of projects, optionally by status.
func (db *DB) CountProjects(ctx context.Context, status string) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM video_projects WHERE ($1 = '' OR status = $1)`, status).Scan(&count)
	return count, err
}
