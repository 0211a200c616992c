package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/nextier/graph-etl/pkg/common"
	"github.com/nextier/graph-etl/pkg/etl"
)

// ErrJobNotFound is returned when no job row exists for an ID.
var ErrJobNotFound = errors.New("job not found")

// JobStore persists ETL job state in Postgres. It backs the status API and
// survives worker restarts, unlike anything held in process memory.
type JobStore struct {
	conn *pgxpool.Pool
}

func NewJobStore(conn *pgxpool.Pool) *JobStore {
	return &JobStore{conn: conn}
}

var _ etl.JobSink = (*JobStore)(nil)

func (s *JobStore) Create(ctx context.Context, bucketID, mode string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", err
	}

	_, err = s.conn.Exec(ctx, `
		INSERT INTO etl_jobs (id, bucket_id, mode, status)
		VALUES ($1, $2, $3, $4)`,
		id, bucketID, mode, common.JobPending,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert job: %w", err)
	}
	return id, nil
}

func (s *JobStore) MarkProcessing(ctx context.Context, jobID string) error {
	tag, err := s.conn.Exec(ctx, `
		UPDATE etl_jobs
		SET status = $2, started_at = now()
		WHERE id = $1`,
		jobID, common.JobProcessing,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s: %w", jobID, ErrJobNotFound)
	}
	return nil
}

func (s *JobStore) UpdateProgress(ctx context.Context, jobID string, progress common.Progress) error {
	_, err := s.conn.Exec(ctx, `
		UPDATE etl_jobs
		SET processed = $2, total = $3, failed = $4,
		    nodes_created = $5, nodes_merged = $6, edges_created = $7
		WHERE id = $1`,
		jobID,
		progress.Processed, progress.Total, progress.Failed,
		progress.NodesCreated, progress.NodesMerged, progress.EdgesCreated,
	)
	return err
}

func (s *JobStore) Complete(ctx context.Context, jobID string, result *common.ETLResult) error {
	if err := s.UpdateProgress(ctx, jobID, result.Progress); err != nil {
		return err
	}
	_, err := s.conn.Exec(ctx, `
		UPDATE etl_jobs
		SET status = $2, completed_at = now()
		WHERE id = $1`,
		jobID, common.JobCompleted,
	)
	return err
}

func (s *JobStore) Fail(ctx context.Context, jobID string, reason string) error {
	_, err := s.conn.Exec(ctx, `
		UPDATE etl_jobs
		SET status = $2, error_message = $3, completed_at = now()
		WHERE id = $1`,
		jobID, common.JobFailed, reason,
	)
	return err
}

func (s *JobStore) Get(ctx context.Context, jobID string) (*etl.JobStatus, error) {
	row := s.conn.QueryRow(ctx, `
		SELECT id, bucket_id, mode, status,
		       processed, total, failed, nodes_created, nodes_merged, edges_created,
		       error_message, created_at, started_at, completed_at
		FROM etl_jobs
		WHERE id = $1`,
		jobID,
	)

	job := &etl.JobStatus{}
	var errorMessage *string
	var createdAt time.Time
	var startedAt, completedAt *time.Time
	err := row.Scan(
		&job.ID, &job.BucketID, &job.Mode, &job.Status,
		&job.Progress.Processed, &job.Progress.Total, &job.Progress.Failed,
		&job.Progress.NodesCreated, &job.Progress.NodesMerged, &job.Progress.EdgesCreated,
		&errorMessage, &createdAt, &startedAt, &completedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", jobID, ErrJobNotFound)
	}
	if err != nil {
		return nil, err
	}

	if errorMessage != nil {
		job.Error = *errorMessage
	}
	job.CreatedAt = createdAt
	job.StartedAt = startedAt
	job.CompletedAt = completedAt
	return job, nil
}

// ListRecent returns the newest jobs first, capped at limit.
func (s *JobStore) ListRecent(ctx context.Context, limit int) ([]*etl.JobStatus, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.conn.Query(ctx, `
		SELECT id, bucket_id, mode, status,
		       processed, total, failed, nodes_created, nodes_merged, edges_created,
		       error_message, created_at, started_at, completed_at
		FROM etl_jobs
		ORDER BY created_at DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*etl.JobStatus
	for rows.Next() {
		job := &etl.JobStatus{}
		var errorMessage *string
		var startedAt, completedAt *time.Time
		if err := rows.Scan(
			&job.ID, &job.BucketID, &job.Mode, &job.Status,
			&job.Progress.Processed, &job.Progress.Total, &job.Progress.Failed,
			&job.Progress.NodesCreated, &job.Progress.NodesMerged, &job.Progress.EdgesCreated,
			&errorMessage, &job.CreatedAt, &startedAt, &completedAt,
		); err != nil {
			return nil, err
		}
		if errorMessage != nil {
			job.Error = *errorMessage
		}
		job.StartedAt = startedAt
		job.CompletedAt = completedAt
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
