package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/benniebendiksen/pose-extraction-service/internal/domain/entity"
	"github.com/benniebendiksen/pose-extraction-service/internal/domain/port"
)

type JobRepository struct {
	db *sqlx.DB
}

func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

type jobRow struct {
	ID           string     `db:"id"`
	Kind         string     `db:"kind"`
	BaseName     string     `db:"base_name"`
	InputPath    string     `db:"input_path"`
	OutputPath   string     `db:"output_path"`
	Status       string     `db:"status"`
	FramesRead   int        `db:"frames_read"`
	FrameCount   int        `db:"frame_count"`
	StopReason   string     `db:"stop_reason"`
	ErrorMessage string     `db:"error_message"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
	CompletedAt  *time.Time `db:"completed_at"`
}

func (r *JobRepository) Create(ctx context.Context, job *entity.Job) error {
	query := `
		INSERT INTO jobs (
			id, kind, base_name, input_path, output_path, status,
			frames_read, frame_count, stop_reason, error_message,
			created_at, updated_at, completed_at
		) VALUES (
			:id, :kind, :base_name, :input_path, :output_path, :status,
			:frames_read, :frame_count, :stop_reason, :error_message,
			:created_at, :updated_at, :completed_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, toRow(job)); err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *JobRepository) Update(ctx context.Context, job *entity.Job) error {
	query := `
		UPDATE jobs SET
			status=:status, input_path=:input_path, output_path=:output_path,
			frames_read=:frames_read, frame_count=:frame_count,
			stop_reason=:stop_reason, error_message=:error_message,
			updated_at=:updated_at, completed_at=:completed_at
		WHERE id=:id`

	if _, err := r.db.NamedExecContext(ctx, query, toRow(job)); err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

func (r *JobRepository) FindByID(ctx context.Context, id string) (*entity.Job, error) {
	query := `
		SELECT id, kind, base_name, input_path, output_path, status,
			frames_read, frame_count, stop_reason, error_message,
			created_at, updated_at, completed_at
		FROM jobs WHERE id=?`

	var row jobRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("find job %s: %w", id, port.ErrJobNotFound)
		}
		return nil, fmt.Errorf("find job by id: %w", err)
	}
	return row.toEntity(), nil
}

func toRow(job *entity.Job) *jobRow {
	return &jobRow{
		ID:           job.ID,
		Kind:         string(job.Kind),
		BaseName:     job.BaseName,
		InputPath:    job.InputPath,
		OutputPath:   job.OutputPath,
		Status:       string(job.Status),
		FramesRead:   job.FramesRead,
		FrameCount:   job.FrameCount,
		StopReason:   string(job.StopReason),
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
		CompletedAt:  job.CompletedAt,
	}
}

func (r *jobRow) toEntity() *entity.Job {
	return &entity.Job{
		ID:           r.ID,
		Kind:         entity.JobKind(r.Kind),
		BaseName:     r.BaseName,
		InputPath:    r.InputPath,
		OutputPath:   r.OutputPath,
		Status:       entity.JobStatus(r.Status),
		FramesRead:   r.FramesRead,
		FrameCount:   r.FrameCount,
		StopReason:   entity.StopReason(r.StopReason),
		ErrorMessage: r.ErrorMessage,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		CompletedAt:  r.CompletedAt,
	}
}
