package port

import (
	"context"
	"errors"

	"github.com/benniebendiksen/pose-extraction-service/internal/domain/entity"
)

// ErrJobNotFound is returned by FindByID when no job has the given id.
var ErrJobNotFound = errors.New("job not found")

// JobRepository is the job-run ledger. It is observability, not control flow:
// jobs execute synchronously and never outlive the process, the ledger just
// records what happened.
type JobRepository interface {
	Create(ctx context.Context, job *entity.Job) error
	Update(ctx context.Context, job *entity.Job) error
	FindByID(ctx context.Context, id string) (*entity.Job, error)
}
