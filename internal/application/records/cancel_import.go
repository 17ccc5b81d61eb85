package records

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/mohammadpnp/record-exchange/internal/domain/record"
)

type CancelImportInput struct {
	JobID string
}

type CancelImportOutput struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type CancelImport interface {
	Execute(ctx context.Context, in CancelImportInput) (CancelImportOutput, error)
}

// RequestCancel flags the job; the owning processing loop observes the flag
// between chunk commits and performs the actual transition, preserving the
// single-writer invariant on job state.
type importJobCanceler interface {
	RequestCancel(ctx context.Context, jobID string) error
}

type cancelImport struct {
	repo importJobCanceler
}

func NewCancelImport(repo importJobCanceler) CancelImport {
	return &cancelImport{repo: repo}
}

func (uc *cancelImport) Execute(ctx context.Context, in CancelImportInput) (CancelImportOutput, error) {
	jobID := strings.TrimSpace(in.JobID)
	if jobID == "" {
		return CancelImportOutput{}, domain.ErrImportJobNotFound
	}

	if err := uc.repo.RequestCancel(ctx, jobID); err != nil {
		switch {
		case errors.Is(err, domain.ErrImportJobNotFound):
			return CancelImportOutput{}, domain.ErrImportJobNotFound
		case errors.Is(err, domain.ErrJobNotCancelable):
			return CancelImportOutput{}, domain.ErrJobNotCancelable
		default:
			return CancelImportOutput{}, fmt.Errorf("%w: %v", ErrCancelImportJob, err)
		}
	}

	return CancelImportOutput{JobID: jobID, Status: "cancel_requested"}, nil
}
