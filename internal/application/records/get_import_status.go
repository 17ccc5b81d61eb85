package records

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/mohammadpnp/record-exchange/internal/domain/record"
)

type GetImportStatusInput struct {
	JobID string
}

type GetImportStatus interface {
	Execute(ctx context.Context, in GetImportStatusInput) (domain.ImportJobSnapshot, error)
}

type importJobReader interface {
	GetByID(ctx context.Context, jobID string) (domain.ImportJobSnapshot, error)
}

type getImportStatus struct {
	repo importJobReader
}

func NewGetImportStatus(repo importJobReader) GetImportStatus {
	return &getImportStatus{repo: repo}
}

func (uc *getImportStatus) Execute(ctx context.Context, in GetImportStatusInput) (domain.ImportJobSnapshot, error) {
	jobID := strings.TrimSpace(in.JobID)
	if jobID == "" {
		return domain.ImportJobSnapshot{}, domain.ErrImportJobNotFound
	}

	snapshot, err := uc.repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrImportJobNotFound) {
			return domain.ImportJobSnapshot{}, domain.ErrImportJobNotFound
		}
		return domain.ImportJobSnapshot{}, fmt.Errorf("%w: %v", ErrGetImportStatus, err)
	}

	return snapshot, nil
}
