package records

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	domain "github.com/mohammadpnp/record-exchange/internal/domain/record"
)

// estimatedBytesPerRecord backs the pre-parse credit estimate. The gate is
// consulted before the file is even opened, so the only size signal available
// is the upload's byte count.
const estimatedBytesPerRecord = 256

type StartImportInput struct {
	TeamID      string
	SubmittedBy string
	FileName    string
	FileSize    int64
	Format      string
	File        io.Reader
}

type StartImportOutput struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type StartImport interface {
	Execute(ctx context.Context, in StartImportInput) (StartImportOutput, error)
}

type importJobCreator interface {
	Create(ctx context.Context, job domain.ImportJob) error
}

type uploadSaver interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

type startImport struct {
	importJobRepo importJobCreator
	uploads       uploadSaver
	gate          domain.CreditGate
	maxAttempts   int
}

func NewStartImport(importJobRepo importJobCreator, uploads uploadSaver, gate domain.CreditGate, maxAttempts int) StartImport {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &startImport{
		importJobRepo: importJobRepo,
		uploads:       uploads,
		gate:          gate,
		maxAttempts:   maxAttempts,
	}
}

func (uc *startImport) Execute(ctx context.Context, in StartImportInput) (StartImportOutput, error) {
	teamID := strings.TrimSpace(in.TeamID)
	if teamID == "" {
		return StartImportOutput{}, ErrInvalidTeam
	}

	format, err := domain.ParseFormat(in.Format)
	if err != nil {
		return StartImportOutput{}, ErrInvalidFormat
	}

	if in.FileSize <= 0 {
		return StartImportOutput{}, ErrEmptyFile
	}

	// Credit check comes before any parsing or persistence: a rejected job
	// leaves no trace and no partial charge.
	if err := uc.gate.Check(ctx, teamID, domain.CreditTypeLead, estimateRecords(in.FileSize)); err != nil {
		if errors.Is(err, domain.ErrInsufficientCredits) {
			return StartImportOutput{}, domain.ErrInsufficientCredits
		}
		return StartImportOutput{}, fmt.Errorf("%w: %v", ErrEnqueueImportJob, err)
	}

	jobID := newJobID("imp")

	sourcePath, err := uc.uploads.Save(ctx, jobID, in.File)
	if err != nil {
		return StartImportOutput{}, fmt.Errorf("%w: %v", ErrEnqueueImportJob, err)
	}

	job := domain.ImportJob{
		ID:             jobID,
		TeamID:         teamID,
		SourcePath:     sourcePath,
		SourceFileName: in.FileName,
		SourceFileSize: in.FileSize,
		SourceFormat:   format,
		Status:         domain.ImportStatusQueued,
		SubmittedBy:    in.SubmittedBy,
		MaxAttempts:    uc.maxAttempts,
	}

	if err := uc.importJobRepo.Create(ctx, job); err != nil {
		return StartImportOutput{}, fmt.Errorf("%w: %v", ErrEnqueueImportJob, err)
	}

	return StartImportOutput{JobID: jobID, Status: string(domain.ImportStatusQueued)}, nil
}

func estimateRecords(fileSize int64) int64 {
	estimate := fileSize / estimatedBytesPerRecord
	if estimate < 1 {
		estimate = 1
	}
	return estimate
}
