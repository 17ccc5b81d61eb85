package records

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/mohammadpnp/record-exchange/internal/domain/record"
)

type StartExportInput struct {
	TeamID      string
	RequestedBy string
	Format      string
	Fields      []string
	Filters     map[string]string
}

type StartExportOutput struct {
	ExportID     string `json:"export_id"`
	Status       string `json:"status"`
	TotalRecords int64  `json:"total_records"`
}

type StartExport interface {
	Execute(ctx context.Context, in StartExportInput) (StartExportOutput, error)
}

type exportJobCreator interface {
	Create(ctx context.Context, job domain.ExportJob, estimatedTotal int64) error
}

type recordCounter interface {
	Count(ctx context.Context, teamID string, filters map[string]string) (int64, error)
}

type startExport struct {
	exportJobRepo exportJobCreator
	counter       recordCounter
	gate          domain.CreditGate
	maxAttempts   int
}

func NewStartExport(exportJobRepo exportJobCreator, counter recordCounter, gate domain.CreditGate, maxAttempts int) StartExport {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &startExport{
		exportJobRepo: exportJobRepo,
		counter:       counter,
		gate:          gate,
		maxAttempts:   maxAttempts,
	}
}

func (uc *startExport) Execute(ctx context.Context, in StartExportInput) (StartExportOutput, error) {
	teamID := strings.TrimSpace(in.TeamID)
	if teamID == "" {
		return StartExportOutput{}, ErrInvalidTeam
	}

	format, err := domain.ParseFormat(in.Format)
	if err != nil {
		return StartExportOutput{}, ErrInvalidFormat
	}

	fields := normalizeFields(in.Fields)
	if format == domain.FormatCSV && len(fields) == 0 {
		return StartExportOutput{}, ErrFieldsRequired
	}

	// Cheap size estimate up front; an empty result set is still a valid
	// export, it just completes immediately with an empty artifact.
	estimate, err := uc.counter.Count(ctx, teamID, in.Filters)
	if err != nil {
		return StartExportOutput{}, fmt.Errorf("%w: %v", ErrEnqueueExportJob, err)
	}

	if err := uc.gate.Check(ctx, teamID, domain.CreditTypeExport, estimate); err != nil {
		if errors.Is(err, domain.ErrInsufficientCredits) {
			return StartExportOutput{}, domain.ErrInsufficientCredits
		}
		return StartExportOutput{}, fmt.Errorf("%w: %v", ErrEnqueueExportJob, err)
	}

	job := domain.ExportJob{
		ID:          newJobID("exp"),
		TeamID:      teamID,
		Format:      format,
		Fields:      fields,
		Filters:     in.Filters,
		RequestedBy: in.RequestedBy,
		MaxAttempts: uc.maxAttempts,
	}

	if err := uc.exportJobRepo.Create(ctx, job, estimate); err != nil {
		return StartExportOutput{}, fmt.Errorf("%w: %v", ErrEnqueueExportJob, err)
	}

	return StartExportOutput{
		ExportID:     job.ID,
		Status:       string(domain.ExportStatusQueued),
		TotalRecords: estimate,
	}, nil
}

func normalizeFields(fields []string) []string {
	out := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if _, dup := seen[field]; dup {
			continue
		}
		seen[field] = struct{}{}
		out = append(out, field)
	}
	return out
}
