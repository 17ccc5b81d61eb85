package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	domain "github.com/mohammadpnp/record-exchange/internal/domain/record"
	"github.com/mohammadpnp/record-exchange/internal/infrastructure/db/models"
)

// ImportJobRepository owns the persisted import job state. Claimed jobs are
// leased; a worker that stops heartbeating loses the lease and the job
// becomes claimable again.
type ImportJobRepository struct {
	db *gorm.DB
}

func NewImportJobRepository(db *gorm.DB) *ImportJobRepository {
	return &ImportJobRepository{db: db}
}

func (r *ImportJobRepository) Create(ctx context.Context, job domain.ImportJob) error {
	row := models.ImportJob{
		ID:             job.ID,
		TeamID:         job.TeamID,
		SourcePath:     job.SourcePath,
		SourceFileName: job.SourceFileName,
		SourceFileSize: job.SourceFileSize,
		SourceFormat:   string(job.SourceFormat),
		Status:         string(domain.ImportStatusQueued),
		Errors:         "[]",
		SubmittedBy:    job.SubmittedBy,
		MaxAttempts:    job.MaxAttempts,
	}

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("create import job: %w", err)
	}
	return nil
}

// ClaimNext picks the oldest claimable job (queued, or processing with an
// expired lease) and moves it to processing under a fresh lease.
// Cancel-requested jobs stay claimable on purpose: if the owning worker died
// before observing the flag, the next claimer sees it and finalizes the
// cancellation instead of leaving the job in processing forever.
func (r *ImportJobRepository) ClaimNext(ctx context.Context, leaseDuration time.Duration) (*domain.ImportJob, error) {
	var row models.ImportJob
	now := time.Now().UTC()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Raw(`
SELECT * FROM import_jobs
WHERE status = ? OR (status = ? AND lease_expires_at < ?)
ORDER BY created_at
LIMIT 1
FOR UPDATE SKIP LOCKED
`, string(domain.ImportStatusQueued), string(domain.ImportStatusProcessing), now).Scan(&row).Error
		if err != nil {
			return err
		}
		if row.ID == "" {
			return nil
		}

		leaseExpiresAt := now.Add(leaseDuration)
		return tx.Model(&models.ImportJob{}).Where("id = ?", row.ID).Updates(map[string]any{
			"status":           string(domain.ImportStatusProcessing),
			"attempts":         gorm.Expr("attempts + 1"),
			"started_at":       gorm.Expr("COALESCE(started_at, ?)", now),
			"heartbeat_at":     now,
			"lease_expires_at": leaseExpiresAt,
			"updated_at":       now,
		}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("claim import job: %w", err)
	}
	if row.ID == "" {
		return nil, nil
	}

	return &domain.ImportJob{
		ID:             row.ID,
		TeamID:         row.TeamID,
		SourcePath:     row.SourcePath,
		SourceFileName: row.SourceFileName,
		SourceFileSize: row.SourceFileSize,
		SourceFormat:   domain.Format(row.SourceFormat),
		Status:         domain.ImportStatusProcessing,
		SubmittedBy:    row.SubmittedBy,
		Attempts:       row.Attempts + 1,
		MaxAttempts:    row.MaxAttempts,
	}, nil
}

func (r *ImportJobRepository) Heartbeat(ctx context.Context, jobID string, leaseDuration time.Duration) error {
	now := time.Now().UTC()
	err := r.db.WithContext(ctx).Model(&models.ImportJob{}).Where("id = ?", jobID).Updates(map[string]any{
		"heartbeat_at":     now,
		"lease_expires_at": now.Add(leaseDuration),
		"updated_at":       now,
	}).Error
	if err != nil {
		return fmt.Errorf("heartbeat import job: %w", err)
	}
	return nil
}

// UpdateProgress floors every counter against the stored row. A retried
// attempt restarts its in-memory counters from zero, and the persisted
// progress must never move backwards for anyone polling across the retry.
func (r *ImportJobRepository) UpdateProgress(ctx context.Context, jobID string, progress domain.ImportProgress, errs []domain.ImportError) error {
	encoded, err := encodeImportErrors(errs)
	if err != nil {
		return err
	}

	err = r.db.WithContext(ctx).Model(&models.ImportJob{}).Where("id = ?", jobID).Updates(map[string]any{
		"total_records":      progress.TotalRecords,
		"processed_records":  gorm.Expr("GREATEST(processed_records, ?)", progress.ProcessedRecords),
		"successful_records": gorm.Expr("GREATEST(successful_records, ?)", progress.SuccessfulRecords),
		"failed_records":     gorm.Expr("GREATEST(failed_records, ?)", progress.FailedRecords),
		"progress":           gorm.Expr("GREATEST(progress, ?)", progress.Percent()),
		"errors":             encoded,
		"updated_at":         time.Now().UTC(),
	}).Error
	if err != nil {
		return fmt.Errorf("update import progress: %w", err)
	}
	return nil
}

func (r *ImportJobRepository) Complete(ctx context.Context, jobID string, summary domain.ImportSummary) error {
	encoded, err := encodeImportErrors(summary.Errors)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	err = r.db.WithContext(ctx).Model(&models.ImportJob{}).Where("id = ?", jobID).Updates(map[string]any{
		"status":             string(domain.ImportStatusCompleted),
		"total_records":      summary.TotalRecords,
		"processed_records":  summary.ProcessedRecords,
		"successful_records": summary.SuccessfulRecords,
		"failed_records":     summary.FailedRecords,
		"progress":           100,
		"errors":             encoded,
		"completed_at":       now,
		"updated_at":         now,
	}).Error
	if err != nil {
		return fmt.Errorf("complete import job: %w", err)
	}
	return nil
}

func (r *ImportJobRepository) Requeue(ctx context.Context, jobID string, reason string) error {
	now := time.Now().UTC()
	err := r.db.WithContext(ctx).Model(&models.ImportJob{}).Where("id = ?", jobID).Updates(map[string]any{
		"status":           string(domain.ImportStatusQueued),
		"error_message":    reason,
		"lease_expires_at": nil,
		"heartbeat_at":     nil,
		"updated_at":       now,
	}).Error
	if err != nil {
		return fmt.Errorf("requeue import job: %w", err)
	}
	return nil
}

func (r *ImportJobRepository) Fail(ctx context.Context, jobID string, reason string) error {
	now := time.Now().UTC()
	err := r.db.WithContext(ctx).Model(&models.ImportJob{}).Where("id = ?", jobID).Updates(map[string]any{
		"status":        string(domain.ImportStatusFailed),
		"error_message": reason,
		"completed_at":  now,
		"updated_at":    now,
	}).Error
	if err != nil {
		return fmt.Errorf("fail import job: %w", err)
	}
	return nil
}

// RequestCancel flags a running job for cancellation; a still-queued job is
// canceled outright since no processing loop owns it yet.
func (r *ImportJobRepository) RequestCancel(ctx context.Context, jobID string) error {
	now := time.Now().UTC()

	queued := r.db.WithContext(ctx).Model(&models.ImportJob{}).
		Where("id = ? AND status = ?", jobID, string(domain.ImportStatusQueued)).
		Updates(map[string]any{
			"status":           string(domain.ImportStatusCanceled),
			"cancel_requested": true,
			"completed_at":     now,
			"updated_at":       now,
		})
	if queued.Error != nil {
		return fmt.Errorf("cancel queued import job: %w", queued.Error)
	}
	if queued.RowsAffected > 0 {
		return nil
	}

	processing := r.db.WithContext(ctx).Model(&models.ImportJob{}).
		Where("id = ? AND status = ?", jobID, string(domain.ImportStatusProcessing)).
		Updates(map[string]any{
			"cancel_requested": true,
			"updated_at":       now,
		})
	if processing.Error != nil {
		return fmt.Errorf("request import cancel: %w", processing.Error)
	}
	if processing.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ImportJob{}).Where("id = ?", jobID).Count(&count).Error; err != nil {
		return fmt.Errorf("lookup import job: %w", err)
	}
	if count == 0 {
		return domain.ErrImportJobNotFound
	}
	return domain.ErrJobNotCancelable
}

func (r *ImportJobRepository) CancelRequested(ctx context.Context, jobID string) (bool, error) {
	var row models.ImportJob
	err := r.db.WithContext(ctx).Select("cancel_requested").First(&row, "id = ?", jobID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, domain.ErrImportJobNotFound
		}
		return false, fmt.Errorf("read cancel flag: %w", err)
	}
	return row.CancelRequested, nil
}

func (r *ImportJobRepository) MarkCanceled(ctx context.Context, jobID string) error {
	now := time.Now().UTC()
	err := r.db.WithContext(ctx).Model(&models.ImportJob{}).
		Where("id = ? AND status = ?", jobID, string(domain.ImportStatusProcessing)).
		Updates(map[string]any{
			"status":       string(domain.ImportStatusCanceled),
			"completed_at": now,
			"updated_at":   now,
		}).Error
	if err != nil {
		return fmt.Errorf("mark import job canceled: %w", err)
	}
	return nil
}

func (r *ImportJobRepository) GetByID(ctx context.Context, jobID string) (domain.ImportJobSnapshot, error) {
	var row models.ImportJob
	err := r.db.WithContext(ctx).First(&row, "id = ?", jobID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ImportJobSnapshot{}, domain.ErrImportJobNotFound
		}
		return domain.ImportJobSnapshot{}, fmt.Errorf("get import job: %w", err)
	}

	var importErrors []domain.ImportError
	if row.Errors != "" {
		if err := json.Unmarshal([]byte(row.Errors), &importErrors); err != nil {
			return domain.ImportJobSnapshot{}, fmt.Errorf("decode import errors: %w", err)
		}
	}

	snapshot := domain.ImportJobSnapshot{
		ID:                row.ID,
		TeamID:            row.TeamID,
		SourceFileName:    row.SourceFileName,
		SourceFileSize:    row.SourceFileSize,
		SourceFormat:      domain.Format(row.SourceFormat),
		Status:            domain.ImportStatus(row.Status),
		TotalRecords:      row.TotalRecords,
		ProcessedRecords:  row.ProcessedRecords,
		SuccessfulRecords: row.SuccessfulRecords,
		FailedRecords:     row.FailedRecords,
		Progress:          row.Progress,
		Errors:            importErrors,
		SubmittedBy:       row.SubmittedBy,
		SubmittedAt:       row.CreatedAt,
		CompletedAt:       row.CompletedAt,
	}
	if row.ErrorMessage != nil {
		snapshot.ErrorMessage = *row.ErrorMessage
	}
	return snapshot, nil
}

func encodeImportErrors(errs []domain.ImportError) (string, error) {
	if len(errs) == 0 {
		return "[]", nil
	}
	encoded, err := json.Marshal(errs)
	if err != nil {
		return "", fmt.Errorf("encode import errors: %w", err)
	}
	return string(encoded), nil
}
