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

type ExportJobRepository struct {
	db *gorm.DB
}

func NewExportJobRepository(db *gorm.DB) *ExportJobRepository {
	return &ExportJobRepository{db: db}
}

func (r *ExportJobRepository) Create(ctx context.Context, job domain.ExportJob, estimatedTotal int64) error {
	fields, err := json.Marshal(job.Fields)
	if err != nil {
		return fmt.Errorf("encode export fields: %w", err)
	}
	filters, err := json.Marshal(job.Filters)
	if err != nil {
		return fmt.Errorf("encode export filters: %w", err)
	}

	row := models.ExportJob{
		ID:           job.ID,
		TeamID:       job.TeamID,
		Status:       string(domain.ExportStatusQueued),
		Format:       string(job.Format),
		Fields:       string(fields),
		Filters:      string(filters),
		TotalRecords: estimatedTotal,
		RequestedBy:  job.RequestedBy,
		MaxAttempts:  job.MaxAttempts,
	}

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("create export job: %w", err)
	}
	return nil
}

func (r *ExportJobRepository) ClaimNext(ctx context.Context, leaseDuration time.Duration) (*domain.ExportJob, error) {
	var row models.ExportJob
	now := time.Now().UTC()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Raw(`
SELECT * FROM export_jobs
WHERE status = ? OR (status = ? AND lease_expires_at < ?)
ORDER BY created_at
LIMIT 1
FOR UPDATE SKIP LOCKED
`, string(domain.ExportStatusQueued), string(domain.ExportStatusProcessing), now).Scan(&row).Error
		if err != nil {
			return err
		}
		if row.ID == "" {
			return nil
		}

		leaseExpiresAt := now.Add(leaseDuration)
		return tx.Model(&models.ExportJob{}).Where("id = ?", row.ID).Updates(map[string]any{
			"status":           string(domain.ExportStatusProcessing),
			"attempts":         gorm.Expr("attempts + 1"),
			"started_at":       gorm.Expr("COALESCE(started_at, ?)", now),
			"heartbeat_at":     now,
			"lease_expires_at": leaseExpiresAt,
			"updated_at":       now,
		}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("claim export job: %w", err)
	}
	if row.ID == "" {
		return nil, nil
	}

	var fields []string
	if row.Fields != "" {
		if err := json.Unmarshal([]byte(row.Fields), &fields); err != nil {
			return nil, fmt.Errorf("decode export fields: %w", err)
		}
	}
	var filters map[string]string
	if row.Filters != "" {
		if err := json.Unmarshal([]byte(row.Filters), &filters); err != nil {
			return nil, fmt.Errorf("decode export filters: %w", err)
		}
	}

	return &domain.ExportJob{
		ID:          row.ID,
		TeamID:      row.TeamID,
		Format:      domain.Format(row.Format),
		Fields:      fields,
		Filters:     filters,
		RequestedBy: row.RequestedBy,
		Attempts:    row.Attempts + 1,
		MaxAttempts: row.MaxAttempts,
	}, nil
}

func (r *ExportJobRepository) Heartbeat(ctx context.Context, exportID string, leaseDuration time.Duration) error {
	now := time.Now().UTC()
	err := r.db.WithContext(ctx).Model(&models.ExportJob{}).Where("id = ?", exportID).Updates(map[string]any{
		"heartbeat_at":     now,
		"lease_expires_at": now.Add(leaseDuration),
		"updated_at":       now,
	}).Error
	if err != nil {
		return fmt.Errorf("heartbeat export job: %w", err)
	}
	return nil
}

func (r *ExportJobRepository) SetTotal(ctx context.Context, exportID string, total int64) error {
	err := r.db.WithContext(ctx).Model(&models.ExportJob{}).Where("id = ?", exportID).Updates(map[string]any{
		"total_records": total,
		"updated_at":    time.Now().UTC(),
	}).Error
	if err != nil {
		return fmt.Errorf("set export total: %w", err)
	}
	return nil
}

// UpdateProgress floors against the stored value so a retried attempt
// restarting from zero never makes the persisted percentage go backwards.
func (r *ExportJobRepository) UpdateProgress(ctx context.Context, exportID string, progress int) error {
	err := r.db.WithContext(ctx).Model(&models.ExportJob{}).Where("id = ?", exportID).Updates(map[string]any{
		"progress":   gorm.Expr("GREATEST(progress, ?)", progress),
		"updated_at": time.Now().UTC(),
	}).Error
	if err != nil {
		return fmt.Errorf("update export progress: %w", err)
	}
	return nil
}

func (r *ExportJobRepository) Complete(ctx context.Context, exportID string, totalExported int64, artifactPath string) error {
	now := time.Now().UTC()
	err := r.db.WithContext(ctx).Model(&models.ExportJob{}).Where("id = ?", exportID).Updates(map[string]any{
		"status":        string(domain.ExportStatusCompleted),
		"progress":      100,
		"total_records": totalExported,
		"artifact_path": artifactPath,
		"completed_at":  now,
		"updated_at":    now,
	}).Error
	if err != nil {
		return fmt.Errorf("complete export job: %w", err)
	}
	return nil
}

func (r *ExportJobRepository) Requeue(ctx context.Context, exportID string, reason string) error {
	err := r.db.WithContext(ctx).Model(&models.ExportJob{}).Where("id = ?", exportID).Updates(map[string]any{
		"status":           string(domain.ExportStatusQueued),
		"error_message":    reason,
		"lease_expires_at": nil,
		"heartbeat_at":     nil,
		"updated_at":       time.Now().UTC(),
	}).Error
	if err != nil {
		return fmt.Errorf("requeue export job: %w", err)
	}
	return nil
}

func (r *ExportJobRepository) Fail(ctx context.Context, exportID string, reason string) error {
	now := time.Now().UTC()
	err := r.db.WithContext(ctx).Model(&models.ExportJob{}).Where("id = ?", exportID).Updates(map[string]any{
		"status":        string(domain.ExportStatusFailed),
		"error_message": reason,
		"completed_at":  now,
		"updated_at":    now,
	}).Error
	if err != nil {
		return fmt.Errorf("fail export job: %w", err)
	}
	return nil
}

func (r *ExportJobRepository) GetByID(ctx context.Context, exportID string) (domain.ExportJobSnapshot, error) {
	var row models.ExportJob
	err := r.db.WithContext(ctx).First(&row, "id = ?", exportID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ExportJobSnapshot{}, domain.ErrExportJobNotFound
		}
		return domain.ExportJobSnapshot{}, fmt.Errorf("get export job: %w", err)
	}

	var fields []string
	if row.Fields != "" {
		if err := json.Unmarshal([]byte(row.Fields), &fields); err != nil {
			return domain.ExportJobSnapshot{}, fmt.Errorf("decode export fields: %w", err)
		}
	}
	var filters map[string]string
	if row.Filters != "" {
		if err := json.Unmarshal([]byte(row.Filters), &filters); err != nil {
			return domain.ExportJobSnapshot{}, fmt.Errorf("decode export filters: %w", err)
		}
	}

	snapshot := domain.ExportJobSnapshot{
		ID:           row.ID,
		TeamID:       row.TeamID,
		Status:       domain.ExportStatus(row.Status),
		Progress:     row.Progress,
		Format:       domain.Format(row.Format),
		Fields:       fields,
		Filters:      filters,
		TotalRecords: row.TotalRecords,
		ArtifactPath: row.ArtifactPath,
		RequestedBy:  row.RequestedBy,
		CreatedAt:    row.CreatedAt,
		CompletedAt:  row.CompletedAt,
	}
	if row.ErrorMessage != nil {
		snapshot.ErrorMessage = *row.ErrorMessage
	}
	return snapshot, nil
}
