package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	domain "github.com/mohammadpnp/record-exchange/internal/domain/record"
	"github.com/mohammadpnp/record-exchange/internal/infrastructure/db/models"
)

// CreditRepository is the gorm-backed credit gate. Charge is a single atomic
// UPDATE so concurrent jobs can never overdraw a balance through
// read-modify-write races.
type CreditRepository struct {
	db *gorm.DB
}

func NewCreditRepository(db *gorm.DB) *CreditRepository {
	return &CreditRepository{db: db}
}

func (r *CreditRepository) Check(ctx context.Context, teamID string, creditType domain.CreditType, estimatedUnits int64) error {
	var row models.CreditBalance
	err := r.db.WithContext(ctx).
		First(&row, "team_id = ? AND credit_type = ?", teamID, string(creditType)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// No balance row means no credits were ever granted.
			return domain.ErrInsufficientCredits
		}
		return fmt.Errorf("check credits: %w", err)
	}

	balance := domain.CreditBalance{Total: row.Total, Used: row.Used}
	if balance.Remaining() < estimatedUnits {
		return domain.ErrInsufficientCredits
	}
	return nil
}

func (r *CreditRepository) Charge(ctx context.Context, teamID string, creditType domain.CreditType, units int64) error {
	if units <= 0 {
		return nil
	}

	result := r.db.WithContext(ctx).Model(&models.CreditBalance{}).
		Where("team_id = ? AND credit_type = ? AND used + ? <= total", teamID, string(creditType), units).
		Updates(map[string]any{
			"used":       gorm.Expr("used + ?", units),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("charge credits: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrInsufficientCredits
	}
	return nil
}

func (r *CreditRepository) Balance(ctx context.Context, teamID string, creditType domain.CreditType) (domain.CreditBalance, error) {
	var row models.CreditBalance
	err := r.db.WithContext(ctx).
		First(&row, "team_id = ? AND credit_type = ?", teamID, string(creditType)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.CreditBalance{TeamID: teamID, CreditType: creditType}, nil
		}
		return domain.CreditBalance{}, fmt.Errorf("read credit balance: %w", err)
	}

	return domain.CreditBalance{
		TeamID:     row.TeamID,
		CreditType: domain.CreditType(row.CreditType),
		Total:      row.Total,
		Used:       row.Used,
	}, nil
}
