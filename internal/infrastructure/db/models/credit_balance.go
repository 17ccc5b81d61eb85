package models

import "time"

type CreditBalance struct {
	TeamID     string `gorm:"type:text;primaryKey"`
	CreditType string `gorm:"type:text;primaryKey"`
	Total      int64  `gorm:"not null;default:0"`
	Used       int64  `gorm:"not null;default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (CreditBalance) TableName() string {
	return "credit_balances"
}
