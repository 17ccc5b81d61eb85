package models

import "time"

type ImportJob struct {
	ID                string  `gorm:"type:text;primaryKey"`
	TeamID            string  `gorm:"type:text;not null;index"`
	SourcePath        string  `gorm:"type:text;not null"`
	SourceFileName    string  `gorm:"type:text;not null"`
	SourceFileSize    int64   `gorm:"not null;default:0"`
	SourceFormat      string  `gorm:"type:text;not null"`
	Status            string  `gorm:"type:text;not null;index"`
	TotalRecords      int64   `gorm:"not null;default:0"`
	ProcessedRecords  int64   `gorm:"not null;default:0"`
	SuccessfulRecords int64   `gorm:"not null;default:0"`
	FailedRecords     int64   `gorm:"not null;default:0"`
	Progress          int     `gorm:"not null;default:0"`
	Errors            string  `gorm:"type:jsonb;not null;default:'[]'"`
	ErrorMessage      *string `gorm:"type:text"`
	SubmittedBy       string  `gorm:"type:text"`
	CancelRequested   bool    `gorm:"not null;default:false"`
	Attempts          int     `gorm:"not null;default:0"`
	MaxAttempts       int     `gorm:"not null;default:3"`
	HeartbeatAt       *time.Time
	LeaseExpiresAt    *time.Time
	StartedAt         *time.Time
	CompletedAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (ImportJob) TableName() string {
	return "import_jobs"
}
