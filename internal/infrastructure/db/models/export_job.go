package models

import "time"

type ExportJob struct {
	ID             string  `gorm:"type:text;primaryKey"`
	TeamID         string  `gorm:"type:text;not null;index"`
	Status         string  `gorm:"type:text;not null;index"`
	Progress       int     `gorm:"not null;default:0"`
	Format         string  `gorm:"type:text;not null"`
	Fields         string  `gorm:"type:jsonb;not null;default:'[]'"`
	Filters        string  `gorm:"type:jsonb;not null;default:'{}'"`
	TotalRecords   int64   `gorm:"not null;default:0"`
	ArtifactPath   string  `gorm:"type:text"`
	ErrorMessage   *string `gorm:"type:text"`
	RequestedBy    string  `gorm:"type:text"`
	Attempts       int     `gorm:"not null;default:0"`
	MaxAttempts    int     `gorm:"not null;default:3"`
	HeartbeatAt    *time.Time
	LeaseExpiresAt *time.Time
	StartedAt      *time.Time
	CompletedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (ExportJob) TableName() string {
	return "export_jobs"
}
