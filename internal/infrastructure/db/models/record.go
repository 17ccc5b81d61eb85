package models

import "time"

// Record is the primary records store row. The bulk commit and export query
// paths go through pgx directly; this model exists for schema management and
// the occasional single-row read.
type Record struct {
	ID         string    `gorm:"type:text;primaryKey"`
	TeamID     string    `gorm:"type:text;not null;index"`
	Attributes string    `gorm:"type:jsonb;not null;default:'{}'"`
	ImportID   string    `gorm:"type:text;not null;index"`
	ImportedBy string    `gorm:"type:text"`
	ImportedAt time.Time `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (Record) TableName() string {
	return "records"
}
