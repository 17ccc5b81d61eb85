package record

import "time"

type ImportStatus string

const (
	ImportStatusQueued     ImportStatus = "queued"
	ImportStatusProcessing ImportStatus = "processing"
	ImportStatusCompleted  ImportStatus = "completed"
	ImportStatusFailed     ImportStatus = "failed"
	ImportStatusCanceled   ImportStatus = "canceled"
)

func (s ImportStatus) Terminal() bool {
	return s == ImportStatusCompleted || s == ImportStatusFailed || s == ImportStatusCanceled
}

type ImportJob struct {
	ID             string
	TeamID         string
	SourcePath     string
	SourceFileName string
	SourceFileSize int64
	SourceFormat   Format
	Status         ImportStatus
	SubmittedBy    string
	Attempts       int
	MaxAttempts    int
}

// ImportError describes one rejected record or one failed chunk. For a
// failed chunk, RecordIndex is the index of the chunk's first record.
type ImportError struct {
	RecordIndex int64  `json:"record_index"`
	Message     string `json:"message"`
}

// ImportProgress carries the job's cumulative counters. The invariant
// ProcessedRecords == SuccessfulRecords + FailedRecords holds after every
// update, and every counter is non-decreasing over the job's lifetime.
type ImportProgress struct {
	TotalRecords      int64
	ProcessedRecords  int64
	SuccessfulRecords int64
	FailedRecords     int64
}

// Percent derives the 0-100 progress value from the counters.
func (p ImportProgress) Percent() int {
	if p.TotalRecords <= 0 {
		return 0
	}
	percent := int(p.ProcessedRecords * 100 / p.TotalRecords)
	if percent > 100 {
		percent = 100
	}
	return percent
}

type ImportSummary struct {
	ImportProgress
	Errors []ImportError
}

// ImportJobSnapshot is the read model served to pollers. It is read-only:
// only the owning job's processing loop mutates the underlying row.
type ImportJobSnapshot struct {
	ID                string        `json:"id"`
	TeamID            string        `json:"team_id"`
	SourceFileName    string        `json:"source_file_name"`
	SourceFileSize    int64         `json:"source_file_size"`
	SourceFormat      Format        `json:"source_format"`
	Status            ImportStatus  `json:"status"`
	TotalRecords      int64         `json:"total_records"`
	ProcessedRecords  int64         `json:"processed_records"`
	SuccessfulRecords int64         `json:"successful_records"`
	FailedRecords     int64         `json:"failed_records"`
	Progress          int           `json:"progress"`
	Errors            []ImportError `json:"errors,omitempty"`
	ErrorMessage      string        `json:"error_message,omitempty"`
	SubmittedBy       string        `json:"submitted_by"`
	SubmittedAt       time.Time     `json:"submitted_at"`
	CompletedAt       *time.Time    `json:"completed_at,omitempty"`
}
