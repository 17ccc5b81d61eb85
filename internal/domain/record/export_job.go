package record

import "time"

type ExportStatus string

const (
	ExportStatusQueued     ExportStatus = "queued"
	ExportStatusProcessing ExportStatus = "processing"
	ExportStatusCompleted  ExportStatus = "completed"
	ExportStatusFailed     ExportStatus = "failed"
)

func (s ExportStatus) Terminal() bool {
	return s == ExportStatusCompleted || s == ExportStatusFailed
}

type ExportJob struct {
	ID          string
	TeamID      string
	Format      Format
	Fields      []string
	Filters     map[string]string
	RequestedBy string
	Attempts    int
	MaxAttempts int
}

// ExportJobSnapshot is the read model for status polling. DownloadURL is
// populated only on completed jobs and is valid for a bounded time window.
type ExportJobSnapshot struct {
	ID           string            `json:"id"`
	TeamID       string            `json:"team_id"`
	Status       ExportStatus      `json:"status"`
	Progress     int               `json:"progress"`
	Format       Format            `json:"format"`
	Fields       []string          `json:"fields,omitempty"`
	Filters      map[string]string `json:"filters,omitempty"`
	TotalRecords int64             `json:"total_records"`
	ArtifactPath string            `json:"-"`
	DownloadURL  string            `json:"download_url,omitempty"`
	ErrorMessage string            `json:"error,omitempty"`
	RequestedBy  string            `json:"requested_by"`
	CreatedAt    time.Time         `json:"created_at"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
}
