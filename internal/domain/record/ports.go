package record

import (
	"context"
	"io"
	"time"
)

// Store is the primary records store. CommitBatch is atomic per call: either
// every record in the batch is upserted or none is. Count and Page serve the
// export path; Page returns records ordered by id, strictly after afterID.
type Store interface {
	CommitBatch(ctx context.Context, batch Batch) error
	Count(ctx context.Context, teamID string, filters map[string]string) (int64, error)
	Page(ctx context.Context, teamID string, filters map[string]string, afterID string, limit int) ([]Record, error)
}

// CreditGate is the external billing collaborator. Check rejects a job before
// any work starts; Charge consumes units after work has been committed and
// its failure must never undo committed writes.
type CreditGate interface {
	Check(ctx context.Context, teamID string, creditType CreditType, estimatedUnits int64) error
	Charge(ctx context.Context, teamID string, creditType CreditType, units int64) error
}

// ProgressPublisher decouples progress emission from delivery. Publishing is
// best effort: a delivery failure never affects the job outcome.
type ProgressPublisher interface {
	PublishImport(ctx context.Context, snapshot ImportJobSnapshot) error
	PublishExport(ctx context.Context, snapshot ExportJobSnapshot) error
}

// ExportArtifacts stores finished export files and mints signed download
// URLs with a bounded validity window.
type ExportArtifacts interface {
	Create(exportID string, format Format) (io.WriteCloser, string, error)
	DownloadURL(exportID string, format Format, ttl time.Duration) (string, error)
}
