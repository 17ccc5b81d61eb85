package records

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	domain "github.com/mohammadpnp/record-exchange/internal/domain/record"
)

type exportWorkerJobRepo interface {
	ClaimNext(ctx context.Context, leaseDuration time.Duration) (*domain.ExportJob, error)
	Heartbeat(ctx context.Context, exportID string, leaseDuration time.Duration) error
	SetTotal(ctx context.Context, exportID string, total int64) error
	UpdateProgress(ctx context.Context, exportID string, progress int) error
	Complete(ctx context.Context, exportID string, totalExported int64, artifactPath string) error
	Requeue(ctx context.Context, exportID string, reason string) error
	Fail(ctx context.Context, exportID string, reason string) error
}

type ExportWorkerConfig struct {
	Workers           int
	PageSize          int
	PollInterval      time.Duration
	LeaseDuration     time.Duration
	HeartbeatInterval time.Duration
}

type ExportWorker struct {
	repo      exportWorkerJobRepo
	store     domain.Store
	artifacts domain.ExportArtifacts
	gate      domain.CreditGate
	publisher domain.ProgressPublisher
	log       *logrus.Logger
	cfg       ExportWorkerConfig

	once sync.Once
}

func NewExportWorker(
	repo exportWorkerJobRepo,
	store domain.Store,
	artifacts domain.ExportArtifacts,
	gate domain.CreditGate,
	publisher domain.ProgressPublisher,
	log *logrus.Logger,
	cfg ExportWorkerConfig,
) *ExportWorker {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultMaxBatchSize
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.LeaseDuration <= 0 {
		cfg.LeaseDuration = 60 * time.Second
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = cfg.LeaseDuration / 2
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &ExportWorker{
		repo:      repo,
		store:     store,
		artifacts: artifacts,
		gate:      gate,
		publisher: publisher,
		log:       log,
		cfg:       cfg,
	}
}

func (w *ExportWorker) Start(ctx context.Context) {
	w.once.Do(func() {
		for i := 0; i < w.cfg.Workers; i++ {
			go w.workerLoop(ctx)
		}
	})
}

func (w *ExportWorker) workerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := w.repo.ClaimNext(ctx, w.cfg.LeaseDuration)
		if err != nil {
			w.log.WithError(err).Warn("claim next export job failed")
			if !sleepWithContext(ctx, w.cfg.PollInterval) {
				return
			}
			continue
		}

		if job == nil {
			if !sleepWithContext(ctx, w.cfg.PollInterval) {
				return
			}
			continue
		}

		if err := w.ProcessJob(ctx, *job); err != nil {
			w.log.WithError(err).WithField("export_id", job.ID).Error("process export job failed")
		}
	}
}

// ProcessJob streams every matching record, in id order, into an artifact
// file. Zero matches still yields a valid (empty) artifact and a completed
// job.
func (w *ExportWorker) ProcessJob(ctx context.Context, job domain.ExportJob) error {
	total, err := w.store.Count(ctx, job.TeamID, job.Filters)
	if err != nil {
		return w.onProcessingError(ctx, job, fmt.Errorf("count records: %w", err))
	}

	if err := w.repo.SetTotal(ctx, job.ID, total); err != nil {
		return w.onProcessingError(ctx, job, fmt.Errorf("set total: %w", err))
	}
	w.publishProgress(ctx, job, domain.ExportStatusProcessing, exportPercent(0, total), total)

	artifact, path, err := w.artifacts.Create(job.ID, job.Format)
	if err != nil {
		return w.onProcessingError(ctx, job, fmt.Errorf("create artifact: %w", err))
	}

	encoder, err := newExportEncoder(job.Format, job.Fields, artifact)
	if err != nil {
		artifact.Close()
		return w.onProcessingError(ctx, job, err)
	}

	var exported int64
	afterID := ""
	for {
		page, err := w.store.Page(ctx, job.TeamID, job.Filters, afterID, w.cfg.PageSize)
		if err != nil {
			artifact.Close()
			return w.onProcessingError(ctx, job, fmt.Errorf("page records: %w", err))
		}

		for _, rec := range page {
			if err := encoder.write(rec); err != nil {
				artifact.Close()
				return w.onProcessingError(ctx, job, fmt.Errorf("write record %s: %w", rec.ID, err))
			}
			exported++
		}

		if len(page) > 0 {
			afterID = page[len(page)-1].ID
			if err := w.repo.UpdateProgress(ctx, job.ID, exportPercent(exported, total)); err != nil {
				artifact.Close()
				return w.onProcessingError(ctx, job, fmt.Errorf("update progress: %w", err))
			}
			w.publishProgress(ctx, job, domain.ExportStatusProcessing, exportPercent(exported, total), total)
			if err := w.repo.Heartbeat(ctx, job.ID, w.cfg.LeaseDuration); err != nil {
				artifact.Close()
				return w.onProcessingError(ctx, job, fmt.Errorf("heartbeat: %w", err))
			}
		}

		if len(page) < w.cfg.PageSize {
			break
		}
	}

	if err := encoder.close(); err != nil {
		artifact.Close()
		return w.onProcessingError(ctx, job, fmt.Errorf("finalize artifact: %w", err))
	}
	if err := artifact.Close(); err != nil {
		return w.onProcessingError(ctx, job, fmt.Errorf("close artifact: %w", err))
	}

	if err := w.repo.Complete(ctx, job.ID, exported, path); err != nil {
		return w.onProcessingError(ctx, job, fmt.Errorf("complete export: %w", err))
	}
	w.publishProgress(ctx, job, domain.ExportStatusCompleted, 100, exported)

	if exported > 0 {
		if err := w.gate.Charge(ctx, job.TeamID, domain.CreditTypeExport, exported); err != nil {
			w.log.WithError(err).WithFields(logrus.Fields{
				"export_id": job.ID,
				"team_id":   job.TeamID,
				"units":     exported,
			}).Error("credit charge failed after completed export, needs billing reconciliation")
		}
	}

	return nil
}

func (w *ExportWorker) onProcessingError(ctx context.Context, job domain.ExportJob, err error) error {
	reason := truncateReason(err.Error())
	if job.Attempts < job.MaxAttempts {
		if requeueErr := w.repo.Requeue(ctx, job.ID, reason); requeueErr != nil {
			return fmt.Errorf("%v; requeue failed: %w", err, requeueErr)
		}
		return err
	}

	if failErr := w.repo.Fail(ctx, job.ID, reason); failErr != nil {
		return fmt.Errorf("%v; fail update failed: %w", err, failErr)
	}
	w.publishProgress(ctx, job, domain.ExportStatusFailed, 0, 0)
	return err
}

func (w *ExportWorker) publishProgress(ctx context.Context, job domain.ExportJob, status domain.ExportStatus, progress int, total int64) {
	snapshot := domain.ExportJobSnapshot{
		ID:           job.ID,
		TeamID:       job.TeamID,
		Status:       status,
		Progress:     progress,
		Format:       job.Format,
		Fields:       job.Fields,
		Filters:      job.Filters,
		TotalRecords: total,
		RequestedBy:  job.RequestedBy,
	}
	if err := w.publisher.PublishExport(ctx, snapshot); err != nil {
		w.log.WithError(err).WithField("export_id", job.ID).Warn("publish export progress failed")
	}
}

func exportPercent(done, total int64) int {
	if total <= 0 {
		return 100
	}
	percent := int(done * 100 / total)
	if percent > 100 {
		percent = 100
	}
	return percent
}

// exportEncoder serializes records into the requested artifact format. CSV
// writes one column per projected field; JSON writes an array of objects
// keyed by the projected paths, or the full attribute map when no fields
// were requested.
type exportEncoder struct {
	format domain.Format
	fields []string

	csvWriter *csv.Writer
	jsonOut   io.Writer
	wroteAny  bool
}

func newExportEncoder(format domain.Format, fields []string, out io.Writer) (*exportEncoder, error) {
	enc := &exportEncoder{format: format, fields: fields}
	switch format {
	case domain.FormatCSV:
		enc.csvWriter = csv.NewWriter(out)
		if err := enc.csvWriter.Write(fields); err != nil {
			return nil, fmt.Errorf("write csv header: %w", err)
		}
	case domain.FormatJSON:
		enc.jsonOut = out
		if _, err := io.WriteString(out, "["); err != nil {
			return nil, fmt.Errorf("write json open: %w", err)
		}
	default:
		return nil, domain.ErrUnsupportedFormat
	}
	return enc, nil
}

func (e *exportEncoder) write(rec domain.Record) error {
	switch e.format {
	case domain.FormatCSV:
		row := make([]string, len(e.fields))
		for i, field := range e.fields {
			if value, ok := rec.FieldByPath(field); ok {
				row[i] = stringify(value)
			}
		}
		return e.csvWriter.Write(row)
	default:
		payload := rec.Fields
		if len(e.fields) > 0 {
			projected := make(map[string]any, len(e.fields))
			for _, field := range e.fields {
				if value, ok := rec.FieldByPath(field); ok {
					projected[field] = value
				}
			}
			payload = projected
		}

		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		if e.wroteAny {
			if _, err := io.WriteString(e.jsonOut, ","); err != nil {
				return err
			}
		}
		e.wroteAny = true
		_, err = e.jsonOut.Write(data)
		return err
	}
}

func (e *exportEncoder) close() error {
	switch e.format {
	case domain.FormatCSV:
		e.csvWriter.Flush()
		return e.csvWriter.Error()
	default:
		_, err := io.WriteString(e.jsonOut, "]")
		return err
	}
}
