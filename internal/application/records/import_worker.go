package records

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	domain "github.com/mohammadpnp/record-exchange/internal/domain/record"
)

// maxStoredErrors caps the persisted error detail per job. The failure
// counters stay exact beyond the cap.
const maxStoredErrors = 100

var errImportCanceled = errors.New("import canceled")

type ImportSource interface {
	Open(ctx context.Context, sourcePath string) (io.ReadCloser, error)
}

type importWorkerJobRepo interface {
	ClaimNext(ctx context.Context, leaseDuration time.Duration) (*domain.ImportJob, error)
	Heartbeat(ctx context.Context, jobID string, leaseDuration time.Duration) error
	UpdateProgress(ctx context.Context, jobID string, progress domain.ImportProgress, errs []domain.ImportError) error
	Complete(ctx context.Context, jobID string, summary domain.ImportSummary) error
	Requeue(ctx context.Context, jobID string, reason string) error
	Fail(ctx context.Context, jobID string, reason string) error
	CancelRequested(ctx context.Context, jobID string) (bool, error)
	MarkCanceled(ctx context.Context, jobID string) error
}

type ImportWorkerConfig struct {
	Workers           int
	MaxBatchSize      int
	PollInterval      time.Duration
	LeaseDuration     time.Duration
	HeartbeatInterval time.Duration
	CommitTimeout     time.Duration
	ChunkRetryBackoff time.Duration
	// WriteRatePerSec models the store's global write-rate limit, shared by
	// every job this worker runs.
	WriteRatePerSec float64
}

type ImportWorker struct {
	repo      importWorkerJobRepo
	source    ImportSource
	store     domain.Store
	gate      domain.CreditGate
	publisher domain.ProgressPublisher
	limiter   *rate.Limiter
	log       *logrus.Logger
	cfg       ImportWorkerConfig

	once sync.Once
}

func NewImportWorker(
	repo importWorkerJobRepo,
	source ImportSource,
	store domain.Store,
	gate domain.CreditGate,
	publisher domain.ProgressPublisher,
	log *logrus.Logger,
	cfg ImportWorkerConfig,
) *ImportWorker {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = DefaultMaxBatchSize
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
	if cfg.CommitTimeout <= 0 {
		cfg.CommitTimeout = 10 * time.Second
	}
	if cfg.ChunkRetryBackoff <= 0 {
		cfg.ChunkRetryBackoff = 500 * time.Millisecond
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.WriteRatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.WriteRatePerSec), 1)
	}

	return &ImportWorker{
		repo:      repo,
		source:    source,
		store:     store,
		gate:      gate,
		publisher: publisher,
		limiter:   limiter,
		log:       log,
		cfg:       cfg,
	}
}

func (w *ImportWorker) Start(ctx context.Context) {
	w.once.Do(func() {
		for i := 0; i < w.cfg.Workers; i++ {
			go w.workerLoop(ctx)
		}
	})
}

func (w *ImportWorker) workerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := w.repo.ClaimNext(ctx, w.cfg.LeaseDuration)
		if err != nil {
			w.log.WithError(err).Warn("claim next import job failed")
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
			w.log.WithError(err).WithField("job_id", job.ID).Error("process import job failed")
		}
	}
}

// ProcessJob runs the whole pipeline for one claimed job: a counting parse
// pass, then validate -> chunk -> commit serially in source order. Chunks
// already committed stay committed no matter how the job ends.
func (w *ImportWorker) ProcessJob(ctx context.Context, job domain.ImportJob) error {
	total, err := w.countPass(ctx, job)
	if err != nil {
		var parseErr *domain.ParseError
		if errors.As(err, &parseErr) {
			// Malformed input never gets better on retry; fail before any write.
			return w.failJob(ctx, job, parseErr)
		}
		return w.onProcessingError(ctx, job, err)
	}

	progress := domain.ImportProgress{TotalRecords: total}
	if err := w.repo.UpdateProgress(ctx, job.ID, progress, nil); err != nil {
		return w.onProcessingError(ctx, job, fmt.Errorf("record total: %w", err))
	}
	w.publishProgress(ctx, job, domain.ImportStatusProcessing, progress, nil)

	reader, closeSource, err := w.openReader(ctx, job)
	if err != nil {
		return w.onProcessingError(ctx, job, err)
	}
	defer closeSource()

	ticker := time.NewTicker(w.cfg.HeartbeatInterval)
	defer ticker.Stop()

	var errs []domain.ImportError
	ck := newChunker(w.cfg.MaxBatchSize)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.repo.Heartbeat(ctx, job.ID, w.cfg.LeaseDuration); err != nil {
				return w.onProcessingError(ctx, job, fmt.Errorf("heartbeat: %w", err))
			}
		default:
		}

		raw, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// The counting pass already vetted the syntax, so a mid-stream
			// parse error means the source changed under us.
			var parseErr *domain.ParseError
			if errors.As(err, &parseErr) {
				return w.failJob(ctx, job, parseErr)
			}
			return w.onProcessingError(ctx, job, fmt.Errorf("read record: %w", err))
		}

		rec, validationErr := Validate(raw)
		if validationErr != nil {
			// Rejected records are counted failed immediately and never
			// reach a batch.
			progress.ProcessedRecords++
			progress.FailedRecords++
			appendImportError(&errs, domain.ImportError{RecordIndex: raw.Index, Message: validationErr.Error()})
			if err := w.repo.UpdateProgress(ctx, job.ID, progress, errs); err != nil {
				return w.onProcessingError(ctx, job, fmt.Errorf("record validation progress: %w", err))
			}
			continue
		}

		full, ok := ck.add(raw.Index, rec)
		if !ok {
			continue
		}
		if err := w.commitChunk(ctx, job, full, &progress, &errs); err != nil {
			if errors.Is(err, errImportCanceled) {
				return nil
			}
			return w.onProcessingError(ctx, job, err)
		}
	}

	if trailing, ok := ck.flush(); ok {
		if err := w.commitChunk(ctx, job, trailing, &progress, &errs); err != nil {
			if errors.Is(err, errImportCanceled) {
				return nil
			}
			return w.onProcessingError(ctx, job, err)
		}
	}

	summary := domain.ImportSummary{ImportProgress: progress, Errors: errs}
	if err := w.repo.Complete(ctx, job.ID, summary); err != nil {
		return w.onProcessingError(ctx, job, fmt.Errorf("complete job: %w", err))
	}
	w.publishProgress(ctx, job, domain.ImportStatusCompleted, progress, errs)

	// Charge for the records actually committed. A failure here is a billing
	// reconciliation problem, never a reason to touch committed data.
	if progress.SuccessfulRecords > 0 {
		if err := w.gate.Charge(ctx, job.TeamID, domain.CreditTypeLead, progress.SuccessfulRecords); err != nil {
			w.log.WithError(err).WithFields(logrus.Fields{
				"job_id":  job.ID,
				"team_id": job.TeamID,
				"units":   progress.SuccessfulRecords,
			}).Error("credit charge failed after committed import, needs billing reconciliation")
		}
	}

	return nil
}

// commitChunk attempts one atomic batch commit with a fixed budget of one
// retry, then records the outcome. A chunk either fully succeeds or every
// record in it counts as failed; the job carries on either way.
func (w *ImportWorker) commitChunk(ctx context.Context, job domain.ImportJob, c chunk, progress *domain.ImportProgress, errs *[]domain.ImportError) error {
	canceled, err := w.repo.CancelRequested(ctx, job.ID)
	if err != nil {
		w.log.WithError(err).WithField("job_id", job.ID).Warn("cancel flag check failed")
	}
	if canceled {
		if err := w.repo.MarkCanceled(ctx, job.ID); err != nil {
			return fmt.Errorf("mark canceled: %w", err)
		}
		w.publishProgress(ctx, job, domain.ImportStatusCanceled, *progress, *errs)
		return errImportCanceled
	}

	batch := domain.Batch{
		ImportID:   job.ID,
		TeamID:     job.TeamID,
		ImportedBy: job.SubmittedBy,
		Records:    c.records,
	}

	var commitErr error
	for attempt := 0; attempt <= 1; attempt++ {
		if attempt > 0 {
			if !sleepWithContext(ctx, w.cfg.ChunkRetryBackoff) {
				return ctx.Err()
			}
		}
		if err := w.limiter.Wait(ctx); err != nil {
			return err
		}

		commitCtx, cancel := context.WithTimeout(ctx, w.cfg.CommitTimeout)
		commitErr = w.store.CommitBatch(commitCtx, batch)
		cancel()

		if commitErr == nil {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	size := int64(len(c.records))
	progress.ProcessedRecords += size
	if commitErr != nil {
		progress.FailedRecords += size
		appendImportError(errs, domain.ImportError{
			RecordIndex: c.firstIndex,
			Message:     fmt.Sprintf("batch commit failed for records %d-%d: %v", c.firstIndex, c.lastIndex, commitErr),
		})
		w.log.WithError(commitErr).WithFields(logrus.Fields{
			"job_id": job.ID,
			"first":  c.firstIndex,
			"last":   c.lastIndex,
		}).Warn("chunk commit failed")
	} else {
		progress.SuccessfulRecords += size
	}

	if err := w.repo.UpdateProgress(ctx, job.ID, *progress, *errs); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	w.publishProgress(ctx, job, domain.ImportStatusProcessing, *progress, *errs)

	if err := w.repo.Heartbeat(ctx, job.ID, w.cfg.LeaseDuration); err != nil {
		return fmt.Errorf("heartbeat after chunk: %w", err)
	}

	return nil
}

func (w *ImportWorker) countPass(ctx context.Context, job domain.ImportJob) (int64, error) {
	f, err := w.source.Open(ctx, job.SourcePath)
	if err != nil {
		return 0, fmt.Errorf("open import source: %w", err)
	}
	defer f.Close()

	reader, err := NewRecordReader(job.SourceFormat, f)
	if err != nil {
		return 0, fmt.Errorf("record reader: %w", err)
	}

	return CountRecords(reader)
}

func (w *ImportWorker) openReader(ctx context.Context, job domain.ImportJob) (RecordReader, func(), error) {
	f, err := w.source.Open(ctx, job.SourcePath)
	if err != nil {
		return nil, nil, fmt.Errorf("reopen import source: %w", err)
	}

	reader, err := NewRecordReader(job.SourceFormat, f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("record reader: %w", err)
	}

	return reader, func() { f.Close() }, nil
}

func (w *ImportWorker) failJob(ctx context.Context, job domain.ImportJob, parseErr *domain.ParseError) error {
	if err := w.repo.Fail(ctx, job.ID, truncateReason(parseErr.Error())); err != nil {
		return fmt.Errorf("%v; fail update failed: %w", parseErr, err)
	}
	w.publishProgress(ctx, job, domain.ImportStatusFailed, domain.ImportProgress{}, nil)
	return parseErr
}

func (w *ImportWorker) onProcessingError(ctx context.Context, job domain.ImportJob, err error) error {
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
	w.publishProgress(ctx, job, domain.ImportStatusFailed, domain.ImportProgress{}, nil)
	return err
}

func (w *ImportWorker) publishProgress(ctx context.Context, job domain.ImportJob, status domain.ImportStatus, progress domain.ImportProgress, errs []domain.ImportError) {
	snapshot := domain.ImportJobSnapshot{
		ID:                job.ID,
		TeamID:            job.TeamID,
		SourceFileName:    job.SourceFileName,
		SourceFileSize:    job.SourceFileSize,
		SourceFormat:      job.SourceFormat,
		Status:            status,
		TotalRecords:      progress.TotalRecords,
		ProcessedRecords:  progress.ProcessedRecords,
		SuccessfulRecords: progress.SuccessfulRecords,
		FailedRecords:     progress.FailedRecords,
		Progress:          progress.Percent(),
		Errors:            errs,
		SubmittedBy:       job.SubmittedBy,
	}
	if err := w.publisher.PublishImport(ctx, snapshot); err != nil {
		w.log.WithError(err).WithField("job_id", job.ID).Warn("publish import progress failed")
	}
}

func appendImportError(errs *[]domain.ImportError, e domain.ImportError) {
	if len(*errs) >= maxStoredErrors {
		return
	}
	*errs = append(*errs, e)
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func truncateReason(reason string) string {
	const maxLen = 1000
	reason = strings.TrimSpace(reason)
	if len(reason) <= maxLen {
		return reason
	}
	return reason[:maxLen]
}
