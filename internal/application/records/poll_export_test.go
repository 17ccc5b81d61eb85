package records_test

import (
	"context"
	"errors"
	"testing"
	"time"

	app "github.com/mohammadpnp/record-exchange/internal/application/records"
	domain "github.com/mohammadpnp/record-exchange/internal/domain/record"
)

func TestPollExportStopsAtTerminalStatus(t *testing.T) {
	t.Parallel()

	statuses := []domain.ExportStatus{
		domain.ExportStatusQueued,
		domain.ExportStatusProcessing,
		domain.ExportStatusCompleted,
	}

	calls := 0
	fetch := func(ctx context.Context) (domain.ExportJobSnapshot, error) {
		snapshot := domain.ExportJobSnapshot{ID: "exp_1_abc", Status: statuses[calls]}
		if snapshot.Status == domain.ExportStatusCompleted {
			snapshot.DownloadURL = "https://example.test/exports/exp_1_abc/download"
		}
		calls++
		return snapshot, nil
	}

	snapshot, err := app.PollExport(context.Background(), time.Millisecond, fetch)
	if err != nil {
		t.Fatalf("expected terminal snapshot, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 polls, got %d", calls)
	}
	if snapshot.Status != domain.ExportStatusCompleted {
		t.Fatalf("expected completed, got %s", snapshot.Status)
	}
	if snapshot.DownloadURL == "" {
		t.Fatal("completed snapshot must carry a download url")
	}
}

func TestPollExportStopsAtFailedStatus(t *testing.T) {
	t.Parallel()

	fetch := func(ctx context.Context) (domain.ExportJobSnapshot, error) {
		return domain.ExportJobSnapshot{Status: domain.ExportStatusFailed, ErrorMessage: "boom"}, nil
	}

	snapshot, err := app.PollExport(context.Background(), time.Millisecond, fetch)
	if err != nil {
		t.Fatalf("a failed job is a terminal result, not a poll error: %v", err)
	}
	if snapshot.Status != domain.ExportStatusFailed {
		t.Fatalf("expected failed, got %s", snapshot.Status)
	}
}

func TestPollExportSurfacesFetchError(t *testing.T) {
	t.Parallel()

	fetch := func(ctx context.Context) (domain.ExportJobSnapshot, error) {
		return domain.ExportJobSnapshot{}, errors.New("connection refused")
	}

	_, err := app.PollExport(context.Background(), time.Millisecond, fetch)
	if !errors.Is(err, app.ErrExportStatusPoll) {
		t.Fatalf("expected ErrExportStatusPoll, got %v", err)
	}
}

func TestPollExportHonorsContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	fetch := func(ctx context.Context) (domain.ExportJobSnapshot, error) {
		cancel()
		return domain.ExportJobSnapshot{Status: domain.ExportStatusProcessing}, nil
	}

	_, err := app.PollExport(ctx, time.Hour, fetch)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
