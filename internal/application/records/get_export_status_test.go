package records_test

import (
	"context"
	"errors"
	"testing"
	"time"

	app "github.com/mohammadpnp/record-exchange/internal/application/records"
	domain "github.com/mohammadpnp/record-exchange/internal/domain/record"
)

type fakeExportReader struct {
	snapshot domain.ExportJobSnapshot
	err      error
}

func (f *fakeExportReader) GetByID(ctx context.Context, exportID string) (domain.ExportJobSnapshot, error) {
	if f.err != nil {
		return domain.ExportJobSnapshot{}, f.err
	}
	return f.snapshot, nil
}

func TestGetExportStatusSignsURLWhenCompleted(t *testing.T) {
	t.Parallel()

	reader := &fakeExportReader{snapshot: domain.ExportJobSnapshot{
		ID:           "exp_1_abc",
		Status:       domain.ExportStatusCompleted,
		Format:       domain.FormatJSON,
		ArtifactPath: "exports/exp_1_abc.json",
	}}
	uc := app.NewGetExportStatus(reader, newMemArtifacts(), time.Minute)

	snapshot, err := uc.Execute(context.Background(), app.GetExportStatusInput{ExportID: "exp_1_abc"})
	if err != nil {
		t.Fatalf("expected snapshot, got %v", err)
	}
	if snapshot.DownloadURL == "" {
		t.Fatal("completed export must carry a signed download url")
	}
}

func TestGetExportStatusNoURLWhileRunning(t *testing.T) {
	t.Parallel()

	reader := &fakeExportReader{snapshot: domain.ExportJobSnapshot{
		ID:     "exp_1_abc",
		Status: domain.ExportStatusProcessing,
	}}
	uc := app.NewGetExportStatus(reader, newMemArtifacts(), time.Minute)

	snapshot, err := uc.Execute(context.Background(), app.GetExportStatusInput{ExportID: "exp_1_abc"})
	if err != nil {
		t.Fatalf("expected snapshot, got %v", err)
	}
	if snapshot.DownloadURL != "" {
		t.Fatal("running export must not expose a download url")
	}
}

func TestGetExportStatusNotFound(t *testing.T) {
	t.Parallel()

	uc := app.NewGetExportStatus(&fakeExportReader{err: domain.ErrExportJobNotFound}, newMemArtifacts(), time.Minute)

	if _, err := uc.Execute(context.Background(), app.GetExportStatusInput{ExportID: "exp_missing"}); !errors.Is(err, domain.ErrExportJobNotFound) {
		t.Fatalf("expected ErrExportJobNotFound, got %v", err)
	}

	if _, err := uc.Execute(context.Background(), app.GetExportStatusInput{ExportID: "  "}); !errors.Is(err, domain.ErrExportJobNotFound) {
		t.Fatalf("expected ErrExportJobNotFound for blank id, got %v", err)
	}
}
