package records_test

import (
	"context"
	"errors"
	"testing"

	app "github.com/mohammadpnp/record-exchange/internal/application/records"
	domain "github.com/mohammadpnp/record-exchange/internal/domain/record"
)

type fakeCanceler struct {
	requested string
	err       error
}

func (f *fakeCanceler) RequestCancel(ctx context.Context, jobID string) error {
	if f.err != nil {
		return f.err
	}
	f.requested = jobID
	return nil
}

func TestCancelImportRequestsCancellation(t *testing.T) {
	t.Parallel()

	repo := &fakeCanceler{}
	uc := app.NewCancelImport(repo)

	out, err := uc.Execute(context.Background(), app.CancelImportInput{JobID: "imp_1_abc"})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if repo.requested != "imp_1_abc" {
		t.Fatalf("expected cancel request for imp_1_abc, got %q", repo.requested)
	}
	if out.Status != "cancel_requested" {
		t.Fatalf("unexpected status %q", out.Status)
	}
}

func TestCancelImportMapsRepositoryErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		repoErr error
		wantErr error
	}{
		{"not found", domain.ErrImportJobNotFound, domain.ErrImportJobNotFound},
		{"terminal job", domain.ErrJobNotCancelable, domain.ErrJobNotCancelable},
		{"infrastructure", errors.New("db down"), app.ErrCancelImportJob},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			uc := app.NewCancelImport(&fakeCanceler{err: tc.repoErr})
			if _, err := uc.Execute(context.Background(), app.CancelImportInput{JobID: "imp_1_abc"}); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

type fakeImportReader struct {
	snapshot domain.ImportJobSnapshot
	err      error
}

func (f *fakeImportReader) GetByID(ctx context.Context, jobID string) (domain.ImportJobSnapshot, error) {
	if f.err != nil {
		return domain.ImportJobSnapshot{}, f.err
	}
	return f.snapshot, nil
}

func TestGetImportStatusReturnsSnapshot(t *testing.T) {
	t.Parallel()

	reader := &fakeImportReader{snapshot: domain.ImportJobSnapshot{
		ID:                "imp_1_abc",
		Status:            domain.ImportStatusCompleted,
		TotalRecords:      1200,
		ProcessedRecords:  1200,
		SuccessfulRecords: 700,
		FailedRecords:     500,
	}}
	uc := app.NewGetImportStatus(reader)

	snapshot, err := uc.Execute(context.Background(), app.GetImportStatusInput{JobID: "imp_1_abc"})
	if err != nil {
		t.Fatalf("expected snapshot, got %v", err)
	}
	if snapshot.SuccessfulRecords != 700 || snapshot.FailedRecords != 500 {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
}

func TestGetImportStatusNotFound(t *testing.T) {
	t.Parallel()

	uc := app.NewGetImportStatus(&fakeImportReader{err: domain.ErrImportJobNotFound})

	if _, err := uc.Execute(context.Background(), app.GetImportStatusInput{JobID: "imp_missing"}); !errors.Is(err, domain.ErrImportJobNotFound) {
		t.Fatalf("expected ErrImportJobNotFound, got %v", err)
	}

	if _, err := uc.Execute(context.Background(), app.GetImportStatusInput{JobID: " "}); !errors.Is(err, domain.ErrImportJobNotFound) {
		t.Fatalf("expected ErrImportJobNotFound for blank id, got %v", err)
	}
}
