package records_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	app "github.com/mohammadpnp/record-exchange/internal/application/records"
	domain "github.com/mohammadpnp/record-exchange/internal/domain/record"
)

type fakeImportJobCreator struct {
	created *domain.ImportJob
	err     error
}

func (f *fakeImportJobCreator) Create(ctx context.Context, job domain.ImportJob) error {
	if f.err != nil {
		return f.err
	}
	f.created = &job
	return nil
}

type fakeUploadSaver struct {
	savedName string
	savedData string
	err       error
}

func (f *fakeUploadSaver) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.savedName = name
	f.savedData = string(data)
	return "uploads/" + name, nil
}

func validStartImportInput() app.StartImportInput {
	return app.StartImportInput{
		TeamID:      "team-1",
		SubmittedBy: "user-1",
		FileName:    "leads.csv",
		FileSize:    2048,
		Format:      "csv",
		File:        strings.NewReader("id\nr1\n"),
	}
}

func TestStartImportEnqueuesJob(t *testing.T) {
	t.Parallel()

	repo := &fakeImportJobCreator{}
	uploads := &fakeUploadSaver{}
	gate := &fakeGate{}
	uc := app.NewStartImport(repo, uploads, gate, 3)

	out, err := uc.Execute(context.Background(), validStartImportInput())
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	if out.Status != string(domain.ImportStatusQueued) {
		t.Fatalf("expected queued status, got %q", out.Status)
	}
	if !strings.HasPrefix(out.JobID, "imp_") {
		t.Fatalf("unexpected job id %q", out.JobID)
	}
	if repo.created == nil {
		t.Fatal("expected job to be persisted")
	}
	if repo.created.ID != out.JobID || repo.created.SourcePath != "uploads/"+out.JobID {
		t.Fatalf("job and upload disagree: %+v", repo.created)
	}
	if repo.created.MaxAttempts != 3 {
		t.Fatalf("expected 3 max attempts, got %d", repo.created.MaxAttempts)
	}
	if uploads.savedData != "id\nr1\n" {
		t.Fatal("upload content was not stored verbatim")
	}
	if len(gate.checks) != 1 || gate.checks[0].creditType != domain.CreditTypeLead {
		t.Fatalf("expected one lead credit check, got %+v", gate.checks)
	}
	if gate.checks[0].units != 8 {
		t.Fatalf("expected estimate of 8 records for 2048 bytes, got %d", gate.checks[0].units)
	}
}

func TestStartImportValidatesInput(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		mutate  func(*app.StartImportInput)
		wantErr error
	}{
		{"missing team", func(in *app.StartImportInput) { in.TeamID = "  " }, app.ErrInvalidTeam},
		{"bad format", func(in *app.StartImportInput) { in.Format = "xml" }, app.ErrInvalidFormat},
		{"empty file", func(in *app.StartImportInput) { in.FileSize = 0 }, app.ErrEmptyFile},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			repo := &fakeImportJobCreator{}
			uc := app.NewStartImport(repo, &fakeUploadSaver{}, &fakeGate{}, 3)

			in := validStartImportInput()
			tc.mutate(&in)

			if _, err := uc.Execute(context.Background(), in); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if repo.created != nil {
				t.Fatal("invalid input must not create a job")
			}
		})
	}
}

func TestStartImportRejectedByCreditGate(t *testing.T) {
	t.Parallel()

	repo := &fakeImportJobCreator{}
	uploads := &fakeUploadSaver{}
	gate := &fakeGate{checkErr: domain.ErrInsufficientCredits}
	uc := app.NewStartImport(repo, uploads, gate, 3)

	_, err := uc.Execute(context.Background(), validStartImportInput())
	if !errors.Is(err, domain.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}

	// A gated-out import leaves no trace: no job row, no stored upload.
	if repo.created != nil {
		t.Fatal("rejected import must not create a job")
	}
	if uploads.savedName != "" {
		t.Fatal("rejected import must not store the upload")
	}
}

func TestStartImportUploadFailure(t *testing.T) {
	t.Parallel()

	repo := &fakeImportJobCreator{}
	uc := app.NewStartImport(repo, &fakeUploadSaver{err: errors.New("disk full")}, &fakeGate{}, 3)

	_, err := uc.Execute(context.Background(), validStartImportInput())
	if !errors.Is(err, app.ErrEnqueueImportJob) {
		t.Fatalf("expected ErrEnqueueImportJob, got %v", err)
	}
	if repo.created != nil {
		t.Fatal("failed upload must not create a job")
	}
}
