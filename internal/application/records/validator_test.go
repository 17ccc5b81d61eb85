package records_test

import (
	"errors"
	"testing"

	app "github.com/mohammadpnp/record-exchange/internal/application/records"
	domain "github.com/mohammadpnp/record-exchange/internal/domain/record"
)

func TestValidateAcceptsIdentifier(t *testing.T) {
	t.Parallel()

	rec, err := app.Validate(domain.Raw{
		Index:  0,
		Keys:   []string{"id", "name"},
		Fields: map[string]any{"id": "r1", "name": "Acme"},
	})
	if err != nil {
		t.Fatalf("expected valid record, got %v", err)
	}
	if rec.ID != "r1" {
		t.Fatalf("expected id r1, got %q", rec.ID)
	}
	if rec.Fields["name"] != "Acme" {
		t.Fatal("fields must be carried over untouched")
	}
}

func TestValidateFallsBackToExternalID(t *testing.T) {
	t.Parallel()

	rec, err := app.Validate(domain.Raw{
		Fields: map[string]any{"external_id": " lead-77 ", "name": "Acme"},
	})
	if err != nil {
		t.Fatalf("expected valid record, got %v", err)
	}
	if rec.ID != "lead-77" {
		t.Fatalf("expected trimmed external id, got %q", rec.ID)
	}
}

func TestValidateNumericIdentifier(t *testing.T) {
	t.Parallel()

	rec, err := app.Validate(domain.Raw{Fields: map[string]any{"id": float64(1042)}})
	if err != nil {
		t.Fatalf("expected valid record, got %v", err)
	}
	if rec.ID != "1042" {
		t.Fatalf("expected id 1042, got %q", rec.ID)
	}
}

func TestValidateRejectsMissingIdentifier(t *testing.T) {
	t.Parallel()

	cases := []map[string]any{
		{"name": "Acme"},
		{"id": ""},
		{"id": "   ", "external_id": ""},
	}

	for _, fields := range cases {
		_, err := app.Validate(domain.Raw{Fields: fields})
		if !errors.Is(err, domain.ErrMissingIdentifier) {
			t.Fatalf("fields %v: expected ErrMissingIdentifier, got %v", fields, err)
		}
		if err.Error() != "missing identifier" {
			t.Fatalf("reject reason = %q, want %q", err.Error(), "missing identifier")
		}
	}
}
