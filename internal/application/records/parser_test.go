package records_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	app "github.com/mohammadpnp/record-exchange/internal/application/records"
	domain "github.com/mohammadpnp/record-exchange/internal/domain/record"
)

func TestCSVReaderPreservesOrder(t *testing.T) {
	t.Parallel()

	input := "id,name,city\nr1,Acme,Austin\nr2,Globex,Dallas\n"
	reader, err := app.NewRecordReader(domain.FormatCSV, strings.NewReader(input))
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}

	first, err := reader.Next()
	if err != nil {
		t.Fatalf("first record: %v", err)
	}
	if first.Index != 0 {
		t.Fatalf("expected index 0, got %d", first.Index)
	}
	wantKeys := []string{"id", "name", "city"}
	if len(first.Keys) != len(wantKeys) {
		t.Fatalf("expected %d keys, got %d", len(wantKeys), len(first.Keys))
	}
	for i, key := range wantKeys {
		if first.Keys[i] != key {
			t.Fatalf("key %d = %q, want %q", i, first.Keys[i], key)
		}
	}
	if first.Fields["name"] != "Acme" {
		t.Fatalf("expected name Acme, got %v", first.Fields["name"])
	}

	second, err := reader.Next()
	if err != nil {
		t.Fatalf("second record: %v", err)
	}
	if second.Index != 1 || second.Fields["id"] != "r2" {
		t.Fatalf("unexpected second record: %+v", second)
	}

	if _, err := reader.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestCSVReaderMalformedQuoting(t *testing.T) {
	t.Parallel()

	input := "id,name\nr1,\"unterminated\n"
	reader, err := app.NewRecordReader(domain.FormatCSV, strings.NewReader(input))
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}

	_, err = reader.Next()
	var parseErr *domain.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if parseErr.Line != 2 {
		t.Fatalf("expected line 2, got %d", parseErr.Line)
	}
}

func TestCSVReaderRejectsWideRow(t *testing.T) {
	t.Parallel()

	input := "id,name\nr1,Acme\nr2,Globex,extra-value\n"
	reader, err := app.NewRecordReader(domain.FormatCSV, strings.NewReader(input))
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}

	if _, err := reader.Next(); err != nil {
		t.Fatalf("first record: %v", err)
	}

	_, err = reader.Next()
	var parseErr *domain.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError for wide row, got %v", err)
	}
	if parseErr.Line != 3 {
		t.Fatalf("expected line 3, got %d", parseErr.Line)
	}
	if !strings.Contains(parseErr.Message, "3 fields") {
		t.Fatalf("message should name the field counts, got %q", parseErr.Message)
	}
}

func TestJSONReaderStreamsArray(t *testing.T) {
	t.Parallel()

	input := `[
	  {"id": "r1", "name": "Acme", "employees": 12},
	  {"id": "r2", "name": "Globex"}
	]`
	reader, err := app.NewRecordReader(domain.FormatJSON, strings.NewReader(input))
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}

	first, err := reader.Next()
	if err != nil {
		t.Fatalf("first record: %v", err)
	}
	if first.Fields["id"] != "r1" || first.Fields["employees"] != float64(12) {
		t.Fatalf("unexpected first record: %+v", first.Fields)
	}

	if _, err := reader.Next(); err != nil {
		t.Fatalf("second record: %v", err)
	}
	if _, err := reader.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestJSONReaderRejectsNonArray(t *testing.T) {
	t.Parallel()

	reader, err := app.NewRecordReader(domain.FormatJSON, strings.NewReader(`{"id": "r1"}`))
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}

	_, err = reader.Next()
	var parseErr *domain.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestCountRecords(t *testing.T) {
	t.Parallel()

	reader, err := app.NewRecordReader(domain.FormatCSV, strings.NewReader("id\nr1\nr2\nr3\n"))
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}

	count, err := app.CountRecords(reader)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 records, got %d", count)
	}
}

func TestCountRecordsSurfacesTruncatedJSON(t *testing.T) {
	t.Parallel()

	reader, err := app.NewRecordReader(domain.FormatJSON, strings.NewReader(`[{"id": "r1"}`))
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}

	_, err = app.CountRecords(reader)
	var parseErr *domain.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestNewRecordReaderUnsupportedFormat(t *testing.T) {
	t.Parallel()

	if _, err := app.NewRecordReader(domain.Format("xml"), strings.NewReader("")); !errors.Is(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}
