package record

import (
	"fmt"
	"strings"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// Raw is a loosely-typed record as it came out of the source file, before
// validation. Keys preserves the field order of the source.
type Raw struct {
	Index  int64
	Keys   []string
	Fields map[string]any
}

// Record is a validated record carrying a stable identifier. Only Records
// may be placed into a batch.
type Record struct {
	ID     string
	Keys   []string
	Fields map[string]any
}

// FieldByPath resolves a dotted path ("company.address.city") against the
// record's fields. The second return is false when any segment is missing.
func (r Record) FieldByPath(path string) (any, bool) {
	segments := strings.Split(path, ".")
	var current any = r.Fields
	for _, segment := range segments {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Batch is one store commit unit: every record has passed validation and the
// whole batch commits or fails atomically.
type Batch struct {
	ImportID   string
	TeamID     string
	ImportedBy string
	Records    []Record
}

// ParseError reports malformed source input. It is fatal for the whole job
// and always precedes any write.
type ParseError struct {
	Line    int64
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d: %s", e.Line, e.Message)
}
