package records

import (
	"fmt"
	"strings"

	domain "github.com/mohammadpnp/record-exchange/internal/domain/record"
)

// identifierKeys are the accepted stable-identifier fields, in precedence
// order. A record without any of them cannot be upserted safely and is
// rejected outright.
var identifierKeys = []string{"id", "external_id"}

// Validate converts a raw record into an importable one. The sole hard rule
// is a non-empty stable identifier; everything else rides along untouched.
// The returned error reads "missing identifier", which is also the reason
// recorded against the job.
func Validate(raw domain.Raw) (domain.Record, error) {
	for _, key := range identifierKeys {
		value, ok := raw.Fields[key]
		if !ok {
			continue
		}
		id := strings.TrimSpace(stringify(value))
		if id == "" {
			continue
		}
		return domain.Record{ID: id, Keys: raw.Keys, Fields: raw.Fields}, nil
	}
	return domain.Record{}, domain.ErrMissingIdentifier
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	case float64:
		// JSON numbers decode as float64; an integral id like 1042 must not
		// round-trip as "1.042000e+03".
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
