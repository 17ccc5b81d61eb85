package records

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	domain "github.com/mohammadpnp/record-exchange/internal/domain/record"
)

// RecordReader yields loosely-typed records in source order. Next returns
// io.EOF when the source is exhausted and *record.ParseError on malformed
// syntax.
type RecordReader interface {
	Next() (domain.Raw, error)
}

// NewRecordReader builds a streaming reader for the declared format. Neither
// implementation materializes the whole file beyond what its decoder buffers.
func NewRecordReader(format domain.Format, r io.Reader) (RecordReader, error) {
	switch format {
	case domain.FormatCSV:
		return newCSVReader(r), nil
	case domain.FormatJSON:
		return newJSONReader(r), nil
	default:
		return nil, domain.ErrUnsupportedFormat
	}
}

// CountRecords drains a reader and reports how many records it held. Running
// it before any write both fixes the job's total and surfaces parse errors
// while aborting is still free.
func CountRecords(reader RecordReader) (int64, error) {
	var count int64
	for {
		_, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return count, nil
		}
		if err != nil {
			return 0, err
		}
		count++
	}
}

type csvReader struct {
	reader *csv.Reader
	header []string
	index  int64
}

func newCSVReader(r io.Reader) *csvReader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false
	return &csvReader{reader: cr}
}

func (c *csvReader) Next() (domain.Raw, error) {
	if c.header == nil {
		header, err := c.reader.Read()
		if err == io.EOF {
			return domain.Raw{}, io.EOF
		}
		if err != nil {
			return domain.Raw{}, csvParseError(err)
		}
		if len(header) == 0 {
			return domain.Raw{}, &domain.ParseError{Line: 1, Message: "empty header row"}
		}
		c.header = header
	}

	row, err := c.reader.Read()
	if err == io.EOF {
		return domain.Raw{}, io.EOF
	}
	if err != nil {
		return domain.Raw{}, csvParseError(err)
	}
	if len(row) > len(c.header) {
		// A row wider than the header has values no key can name; dropping
		// them silently would corrupt the record.
		line, _ := c.reader.FieldPos(0)
		return domain.Raw{}, &domain.ParseError{
			Line:    int64(line),
			Message: fmt.Sprintf("row has %d fields, header has %d", len(row), len(c.header)),
		}
	}

	keys := make([]string, 0, len(c.header))
	fields := make(map[string]any, len(c.header))
	for i, key := range c.header {
		if i >= len(row) {
			break
		}
		keys = append(keys, key)
		fields[key] = row[i]
	}

	raw := domain.Raw{Index: c.index, Keys: keys, Fields: fields}
	c.index++
	return raw, nil
}

func csvParseError(err error) error {
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return &domain.ParseError{Line: int64(perr.Line), Message: perr.Err.Error()}
	}
	return &domain.ParseError{Message: err.Error()}
}

type jsonReader struct {
	decoder *json.Decoder
	started bool
	index   int64
}

func newJSONReader(r io.Reader) *jsonReader {
	return &jsonReader{decoder: json.NewDecoder(r)}
}

func (j *jsonReader) Next() (domain.Raw, error) {
	if !j.started {
		token, err := j.decoder.Token()
		if err != nil {
			return domain.Raw{}, jsonParseError(j.decoder, err)
		}
		delim, ok := token.(json.Delim)
		if !ok || delim != '[' {
			return domain.Raw{}, jsonParseErrorMessage(j.decoder, "payload must be a JSON array of objects")
		}
		j.started = true
	}

	if !j.decoder.More() {
		if _, err := j.decoder.Token(); err != nil {
			return domain.Raw{}, jsonParseError(j.decoder, err)
		}
		return domain.Raw{}, io.EOF
	}

	var fields map[string]any
	if err := j.decoder.Decode(&fields); err != nil {
		return domain.Raw{}, jsonParseError(j.decoder, err)
	}

	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	raw := domain.Raw{Index: j.index, Keys: keys, Fields: fields}
	j.index++
	return raw, nil
}

func jsonParseError(dec *json.Decoder, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return jsonParseErrorMessage(dec, "unexpected end of input")
	}
	return jsonParseErrorMessage(dec, err.Error())
}

// JSON errors carry a byte offset rather than a line number; Line holds it.
func jsonParseErrorMessage(dec *json.Decoder, message string) error {
	return &domain.ParseError{Line: dec.InputOffset(), Message: message}
}
