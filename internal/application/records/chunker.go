package records

import domain "github.com/mohammadpnp/record-exchange/internal/domain/record"

// DefaultMaxBatchSize is the store's hard per-commit document limit.
const DefaultMaxBatchSize = 500

// chunk is a contiguous slice of validated records plus the source indexes
// of its first and last members, so a whole-chunk failure can name a stable
// index range. The range can span skipped invalid records.
type chunk struct {
	firstIndex int64
	lastIndex  int64
	records    []domain.Record
}

// chunker groups validated records into store-legal batches while preserving
// strict input order. Boundaries depend only on the input sequence and the
// size limit, so re-running over the same sequence is deterministic.
type chunker struct {
	maxSize int
	pending chunk
}

func newChunker(maxSize int) *chunker {
	if maxSize <= 0 {
		maxSize = DefaultMaxBatchSize
	}
	return &chunker{maxSize: maxSize}
}

// add appends a record and returns a full chunk when the size limit is hit,
// or ok=false while the current chunk is still filling.
func (c *chunker) add(index int64, rec domain.Record) (chunk, bool) {
	if len(c.pending.records) == 0 {
		c.pending.firstIndex = index
	}
	c.pending.lastIndex = index
	c.pending.records = append(c.pending.records, rec)
	if len(c.pending.records) < c.maxSize {
		return chunk{}, false
	}
	return c.take(), true
}

// flush returns the trailing partial chunk, if any. It is processed exactly
// like a full one.
func (c *chunker) flush() (chunk, bool) {
	if len(c.pending.records) == 0 {
		return chunk{}, false
	}
	return c.take(), true
}

func (c *chunker) take() chunk {
	out := c.pending
	c.pending = chunk{}
	return out
}
