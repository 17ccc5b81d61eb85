package records

import (
	"fmt"
	"testing"

	domain "github.com/mohammadpnp/record-exchange/internal/domain/record"
)

func chunkSizes(maxSize, total int) []int {
	ck := newChunker(maxSize)
	var sizes []int
	for i := 0; i < total; i++ {
		rec := domain.Record{ID: fmt.Sprintf("r%d", i)}
		if full, ok := ck.add(int64(i), rec); ok {
			sizes = append(sizes, len(full.records))
		}
	}
	if trailing, ok := ck.flush(); ok {
		sizes = append(sizes, len(trailing.records))
	}
	return sizes
}

func TestChunkerBoundaries(t *testing.T) {
	t.Parallel()

	sizes := chunkSizes(500, 1200)
	want := []int{500, 500, 200}
	if len(sizes) != len(want) {
		t.Fatalf("expected %d chunks, got %d (%v)", len(want), len(sizes), sizes)
	}
	for i := range want {
		if sizes[i] != want[i] {
			t.Fatalf("chunk %d size = %d, want %d", i, sizes[i], want[i])
		}
	}
}

func TestChunkerDeterministic(t *testing.T) {
	t.Parallel()

	first := chunkSizes(7, 100)
	second := chunkSizes(7, 100)
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("chunk %d differs between runs: %d vs %d", i, first[i], second[i])
		}
	}
}

func TestChunkerTracksIndexRange(t *testing.T) {
	t.Parallel()

	ck := newChunker(2)

	// Source indexes are not contiguous when invalid records were skipped.
	if _, ok := ck.add(3, domain.Record{ID: "r3"}); ok {
		t.Fatal("chunk emitted too early")
	}
	full, ok := ck.add(5, domain.Record{ID: "r5"})
	if !ok {
		t.Fatal("expected full chunk")
	}
	if full.firstIndex != 3 || full.lastIndex != 5 {
		t.Fatalf("unexpected index range %d-%d", full.firstIndex, full.lastIndex)
	}

	if _, ok := ck.flush(); ok {
		t.Fatal("expected empty trailing chunk")
	}
}

func TestChunkerEmitsTrailingPartialChunk(t *testing.T) {
	t.Parallel()

	sizes := chunkSizes(10, 5)
	if len(sizes) != 1 || sizes[0] != 5 {
		t.Fatalf("expected single trailing chunk of 5, got %v", sizes)
	}
}
