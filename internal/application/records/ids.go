package records

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// newJobID builds ids like "imp_1767225600123_9f1c2ab4": sortable by
// submission time, never reused thanks to the random suffix.
func newJobID(prefix string) string {
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixMilli(), uuid.NewString()[:8])
}
