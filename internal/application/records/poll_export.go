package records

import (
	"context"
	"fmt"
	"time"

	domain "github.com/mohammadpnp/record-exchange/internal/domain/record"
)

// DefaultPollInterval is the fixed delay between export status polls.
const DefaultPollInterval = 2 * time.Second

// ExportStatusFunc fetches the current export snapshot, typically over HTTP.
type ExportStatusFunc func(ctx context.Context) (domain.ExportJobSnapshot, error)

// PollExport re-reads export status at a fixed interval until the job hits a
// terminal state, then returns the final snapshot (with the download URL on
// completed jobs). A failed poll request stops the loop and surfaces the
// error instead of retrying forever; abandoning the poller via ctx carries no
// server-side cancellation of the export itself.
func PollExport(ctx context.Context, interval time.Duration, fetch ExportStatusFunc) (domain.ExportJobSnapshot, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	for {
		snapshot, err := fetch(ctx)
		if err != nil {
			return domain.ExportJobSnapshot{}, fmt.Errorf("%w: %v", ErrExportStatusPoll, err)
		}
		if snapshot.Status.Terminal() {
			return snapshot, nil
		}

		if !sleepWithContext(ctx, interval) {
			return domain.ExportJobSnapshot{}, ctx.Err()
		}
	}
}
