package indexer

import (
	"context"
	"fmt"

	"marketindexer/internal/ledger"
)

// Processor decodes and persists one domain's records. Implementations must
// be safe for concurrent calls on disjoint version ranges; they share only
// the store connection pool.
type Processor interface {
	// Name identifies the processor; it keys the progress cursor row.
	Name() string

	// Process decodes the batch and writes its records transactionally.
	Process(ctx context.Context, txns []ledger.Transaction, startVersion, endVersion uint64) (*ProcessingResult, error)
}

// ProcessingResult summarizes one successfully processed batch. It is
// consumed by the reporting loop and never persisted beyond the progress
// cursor update.
type ProcessingResult struct {
	Name         string
	StartVersion uint64
	EndVersion   uint64
	RecordCount  int
}

// ProcessingError tags a batch failure with the processor and version range
// so the failed range is identifiable before the process dies.
type ProcessingError struct {
	Name         string
	StartVersion uint64
	EndVersion   uint64
	Err          error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("processor %s failed on versions [%d, %d]: %v",
		e.Name, e.StartVersion, e.EndVersion, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}
