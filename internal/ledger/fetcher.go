package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Batch is one contiguous, non-overlapping run of committed transactions
// handed to exactly one worker.
type Batch struct {
	StartVersion uint64
	EndVersion   uint64
	Transactions []Transaction
}

// Fetcher streams gap-free batches from a TransactionSource. A single fetch
// loop allocates batches, so no two consumers ever receive overlapping
// version ranges; consumers process batches concurrently off the channel.
type Fetcher struct {
	source       TransactionSource
	batchSize    uint16
	pollInterval time.Duration

	nextVersion uint64
	batches     chan Batch
	errs        chan error
}

// NewFetcher creates a Fetcher reading batchSize versions per request.
func NewFetcher(source TransactionSource, batchSize uint16, bufferSize int) *Fetcher {
	if batchSize == 0 {
		batchSize = 100
	}
	return &Fetcher{
		source:       source,
		batchSize:    batchSize,
		pollInterval: time.Second,
		batches:      make(chan Batch, bufferSize),
		errs:         make(chan error, 1),
	}
}

// SetVersion sets the version the next fetched batch must start at. Must be
// called before Start.
func (f *Fetcher) SetVersion(version uint64) {
	f.nextVersion = version
}

// Batches returns the channel of fetched batches. It is closed when the
// context given to Start is cancelled.
func (f *Fetcher) Batches() <-chan Batch {
	return f.batches
}

// Errs surfaces a fatal fetch failure. Anything reported here means the
// stream can no longer guarantee gap-free delivery.
func (f *Fetcher) Errs() <-chan error {
	return f.errs
}

// Start launches the fetch loop.
func (f *Fetcher) Start(ctx context.Context) {
	go f.run(ctx)
}

func (f *Fetcher) run(ctx context.Context) {
	defer close(f.batches)

	slog.Info("Starting transaction fetcher",
		"start_version", f.nextVersion,
		"batch_size", f.batchSize,
	)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		txns, err := f.source.Transactions(ctx, f.nextVersion, f.batchSize)
		if errors.Is(err, ErrCaughtUp) {
			slog.Debug("Caught up with ledger, waiting for new transactions",
				"next_version", f.nextVersion,
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(f.pollInterval):
			}
			continue
		}
		if err != nil {
			f.fail(err)
			return
		}
		if len(txns) == 0 {
			f.fail(fmt.Errorf("fetch source returned no transactions without reporting caught up at version %d", f.nextVersion))
			return
		}

		if first := txns[0].Version; first != f.nextVersion {
			f.fail(fmt.Errorf("fetch source returned version %d, expected %d", first, f.nextVersion))
			return
		}
		for i := 1; i < len(txns); i++ {
			if txns[i].Version != txns[i-1].Version+1 {
				f.fail(fmt.Errorf("gap in fetched batch: version %d followed by %d",
					txns[i-1].Version, txns[i].Version))
				return
			}
		}

		batch := Batch{
			StartVersion: txns[0].Version,
			EndVersion:   txns[len(txns)-1].Version,
			Transactions: txns,
		}
		f.nextVersion = batch.EndVersion + 1

		select {
		case <-ctx.Done():
			return
		case f.batches <- batch:
		}
	}
}

func (f *Fetcher) fail(err error) {
	select {
	case f.errs <- err:
	default:
	}
}
