// Package indexer drives continuous, concurrent, crash-resumable indexing:
// it owns the fetcher, a pool of processor workers, the progress watermark,
// and the reporting loop.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"marketindexer/internal/ledger"
	"marketindexer/internal/metrics"
	"marketindexer/internal/storage"
)

// Config holds the pipeline tunables.
type Config struct {
	ProcessorTasks      int     // concurrent workers
	EmitEvery           uint64  // log cadence in processed versions; 0 disables
	GapLookbackVersions uint64  // startup re-scan window
	StartingVersion     *uint64 // explicit override, nil to resume from the cursor
	CheckChainID        bool    // verify the fetch source's chain identity
}

// Tailer binds a fetcher, one processor, and the store into the indexing
// pipeline.
type Tailer struct {
	config     Config
	source     ledger.TransactionSource
	fetcher    *ledger.Fetcher
	repository storage.Repository
	processor  Processor
}

// NewTailer creates a Tailer. The fetcher must not have been started yet;
// Run resolves the resume point and starts it.
func NewTailer(config Config, source ledger.TransactionSource, fetcher *ledger.Fetcher, repository storage.Repository, processor Processor) *Tailer {
	if config.ProcessorTasks < 1 {
		config.ProcessorTasks = 1
	}
	return &Tailer{
		config:     config,
		source:     source,
		fetcher:    fetcher,
		repository: repository,
		processor:  processor,
	}
}

type workerResult struct {
	versions uint64
	result   *ProcessingResult
	err      error
}

// Run starts the pipeline and blocks until the context is cancelled or a
// batch fails fatally. A processing error is returned rather than skipped:
// a silently dropped version range would leave a permanent hole in the
// indexed data.
func (t *Tailer) Run(ctx context.Context) error {
	startVersion, err := t.resolveStartVersion(ctx)
	if err != nil {
		return err
	}

	if t.config.CheckChainID {
		if err := t.checkOrUpdateChainID(ctx); err != nil {
			return err
		}
	}

	slog.Info("Starting indexing loop",
		"processor", t.processor.Name(),
		"start_version", startVersion,
		"workers", t.config.ProcessorTasks,
	)

	t.fetcher.SetVersion(startVersion)
	t.fetcher.Start(ctx)

	results := make(chan workerResult, 100)
	var wg sync.WaitGroup
	for i := 0; i < t.config.ProcessorTasks; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			t.runWorker(ctx, workerID, results)
		}(i)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	metrics.WorkerCount.Set(float64(t.config.ProcessorTasks))

	return t.report(ctx, startVersion, results)
}

// runWorker pulls batches until the fetcher's channel closes, handing each
// outcome to the reporting loop.
func (t *Tailer) runWorker(ctx context.Context, workerID int, results chan<- workerResult) {
	for batch := range t.fetcher.Batches() {
		start := time.Now()
		result, err := t.processor.Process(ctx, batch.Transactions, batch.StartVersion, batch.EndVersion)
		if err != nil {
			err = &ProcessingError{
				Name:         t.processor.Name(),
				StartVersion: batch.StartVersion,
				EndVersion:   batch.EndVersion,
				Err:          err,
			}
		} else {
			metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
			metrics.BatchesProcessed.Inc()
		}

		slog.Debug("Worker finished batch",
			"worker_id", workerID,
			"start_version", batch.StartVersion,
			"end_version", batch.EndVersion,
			"duration_ms", time.Since(start).Milliseconds(),
		)

		select {
		case results <- workerResult{versions: uint64(len(batch.Transactions)), result: result, err: err}:
		case <-ctx.Done():
			return
		}
	}
}

// report is the single-threaded aggregation loop: it owns the rate window,
// the cumulative counters, and the watermark, fed exclusively through the
// results channel.
func (t *Tailer) report(ctx context.Context, startVersion uint64, results <-chan workerResult) error {
	watermark := NewWatermark(startVersion)
	ma := NewMovingAverage(10 * time.Second)

	var versionsProcessed uint64
	var base uint64

	for {
		var res workerResult
		var ok bool
		select {
		case err := <-t.fetcher.Errs():
			return fmt.Errorf("fetcher failed: %w", err)
		case res, ok = <-results:
			if !ok {
				return ctx.Err()
			}
		}

		if res.err != nil {
			metrics.ProcessingErrors.WithLabelValues(t.processor.Name()).Inc()
			slog.Error("Error processing batch",
				"processor", t.processor.Name(),
				"error", res.err,
			)
			return res.err
		}

		ma.TickNow(res.versions)
		versionsProcessed += res.versions
		metrics.VersionsProcessed.Add(float64(res.versions))
		metrics.TransactionsPerSecond.Set(ma.Avg() * 1000)

		advanced := watermark.Complete(res.result.StartVersion, res.result.EndVersion)
		metrics.PendingIntervals.Set(float64(watermark.PendingCount()))
		if advanced {
			value, _ := watermark.Value()
			if err := t.repository.SaveProcessorStatus(ctx, t.processor.Name(), value); err != nil {
				return fmt.Errorf("failed to save progress cursor: %w", err)
			}
			metrics.WatermarkVersion.Set(float64(value))
		}

		if t.config.EmitEvery != 0 {
			if newBase := versionsProcessed / t.config.EmitEvery; newBase != base {
				base = newBase
				slog.Info("Processed batch",
					"processor", t.processor.Name(),
					"batch_start_version", res.result.StartVersion,
					"batch_end_version", res.result.EndVersion,
					"versions_processed", versionsProcessed,
					"tps", uint64(ma.Avg()*1000),
				)
			}
		}
	}
}

// resolveStartVersion picks the resume point: explicit override first, then
// the persisted cursor minus the lookback window, then 0.
func (t *Tailer) resolveStartVersion(ctx context.Context) (uint64, error) {
	if t.config.StartingVersion != nil {
		slog.Info("Using configured starting version",
			"processor", t.processor.Name(),
			"start_version", *t.config.StartingVersion,
		)
		return *t.config.StartingVersion, nil
	}

	version, found, err := t.repository.LastSuccessVersion(ctx, t.processor.Name())
	if err != nil {
		return 0, fmt.Errorf("failed to read progress cursor: %w", err)
	}
	if !found {
		slog.Info("No progress cursor found, starting from version 0",
			"processor", t.processor.Name(),
		)
		return 0, nil
	}

	start := uint64(0)
	if version > t.config.GapLookbackVersions {
		start = version - t.config.GapLookbackVersions
	}
	slog.Info("Resuming from persisted cursor",
		"processor", t.processor.Name(),
		"cursor", version,
		"lookback", t.config.GapLookbackVersions,
		"start_version", start,
	)
	return start, nil
}

// checkOrUpdateChainID verifies the fetch source against the chain id
// recorded in the store, recording it on first run. A mismatch means the
// indexer is pointed at the wrong network and must not start.
func (t *Tailer) checkOrUpdateChainID(ctx context.Context) error {
	info, err := t.source.LedgerInfo(ctx)
	if err != nil {
		return fmt.Errorf("failed to get chain id from fetch source: %w", err)
	}

	stored, found, err := t.repository.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("failed to read stored chain id: %w", err)
	}
	if !found {
		slog.Info("Recording chain id", "chain_id", info.ChainID)
		return t.repository.SaveChainID(ctx, info.ChainID)
	}
	if stored != info.ChainID {
		return fmt.Errorf("chain id mismatch: store has %d, fetch source reports %d", stored, info.ChainID)
	}
	return nil
}
