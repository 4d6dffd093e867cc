package storage

import (
	"context"

	"marketindexer/internal/models"
)

// Repository is the persistence contract the pipeline depends on. One
// implementation backs all workers and is safe for concurrent use.
type Repository interface {
	// LastSuccessVersion returns the persisted progress cursor for a
	// processor. ok is false when the processor has never committed.
	LastSuccessVersion(ctx context.Context, processorName string) (version uint64, ok bool, err error)

	// SaveProcessorStatus advances the progress cursor. The stored value
	// never moves backwards.
	SaveProcessorStatus(ctx context.Context, processorName string, version uint64) error

	// ChainID returns the chain id recorded on first startup, if any.
	ChainID(ctx context.Context) (chainID uint8, ok bool, err error)

	// SaveChainID records the chain id the indexer is bound to.
	SaveChainID(ctx context.Context, chainID uint8) error

	// SaveMarketplaceRecords writes a decoded batch transactionally with
	// the sanitize-and-retry fallback.
	SaveMarketplaceRecords(ctx context.Context, batch *models.MarketplaceBatch) error

	// Ping checks the store connection.
	Ping(ctx context.Context) error

	// Close releases the connection pool.
	Close()
}
