// Package storage persists decoded marketplace records and pipeline
// progress in PostgreSQL.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketindexer/internal/metrics"
	"marketindexer/internal/models"
)

// Column counts drive the chunking math; keep them in sync with the insert
// statements below.
const (
	collectionColumns = 4
	offerColumns      = 7
	orderColumns      = 6
	bidColumns        = 7
)

// PostgresRepository implements Repository on a pgx connection pool shared
// by all workers. Each batch write checks out one connection for the
// duration of its transaction.
type PostgresRepository struct {
	pool *pgxpool.Pool

	// insertBatch performs one transactional insert attempt. A field so
	// tests can exercise the sanitize-retry orchestration without a
	// database.
	insertBatch func(ctx context.Context, batch *models.MarketplaceBatch) error
}

// NewPostgresRepository creates a PostgreSQL repository
func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}
	r.insertBatch = r.insertMarketplaceBatch
	return r, nil
}

// LastSuccessVersion returns the progress cursor for a processor.
func (r *PostgresRepository) LastSuccessVersion(ctx context.Context, processorName string) (uint64, bool, error) {
	query := `SELECT last_success_version FROM processor_statuses WHERE processor_name = $1`

	var version int64
	err := r.pool.QueryRow(ctx, query, processorName).Scan(&version)
	if err == pgx.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get processor status: %w", err)
	}
	return uint64(version), true, nil
}

// SaveProcessorStatus advances the progress cursor, never backwards.
func (r *PostgresRepository) SaveProcessorStatus(ctx context.Context, processorName string, version uint64) error {
	query := `
		INSERT INTO processor_statuses (processor_name, last_success_version, last_updated)
		VALUES ($1, $2, $3)
		ON CONFLICT (processor_name) DO UPDATE
		SET last_success_version = GREATEST(processor_statuses.last_success_version, EXCLUDED.last_success_version),
		    last_updated = EXCLUDED.last_updated
	`

	_, err := r.pool.Exec(ctx, query, processorName, int64(version), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save processor status: %w", err)
	}
	return nil
}

// ChainID returns the chain id recorded on first startup.
func (r *PostgresRepository) ChainID(ctx context.Context) (uint8, bool, error) {
	query := `SELECT chain_id FROM ledger_infos LIMIT 1`

	var chainID int16
	err := r.pool.QueryRow(ctx, query).Scan(&chainID)
	if err == pgx.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get chain id: %w", err)
	}
	return uint8(chainID), true, nil
}

// SaveChainID records the chain id the indexer is bound to.
func (r *PostgresRepository) SaveChainID(ctx context.Context, chainID uint8) error {
	query := `INSERT INTO ledger_infos (chain_id) VALUES ($1) ON CONFLICT (chain_id) DO NOTHING`

	_, err := r.pool.Exec(ctx, query, int16(chainID))
	if err != nil {
		return fmt.Errorf("failed to save chain id: %w", err)
	}
	return nil
}

// SaveMarketplaceRecords writes the whole batch in one transaction. If the
// first attempt fails, every record is sanitized and the write is retried
// once in a fresh transaction; a second failure is returned to the caller
// as fatal.
func (r *PostgresRepository) SaveMarketplaceRecords(ctx context.Context, batch *models.MarketplaceBatch) error {
	if batch.Len() == 0 {
		return nil
	}

	// A multi-row upsert must not touch the same row twice, so collapse
	// duplicate natural keys up front. Sanitization never changes keys,
	// which keeps the retry attempt duplicate-free too.
	batch = dedupeBatch(batch)

	start := time.Now()
	err := r.insertBatch(ctx, batch)
	if err == nil {
		metrics.DatabaseBatchInsertDuration.Observe(time.Since(start).Seconds())
		return nil
	}

	slog.Warn("Batch insert failed, sanitizing records and retrying once",
		"records", batch.Len(),
		"error", err,
	)
	metrics.SanitizeRetries.Inc()

	if err := r.insertBatch(ctx, sanitizeBatch(batch)); err != nil {
		return fmt.Errorf("batch insert failed after sanitize retry: %w", err)
	}
	metrics.DatabaseBatchInsertDuration.Observe(time.Since(start).Seconds())
	return nil
}

func (r *PostgresRepository) insertMarketplaceBatch(ctx context.Context, batch *models.MarketplaceBatch) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertCollections(ctx, tx, batch.Collections); err != nil {
		return err
	}
	if err := insertOffers(ctx, tx, batch.Offers); err != nil {
		return err
	}
	if err := insertOrders(ctx, tx, batch.Orders); err != nil {
		return err
	}
	if err := insertBids(ctx, tx, batch.Bids); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func insertCollections(ctx context.Context, tx pgx.Tx, collections []models.MarketplaceCollection) error {
	for _, chunk := range Chunks(len(collections), collectionColumns) {
		rows := collections[chunk[0]:chunk[1]]
		query := `
			INSERT INTO marketplace_collections (
				creator_address, collection_address, collection_name, creation_timestamp
			) VALUES ` + valuesPlaceholders(len(rows), collectionColumns) + `
			ON CONFLICT (creator_address, collection_name) DO UPDATE
			SET collection_address = EXCLUDED.collection_address,
			    creation_timestamp = EXCLUDED.creation_timestamp
		`

		args := make([]any, 0, len(rows)*collectionColumns)
		for _, c := range rows {
			args = append(args, c.CreatorAddress, c.CollectionAddress, c.CollectionName, c.CreationTimestamp)
		}

		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert collections: %w", err)
		}
		metrics.RecordsSaved.WithLabelValues("marketplace_collections").Add(float64(len(rows)))
	}
	return nil
}

func insertOffers(ctx context.Context, tx pgx.Tx, offers []models.MarketplaceOffer) error {
	for _, chunk := range Chunks(len(offers), offerColumns) {
		rows := offers[chunk[0]:chunk[1]]
		query := `
			INSERT INTO marketplace_offers (
				creator_address, collection_name, token_name, property_version,
				price, seller, timestamp
			) VALUES ` + valuesPlaceholders(len(rows), offerColumns) + `
			ON CONFLICT (creator_address, collection_name, token_name, property_version) DO UPDATE
			SET price = EXCLUDED.price,
			    seller = EXCLUDED.seller,
			    timestamp = EXCLUDED.timestamp
		`

		args := make([]any, 0, len(rows)*offerColumns)
		for _, o := range rows {
			args = append(args, o.CreatorAddress, o.CollectionName, o.TokenName, o.PropertyVersion,
				o.Price, o.Seller, o.Timestamp)
		}

		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert offers: %w", err)
		}
		metrics.RecordsSaved.WithLabelValues("marketplace_offers").Add(float64(len(rows)))
	}
	return nil
}

func insertOrders(ctx context.Context, tx pgx.Tx, orders []models.MarketplaceOrder) error {
	for _, chunk := range Chunks(len(orders), orderColumns) {
		rows := orders[chunk[0]:chunk[1]]
		query := `
			INSERT INTO marketplace_orders (
				creator_address, collection_name, price, quantity, maker, timestamp
			) VALUES ` + valuesPlaceholders(len(rows), orderColumns) + `
			ON CONFLICT (creator_address, collection_name, maker) DO UPDATE
			SET price = EXCLUDED.price,
			    quantity = EXCLUDED.quantity,
			    timestamp = EXCLUDED.timestamp
		`

		args := make([]any, 0, len(rows)*orderColumns)
		for _, o := range rows {
			args = append(args, o.CreatorAddress, o.CollectionName, o.Price, o.Quantity, o.Maker, o.Timestamp)
		}

		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert orders: %w", err)
		}
		metrics.RecordsSaved.WithLabelValues("marketplace_orders").Add(float64(len(rows)))
	}
	return nil
}

func insertBids(ctx context.Context, tx pgx.Tx, bids []models.MarketplaceBid) error {
	for _, chunk := range Chunks(len(bids), bidColumns) {
		rows := bids[chunk[0]:chunk[1]]
		query := `
			INSERT INTO marketplace_bids (
				creator_address, collection_name, token_name, property_version,
				price, maker, timestamp
			) VALUES ` + valuesPlaceholders(len(rows), bidColumns) + `
			ON CONFLICT (creator_address, collection_name, token_name, property_version, maker) DO UPDATE
			SET price = EXCLUDED.price,
			    timestamp = EXCLUDED.timestamp
		`

		args := make([]any, 0, len(rows)*bidColumns)
		for _, b := range rows {
			args = append(args, b.CreatorAddress, b.CollectionName, b.TokenName, b.PropertyVersion,
				b.Price, b.Maker, b.Timestamp)
		}

		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert bids: %w", err)
		}
		metrics.RecordsSaved.WithLabelValues("marketplace_bids").Add(float64(len(rows)))
	}
	return nil
}

// Ping checks if the database connection is alive
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() {
	r.pool.Close()
}
