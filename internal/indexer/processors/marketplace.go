package processors

import (
	"context"
	"log/slog"

	"marketindexer/internal/debug"
	"marketindexer/internal/indexer"
	"marketindexer/internal/ledger"
	"marketindexer/internal/models"
	"marketindexer/internal/storage"
)

// MarketplaceProcessor decodes marketplace records from transactions and
// persists them. Safe for concurrent Process calls on disjoint ranges; all
// state lives in the shared repository.
type MarketplaceProcessor struct {
	repository storage.Repository
}

// NewMarketplaceProcessor creates a MarketplaceProcessor
func NewMarketplaceProcessor(repository storage.Repository) *MarketplaceProcessor {
	return &MarketplaceProcessor{repository: repository}
}

// Name returns the processor name
func (p *MarketplaceProcessor) Name() string {
	return MarketplaceProcessorName
}

// Process decodes the batch into marketplace records and writes them in one
// store transaction.
func (p *MarketplaceProcessor) Process(ctx context.Context, txns []ledger.Transaction, startVersion, endVersion uint64) (*indexer.ProcessingResult, error) {
	batch, err := extractBatch(txns)
	if err != nil {
		return nil, err
	}

	if batch.Len() > 0 && slog.Default().Enabled(ctx, slog.LevelDebug) {
		debug.PrintMarketplaceBatch(batch, startVersion, endVersion)
	}

	if err := p.repository.SaveMarketplaceRecords(ctx, batch); err != nil {
		return nil, err
	}

	return &indexer.ProcessingResult{
		Name:         p.Name(),
		StartVersion: startVersion,
		EndVersion:   endVersion,
		RecordCount:  batch.Len(),
	}, nil
}

// extractBatch runs the decode loop over every transaction. Within one
// transaction the first qualifying table-item write of each record kind
// wins; later qualifying writes are ignored. Collections come from events
// and need no payload half.
func extractBatch(txns []ledger.Transaction) (*models.MarketplaceBatch, error) {
	batch := &models.MarketplaceBatch{}

	for i := range txns {
		txn := &txns[i]
		timestamp := txn.Timestamp.Time()

		for j := range txn.Events {
			collection, err := models.MarketplaceCollectionFromEvent(&txn.Events[j], txn.Version)
			if err != nil {
				return nil, err
			}
			if collection != nil {
				batch.Collections = append(batch.Collections, *collection)
			}
		}

		if txn.Payload == nil {
			continue
		}

		var haveOffer, haveOrder, haveBid bool
		for j := range txn.Changes {
			change := &txn.Changes[j]
			if !change.IsTableItemWrite() {
				continue
			}

			if !haveOffer {
				offer, err := models.MarketplaceOfferFromChange(change, txn.Payload, txn.Version, timestamp)
				if err != nil {
					return nil, err
				}
				if offer != nil {
					batch.Offers = append(batch.Offers, *offer)
					haveOffer = true
					continue
				}
			}
			if !haveOrder {
				order, err := models.MarketplaceOrderFromChange(change, txn.Payload, txn.Version, timestamp)
				if err != nil {
					return nil, err
				}
				if order != nil {
					batch.Orders = append(batch.Orders, *order)
					haveOrder = true
					continue
				}
			}
			if !haveBid {
				bid, err := models.MarketplaceBidFromChange(change, txn.Payload, txn.Version, timestamp)
				if err != nil {
					return nil, err
				}
				if bid != nil {
					batch.Bids = append(batch.Bids, *bid)
					haveBid = true
				}
			}
		}
	}

	return batch, nil
}
