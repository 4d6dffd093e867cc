package storage

import "marketindexer/internal/models"

// Natural keys of the marketplace tables, used to collapse duplicate rows
// before a multi-row upsert: Postgres rejects a single INSERT ... ON
// CONFLICT DO UPDATE statement that touches the same row twice (SQLSTATE
// 21000).
type collectionKey struct {
	creator, collection string
}

type offerKey struct {
	creator, collection, token string
	propertyVersion            int64
}

type orderKey struct {
	creator, collection, maker string
}

type bidKey struct {
	creator, collection, token string
	propertyVersion            int64
	maker                      string
}

// dedupeRows collapses rows sharing a key. The last occurrence wins, which
// matches the upsert's later-write-overwrites semantics since batches carry
// transactions in version order. First-seen positions are preserved.
func dedupeRows[T any, K comparable](rows []T, key func(*T) K) []T {
	if len(rows) < 2 {
		return rows
	}
	index := make(map[K]int, len(rows))
	out := make([]T, 0, len(rows))
	for i := range rows {
		k := key(&rows[i])
		if pos, seen := index[k]; seen {
			out[pos] = rows[i]
			continue
		}
		index[k] = len(out)
		out = append(out, rows[i])
	}
	return out
}

// dedupeBatch returns a batch with at most one row per natural key in each
// record slice. The input is not modified.
func dedupeBatch(b *models.MarketplaceBatch) *models.MarketplaceBatch {
	return &models.MarketplaceBatch{
		Collections: dedupeRows(b.Collections, func(c *models.MarketplaceCollection) collectionKey {
			return collectionKey{c.CreatorAddress, c.CollectionName}
		}),
		Offers: dedupeRows(b.Offers, func(o *models.MarketplaceOffer) offerKey {
			return offerKey{o.CreatorAddress, o.CollectionName, o.TokenName, o.PropertyVersion}
		}),
		Orders: dedupeRows(b.Orders, func(o *models.MarketplaceOrder) orderKey {
			return orderKey{o.CreatorAddress, o.CollectionName, o.Maker}
		}),
		Bids: dedupeRows(b.Bids, func(bid *models.MarketplaceBid) bidKey {
			return bidKey{bid.CreatorAddress, bid.CollectionName, bid.TokenName, bid.PropertyVersion, bid.Maker}
		}),
	}
}
