package storage

import (
	"strings"

	"marketindexer/internal/models"
)

// MaxStringBytes caps text column values during sanitization. On-chain
// strings are attacker controlled; anything longer than this made it past
// a failed insert attempt and gets truncated on the retry.
const MaxStringBytes = 4096

// SanitizeString strips NUL bytes (which Postgres text columns reject),
// replaces invalid UTF-8 sequences, and truncates to MaxStringBytes on a
// rune boundary.
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	s = strings.ToValidUTF8(s, "�")
	if len(s) <= MaxStringBytes {
		return s
	}
	cut := MaxStringBytes
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut]
}

// sanitizeBatch returns a copy of the batch with every string field passed
// through SanitizeString. Non-string fields are untouched.
func sanitizeBatch(b *models.MarketplaceBatch) *models.MarketplaceBatch {
	clean := &models.MarketplaceBatch{
		Collections: make([]models.MarketplaceCollection, len(b.Collections)),
		Offers:      make([]models.MarketplaceOffer, len(b.Offers)),
		Orders:      make([]models.MarketplaceOrder, len(b.Orders)),
		Bids:        make([]models.MarketplaceBid, len(b.Bids)),
	}

	for i, c := range b.Collections {
		c.CreatorAddress = SanitizeString(c.CreatorAddress)
		c.CollectionAddress = SanitizeString(c.CollectionAddress)
		c.CollectionName = SanitizeString(c.CollectionName)
		clean.Collections[i] = c
	}
	for i, o := range b.Offers {
		o.CreatorAddress = SanitizeString(o.CreatorAddress)
		o.CollectionName = SanitizeString(o.CollectionName)
		o.TokenName = SanitizeString(o.TokenName)
		o.Seller = SanitizeString(o.Seller)
		clean.Offers[i] = o
	}
	for i, o := range b.Orders {
		o.CreatorAddress = SanitizeString(o.CreatorAddress)
		o.CollectionName = SanitizeString(o.CollectionName)
		o.Maker = SanitizeString(o.Maker)
		clean.Orders[i] = o
	}
	for i, bid := range b.Bids {
		bid.CreatorAddress = SanitizeString(bid.CreatorAddress)
		bid.CollectionName = SanitizeString(bid.CollectionName)
		bid.TokenName = SanitizeString(bid.TokenName)
		bid.Maker = SanitizeString(bid.Maker)
		clean.Bids[i] = bid
	}
	return clean
}
