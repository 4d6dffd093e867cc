package storage

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"marketindexer/internal/models"
)

func TestSanitizeString_StripsNulBytes(t *testing.T) {
	if got := SanitizeString("ab\x00cd"); got != "abcd" {
		t.Errorf("Expected NUL stripped, got %q", got)
	}
}

func TestSanitizeString_ReplacesInvalidUTF8(t *testing.T) {
	got := SanitizeString("ok\xff\xfe")
	if !utf8.ValidString(got) {
		t.Errorf("Expected valid UTF-8, got %q", got)
	}
	if !strings.HasPrefix(got, "ok") {
		t.Errorf("Expected valid prefix preserved, got %q", got)
	}
}

func TestSanitizeString_TruncatesOverLength(t *testing.T) {
	long := strings.Repeat("x", MaxStringBytes+100)
	got := SanitizeString(long)
	if len(got) != MaxStringBytes {
		t.Errorf("Expected truncation to %d bytes, got %d", MaxStringBytes, len(got))
	}
}

func TestSanitizeString_TruncatesOnRuneBoundary(t *testing.T) {
	// Multibyte runes spanning the cut point must not leave a partial
	// sequence behind.
	long := strings.Repeat("é", MaxStringBytes) // 2 bytes each
	got := SanitizeString(long)
	if len(got) > MaxStringBytes {
		t.Errorf("Expected at most %d bytes, got %d", MaxStringBytes, len(got))
	}
	if !utf8.ValidString(got) {
		t.Error("Truncation split a rune")
	}
}

func TestSanitizeBatch_TruncatesOffendingFieldOnly(t *testing.T) {
	timestamp := time.Now()
	batch := &models.MarketplaceBatch{
		Offers: []models.MarketplaceOffer{
			{
				CreatorAddress:  "0xAA",
				CollectionName:  strings.Repeat("c", MaxStringBytes+1),
				TokenName:       "T1",
				PropertyVersion: 4,
				Price:           500,
				Seller:          "0xBB",
				Timestamp:       timestamp,
			},
		},
	}

	clean := sanitizeBatch(batch)

	offer := clean.Offers[0]
	if len(offer.CollectionName) != MaxStringBytes {
		t.Errorf("Expected collection name truncated to %d bytes, got %d",
			MaxStringBytes, len(offer.CollectionName))
	}
	if offer.CreatorAddress != "0xAA" || offer.TokenName != "T1" || offer.Seller != "0xBB" {
		t.Errorf("Expected other string fields unchanged: %+v", offer)
	}
	if offer.Price != 500 || offer.PropertyVersion != 4 || !offer.Timestamp.Equal(timestamp) {
		t.Errorf("Expected non-string fields unchanged: %+v", offer)
	}

	// The original batch must not be mutated.
	if len(batch.Offers[0].CollectionName) != MaxStringBytes+1 {
		t.Error("sanitizeBatch mutated the input batch")
	}
}
