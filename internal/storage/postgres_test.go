package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"marketindexer/internal/models"
)

func offerAt(version int64, price int64) models.MarketplaceOffer {
	return models.MarketplaceOffer{
		CreatorAddress:  "0xAA",
		CollectionName:  "C1",
		TokenName:       "T1",
		PropertyVersion: 0,
		Price:           price,
		Seller:          "0xBB",
		Timestamp:       time.UnixMicro(version).UTC(),
	}
}

func TestDedupeBatch_LastDuplicateWins(t *testing.T) {
	// The same token listed twice within one batch: versions 100 and 105.
	batch := &models.MarketplaceBatch{
		Offers: []models.MarketplaceOffer{
			offerAt(100, 500),
			offerAt(105, 750),
		},
	}

	deduped := dedupeBatch(batch)

	if len(deduped.Offers) != 1 {
		t.Fatalf("Expected 1 offer after dedupe, got %d", len(deduped.Offers))
	}
	if deduped.Offers[0].Price != 750 {
		t.Errorf("Expected the later listing to win, price is %d", deduped.Offers[0].Price)
	}
	if len(batch.Offers) != 2 {
		t.Error("Input batch was modified")
	}
}

func TestDedupeBatch_DistinctKeysKeptInOrder(t *testing.T) {
	other := offerAt(101, 900)
	other.TokenName = "T2"

	orders := []models.MarketplaceOrder{
		{CreatorAddress: "0xAA", CollectionName: "C1", Maker: "0xCC", Price: 10},
		{CreatorAddress: "0xAA", CollectionName: "C1", Maker: "0xDD", Price: 20},
	}

	deduped := dedupeBatch(&models.MarketplaceBatch{
		Offers: []models.MarketplaceOffer{offerAt(100, 500), other},
		Orders: orders,
	})

	if len(deduped.Offers) != 2 {
		t.Fatalf("Expected 2 offers with distinct tokens, got %d", len(deduped.Offers))
	}
	if deduped.Offers[0].TokenName != "T1" || deduped.Offers[1].TokenName != "T2" {
		t.Errorf("Expected first-seen order preserved, got %s, %s",
			deduped.Offers[0].TokenName, deduped.Offers[1].TokenName)
	}
	// Maker is part of the order key; different makers are different rows.
	if len(deduped.Orders) != 2 {
		t.Errorf("Expected 2 orders with distinct makers, got %d", len(deduped.Orders))
	}
}

func TestDedupeBatch_DuplicatePositionIsFirstSeen(t *testing.T) {
	other := offerAt(102, 900)
	other.TokenName = "T2"

	deduped := dedupeBatch(&models.MarketplaceBatch{
		Offers: []models.MarketplaceOffer{offerAt(100, 500), other, offerAt(105, 750)},
	})

	if len(deduped.Offers) != 2 {
		t.Fatalf("Expected 2 offers, got %d", len(deduped.Offers))
	}
	if deduped.Offers[0].TokenName != "T1" || deduped.Offers[0].Price != 750 {
		t.Errorf("Expected T1 at its first position with the later price, got %s at %d",
			deduped.Offers[0].TokenName, deduped.Offers[0].Price)
	}
}

func TestSaveMarketplaceRecords_DedupesBeforeInsert(t *testing.T) {
	var inserted *models.MarketplaceBatch
	repo := &PostgresRepository{}
	repo.insertBatch = func(ctx context.Context, batch *models.MarketplaceBatch) error {
		inserted = batch
		return nil
	}

	batch := &models.MarketplaceBatch{
		Offers: []models.MarketplaceOffer{offerAt(100, 500), offerAt(105, 750)},
	}
	if err := repo.SaveMarketplaceRecords(context.Background(), batch); err != nil {
		t.Fatalf("save: %v", err)
	}

	if inserted == nil || len(inserted.Offers) != 1 {
		t.Fatalf("Expected a single deduped offer at insert time, got %+v", inserted)
	}
	if inserted.Offers[0].Price != 750 {
		t.Errorf("Expected the later listing at insert time, price is %d", inserted.Offers[0].Price)
	}
}

func TestSaveMarketplaceRecords_SanitizeRetrySucceeds(t *testing.T) {
	var attempts []*models.MarketplaceBatch
	repo := &PostgresRepository{}
	repo.insertBatch = func(ctx context.Context, batch *models.MarketplaceBatch) error {
		attempts = append(attempts, batch)
		if len(attempts) == 1 {
			return errors.New("invalid byte sequence for encoding")
		}
		return nil
	}

	dirty := offerAt(100, 500)
	dirty.TokenName = "bad\x00name" + strings.Repeat("x", MaxStringBytes)

	err := repo.SaveMarketplaceRecords(context.Background(), &models.MarketplaceBatch{
		Offers: []models.MarketplaceOffer{dirty},
	})
	if err != nil {
		t.Fatalf("Expected the sanitized retry to succeed, got %v", err)
	}

	if len(attempts) != 2 {
		t.Fatalf("Expected exactly 2 insert attempts, got %d", len(attempts))
	}
	if attempts[0].Offers[0].TokenName != dirty.TokenName {
		t.Error("Expected the first attempt to carry the raw record")
	}
	retried := attempts[1].Offers[0].TokenName
	if strings.ContainsRune(retried, 0) {
		t.Error("Expected NUL bytes stripped on the retry attempt")
	}
	if len(retried) > MaxStringBytes {
		t.Errorf("Expected retry string truncated to %d bytes, got %d", MaxStringBytes, len(retried))
	}
}

func TestSaveMarketplaceRecords_SecondFailureIsFatal(t *testing.T) {
	attempts := 0
	repo := &PostgresRepository{}
	repo.insertBatch = func(ctx context.Context, batch *models.MarketplaceBatch) error {
		attempts++
		return errors.New("deadlock detected")
	}

	err := repo.SaveMarketplaceRecords(context.Background(), &models.MarketplaceBatch{
		Offers: []models.MarketplaceOffer{offerAt(100, 500)},
	})
	if err == nil {
		t.Fatal("Expected an error after the retry failed")
	}
	if attempts != 2 {
		t.Errorf("Expected exactly 2 insert attempts, got %d", attempts)
	}
	if !strings.Contains(err.Error(), "sanitize retry") {
		t.Errorf("Expected the error to name the failed retry, got %v", err)
	}
}

func TestSaveMarketplaceRecords_EmptyBatchSkipsInsert(t *testing.T) {
	repo := &PostgresRepository{}
	repo.insertBatch = func(ctx context.Context, batch *models.MarketplaceBatch) error {
		t.Error("Expected no insert attempt for an empty batch")
		return nil
	}

	if err := repo.SaveMarketplaceRecords(context.Background(), &models.MarketplaceBatch{}); err != nil {
		t.Fatalf("save: %v", err)
	}
}
