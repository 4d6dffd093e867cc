package processors

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"marketindexer/internal/extraction"
	"marketindexer/internal/ledger"
	"marketindexer/internal/models"
)

// fakeRepository collects saved batches in memory.
type fakeRepository struct {
	mu      sync.Mutex
	batches []*models.MarketplaceBatch
	saveErr error
}

func (r *fakeRepository) LastSuccessVersion(ctx context.Context, name string) (uint64, bool, error) {
	return 0, false, nil
}

func (r *fakeRepository) SaveProcessorStatus(ctx context.Context, name string, version uint64) error {
	return nil
}

func (r *fakeRepository) ChainID(ctx context.Context) (uint8, bool, error) { return 0, false, nil }

func (r *fakeRepository) SaveChainID(ctx context.Context, chainID uint8) error { return nil }

func (r *fakeRepository) SaveMarketplaceRecords(ctx context.Context, batch *models.MarketplaceBatch) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	r.batches = append(r.batches, batch)
	r.mu.Unlock()
	return nil
}

func (r *fakeRepository) Ping(ctx context.Context) error { return nil }

func (r *fakeRepository) Close() {}

func listItemTxn(version uint64) ledger.Transaction {
	return ledger.Transaction{
		Version:   version,
		Timestamp: ledger.Timestamp(time.UnixMicro(1700000000000000).UTC()),
		Payload: &ledger.EntryFunctionPayload{
			Function: extraction.FunctionListItem,
			Arguments: []json.RawMessage{
				json.RawMessage(`{"creator":"0xAA","collection_name":"C1"}`),
				json.RawMessage(`{"token_name":"T1","property_version":0,"price":500}`),
			},
		},
		Changes: []ledger.WriteChange{
			{
				Type:    ledger.ChangeWriteTableItem,
				KeyType: extraction.TagOffer,
				Key:     json.RawMessage(`"0xBB"`),
				Value:   json.RawMessage(`{"price":500,"seller":"0xBB"}`),
			},
		},
	}
}

func TestMarketplaceProcessor_ListItemScenario(t *testing.T) {
	repo := &fakeRepository{}
	processor := NewMarketplaceProcessor(repo)

	result, err := processor.Process(context.Background(), []ledger.Transaction{listItemTxn(100)}, 100, 100)
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	if result.RecordCount != 1 {
		t.Errorf("Expected 1 record, got %d", result.RecordCount)
	}
	if result.StartVersion != 100 || result.EndVersion != 100 {
		t.Errorf("Unexpected result range: %+v", result)
	}

	if len(repo.batches) != 1 || len(repo.batches[0].Offers) != 1 {
		t.Fatalf("Expected exactly one saved offer, got %+v", repo.batches)
	}

	offer := repo.batches[0].Offers[0]
	want := models.MarketplaceOffer{
		CreatorAddress:  "0xAA",
		CollectionName:  "C1",
		TokenName:       "T1",
		PropertyVersion: 0,
		Price:           500,
		Seller:          "0xBB",
		Timestamp:       time.UnixMicro(1700000000000000).UTC(),
	}
	if offer != want {
		t.Errorf("Expected offer %+v, got %+v", want, offer)
	}
}

func TestMarketplaceProcessor_FirstMatchingWriteWins(t *testing.T) {
	txn := listItemTxn(100)
	// A second qualifying Offer write in the same transaction must be
	// ignored; the first match wins.
	txn.Changes = append(txn.Changes, ledger.WriteChange{
		Type:    ledger.ChangeWriteTableItem,
		KeyType: extraction.TagOffer,
		Key:     json.RawMessage(`"0xCC"`),
		Value:   json.RawMessage(`{"price":999,"seller":"0xCC"}`),
	})

	repo := &fakeRepository{}
	processor := NewMarketplaceProcessor(repo)

	result, err := processor.Process(context.Background(), []ledger.Transaction{txn}, 100, 100)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.RecordCount != 1 {
		t.Errorf("Expected 1 record, got %d", result.RecordCount)
	}
	if seller := repo.batches[0].Offers[0].Seller; seller != "0xBB" {
		t.Errorf("Expected the first matching write to win, seller is %s", seller)
	}
}

func TestMarketplaceProcessor_UnrelatedTransactionsYieldNothing(t *testing.T) {
	txn := ledger.Transaction{
		Version: 7,
		Payload: &ledger.EntryFunctionPayload{
			Function:  "0x1::coin::transfer",
			Arguments: []json.RawMessage{json.RawMessage(`"0xAA"`), json.RawMessage(`"100"`)},
		},
		Events: []ledger.Event{
			{Type: "0x1::coin::WithdrawEvent", Data: json.RawMessage(`{"amount":"100"}`)},
		},
		Changes: []ledger.WriteChange{
			{Type: ledger.ChangeWriteTableItem, KeyType: "0x1::coin::Ledger", Value: json.RawMessage(`{}`)},
		},
	}

	repo := &fakeRepository{}
	processor := NewMarketplaceProcessor(repo)

	result, err := processor.Process(context.Background(), []ledger.Transaction{txn}, 7, 7)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.RecordCount != 0 {
		t.Errorf("Expected no records from unrelated transaction, got %d", result.RecordCount)
	}
}

func TestMarketplaceProcessor_DecodeMismatchAbortsBatch(t *testing.T) {
	txn := listItemTxn(42)
	txn.Changes[0].Value = json.RawMessage(`{"price":"garbage"}`)

	processor := NewMarketplaceProcessor(&fakeRepository{})

	_, err := processor.Process(context.Background(), []ledger.Transaction{txn}, 42, 42)
	if err == nil {
		t.Fatal("Expected decode error")
	}

	var decodeErr *extraction.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("Expected *extraction.DecodeError, got %T", err)
	}
	if decodeErr.Version != 42 {
		t.Errorf("Expected version 42 in decode error, got %d", decodeErr.Version)
	}
}

func TestMarketplaceProcessor_WriteFailurePropagates(t *testing.T) {
	repo := &fakeRepository{saveErr: errors.New("insert failed after sanitize retry")}
	processor := NewMarketplaceProcessor(repo)

	_, err := processor.Process(context.Background(), []ledger.Transaction{listItemTxn(100)}, 100, 100)
	if err == nil {
		t.Fatal("Expected write failure to propagate")
	}
}

func TestRegistry(t *testing.T) {
	repo := &fakeRepository{}

	processor, err := New(MarketplaceProcessorName, repo)
	if err != nil {
		t.Fatalf("registry lookup: %v", err)
	}
	if processor.Name() != MarketplaceProcessorName {
		t.Errorf("Unexpected processor name: %s", processor.Name())
	}

	if _, err := New("nonexistent_processor", repo); err == nil {
		t.Error("Expected error for unknown processor name")
	}
}
