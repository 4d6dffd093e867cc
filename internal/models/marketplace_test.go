package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"marketindexer/internal/extraction"
	"marketindexer/internal/ledger"
)

func listItemPayload() *ledger.EntryFunctionPayload {
	return &ledger.EntryFunctionPayload{
		Function: extraction.FunctionListItem,
		Arguments: []json.RawMessage{
			json.RawMessage(`{"creator":"0xAA","collection_name":"C1"}`),
			json.RawMessage(`{"token_name":"T1","property_version":0,"price":500}`),
		},
	}
}

func offerChange() *ledger.WriteChange {
	return &ledger.WriteChange{
		Type:    ledger.ChangeWriteTableItem,
		KeyType: extraction.TagOffer,
		Key:     json.RawMessage(`"0xBB"`),
		Value:   json.RawMessage(`{"price":500,"seller":"0xBB"}`),
	}
}

func TestMarketplaceOfferFromChange(t *testing.T) {
	timestamp := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)

	offer, err := MarketplaceOfferFromChange(offerChange(), listItemPayload(), 100, timestamp)
	if err != nil {
		t.Fatalf("offer from change: %v", err)
	}
	if offer == nil {
		t.Fatal("Expected an offer record, got nil")
	}

	want := MarketplaceOffer{
		CreatorAddress:  "0xAA",
		CollectionName:  "C1",
		TokenName:       "T1",
		PropertyVersion: 0,
		Price:           500,
		Seller:          "0xBB",
		Timestamp:       timestamp,
	}
	if *offer != want {
		t.Errorf("Expected %+v, got %+v", want, *offer)
	}
}

func TestMarketplaceOfferFromChange_MissingWriteHalf(t *testing.T) {
	change := &ledger.WriteChange{
		Type:    ledger.ChangeWriteTableItem,
		KeyType: "0x1::table::Item",
		Value:   json.RawMessage(`{}`),
	}

	offer, err := MarketplaceOfferFromChange(change, listItemPayload(), 100, time.Now())
	if err != nil {
		t.Fatalf("Expected no error for unrelated write, got: %v", err)
	}
	if offer != nil {
		t.Errorf("Expected no record without the write half, got: %+v", offer)
	}
}

func TestMarketplaceOfferFromChange_MissingPayloadHalf(t *testing.T) {
	payload := &ledger.EntryFunctionPayload{
		Function:  "0x1::coin::transfer",
		Arguments: []json.RawMessage{json.RawMessage(`"0xAA"`)},
	}

	offer, err := MarketplaceOfferFromChange(offerChange(), payload, 100, time.Now())
	if err != nil {
		t.Fatalf("Expected no error for unrelated payload, got: %v", err)
	}
	if offer != nil {
		t.Errorf("Expected no record without the payload half, got: %+v", offer)
	}
}

func TestMarketplaceOrderFromChange_MakerFromTableItemKey(t *testing.T) {
	change := &ledger.WriteChange{
		Type:    ledger.ChangeWriteTableItem,
		KeyType: extraction.TagOrder,
		Key:     json.RawMessage(`"0xDD"`),
		Value:   json.RawMessage(`{"price":250,"quantity":3}`),
	}
	payload := &ledger.EntryFunctionPayload{
		Function: extraction.FunctionPlaceOrder,
		Arguments: []json.RawMessage{
			json.RawMessage(`{"creator":"0xAA","collection_name":"C1"}`),
			json.RawMessage(`{"price":250,"quantity":3}`),
		},
	}

	order, err := MarketplaceOrderFromChange(change, payload, 200, time.Now())
	if err != nil {
		t.Fatalf("order from change: %v", err)
	}
	if order == nil {
		t.Fatal("Expected an order record, got nil")
	}
	if order.Maker != "0xDD" {
		t.Errorf("Expected maker from table-item key 0xDD, got %s", order.Maker)
	}
	if order.Price != 250 || order.Quantity != 3 {
		t.Errorf("Unexpected order values: %+v", order)
	}
}

func TestMarketplaceOrderFromChange_BadKey(t *testing.T) {
	change := &ledger.WriteChange{
		Type:    ledger.ChangeWriteTableItem,
		KeyType: extraction.TagOrder,
		Key:     json.RawMessage(`{"not":"a string"}`),
		Value:   json.RawMessage(`{"price":250,"quantity":3}`),
	}
	payload := &ledger.EntryFunctionPayload{
		Function: extraction.FunctionPlaceOrder,
		Arguments: []json.RawMessage{
			json.RawMessage(`{"creator":"0xAA","collection_name":"C1"}`),
		},
	}

	_, err := MarketplaceOrderFromChange(change, payload, 201, time.Now())
	if err == nil {
		t.Fatal("Expected error for non-string table-item key")
	}

	var decodeErr *extraction.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("Expected *extraction.DecodeError, got %T", err)
	}
	if decodeErr.Version != 201 {
		t.Errorf("Expected version 201, got %d", decodeErr.Version)
	}
}

func TestMarketplaceBidFromChange(t *testing.T) {
	change := &ledger.WriteChange{
		Type:    ledger.ChangeWriteTableItem,
		KeyType: extraction.TagBid,
		Value:   json.RawMessage(`{"price":600,"maker":"0xEE"}`),
	}
	payload := &ledger.EntryFunctionPayload{
		Function: extraction.FunctionPlaceBid,
		Arguments: []json.RawMessage{
			json.RawMessage(`{"creator":"0xAA","collection_name":"C1","token_name":"T1"}`),
			json.RawMessage(`{"property_version":2,"price":600}`),
		},
	}

	bid, err := MarketplaceBidFromChange(change, payload, 300, time.Now())
	if err != nil {
		t.Fatalf("bid from change: %v", err)
	}
	if bid == nil {
		t.Fatal("Expected a bid record, got nil")
	}
	if bid.Maker != "0xEE" || bid.Price != 600 || bid.PropertyVersion != 2 {
		t.Errorf("Unexpected bid: %+v", bid)
	}
}

func TestMarketplaceCollectionFromEvent(t *testing.T) {
	event := &ledger.Event{
		Type: extraction.TagCollectionRegistrationEvent,
		Data: json.RawMessage(`{
			"creator": "0xAA",
			"collection_address": "0xCC",
			"collection_name": "C1",
			"timestamp": "1700000000000000",
			"event_counter": "1"
		}`),
	}

	collection, err := MarketplaceCollectionFromEvent(event, 10)
	if err != nil {
		t.Fatalf("collection from event: %v", err)
	}
	if collection == nil {
		t.Fatal("Expected a collection record, got nil")
	}
	if collection.CreatorAddress != "0xAA" || collection.CollectionAddress != "0xCC" {
		t.Errorf("Unexpected collection: %+v", collection)
	}

	wantTime := time.UnixMicro(1700000000000000).UTC()
	if !collection.CreationTimestamp.Equal(wantTime) {
		t.Errorf("Expected timestamp %v, got %v", wantTime, collection.CreationTimestamp)
	}
}
