// Package models holds the decoded domain records the indexer persists.
// Each record is built from a single transaction and never mutated after
// construction.
package models

import (
	"encoding/json"
	"fmt"
	"time"

	"marketindexer/internal/extraction"
	"marketindexer/internal/ledger"
)

// MarketplaceOffer is a token listed for sale. Natural key:
// (creator_address, collection_name, token_name, property_version).
type MarketplaceOffer struct {
	CreatorAddress  string
	CollectionName  string
	TokenName       string
	PropertyVersion int64
	Price           int64
	Seller          string
	Timestamp       time.Time
}

// MarketplaceOrder is a blind order placed against a collection. Natural
// key: (creator_address, collection_name, maker).
type MarketplaceOrder struct {
	CreatorAddress string
	CollectionName string
	Price          int64
	Quantity       int64
	Maker          string
	Timestamp      time.Time
}

// MarketplaceBid is a bid on a specific token. Natural key:
// (creator_address, collection_name, token_name, property_version, maker).
type MarketplaceBid struct {
	CreatorAddress  string
	CollectionName  string
	TokenName       string
	PropertyVersion int64
	Price           int64
	Maker           string
	Timestamp       time.Time
}

// MarketplaceCollection is a collection registered with the marketplace.
// Natural key: (creator_address, collection_name).
type MarketplaceCollection struct {
	CreatorAddress    string
	CollectionAddress string
	CollectionName    string
	CreationTimestamp time.Time
}

// MarketplaceOfferFromChange joins an Offer table-item write with the
// list_item payload of the same transaction. Either half missing means no
// record; a recognized half that fails to decode is an error.
func MarketplaceOfferFromChange(change *ledger.WriteChange, payload *ledger.EntryFunctionPayload, version uint64, timestamp time.Time) (*MarketplaceOffer, error) {
	write, err := extraction.DecodeWriteSet(change.KeyType, change.Value, version)
	if err != nil {
		return nil, err
	}
	offer, ok := write.(extraction.OfferWrite)
	if !ok {
		return nil, nil
	}

	decoded, err := extraction.DecodePayload(payload.Function, payload.Arguments, version)
	if err != nil {
		return nil, err
	}
	listItem, ok := decoded.(extraction.ListItemPayload)
	if !ok {
		return nil, nil
	}

	return &MarketplaceOffer{
		CreatorAddress:  listItem.Creator,
		CollectionName:  listItem.CollectionName,
		TokenName:       listItem.TokenName,
		PropertyVersion: listItem.PropertyVersion,
		Price:           offer.Price,
		Seller:          offer.Seller,
		Timestamp:       timestamp,
	}, nil
}

// MarketplaceOrderFromChange joins an Order table-item write with the
// place_blind_order payload. The maker is the table-item key.
func MarketplaceOrderFromChange(change *ledger.WriteChange, payload *ledger.EntryFunctionPayload, version uint64, timestamp time.Time) (*MarketplaceOrder, error) {
	write, err := extraction.DecodeWriteSet(change.KeyType, change.Value, version)
	if err != nil {
		return nil, err
	}
	order, ok := write.(extraction.OrderWrite)
	if !ok {
		return nil, nil
	}

	decoded, err := extraction.DecodePayload(payload.Function, payload.Arguments, version)
	if err != nil {
		return nil, err
	}
	placeOrder, ok := decoded.(extraction.PlaceOrderPayload)
	if !ok {
		return nil, nil
	}

	var maker string
	if err := json.Unmarshal(change.Key, &maker); err != nil {
		return nil, &extraction.DecodeError{
			Version: version,
			Tag:     change.KeyType,
			Err:     fmt.Errorf("table-item key is not an address string: %w", err),
		}
	}

	return &MarketplaceOrder{
		CreatorAddress: placeOrder.Creator,
		CollectionName: placeOrder.CollectionName,
		Price:          order.Price,
		Quantity:       order.Quantity,
		Maker:          maker,
		Timestamp:      timestamp,
	}, nil
}

// MarketplaceBidFromChange joins a Bid table-item write with the
// place_bidding payload.
func MarketplaceBidFromChange(change *ledger.WriteChange, payload *ledger.EntryFunctionPayload, version uint64, timestamp time.Time) (*MarketplaceBid, error) {
	write, err := extraction.DecodeWriteSet(change.KeyType, change.Value, version)
	if err != nil {
		return nil, err
	}
	bid, ok := write.(extraction.BidWrite)
	if !ok {
		return nil, nil
	}

	decoded, err := extraction.DecodePayload(payload.Function, payload.Arguments, version)
	if err != nil {
		return nil, err
	}
	placeBid, ok := decoded.(extraction.PlaceBidPayload)
	if !ok {
		return nil, nil
	}

	return &MarketplaceBid{
		CreatorAddress:  placeBid.Creator,
		CollectionName:  placeBid.CollectionName,
		TokenName:       placeBid.TokenName,
		PropertyVersion: placeBid.PropertyVersion,
		Price:           bid.Price,
		Maker:           bid.Maker,
		Timestamp:       timestamp,
	}, nil
}

// MarketplaceCollectionFromEvent decodes a collection registration event.
// Events from other modules are a miss, not an error.
func MarketplaceCollectionFromEvent(event *ledger.Event, version uint64) (*MarketplaceCollection, error) {
	decoded, err := extraction.DecodeEvent(event.Type, event.Data, version)
	if err != nil {
		return nil, err
	}
	registration, ok := decoded.(extraction.CollectionRegistrationEvent)
	if !ok {
		return nil, nil
	}

	return &MarketplaceCollection{
		CreatorAddress:    registration.Creator,
		CollectionAddress: registration.CollectionAddress,
		CollectionName:    registration.CollectionName,
		CreationTimestamp: registration.Timestamp.Time(),
	}, nil
}

// MarketplaceBatch aggregates every record kind decoded from one batch of
// transactions, written to the store in a single transaction.
type MarketplaceBatch struct {
	Collections []MarketplaceCollection
	Offers      []MarketplaceOffer
	Orders      []MarketplaceOrder
	Bids        []MarketplaceBid
}

// Len returns the total record count across all kinds.
func (b *MarketplaceBatch) Len() int {
	return len(b.Collections) + len(b.Offers) + len(b.Orders) + len(b.Bids)
}
