package extraction

import (
	"encoding/json"
	"fmt"

	"marketindexer/internal/ledger"
)

// MarketplaceAddress is the on-chain account the marketplace module is
// published under. All recognized type tags and entry functions are
// qualified by it.
const MarketplaceAddress = "0x975c0bad4ee36fcb48fe447647834b9c09ef44349ff593e90dd816dc5a3eccdc"

// Fully qualified type tags for the marketplace write-set values.
var (
	TagOffer = MarketplaceAddress + "::collection::Offer"
	TagOrder = MarketplaceAddress + "::collection::Order"
	TagBid   = MarketplaceAddress + "::collection::Bid"

	TagCollectionRegistrationEvent = MarketplaceAddress + "::events::CollectionRegistrationEvent"
)

// Fully qualified entry function names the payload decoder recognizes.
var (
	FunctionListItem   = MarketplaceAddress + "::core::list_item"
	FunctionPlaceOrder = MarketplaceAddress + "::core::place_blind_order"
	FunctionPlaceBid   = MarketplaceAddress + "::core::place_bidding"
)

// DecodeError is a recognized tag or function whose structural decode
// failed. It carries the transaction version so schema drift surfaces with
// enough context to act on.
type DecodeError struct {
	Version uint64
	Tag     string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("version %d: failed to decode %s: %v", e.Version, e.Tag, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// OfferWrite is the table-item value stored under the Offer tag.
type OfferWrite struct {
	Price  int64  `json:"price"`
	Seller string `json:"seller"`
}

// OrderWrite is the table-item value stored under the Order tag.
type OrderWrite struct {
	Price    int64 `json:"price"`
	Quantity int64 `json:"quantity"`
}

// BidWrite is the table-item value stored under the Bid tag.
type BidWrite struct {
	Price int64  `json:"price"`
	Maker string `json:"maker"`
}

// MarketplaceWrite is the closed set of write-set values the marketplace
// emits. Dispatch is a registry lookup on the type tag.
type MarketplaceWrite interface {
	isMarketplaceWrite()
}

func (OfferWrite) isMarketplaceWrite() {}
func (OrderWrite) isMarketplaceWrite() {}
func (BidWrite) isMarketplaceWrite()   {}

var writeSetRegistry = map[string]func(json.RawMessage) (MarketplaceWrite, error){
	TagOffer: func(data json.RawMessage) (MarketplaceWrite, error) {
		var w OfferWrite
		return w, json.Unmarshal(data, &w)
	},
	TagOrder: func(data json.RawMessage) (MarketplaceWrite, error) {
		var w OrderWrite
		return w, json.Unmarshal(data, &w)
	},
	TagBid: func(data json.RawMessage) (MarketplaceWrite, error) {
		var w BidWrite
		return w, json.Unmarshal(data, &w)
	},
}

// DecodeWriteSet decodes a table-item value by its type tag. An unrecognized
// tag returns (nil, nil): the ledger is shared and most writes belong to
// other modules. A recognized tag that fails to decode is a hard error
// tagged with the transaction version.
func DecodeWriteSet(keyType string, value json.RawMessage, version uint64) (MarketplaceWrite, error) {
	decode, ok := writeSetRegistry[keyType]
	if !ok {
		return nil, nil
	}
	w, err := decode(value)
	if err != nil {
		return nil, &DecodeError{Version: version, Tag: keyType, Err: err}
	}
	return w, nil
}

// CollectionRegistrationEvent is emitted when a creator registers a
// collection with the marketplace.
type CollectionRegistrationEvent struct {
	Creator           string           `json:"creator"`
	CollectionAddress string           `json:"collection_address"`
	CollectionName    string           `json:"collection_name"`
	Timestamp         ledger.Timestamp `json:"timestamp"`
	EventCounter      uint64           `json:"event_counter,string"`
}

// MarketplaceEvent is the closed set of marketplace event payloads.
type MarketplaceEvent interface {
	isMarketplaceEvent()
}

func (CollectionRegistrationEvent) isMarketplaceEvent() {}

var eventRegistry = map[string]func(json.RawMessage) (MarketplaceEvent, error){
	TagCollectionRegistrationEvent: func(data json.RawMessage) (MarketplaceEvent, error) {
		var e CollectionRegistrationEvent
		return e, json.Unmarshal(data, &e)
	},
}

// DecodeEvent decodes an event's data by its type tag, with the same
// miss-versus-mismatch semantics as DecodeWriteSet.
func DecodeEvent(eventType string, data json.RawMessage, version uint64) (MarketplaceEvent, error) {
	decode, ok := eventRegistry[eventType]
	if !ok {
		return nil, nil
	}
	e, err := decode(data)
	if err != nil {
		return nil, &DecodeError{Version: version, Tag: eventType, Err: err}
	}
	return e, nil
}

// ListItemPayload is the named-field form of the list_item call arguments.
type ListItemPayload struct {
	Creator         string `json:"creator"`
	CollectionName  string `json:"collection_name"`
	TokenName       string `json:"token_name"`
	PropertyVersion int64  `json:"property_version"`
	Price           int64  `json:"price"`
}

// PlaceOrderPayload is the named-field form of the place_blind_order call
// arguments.
type PlaceOrderPayload struct {
	Creator        string `json:"creator"`
	CollectionName string `json:"collection_name"`
	Price          int64  `json:"price"`
	Quantity       int64  `json:"quantity"`
}

// PlaceBidPayload is the named-field form of the place_bidding call
// arguments.
type PlaceBidPayload struct {
	Creator         string `json:"creator"`
	CollectionName  string `json:"collection_name"`
	TokenName       string `json:"token_name"`
	PropertyVersion int64  `json:"property_version"`
	Price           int64  `json:"price"`
}

// MarketplacePayload is the closed set of reconstructed entry function
// payloads.
type MarketplacePayload interface {
	isMarketplacePayload()
}

func (ListItemPayload) isMarketplacePayload()   {}
func (PlaceOrderPayload) isMarketplacePayload() {}
func (PlaceBidPayload) isMarketplacePayload()   {}

var payloadRegistry = map[string]func(json.RawMessage) (MarketplacePayload, error){}

func init() {
	payloadRegistry[FunctionListItem] = func(data json.RawMessage) (MarketplacePayload, error) {
		var p ListItemPayload
		return p, json.Unmarshal(data, &p)
	}
	payloadRegistry[FunctionPlaceOrder] = func(data json.RawMessage) (MarketplacePayload, error) {
		var p PlaceOrderPayload
		return p, json.Unmarshal(data, &p)
	}
	payloadRegistry[FunctionPlaceBid] = func(data json.RawMessage) (MarketplacePayload, error) {
		var p PlaceBidPayload
		return p, json.Unmarshal(data, &p)
	}
}

// DecodePayload reconstructs one named-field payload from an entry
// function call: the ordered argument fragments are merged structurally,
// then decoded into the shape registered for the function. Unknown
// functions are a miss, not an error.
func DecodePayload(function string, arguments []json.RawMessage, version uint64) (MarketplacePayload, error) {
	decode, ok := payloadRegistry[function]
	if !ok {
		return nil, nil
	}

	merged, err := MergeArguments(arguments)
	if err != nil {
		return nil, &DecodeError{Version: version, Tag: function, Err: err}
	}

	p, err := decode(merged)
	if err != nil {
		return nil, &DecodeError{Version: version, Tag: function, Err: err}
	}
	return p, nil
}
