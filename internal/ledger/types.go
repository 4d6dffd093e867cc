package ledger

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Change type as reported by the node. Only table-item writes carry the
// typed key/value pair the extraction layer cares about.
const ChangeWriteTableItem = "write_table_item"

// Transaction is one committed ledger entry as returned by the node's
// transaction API. Immutable once fetched.
type Transaction struct {
	Version   uint64                `json:"version,string"`
	Timestamp Timestamp             `json:"timestamp"`
	Payload   *EntryFunctionPayload `json:"payload,omitempty"`
	Events    []Event               `json:"events"`
	Changes   []WriteChange         `json:"changes"`
}

// EntryFunctionPayload is the invoked entry function's fully qualified name
// plus its ordered argument list, one value per declared parameter.
type EntryFunctionPayload struct {
	Function  string            `json:"function"`
	Arguments []json.RawMessage `json:"arguments"`
}

// Event is an emitted on-chain event with its fully qualified type tag.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// WriteChange is a recorded mutation to on-chain storage. For table-item
// writes KeyType is the fully qualified type tag of the value.
type WriteChange struct {
	Type    string          `json:"type"`
	KeyType string          `json:"key_type,omitempty"`
	Key     json.RawMessage `json:"key,omitempty"`
	Value   json.RawMessage `json:"value,omitempty"`
}

// IsTableItemWrite reports whether the change is a typed table-item write.
func (c *WriteChange) IsTableItemWrite() bool {
	return c.Type == ChangeWriteTableItem
}

// LedgerInfo is the node's current chain identity and committed height.
type LedgerInfo struct {
	ChainID       uint8  `json:"chain_id"`
	LedgerVersion uint64 `json:"ledger_version,string"`
}

// Timestamp wraps time.Time to decode the node's microsecond-precision
// string timestamps.
type Timestamp time.Time

// UnmarshalJSON accepts either a quoted or bare integer of microseconds
// since the Unix epoch.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	micros, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", string(data), err)
	}
	*t = Timestamp(time.UnixMicro(int64(micros)).UTC())
	return nil
}

// MarshalJSON emits the quoted microsecond form the node uses.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatInt(time.Time(t).UnixMicro(), 10))), nil
}

// Time returns the underlying time.Time.
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}
