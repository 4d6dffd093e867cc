// Package processors holds the per-domain processor implementations and the
// registry that selects one by name at startup.
package processors

import (
	"fmt"

	"marketindexer/internal/indexer"
	"marketindexer/internal/storage"
)

// Registered processor names. Each keys a progress cursor row.
const (
	MarketplaceProcessorName = "marketplace_processor"
)

// New returns the processor registered under name. An unknown name is a
// fatal configuration error for the caller.
func New(name string, repository storage.Repository) (indexer.Processor, error) {
	switch name {
	case MarketplaceProcessorName:
		return NewMarketplaceProcessor(repository), nil
	default:
		return nil, fmt.Errorf("unsupported processor: %q", name)
	}
}
