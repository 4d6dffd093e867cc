package debug

import (
	"encoding/json"
	"log/slog"

	"marketindexer/internal/models"
)

// PrintMarketplaceBatch logs the decoded records of a batch in JSON form.
// Emitted at debug level only; callers should gate on slog's level to skip
// the marshal cost on the hot path.
func PrintMarketplaceBatch(batch *models.MarketplaceBatch, startVersion, endVersion uint64) {
	jsonData, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal batch to JSON", "error", err)
		return
	}

	slog.Debug("Decoded marketplace batch",
		"start_version", startVersion,
		"end_version", endVersion,
		"records", batch.Len(),
		"json", string(jsonData),
	)
}
