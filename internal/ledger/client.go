package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"marketindexer/internal/ledger/retry"
)

// ErrCaughtUp signals that the node has no transactions committed at or past
// the requested version yet. Callers poll again later; it is not a failure.
var ErrCaughtUp = errors.New("caught up with the ledger, no new transactions")

// TransactionSource is the fetch contract the pipeline depends on: given a
// starting version it yields consecutive, gap-free transactions, and it can
// report the chain identity it is connected to.
type TransactionSource interface {
	Transactions(ctx context.Context, startVersion uint64, limit uint16) ([]Transaction, error)
	LedgerInfo(ctx context.Context) (*LedgerInfo, error)
}

// Client talks to a ledger node's REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	strategy   retry.Strategy
}

// NewClient creates a Client for the node at baseURL. Transient
// connectivity failures are retried with the given strategy.
func NewClient(baseURL string, strategy retry.Strategy) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		strategy:   strategy,
	}
}

// LedgerInfo returns the node's chain id and latest committed version.
func (c *Client) LedgerInfo(ctx context.Context) (*LedgerInfo, error) {
	var info LedgerInfo
	err := c.strategy.Execute(ctx, func() error {
		return c.getJSON(ctx, c.baseURL+"/v1", &info)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger info: %w", err)
	}
	return &info, nil
}

// Transactions fetches up to limit transactions starting exactly at
// startVersion. Returns ErrCaughtUp when the node has nothing at that
// version yet.
func (c *Client) Transactions(ctx context.Context, startVersion uint64, limit uint16) ([]Transaction, error) {
	endpoint := c.baseURL + "/v1/transactions?" + url.Values{
		"start": []string{strconv.FormatUint(startVersion, 10)},
		"limit": []string{strconv.FormatUint(uint64(limit), 10)},
	}.Encode()

	var txns []Transaction
	err := c.strategy.Execute(ctx, func() error {
		txns = txns[:0]
		return c.getJSON(ctx, endpoint, &txns)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions from version %d: %w", startVersion, err)
	}

	if len(txns) == 0 {
		return nil, ErrCaughtUp
	}
	return txns, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("node returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode node response: %w", err)
	}
	return nil
}
