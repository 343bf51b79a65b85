package mock

import (
	"context"
	"fmt"

	"smartmoney-collector/internal/adapter"
)

// Client is a deterministic fixture adapter. It serves a fixed batch of
// records placed relative to the fetch window, so a pipeline run against
// it always produces the same events and signals. Used by unit tests and
// by cmd/pipeline when no upstream is configured.
type Client struct {
	// Fail, when non-empty, makes the named fetch return ErrUnavailable:
	// one of "large_trades", "token_screener", "netflows", "wallet_labels".
	Fail string

	// Extra records appended to the built-in fixtures per source kind.
	LargeTrades   []adapter.RawRecord
	TokenScreener []adapter.RawRecord
	Netflows      []adapter.RawRecord
	Labels        map[string][]string
}

// NewClient creates a fixture client with the built-in dataset.
func NewClient() *Client {
	return &Client{
		Labels: map[string][]string{
			"0xf00d000000000000000000000000000000000001": {"fund", "smart_money"},
			"0xcafe000000000000000000000000000000000002": {"whale"},
			"0xfee1d00000000000000000000000000000000003": {},
		},
	}
}

func (c *Client) fail(kind string) error {
	return fmt.Errorf("mock %s fetch: %w", kind, adapter.ErrUnavailable)
}

// FetchLargeTrades returns fixture large-trade rows inside the window.
func (c *Client) FetchLargeTrades(ctx context.Context, w adapter.Window) ([]adapter.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.Fail == "large_trades" {
		return nil, c.fail("large_trades")
	}

	mid := w.From + (w.To-w.From)/2
	records := []adapter.RawRecord{
		{
			"chain":          "ethereum",
			"token_address":  "0xaaa0000000000000000000000000000000000001",
			"token_symbol":   "ALPHA",
			"wallet_address": "0xf00d000000000000000000000000000000000001",
			"direction":      "buy",
			"usd_value":      250000.0,
			"tx_hash":        "0xtx0000000000000000000000000000000000000000000000000000000000a1",
			"timestamp_ms":   mid,
		},
		{
			"chain":          "ethereum",
			"token_address":  "0xaaa0000000000000000000000000000000000001",
			"token_symbol":   "ALPHA",
			"wallet_address": "0xcafe000000000000000000000000000000000002",
			"direction":      "buy",
			"usd_value":      120000.0,
			"tx_hash":        "0xtx0000000000000000000000000000000000000000000000000000000000a2",
			"timestamp_ms":   mid + 60_000,
		},
		{
			"chain":          "ethereum",
			"token_address":  "0xbbb0000000000000000000000000000000000002",
			"token_symbol":   "BETA",
			"wallet_address": "0xfee1d00000000000000000000000000000000003",
			"direction":      "sell",
			"usd_value":      180000.0,
			"tx_hash":        "0xtx0000000000000000000000000000000000000000000000000000000000b1",
			"timestamp_ms":   mid + 120_000,
		},
	}
	return append(records, c.LargeTrades...), nil
}

// FetchTokenScreener returns fixture anomaly-screener rows.
func (c *Client) FetchTokenScreener(ctx context.Context, w adapter.Window) ([]adapter.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.Fail == "token_screener" {
		return nil, c.fail("token_screener")
	}

	records := []adapter.RawRecord{
		{
			"chain":         "ethereum",
			"token_address": "0xaaa0000000000000000000000000000000000001",
			"token_symbol":  "ALPHA",
			"volume_jump":   2.4,
			"timestamp_ms":  w.From,
		},
	}
	return append(records, c.TokenScreener...), nil
}

// FetchNetflows returns fixture aggregate netflow rows.
func (c *Client) FetchNetflows(ctx context.Context, w adapter.Window) ([]adapter.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.Fail == "netflows" {
		return nil, c.fail("netflows")
	}

	records := []adapter.RawRecord{
		{
			"chain":         "ethereum",
			"token_address": "0xaaa0000000000000000000000000000000000001",
			"token_symbol":  "ALPHA",
			"netflow_usd":   420000.0,
			"timestamp_ms":  w.From,
		},
		{
			"chain":         "ethereum",
			"token_address": "0xbbb0000000000000000000000000000000000002",
			"token_symbol":  "BETA",
			"netflow_usd":   -90000.0,
			"timestamp_ms":  w.From,
		},
	}
	return append(records, c.Netflows...), nil
}

// FetchWalletLabels returns fixture label rows for the requested addresses.
func (c *Client) FetchWalletLabels(ctx context.Context, addresses []string) ([]adapter.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.Fail == "wallet_labels" {
		return nil, c.fail("wallet_labels")
	}

	var records []adapter.RawRecord
	for _, addr := range addresses {
		labels, ok := c.Labels[addr]
		if !ok {
			continue
		}
		records = append(records, adapter.RawRecord{
			"address": addr,
			"labels":  labels,
		})
	}
	return records, nil
}

// Verify interface compliance at compile time.
var _ adapter.Client = (*Client)(nil)
