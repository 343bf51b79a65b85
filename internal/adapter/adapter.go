package adapter

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the upstream provider could not serve a
// fetch. The pipeline treats a wrapped ErrUnavailable as fatal for the
// run; retry policy belongs to the adapter implementation, not here.
var ErrUnavailable = errors.New("upstream unavailable")

// Window bounds a fetch in time. Both ends are Unix milliseconds, UTC;
// From is inclusive, To exclusive.
type Window struct {
	From int64
	To   int64
}

// RawRecord is one untyped provider row. Normalization owns all type
// and presence checks, so adapters pass payloads through untouched.
type RawRecord map[string]any

// String extracts a string field. ok is false when missing or not a string.
func (r RawRecord) String(key string) (string, bool) {
	v, ok := r[key].(string)
	return v, ok
}

// Float extracts a numeric field, accepting float64 or int inputs.
func (r RawRecord) Float(key string) (float64, bool) {
	switch v := r[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// Int64 extracts an integer field, accepting int64, int or a whole float64.
func (r RawRecord) Int64(key string) (int64, bool) {
	switch v := r[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		if v == float64(int64(v)) {
			return int64(v), true
		}
	}
	return 0, false
}

// Strings extracts a string-slice field, accepting []string or []any of strings.
func (r RawRecord) Strings(key string) ([]string, bool) {
	switch v := r[key].(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// Client is the upstream data provider. All fetches are window-bounded
// batches; implementations must honor ctx cancellation.
type Client interface {
	// FetchLargeTrades returns individual large-trade rows for the window.
	FetchLargeTrades(ctx context.Context, w Window) ([]RawRecord, error)

	// FetchTokenScreener returns per-token anomaly screener rows for the window.
	FetchTokenScreener(ctx context.Context, w Window) ([]RawRecord, error)

	// FetchNetflows returns per-token aggregate netflow rows for the window.
	FetchNetflows(ctx context.Context, w Window) ([]RawRecord, error)

	// FetchWalletLabels returns label rows ("address", "labels") for the
	// given wallet addresses.
	FetchWalletLabels(ctx context.Context, addresses []string) ([]RawRecord, error)
}
