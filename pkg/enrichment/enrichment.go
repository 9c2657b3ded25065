// Package enrichment joins locally held data onto items coming from an
// upstream source. Lookups are batched and fail open: a failing fetch leaves
// the items unenriched instead of failing the caller.
package enrichment

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// BatchFetcher fetches enrichment data for many keys in one call. Keys with
// no data are simply absent from the returned map.
type BatchFetcher[K comparable, V any] func(ctx context.Context, keys []K) (map[K]V, error)

// KeyExtractor defines a function to get an enrichment key from an item.
type KeyExtractor[T any, K comparable] func(item T) (K, bool)

// Applier combines an item with its enrichment data. found is false when no
// data exists for the item or the fetch failed.
type Applier[T any, V any, R any] func(item T, data V, found bool) R

// BatchEnricher enriches a slice of items, preserving order. Degraded reports
// whether the fetch failed and the result was built without enrichment data.
type BatchEnricher[T any, R any] func(ctx context.Context, items []T) (out []R, degraded bool)

// NewBatchEnricherFunc is a factory that creates a BatchEnricher. It
// deduplicates keys, issues a single fetch and applies the results.
func NewBatchEnricherFunc[T any, K comparable, V any, R any](
	fetcher BatchFetcher[K, V],
	keyEx KeyExtractor[T, K],
	applier Applier[T, V, R],
	logger zerolog.Logger,
) (BatchEnricher[T, R], error) {
	if fetcher == nil || keyEx == nil || applier == nil {
		return nil, fmt.Errorf("fetcher, keyExtractor, and applier cannot be nil")
	}

	enrichLogger := logger.With().Str("component", "BatchEnricher").Logger()

	return func(ctx context.Context, items []T) ([]R, bool) {
		out := make([]R, 0, len(items))
		if len(items) == 0 {
			return out, false
		}

		keys := make([]K, 0, len(items))
		seen := make(map[K]struct{}, len(items))
		for _, item := range items {
			key, ok := keyEx(item)
			if !ok {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}

		var data map[K]V
		degraded := false
		if len(keys) > 0 {
			var err error
			data, err = fetcher(ctx, keys)
			if err != nil {
				enrichLogger.Error().Err(err).Int("key_count", len(keys)).Msg("Failed to fetch enrichment data, continuing without it.")
				data = nil
				degraded = true
			}
		}

		for _, item := range items {
			var (
				value V
				found bool
			)
			if key, ok := keyEx(item); ok && data != nil {
				value, found = data[key]
			}
			out = append(out, applier(item, value, found))
		}
		enrichLogger.Debug().Int("item_count", len(items)).Int("enriched_count", len(data)).Msg("Batch enriched.")
		return out, degraded
	}, nil
}
