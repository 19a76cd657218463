package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"MarketScanner/internal/metrics"
	"MarketScanner/internal/model"
)

// Defaults for StoreOptions.
const (
	DefaultRateLimitDelay = 100 * time.Millisecond
	DefaultRequestTimeout = 10 * time.Second
)

// StoreOptions tunes a Store. Zero values take the package defaults.
type StoreOptions struct {
	RateLimitDelay time.Duration
	RequestTimeout time.Duration
	CacheTTL       time.Duration
	Now            func() time.Time
	Metrics        *metrics.Recorder
}

// Store supplies clean series: cache lookup, then a rate-limited provider
// call, then the cleaning pipeline.
type Store struct {
	provider Provider
	cache    *SeriesCache
	limiter  *rate.Limiter
	timeout  time.Duration
	metrics  *metrics.Recorder
	log      zerolog.Logger
}

// NewStore creates a Store around provider.
func NewStore(provider Provider, opts StoreOptions) *Store {
	if opts.RateLimitDelay < 0 {
		opts.RateLimitDelay = 0
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	limit := rate.Inf
	if opts.RateLimitDelay > 0 {
		limit = rate.Every(opts.RateLimitDelay)
	}
	return &Store{
		provider: provider,
		cache:    NewSeriesCache(opts.CacheTTL, opts.Now),
		limiter:  rate.NewLimiter(limit, 1),
		timeout:  opts.RequestTimeout,
		metrics:  opts.Metrics,
		log:      log.With().Str("component", "collector").Str("provider", provider.Name()).Logger(),
	}
}

// Fetch returns the clean series for (symbol, period, interval). A fresh
// cached series is returned without contacting the provider. Empty or
// malformed responses yield ErrDataUnavailable and are not cached.
func (s *Store) Fetch(ctx context.Context, symbol, period, interval string) (model.Series, error) {
	if series, ok := s.cache.Get(symbol, period, interval); ok {
		s.metrics.RecordCacheLookup(true)
		s.log.Debug().Str("symbol", symbol).Str("interval", interval).Msg("cache hit")
		return series, nil
	}
	s.metrics.RecordCacheLookup(false)

	raw, err := s.call(ctx, symbol, period, interval)
	if err != nil {
		if ctx.Err() != nil {
			return model.Series{}, ctx.Err()
		}
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("fetch failed")
		return model.Series{}, fmt.Errorf("%s: %w: %v", symbol, ErrDataUnavailable, err)
	}
	if raw.Len() == 0 {
		s.log.Warn().Str("symbol", symbol).Str("interval", interval).Msg("no data received")
		return model.Series{}, fmt.Errorf("%s: %w", symbol, ErrDataUnavailable)
	}
	if missing := MissingFields(raw); len(missing) > 0 {
		s.log.Warn().Str("symbol", symbol).Stringer("column", missing[0]).Msg("missing column in data")
		return model.Series{}, fmt.Errorf("%s: %w: missing %s", symbol, ErrDataUnavailable, missing[0])
	}

	series := Clean(raw)
	series.Interval = interval
	if series.Empty() {
		s.log.Warn().Str("symbol", symbol).Msg("no valid rows after cleaning")
		return model.Series{}, fmt.Errorf("%s: %w", symbol, ErrDataUnavailable)
	}
	s.cache.Put(symbol, period, interval, series)
	s.log.Debug().Str("symbol", symbol).Int("rows", series.Len()).Msg("fetched")
	return series, nil
}

func (s *Store) call(ctx context.Context, symbol, period, interval string) (model.RawSeries, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return model.RawSeries{}, err
	}
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	raw, err := s.provider.History(cctx, symbol, period, interval)
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case raw.Len() == 0:
		outcome = "empty"
	}
	s.metrics.RecordFetch(s.provider.Name(), outcome, time.Since(start))
	return raw, err
}

// FetchMany fetches every symbol sequentially. Symbols that fail or return
// no data are omitted; a partial map is a normal outcome. Only context
// cancellation is reported as an error.
func (s *Store) FetchMany(ctx context.Context, symbols []string, period, interval string) (map[string]model.Series, error) {
	out := make(map[string]model.Series, len(symbols))
	for _, sym := range symbols {
		series, err := s.Fetch(ctx, sym, period, interval)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return out, err
			}
			continue
		}
		out[sym] = series
	}
	s.log.Info().Int("fetched", len(out)).Int("requested", len(symbols)).Str("interval", interval).Msg("batch fetch complete")
	return out, nil
}

// CurrentPrice returns the latest one-minute close, bypassing the cache.
func (s *Store) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	raw, err := s.call(ctx, symbol, "1d", "1m")
	if err != nil {
		return 0, fmt.Errorf("%s: %w: %v", symbol, ErrDataUnavailable, err)
	}
	series := Clean(raw)
	if series.Empty() {
		return 0, fmt.Errorf("%s: %w", symbol, ErrDataUnavailable)
	}
	return series.Last().Close, nil
}

// ClearCache drops every cached series.
func (s *Store) ClearCache() {
	s.cache.Clear()
	s.log.Info().Msg("cache cleared")
}

// CacheStats reports cache occupancy.
func (s *Store) CacheStats() CacheStats {
	return s.cache.Stats()
}
