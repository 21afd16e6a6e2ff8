// Package ingest runs the daily watchlist ingestion: fetch the latest bar
// for each ticker and store it at its partitioned path.
package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"stoxlake/internal/domain"
)

// Ticker outcome statuses.
const (
	StatusSuccess = "success"
	StatusNoData  = "no_data"
	StatusError   = "error"
)

// TickerResult records one ticker's outcome within a run.
type TickerResult struct {
	Status string `json:"status"`
	Key    string `json:"s3_key,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Summary reports a full ingestion run.
type Summary struct {
	RunID     string                  `json:"run_id"`
	Timestamp time.Time               `json:"timestamp"`
	Results   map[string]TickerResult `json:"results"`
}

// MarketData fetches the latest daily bar for a ticker. A (nil, nil)
// return means the provider had no data.
type MarketData interface {
	Latest(ctx context.Context, ticker string) (*domain.PriceRecord, error)
}

// PriceStore writes a record and returns the object key.
type PriceStore interface {
	Write(ctx context.Context, ticker string, rec domain.PriceRecord) (string, error)
}

// Service processes the watchlist strictly sequentially. Provider calls are
// paced by a rate limiter to respect upstream limits, and one ticker's
// failure is recorded without aborting the rest.
type Service struct {
	fetcher   MarketData
	store     PriceStore
	watchlist []string
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// NewService creates the ingestion service. fetchInterval is the minimum
// spacing between provider calls.
func NewService(fetcher MarketData, store PriceStore, watchlist []string, fetchInterval time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if fetchInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(fetchInterval), 1)
	}
	return &Service{
		fetcher:   fetcher,
		store:     store,
		watchlist: watchlist,
		limiter:   limiter,
		logger:    logger,
	}
}

// Run ingests every watchlist ticker and returns the per-ticker summary.
// It only stops early when the context is cancelled.
func (s *Service) Run(ctx context.Context) *Summary {
	summary := &Summary{
		RunID:     uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Results:   make(map[string]TickerResult, len(s.watchlist)),
	}

	for _, ticker := range s.watchlist {
		if err := s.limiter.Wait(ctx); err != nil {
			summary.Results[ticker] = TickerResult{Status: StatusError, Error: err.Error()}
			continue
		}
		summary.Results[ticker] = s.ingestOne(ctx, ticker)
	}

	s.logger.Info("ingestion run finished", "run_id", summary.RunID, "tickers", len(summary.Results))
	return summary
}

// RunScheduled runs an ingestion pass for the cron scheduler, which has no
// use for the returned summary; outcomes are logged per ticker.
func (s *Service) RunScheduled(ctx context.Context) {
	s.Run(ctx)
}

func (s *Service) ingestOne(ctx context.Context, ticker string) TickerResult {
	rec, err := s.fetcher.Latest(ctx, ticker)
	if err != nil {
		s.logger.Warn("ticker fetch failed", "ticker", ticker, "error", err)
		return TickerResult{Status: StatusError, Error: err.Error()}
	}
	if rec == nil {
		return TickerResult{Status: StatusNoData}
	}

	key, err := s.store.Write(ctx, ticker, *rec)
	if err != nil {
		s.logger.Warn("ticker store failed", "ticker", ticker, "error", err)
		return TickerResult{Status: StatusError, Error: err.Error()}
	}

	s.logger.Info("ticker ingested", "ticker", ticker, "date", rec.Date.Format(domain.DateLayout), "key", key)
	return TickerResult{Status: StatusSuccess, Key: key}
}
