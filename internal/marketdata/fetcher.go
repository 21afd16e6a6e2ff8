// Package marketdata fetches daily price bars from the Alpha Vantage API.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"stoxlake/internal/domain"
)

// providerResponse mirrors the daily-adjusted payload. Error Message and
// Note are mutually exclusive with the time series in practice.
type providerResponse struct {
	ErrorMessage string                 `json:"Error Message"`
	Note         string                 `json:"Note"`
	TimeSeries   map[string]providerBar `json:"Time Series (Daily)"`
}

type providerBar struct {
	Open     string `json:"1. open"`
	High     string `json:"2. high"`
	Low      string `json:"3. low"`
	Close    string `json:"4. close"`
	Volume   string `json:"5. volume"`
	AdjClose string `json:"5. adjusted close"`
}

// Fetcher calls the provider's price-history endpoint for one ticker and
// normalizes the most recent bar into a PriceRecord.
type Fetcher struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *slog.Logger
}

// NewFetcher creates a fetcher against the given provider base URL.
func NewFetcher(baseURL, apiKey string, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		logger:     logger,
	}
}

// Latest fetches the most recent daily bar for the ticker. It returns
// (nil, nil) when the provider responds with an empty time series, and a
// ProviderError when the response carries an explicit error or rate-limit
// notice.
func (f *Fetcher) Latest(ctx context.Context, ticker string) (*domain.PriceRecord, error) {
	q := url.Values{}
	q.Set("function", "TIME_SERIES_DAILY_ADJUSTED")
	q.Set("symbol", ticker)
	q.Set("apikey", f.apiKey)
	q.Set("outputsize", "compact")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build provider request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, domain.ErrProvider("fetch %s: %v", ticker, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, domain.ErrProvider("fetch %s: unexpected status %d", ticker, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.ErrProvider("read provider response for %s: %v", ticker, err)
	}

	var pr providerResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return nil, domain.ErrProvider("decode provider response for %s: %v", ticker, err)
	}

	if pr.ErrorMessage != "" {
		return nil, domain.ErrProvider("alpha vantage error: %s", pr.ErrorMessage)
	}
	if pr.Note != "" {
		return nil, domain.ErrProvider("api limit reached: %s", pr.Note)
	}
	if len(pr.TimeSeries) == 0 {
		f.logger.Debug("empty time series", "ticker", ticker)
		return nil, nil
	}

	// The most recent bar is the maximum date key; the provider's
	// YYYY-MM-DD keys order lexically.
	var latest string
	for d := range pr.TimeSeries {
		if d > latest {
			latest = d
		}
	}

	return parseBar(latest, pr.TimeSeries[latest])
}

func parseBar(date string, bar providerBar) (*domain.PriceRecord, error) {
	d, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		return nil, domain.ErrProvider("bad date %q: %v", date, err)
	}

	rec := &domain.PriceRecord{Date: d}
	for _, p := range []struct {
		name  string
		raw   string
		field *decimal.Decimal
	}{
		{"open", bar.Open, &rec.Open},
		{"high", bar.High, &rec.High},
		{"low", bar.Low, &rec.Low},
		{"close", bar.Close, &rec.Close},
		{"adjusted close", bar.AdjClose, &rec.AdjClose},
	} {
		v, err := decimal.NewFromString(p.raw)
		if err != nil {
			return nil, domain.ErrProvider("bad %s %q for %s: %v", p.name, p.raw, date, err)
		}
		*p.field = v
	}

	vol, err := strconv.ParseInt(bar.Volume, 10, 64)
	if err != nil {
		return nil, domain.ErrProvider("bad volume %q for %s: %v", bar.Volume, date, err)
	}
	rec.Volume = vol

	return rec, nil
}
