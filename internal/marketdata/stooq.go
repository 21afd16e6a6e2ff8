package marketdata

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stoxlake/internal/domain"
)

// StooqClient downloads full daily price history for a ticker. Stooq is
// used only for one-off historical backfills; daily ingestion stays on the
// primary provider.
type StooqClient struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewStooqClient creates a history client. baseURL "" uses the public
// Stooq endpoint.
func NewStooqClient(baseURL string, logger *slog.Logger) *StooqClient {
	if baseURL == "" {
		baseURL = "https://stooq.com/q/d/l/"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StooqClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		logger:     logger,
	}
}

// History fetches all daily bars for the ticker. Malformed lines are
// skipped rather than failing the whole download; Stooq provides no
// adjusted close, so AdjClose duplicates Close.
func (c *StooqClient) History(ctx context.Context, ticker string) ([]domain.PriceRecord, error) {
	url := fmt.Sprintf("%s?s=%s&i=d&f=csv", c.baseURL, strings.ToLower(ticker))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build stooq request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.ErrProvider("fetch stooq history for %s: %v", ticker, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, domain.ErrProvider("stooq history for %s: unexpected status %d", ticker, resp.StatusCode)
	}

	return c.parseHistory(ticker, resp.Body)
}

func (c *StooqClient) parseHistory(ticker string, r io.Reader) ([]domain.PriceRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, domain.ErrProvider("stooq history for %s: empty response", ticker)
	}
	if len(header) == 0 || !strings.EqualFold(header[0], "Date") {
		return nil, domain.ErrProvider("stooq history for %s: unexpected header %v", ticker, header)
	}

	var records []domain.PriceRecord
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		rec, ok := parseStooqLine(fields)
		if !ok {
			c.logger.Debug("skipping malformed history line", "ticker", ticker, "fields", fields)
			continue
		}
		records = append(records, rec)
	}

	return records, nil
}

// parseStooqLine maps Date,Open,High,Low,Close,Volume into a record.
func parseStooqLine(fields []string) (domain.PriceRecord, bool) {
	if len(fields) < 6 {
		return domain.PriceRecord{}, false
	}

	date, err := time.Parse(domain.DateLayout, fields[0])
	if err != nil {
		return domain.PriceRecord{}, false
	}

	prices := make([]decimal.Decimal, 4)
	for i, raw := range fields[1:5] {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return domain.PriceRecord{}, false
		}
		prices[i] = v
	}

	// Stooq reports volume as a float for some instruments.
	vol, err := strconv.ParseFloat(fields[5], 64)
	if err != nil {
		return domain.PriceRecord{}, false
	}

	return domain.PriceRecord{
		Date:     date,
		Open:     prices[0],
		High:     prices[1],
		Low:      prices[2],
		Close:    prices[3],
		Volume:   int64(vol),
		AdjClose: prices[3],
	}, true
}
