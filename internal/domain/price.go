package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date format used by the provider and the
// stored CSV objects.
const DateLayout = "2006-01-02"

// PriceRecord is one day's OHLCV bar for a single ticker. Records are
// immutable once written; a later fetch for the same date overwrites the
// stored object wholesale.
type PriceRecord struct {
	Date     time.Time
	Open     decimal.Decimal
	High     decimal.Decimal
	Low      decimal.Decimal
	Close    decimal.Decimal
	Volume   int64
	AdjClose decimal.Decimal
}

// PartitionKey identifies the single storage object for a (ticker, date)
// pair. It is derived deterministically from the record's date.
type PartitionKey struct {
	Ticker string
	Year   int
	Month  int
	Day    int
}

// PartitionKeyFor derives the partition key for a ticker and date.
func PartitionKeyFor(ticker string, date time.Time) PartitionKey {
	return PartitionKey{
		Ticker: ticker,
		Year:   date.Year(),
		Month:  int(date.Month()),
		Day:    date.Day(),
	}
}

// Path returns the object key for this partition. The layout is part of the
// external contract with the query engine's partition pruning.
func (k PartitionKey) Path() string {
	return fmt.Sprintf("prices/ticker=%s/year=%d/month=%02d/day=%02d/data.csv",
		k.Ticker, k.Year, k.Month, k.Day)
}
