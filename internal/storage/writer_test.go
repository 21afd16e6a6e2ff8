package storage

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stoxlake/internal/domain"
)

type capturedPut struct {
	bucket      string
	key         string
	body        string
	contentType string
}

type mockObjectStore struct {
	puts []capturedPut
	err  error
}

func (m *mockObjectStore) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	m.puts = append(m.puts, capturedPut{
		bucket:      aws.ToString(params.Bucket),
		key:         aws.ToString(params.Key),
		body:        string(body),
		contentType: aws.ToString(params.ContentType),
	})
	return &s3.PutObjectOutput{}, nil
}

func testRecord(t *testing.T) domain.PriceRecord {
	t.Helper()
	date, err := time.Parse(domain.DateLayout, "2024-01-15")
	require.NoError(t, err)
	return domain.PriceRecord{
		Date:     date,
		Open:     decimal.RequireFromString("100.0"),
		High:     decimal.RequireFromString("105.0"),
		Low:      decimal.RequireFromString("99.0"),
		Close:    decimal.RequireFromString("103.0"),
		Volume:   1000000,
		AdjClose: decimal.RequireFromString("103.0"),
	}
}

func TestWrite_PartitionedKeyAndContent(t *testing.T) {
	t.Parallel()

	store := &mockObjectStore{}
	w := NewPriceWriter(store, "stox-curated", nil)

	key, err := w.Write(context.Background(), "AAPL", testRecord(t))

	require.NoError(t, err)
	assert.Equal(t, "prices/ticker=AAPL/year=2024/month=01/day=15/data.csv", key)

	require.Len(t, store.puts, 1)
	put := store.puts[0]
	assert.Equal(t, "stox-curated", put.bucket)
	assert.Equal(t, key, put.key)
	assert.Equal(t, "text/csv", put.contentType)

	lines := strings.Split(strings.TrimRight(put.body, "\n"), "\n")
	require.Len(t, lines, 2, "stored object is a two-line document")
	assert.Equal(t, "date,open,high,low,close,volume,adj_close", lines[0])

	fields := strings.Split(lines[1], ",")
	require.Len(t, fields, 7)
	assert.Equal(t, "2024-01-15", fields[0], "second line's first field is the record date")
	assert.Equal(t, "1000000", fields[5])
}

func TestWrite_Idempotent(t *testing.T) {
	t.Parallel()

	store := &mockObjectStore{}
	w := NewPriceWriter(store, "stox-curated", nil)
	rec := testRecord(t)

	key1, err := w.Write(context.Background(), "AAPL", rec)
	require.NoError(t, err)
	key2, err := w.Write(context.Background(), "AAPL", rec)
	require.NoError(t, err)

	assert.Equal(t, key1, key2)
	require.Len(t, store.puts, 2)
	assert.Equal(t, store.puts[0], store.puts[1], "rewriting the same record produces an identical object")
}

func TestWrite_PutFailure(t *testing.T) {
	t.Parallel()

	store := &mockObjectStore{err: assert.AnError}
	w := NewPriceWriter(store, "stox-curated", nil)

	_, err := w.Write(context.Background(), "AAPL", testRecord(t))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "prices/ticker=AAPL")
}

func TestPartitionKeyPath(t *testing.T) {
	t.Parallel()

	date, err := time.Parse(domain.DateLayout, "2024-03-05")
	require.NoError(t, err)

	key := domain.PartitionKeyFor("MSFT", date)

	assert.Equal(t, domain.PartitionKey{Ticker: "MSFT", Year: 2024, Month: 3, Day: 5}, key)
	assert.Equal(t, "prices/ticker=MSFT/year=2024/month=03/day=05/data.csv", key.Path())
}
