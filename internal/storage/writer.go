// Package storage writes price records to the partitioned object-store layout.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"stoxlake/internal/domain"
)

// csvHeader names the seven fields of a stored price object. The query
// engine's table definition depends on this order.
const csvHeader = "date,open,high,low,close,volume,adj_close"

// ObjectStoreAPI is the subset of the S3 client used by the writer.
type ObjectStoreAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// PriceWriter serializes a single day's record and stores it at its
// partitioned path. Writes unconditionally overwrite any existing object
// at the computed key, making a write idempotent for a given record.
type PriceWriter struct {
	client ObjectStoreAPI
	bucket string
	logger *slog.Logger
}

// NewPriceWriter creates a writer targeting the given bucket.
func NewPriceWriter(client ObjectStoreAPI, bucket string, logger *slog.Logger) *PriceWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &PriceWriter{client: client, bucket: bucket, logger: logger}
}

// Write stores the record for the ticker and returns the object key.
func (w *PriceWriter) Write(ctx context.Context, ticker string, rec domain.PriceRecord) (string, error) {
	key := domain.PartitionKeyFor(ticker, rec.Date).Path()
	body := Serialize(rec)

	_, err := w.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(body),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", w.bucket, key, err)
	}

	w.logger.Debug("stored price object", "ticker", ticker, "key", key)
	return key, nil
}

// Serialize renders a record as the fixed two-line CSV document: a header
// line naming all seven fields, then one data line with the record's values.
func Serialize(rec domain.PriceRecord) string {
	return fmt.Sprintf("%s\n%s,%s,%s,%s,%s,%d,%s\n",
		csvHeader,
		rec.Date.Format(domain.DateLayout),
		rec.Open, rec.High, rec.Low, rec.Close,
		rec.Volume, rec.AdjClose,
	)
}
