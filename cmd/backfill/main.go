// Command backfill populates historical price partitions from Stooq.
// Run once before daily ingestion starts, then sync the catalog with a
// maintenance run so the new partitions become queryable.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"stoxlake/internal/config"
	"stoxlake/internal/domain"
	"stoxlake/internal/marketdata"
	"stoxlake/internal/storage"
)

// tickerPause spaces Stooq downloads out to stay polite.
const tickerPause = time.Second

func main() {
	var (
		tickers []string
		bucket  string
		start   string
		end     string
	)

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Backfill historical daily prices into the curated bucket",
		RunE: func(cmd *cobra.Command, _ []string) error {
			startDate, err := time.Parse(domain.DateLayout, start)
			if err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
			endDate := time.Now().AddDate(0, 0, -1)
			if end != "" {
				endDate, err = time.Parse(domain.DateLayout, end)
				if err != nil {
					return fmt.Errorf("invalid --end: %w", err)
				}
			}
			if bucket == "" {
				bucket = os.Getenv("CURATED_BUCKET")
			}
			if bucket == "" {
				return fmt.Errorf("no bucket: set --bucket or CURATED_BUCKET")
			}

			return run(cmd.Context(), tickers, bucket, startDate, endDate)
		},
	}

	cmd.Flags().StringSliceVar(&tickers, "tickers", []string{"AAPL", "MSFT", "AMZN", "GOOGL", "TSLA"}, "tickers to backfill")
	cmd.Flags().StringVar(&bucket, "bucket", "", "curated bucket (defaults to CURATED_BUCKET)")
	cmd.Flags().StringVar(&start, "start", "2024-01-01", "first date to backfill (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "last date to backfill (defaults to yesterday)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, tickers []string, bucket string, start, end time.Time) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not load .env: %v\n", err)
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}

	writer := storage.NewPriceWriter(s3.NewFromConfig(awsCfg), bucket, logger)
	stooq := marketdata.NewStooqClient("", logger)

	fmt.Printf("Backfilling %s to %s into s3://%s\n",
		start.Format(domain.DateLayout), end.Format(domain.DateLayout), bucket)

	succeeded := 0
	for i, ticker := range tickers {
		if i > 0 {
			time.Sleep(tickerPause)
		}
		n, err := backfillTicker(ctx, stooq, writer, ticker, start, end)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", ticker, err)
			continue
		}
		fmt.Printf("%s: wrote %d trading days\n", ticker, n)
		succeeded++
	}

	fmt.Printf("Backfill complete: %d/%d tickers successful\n", succeeded, len(tickers))
	if succeeded > 0 {
		fmt.Println("Next: trigger a maintenance run to sync the new partitions.")
	}
	return nil
}

// backfillTicker writes one object per trading day in [start, end],
// skipping weekends.
func backfillTicker(ctx context.Context, stooq *marketdata.StooqClient, writer *storage.PriceWriter, ticker string, start, end time.Time) (int, error) {
	history, err := stooq.History(ctx, ticker)
	if err != nil {
		return 0, err
	}

	written := 0
	for _, rec := range history {
		if rec.Date.Before(start) || rec.Date.After(end) {
			continue
		}
		if wd := rec.Date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		if _, err := writer.Write(ctx, ticker, rec); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}
