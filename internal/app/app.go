// Package app provides application-level wiring and dependency injection.
package app

import (
	"context"
	"fmt"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"stoxlake/internal/agent"
	athenaclient "stoxlake/internal/athena"
	"stoxlake/internal/config"
	"stoxlake/internal/ingest"
	"stoxlake/internal/maintenance"
	"stoxlake/internal/marketdata"
	"stoxlake/internal/storage"
	"stoxlake/internal/textgen"
)

// Services groups the service pointers the API handler and scheduler need.
type Services struct {
	Agent       *agent.Agent
	Ingest      *ingest.Service
	Maintenance *maintenance.Service
}

// App holds the fully-wired application.
type App struct {
	Services  Services
	Scheduler *maintenance.Scheduler
}

// New wires the AWS clients and services from the provided configuration.
// Every external client is injected into its consumer, so tests can
// substitute fakes without touching the environment.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if cfg.HasStaticCredentials() {
		awsCfg.Credentials = credentials.NewStaticCredentialsProvider(*cfg.AWSKeyID, *cfg.AWSSecret, "")
	}

	s3Client := s3.NewFromConfig(awsCfg)
	athenaClient := athena.NewFromConfig(awsCfg)
	bedrockClient := bedrockruntime.NewFromConfig(awsCfg, func(o *bedrockruntime.Options) {
		o.Region = cfg.BedrockRegion
	})

	runner := athenaclient.NewRunner(
		athenaClient, cfg.AthenaDB, cfg.AthenaOutput,
		cfg.QueryPollInterval, cfg.QueryMaxPolls,
		logger.With("component", "athena"),
	)
	llm := textgen.NewClient(bedrockClient, cfg.BedrockModelID)

	agentSvc := agent.New(llm, runner, logger.With("component", "agent"))

	writer := storage.NewPriceWriter(s3Client, cfg.CuratedBucket, logger.With("component", "storage"))
	fetcher := marketdata.NewFetcher(cfg.AlphaVantageURL, cfg.AlphaVantageKey, logger.With("component", "marketdata"))
	ingestSvc := ingest.NewService(fetcher, writer, cfg.Watchlist, cfg.FetchInterval, logger.With("component", "ingest"))

	maintSvc := maintenance.NewService(runner, logger.With("component", "maintenance"))

	scheduler, err := maintenance.NewScheduler(
		ingestSvc, maintSvc,
		cfg.IngestSchedule, cfg.MaintenanceSchedule,
		logger.With("component", "scheduler"),
	)
	if err != nil {
		return nil, fmt.Errorf("register schedules: %w", err)
	}

	return &App{
		Services: Services{
			Agent:       agentSvc,
			Ingest:      ingestSvc,
			Maintenance: maintSvc,
		},
		Scheduler: scheduler,
	}, nil
}
