// Package athena runs SQL statements through the asynchronous Athena API:
// submit, poll to a terminal state, fetch and shape results.
package athena

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"

	"stoxlake/internal/domain"
)

// API is the subset of the Athena client used by the runner.
type API interface {
	StartQueryExecution(ctx context.Context, params *athena.StartQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.StartQueryExecutionOutput, error)
	GetQueryExecution(ctx context.Context, params *athena.GetQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.GetQueryExecutionOutput, error)
	GetQueryResults(ctx context.Context, params *athena.GetQueryResultsInput, optFns ...func(*athena.Options)) (*athena.GetQueryResultsOutput, error)
}

// Runner submits SQL to Athena and blocks until the execution reaches a
// terminal state. Polling runs at a fixed interval with an explicit attempt
// bound; maxPolls 0 disables the bound and waits forever.
type Runner struct {
	api          API
	database     string
	outputLoc    string
	pollInterval time.Duration
	maxPolls     int
	logger       *slog.Logger
}

// NewRunner creates a runner for the given catalog database and output
// location. pollInterval 0 defaults to 2 seconds.
func NewRunner(api API, database, outputLoc string, pollInterval time.Duration, maxPolls int, logger *slog.Logger) *Runner {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		api:          api,
		database:     database,
		outputLoc:    outputLoc,
		pollInterval: pollInterval,
		maxPolls:     maxPolls,
		logger:       logger,
	}
}

// Run executes the SQL string and returns the shaped result. A FAILED or
// CANCELLED execution yields a QueryError carrying the engine's reason.
func (r *Runner) Run(ctx context.Context, sql string) (*domain.QueryResult, error) {
	start, err := r.api.StartQueryExecution(ctx, &athena.StartQueryExecutionInput{
		QueryString: aws.String(sql),
		QueryExecutionContext: &types.QueryExecutionContext{
			Database: aws.String(r.database),
		},
		ResultConfiguration: &types.ResultConfiguration{
			OutputLocation: aws.String(r.outputLoc),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("start query execution: %w", err)
	}
	executionID := aws.ToString(start.QueryExecutionId)
	r.logger.Debug("query submitted", "execution_id", executionID)

	if err := r.awaitCompletion(ctx, executionID); err != nil {
		return nil, err
	}

	return r.fetchResults(ctx, executionID)
}

// awaitCompletion polls the execution state until SUCCEEDED, returning a
// QueryError on FAILED/CANCELLED and an error when the attempt bound or the
// caller's context expires.
func (r *Runner) awaitCompletion(ctx context.Context, executionID string) error {
	for attempt := 0; ; attempt++ {
		out, err := r.api.GetQueryExecution(ctx, &athena.GetQueryExecutionInput{
			QueryExecutionId: aws.String(executionID),
		})
		if err != nil {
			return fmt.Errorf("get query execution %s: %w", executionID, err)
		}

		status := out.QueryExecution.Status
		switch status.State {
		case types.QueryExecutionStateSucceeded:
			return nil
		case types.QueryExecutionStateFailed:
			reason := aws.ToString(status.StateChangeReason)
			if reason == "" {
				reason = "Unknown error"
			}
			return domain.ErrQuery(reason)
		case types.QueryExecutionStateCancelled:
			return domain.ErrQuery("query cancelled")
		}

		if r.maxPolls > 0 && attempt+1 >= r.maxPolls {
			return domain.ErrQuery(fmt.Sprintf("execution %s still %s after %d polls",
				executionID, status.State, r.maxPolls))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.pollInterval):
		}
	}
}

// fetchResults retrieves the result set once and maps it into columns and
// string-or-null rows. Athena returns the header as the first data row, so
// it is dropped.
func (r *Runner) fetchResults(ctx context.Context, executionID string) (*domain.QueryResult, error) {
	out, err := r.api.GetQueryResults(ctx, &athena.GetQueryResultsInput{
		QueryExecutionId: aws.String(executionID),
	})
	if err != nil {
		return nil, fmt.Errorf("get query results %s: %w", executionID, err)
	}

	result := &domain.QueryResult{}
	if out.ResultSet == nil {
		return result, nil
	}

	if meta := out.ResultSet.ResultSetMetadata; meta != nil {
		for _, col := range meta.ColumnInfo {
			result.Columns = append(result.Columns, aws.ToString(col.Name))
		}
	}

	if len(out.ResultSet.Rows) > 1 {
		for _, row := range out.ResultSet.Rows[1:] {
			shaped := make([]*string, len(row.Data))
			for i, datum := range row.Data {
				shaped[i] = datum.VarCharValue // nil marks an engine null
			}
			result.Rows = append(result.Rows, shaped)
		}
	}

	return result, nil
}
