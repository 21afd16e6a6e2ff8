// Package agent turns natural-language questions into SQL, executes it, and
// summarizes the result.
package agent

import (
	"context"
	"log/slog"
	"strings"

	"stoxlake/internal/domain"
)

const (
	// Sampling budgets for the two model calls.
	sqlMaxTokens       = 500
	sqlTemperature     = 0.0
	summaryMaxTokens   = 300
	summaryTemperature = 0.3

	// sampleRows bounds how many rows the summary prompt quotes.
	sampleRows = 3

	// maxResponseRows caps the row set returned to the caller regardless of
	// how many the engine produced.
	maxResponseRows = 50

	// noDataAnswer is returned verbatim for empty results; the second model
	// call is skipped in that case.
	noDataAnswer = "No data found for the given criteria."
)

// Completer produces a completion for a prompt with the given sampling
// parameters.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

// QueryRunner executes SQL and returns the shaped result.
type QueryRunner interface {
	Run(ctx context.Context, sql string) (*domain.QueryResult, error)
}

// Agent is the NL→SQL pipeline: prompt construction, generation, extraction,
// execution, and summarization. It performs no retries; every failure
// surfaces as a typed error for the caller to map.
type Agent struct {
	llm     Completer
	queries QueryRunner
	logger  *slog.Logger
}

// New creates an agent with its two collaborators injected.
func New(llm Completer, queries QueryRunner, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{llm: llm, queries: queries, logger: logger}
}

// Handle answers one question. It fails with a ValidationError for an empty
// question, a GenerationError when the model produces no extractable SQL,
// and a QueryError when the execution ends in a failed state.
func (a *Agent) Handle(ctx context.Context, question string) (*domain.AgentResponse, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.ErrValidation("question is required")
	}

	sql, err := a.generateSQL(ctx, question)
	if err != nil {
		return nil, err
	}
	a.logger.Info("generated sql", "question", question, "sql", sql)

	result, err := a.queries.Run(ctx, sql)
	if err != nil {
		return nil, err
	}

	answer, err := a.summarize(ctx, question, result)
	if err != nil {
		return nil, err
	}

	rows := result.Rows
	if len(rows) > maxResponseRows {
		rows = rows[:maxResponseRows]
	}

	return &domain.AgentResponse{
		Question: question,
		SQL:      sql,
		Columns:  result.Columns,
		Rows:     rows,
		Answer:   answer,
	}, nil
}

// generateSQL runs the first model call with deterministic sampling and
// extracts the delimited statement. Not retried: a completion without
// delimiters is a hard failure for the request.
func (a *Agent) generateSQL(ctx context.Context, question string) (string, error) {
	completion, err := a.llm.Complete(ctx, buildSQLPrompt(question), sqlMaxTokens, sqlTemperature)
	if err != nil {
		return "", err
	}
	return extractSQL(completion)
}

// summarize produces the natural-language answer. Zero rows short-circuit
// to the fixed sentinel without a model call.
func (a *Agent) summarize(ctx context.Context, question string, result *domain.QueryResult) (string, error) {
	if len(result.Rows) == 0 {
		return noDataAnswer, nil
	}

	completion, err := a.llm.Complete(ctx, buildSummaryPrompt(question, result), summaryMaxTokens, summaryTemperature)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(completion), nil
}
