package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stoxlake/internal/domain"
)

// === Mocks ===

type mockCompleter struct {
	completeFn func(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
	calls      []string
}

func (m *mockCompleter) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	m.calls = append(m.calls, prompt)
	if m.completeFn == nil {
		panic("mockCompleter.Complete called but not configured")
	}
	return m.completeFn(ctx, prompt, maxTokens, temperature)
}

type mockRunner struct {
	runFn func(ctx context.Context, sql string) (*domain.QueryResult, error)
	calls []string
}

func (m *mockRunner) Run(ctx context.Context, sql string) (*domain.QueryResult, error) {
	m.calls = append(m.calls, sql)
	if m.runFn == nil {
		panic("mockRunner.Run called but not configured")
	}
	return m.runFn(ctx, sql)
}

func strPtr(s string) *string { return &s }

// === Tests ===

func TestHandle_EmptyQuestion(t *testing.T) {
	t.Parallel()

	llm := &mockCompleter{}
	runner := &mockRunner{}
	a := New(llm, runner, nil)

	for _, question := range []string{"", "   "} {
		resp, err := a.Handle(context.Background(), question)

		require.Error(t, err)
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Nil(t, resp)
	}

	assert.Empty(t, llm.calls, "no model call for an empty question")
	assert.Empty(t, runner.calls, "no query call for an empty question")
}

func TestHandle_NoSQLInCompletion(t *testing.T) {
	t.Parallel()

	llm := &mockCompleter{
		completeFn: func(_ context.Context, _ string, _ int, _ float64) (string, error) {
			return "I cannot answer that question.", nil
		},
	}
	runner := &mockRunner{}
	a := New(llm, runner, nil)

	_, err := a.Handle(context.Background(), "Show me AAPL price")

	var gerr *domain.GenerationError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "no SQL found in response", gerr.Message)
	assert.Empty(t, runner.calls, "no query executed without extractable SQL")
}

func TestHandle_QueryErrorPropagates(t *testing.T) {
	t.Parallel()

	llm := &mockCompleter{
		completeFn: func(_ context.Context, _ string, _ int, _ float64) (string, error) {
			return "<SQL>SELECT 1</SQL>", nil
		},
	}
	runner := &mockRunner{
		runFn: func(_ context.Context, _ string) (*domain.QueryResult, error) {
			return nil, domain.ErrQuery("TABLE_NOT_FOUND: stox.prices")
		},
	}
	a := New(llm, runner, nil)

	_, err := a.Handle(context.Background(), "Show me AAPL price")

	var qerr *domain.QueryError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, "TABLE_NOT_FOUND: stox.prices", qerr.Reason)
	assert.Len(t, llm.calls, 1, "no summarization after a failed query")
}

func TestHandle_Success(t *testing.T) {
	t.Parallel()

	const generatedSQL = "SELECT * FROM stox.prices LIMIT 10"

	llm := &mockCompleter{}
	llm.completeFn = func(_ context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
		if len(llm.calls) == 1 {
			// First call: SQL generation with deterministic sampling.
			assert.Contains(t, prompt, "Show me AAPL price")
			assert.Contains(t, prompt, "<SQL>")
			assert.Equal(t, 500, maxTokens)
			assert.Zero(t, temperature)
			return "Here you go: <SQL>" + generatedSQL + "</SQL>", nil
		}
		// Second call: summarization at moderate temperature.
		assert.Contains(t, prompt, "Rows returned: 1")
		assert.Contains(t, prompt, "date=2024-01-15")
		assert.Equal(t, 300, maxTokens)
		assert.Equal(t, 0.3, temperature)
		return "  AAPL closed at 100.0 on 2024-01-15.\n", nil
	}
	runner := &mockRunner{
		runFn: func(_ context.Context, sql string) (*domain.QueryResult, error) {
			assert.Equal(t, generatedSQL, sql)
			return &domain.QueryResult{
				Columns: []string{"date", "close"},
				Rows:    [][]*string{{strPtr("2024-01-15"), strPtr("100.0")}},
			}, nil
		},
	}
	a := New(llm, runner, nil)

	resp, err := a.Handle(context.Background(), "Show me AAPL price")

	require.NoError(t, err)
	assert.Equal(t, "Show me AAPL price", resp.Question)
	assert.Equal(t, generatedSQL, resp.SQL)
	assert.Equal(t, []string{"date", "close"}, resp.Columns)
	assert.Len(t, resp.Rows, 1)
	assert.Equal(t, "AAPL closed at 100.0 on 2024-01-15.", resp.Answer)
	assert.Len(t, llm.calls, 2)
}

func TestHandle_ZeroRowsSkipsSummarization(t *testing.T) {
	t.Parallel()

	llm := &mockCompleter{
		completeFn: func(_ context.Context, _ string, _ int, _ float64) (string, error) {
			return "<SQL>SELECT * FROM stox.prices WHERE ticker='ZZZZ'</SQL>", nil
		},
	}
	runner := &mockRunner{
		runFn: func(_ context.Context, _ string) (*domain.QueryResult, error) {
			return &domain.QueryResult{Columns: []string{"date", "close"}}, nil
		},
	}
	a := New(llm, runner, nil)

	resp, err := a.Handle(context.Background(), "Show me ZZZZ price")

	require.NoError(t, err)
	assert.Equal(t, "No data found for the given criteria.", resp.Answer)
	assert.Len(t, llm.calls, 1, "summarization model call must be skipped")
	assert.Equal(t, []string{"date", "close"}, resp.Columns, "columns included even with no rows")
	assert.Empty(t, resp.Rows)
	assert.NotEmpty(t, resp.SQL)
}

func TestHandle_RowCap(t *testing.T) {
	t.Parallel()

	rows := make([][]*string, 120)
	for i := range rows {
		rows[i] = []*string{strPtr("2024-01-15"), strPtr("100.0")}
	}

	llm := &mockCompleter{
		completeFn: func(_ context.Context, prompt string, _ int, _ float64) (string, error) {
			if strings.HasPrefix(prompt, "Summarize") {
				return "Lots of data.", nil
			}
			return "<SQL>SELECT * FROM stox.prices</SQL>", nil
		},
	}
	runner := &mockRunner{
		runFn: func(_ context.Context, _ string) (*domain.QueryResult, error) {
			return &domain.QueryResult{Columns: []string{"date", "close"}, Rows: rows}, nil
		},
	}
	a := New(llm, runner, nil)

	resp, err := a.Handle(context.Background(), "Show me everything")

	require.NoError(t, err)
	assert.Len(t, resp.Rows, 50, "response rows capped regardless of result size")
}

func TestExtractSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		completion string
		want       string
		wantErr    bool
	}{
		{
			name:       "simple",
			completion: "<SQL>SELECT 1;</SQL>",
			want:       "SELECT 1;",
		},
		{
			name:       "surrounding prose and whitespace",
			completion: "Sure!\n<SQL>\n  SELECT date FROM stox.prices;\n</SQL>\nDone.",
			want:       "SELECT date FROM stox.prices;",
		},
		{
			name:       "multiline statement",
			completion: "<SQL>SELECT date,\n close\nFROM stox.prices;</SQL>",
			want:       "SELECT date,\n close\nFROM stox.prices;",
		},
		{
			name:       "first of several",
			completion: "<SQL>SELECT 1;</SQL> or <SQL>SELECT 2;</SQL>",
			want:       "SELECT 1;",
		},
		{
			name:       "missing tags",
			completion: "SELECT 1;",
			wantErr:    true,
		},
		{
			name:       "unterminated tag",
			completion: "<SQL>SELECT 1;",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := extractSQL(tt.completion)
			if tt.wantErr {
				var gerr *domain.GenerationError
				require.ErrorAs(t, err, &gerr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildSummaryPrompt_SampleRowsAndNulls(t *testing.T) {
	t.Parallel()

	result := &domain.QueryResult{
		Columns: []string{"date", "close"},
		Rows: [][]*string{
			{strPtr("2024-01-15"), strPtr("100.0")},
			{strPtr("2024-01-16"), nil},
			{strPtr("2024-01-17"), strPtr("102.5")},
			{strPtr("2024-01-18"), strPtr("103.0")},
		},
	}

	prompt := buildSummaryPrompt("How did AAPL do?", result)

	assert.Contains(t, prompt, "How did AAPL do?")
	assert.Contains(t, prompt, "Columns: date, close")
	assert.Contains(t, prompt, "Rows returned: 4")
	assert.Contains(t, prompt, "Row 1: date=2024-01-15, close=100.0")
	assert.Contains(t, prompt, "close=null")
	assert.NotContains(t, prompt, "2024-01-18", "only the first three rows are sampled")
}
