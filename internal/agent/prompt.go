package agent

import (
	"fmt"
	"regexp"
	"strings"

	"stoxlake/internal/domain"
)

// fewShotExamples steer the model toward delimiter-wrapped, Athena-flavored
// SQL against stox.prices.
const fewShotExamples = `
Examples:
Q: "7-day SMA of AAPL for last 30 days"
A: <SQL>SELECT date, close, AVG(close) OVER (ORDER BY date ROWS BETWEEN 6 PRECEDING AND CURRENT ROW) as sma_7 FROM stox.prices WHERE ticker='AAPL' AND date >= current_date - interval '30' day ORDER BY date;</SQL>

Q: "Best performer YTD on my watchlist"
A: <SQL>WITH ytd_returns AS (SELECT ticker, (close - LAG(close) OVER (PARTITION BY ticker ORDER BY date)) / LAG(close) OVER (PARTITION BY ticker ORDER BY date) as daily_return FROM stox.prices WHERE date >= date_trunc('year', current_date)) SELECT ticker, SUM(daily_return) as ytd_return FROM ytd_returns GROUP BY ticker ORDER BY ytd_return DESC LIMIT 1;</SQL>

Q: "Max drawdown of TSLA YTD"
A: <SQL>WITH running_peak AS (SELECT date, close, MAX(close) OVER (ORDER BY date) as peak FROM stox.prices WHERE ticker='TSLA' AND date >= date_trunc('year', current_date)) SELECT MIN((close - peak) / peak) as max_drawdown FROM running_peak;</SQL>
`

var sqlTagPattern = regexp.MustCompile(`(?s)<SQL>(.*?)</SQL>`)

// buildSQLPrompt composes the generation prompt: catalog schema, few-shot
// examples, generation rules, and the user's question verbatim.
func buildSQLPrompt(question string) string {
	return fmt.Sprintf(`You are a SQL expert. Convert the natural language question to SQL for Athena against the stox.prices table.

Table schema:
- date DATE
- open DOUBLE, high DOUBLE, low DOUBLE, close DOUBLE
- volume BIGINT, adj_close DOUBLE
- PARTITIONED BY (ticker STRING, year INT, month INT, day INT)

%s
Question: %s

Rules:
1. Return ONLY the SQL query wrapped in <SQL>...</SQL> tags
2. Use only SELECT statements, no DDL/DML
3. Always filter by ticker when specific stock mentioned
4. Limit date ranges to reasonable defaults (last 90 days if not specified)
5. Use proper Athena SQL syntax
6. Add LIMIT 200 to prevent large result sets

SQL:`, fewShotExamples, question)
}

// extractSQL returns the first delimiter-wrapped statement in the
// completion, or a GenerationError when no delimited substring is present.
func extractSQL(completion string) (string, error) {
	m := sqlTagPattern.FindStringSubmatch(completion)
	if m == nil {
		return "", domain.ErrGeneration("no SQL found in response")
	}
	return strings.TrimSpace(m[1]), nil
}

// buildSummaryPrompt composes the second prompt: the original question plus
// column names, row count, and up to three sample rows as name=value pairs
// in original column order.
func buildSummaryPrompt(question string, result *domain.QueryResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Columns: %s\n", strings.Join(result.Columns, ", "))
	fmt.Fprintf(&b, "Rows returned: %d\n", len(result.Rows))
	b.WriteString("Sample data (first 3 rows):\n")
	for i, row := range result.Rows {
		if i == sampleRows {
			break
		}
		fmt.Fprintf(&b, "Row %d: %s\n", i+1, formatRow(result.Columns, row))
	}

	return fmt.Sprintf(`Summarize the following SQL query results in 2-3 sentences. If the data appears to be time series, suggest a chart mapping (x-axis, y-axis, series) in plain words.

Original question: %s

Query results:
%s
Provide a concise summary and chart suggestion if applicable:`, question, b.String())
}

// formatRow renders one row as name=value pairs, keeping column order.
// Engine nulls render as "null".
func formatRow(columns []string, row []*string) string {
	pairs := make([]string, 0, len(row))
	for i, v := range row {
		name := fmt.Sprintf("col%d", i)
		if i < len(columns) {
			name = columns[i]
		}
		if v == nil {
			pairs = append(pairs, name+"=null")
		} else {
			pairs = append(pairs, name+"="+*v)
		}
	}
	return strings.Join(pairs, ", ")
}
