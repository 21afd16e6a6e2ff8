package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stoxlake/internal/domain"
)

func TestHistory_ParsesDailyBars(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "aapl", r.URL.Query().Get("s"))
		_, _ = w.Write([]byte(
			"Date,Open,High,Low,Close,Volume\n" +
				"2024-01-12,98.0,99.5,97.0,99.0,900000\n" +
				"not-a-date,1,2,3,4,5\n" +
				"2024-01-15,100.0,105.0,99.0,103.0,1000000\n" +
				"2024-01-16,103.5\n"))
	}))
	t.Cleanup(srv.Close)

	c := NewStooqClient(srv.URL, nil)
	history, err := c.History(context.Background(), "AAPL")

	require.NoError(t, err)
	require.Len(t, history, 2, "malformed lines are skipped")
	assert.Equal(t, "2024-01-12", history[0].Date.Format(domain.DateLayout))
	assert.Equal(t, "99.0", history[0].Close.String())
	assert.True(t, history[1].AdjClose.Equal(history[1].Close), "stooq has no adjusted close")
	assert.Equal(t, int64(1000000), history[1].Volume)
}

func TestHistory_UnexpectedPayload(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("No data\n"))
	}))
	t.Cleanup(srv.Close)

	c := NewStooqClient(srv.URL, nil)
	_, err := c.History(context.Background(), "AAPL")

	var perr *domain.ProviderError
	require.ErrorAs(t, err, &perr)
}
