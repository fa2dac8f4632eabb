package marketdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dailyPayload = `{
  "Meta Data": {"2. Symbol": "IBM"},
  "Time Series (Daily)": {
    "2024-01-16": {"1. open": "162.8300", "2. high": "166.0000", "3. low": "162.5900", "4. close": "165.8000", "5. volume": "4939487"},
    "2024-01-12": {"1. open": "162.9700", "2. high": "163.6000", "3. low": "161.3200", "4. close": "162.1600", "5. volume": "3274567"}
  }
}`

const indicatorPayload = `{
  "name": "Inflation - US Consumer Prices",
  "interval": "annual",
  "unit": "percent",
  "data": [
    {"date": "2023-01-01", "value": "4.11633838374488"},
    {"date": "2022-01-01", "value": "8.00279982052121"}
  ]
}`

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(srv.Close)
	return NewClient("test-key", WithBaseURL(srv.URL))
}

func TestFetchDailySeries(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "TIME_SERIES_DAILY", q.Get("function"))
		assert.Equal(t, "IBM", q.Get("symbol"))
		assert.Equal(t, "compact", q.Get("outputsize"))
		assert.Equal(t, "test-key", q.Get("apikey"))
		w.Write([]byte(dailyPayload))
	})

	series, err := client.FetchDailySeries(context.Background(), "IBM")
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, "165.8000", series["2024-01-16"][FieldClose])
	assert.Equal(t, "3274567", series["2024-01-12"][FieldVolume])
}

func TestFetchDailySeries_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "error message",
			status: http.StatusOK,
			body:   `{"Error Message": "Invalid API call."}`,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, "Invalid API call.", apiErr.Message)
				assert.Equal(t, "TIME_SERIES_DAILY", apiErr.Function)
			},
		},
		{
			name:   "rate limit note",
			status: http.StatusOK,
			body:   `{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrRateLimited)
			},
		},
		{
			name:   "information",
			status: http.StatusOK,
			body:   `{"Information": "The demo API key is for demo purposes only."}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrRateLimited)
			},
		},
		{
			name:   "missing series",
			status: http.StatusOK,
			body:   `{"Meta Data": {}}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrNoTimeSeries)
			},
		},
		{
			name:   "http status",
			status: http.StatusBadGateway,
			body:   `bad gateway`,
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "502")
			},
		},
		{
			name:   "not json",
			status: http.StatusOK,
			body:   `<html>`,
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "decode body")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := client.FetchDailySeries(context.Background(), "IBM")
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestFetchIndicator(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "INFLATION", r.URL.Query().Get("function"))
		w.Write([]byte(indicatorPayload))
	})

	series, err := client.FetchIndicator(context.Background(), "INFLATION")
	require.NoError(t, err)
	assert.Equal(t, "INFLATION", series.Name)
	assert.Equal(t, "annual", series.Interval)
	assert.Equal(t, "percent", series.Unit)
	require.Len(t, series.Data, 2)
	assert.Equal(t, IndicatorObservation{Date: "2023-01-01", Value: "4.11633838374488"}, series.Data[0])
}

func TestFetchIndicator_NoData(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name": "Unemployment Rate"}`))
	})

	series, err := client.FetchIndicator(context.Background(), "UNEMPLOYMENT")
	require.NoError(t, err)
	assert.Empty(t, series.Data)
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "", stringify(nil))
	assert.Equal(t, "abc", stringify("abc"))
	assert.Equal(t, "4939487", stringify(float64(4939487)))
	assert.Equal(t, "1.5", stringify(1.5))
}
