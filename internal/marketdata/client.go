// Package marketdata is a thin client for the Alpha Vantage query API. It
// returns payloads in their upstream shape; normalisation happens in the
// pipeline package.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"

	"github.com/dvloznov/expense-ingest/internal/logger"
)

// Daily bar field names as they appear in TIME_SERIES_DAILY responses.
const (
	FieldOpen   = "1. open"
	FieldHigh   = "2. high"
	FieldLow    = "3. low"
	FieldClose  = "4. close"
	FieldVolume = "5. volume"
)

const (
	DefaultBaseURL = "https://www.alphavantage.co/query"
	DefaultTimeout = 10 * time.Second

	functionDaily = "TIME_SERIES_DAILY"

	pathDailySeries = `$["Time Series (Daily)"]`
	pathIndicator   = `$.data`
)

// DailyBar maps field names ("1. open", ...) to their textual values.
type DailyBar map[string]string

// DailySeries maps a calendar date ("2024-01-15") to that day's bar.
type DailySeries map[string]DailyBar

// IndicatorObservation is one entry of an economic indicator series.
type IndicatorObservation struct {
	Date  string
	Value string
	Unit  string
}

// IndicatorSeries is an economic indicator payload.
type IndicatorSeries struct {
	Name     string
	Interval string
	Unit     string
	Data     []IndicatorObservation
}

// Client fetches raw payloads from the API.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another endpoint, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// NewClient creates a Client authenticating with apiKey.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchDailySeries returns the compact daily price history for symbol.
func (c *Client) FetchDailySeries(ctx context.Context, symbol string) (DailySeries, error) {
	log := logger.FromContext(ctx)
	log.Info().Str("symbol", symbol).Msg("Fetching daily series")

	payload, err := c.get(ctx, url.Values{
		"function":   {functionDaily},
		"symbol":     {symbol},
		"outputsize": {"compact"},
	})
	if err != nil {
		return nil, fmt.Errorf("FetchDailySeries: %s: %w", symbol, err)
	}

	raw, err := jsonpath.Get(pathDailySeries, payload)
	if err != nil {
		return nil, fmt.Errorf("FetchDailySeries: %s: %w", symbol, ErrNoTimeSeries)
	}
	days, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("FetchDailySeries: %s: time series is %T: %w", symbol, raw, ErrNoTimeSeries)
	}

	series := make(DailySeries, len(days))
	for date, v := range days {
		fields, ok := v.(map[string]interface{})
		if !ok {
			log.Warn().Str("symbol", symbol).Str("date", date).Msg("Skipping malformed daily bar")
			continue
		}
		bar := make(DailyBar, len(fields))
		for k, fv := range fields {
			bar[k] = stringify(fv)
		}
		series[date] = bar
	}

	log.Info().Str("symbol", symbol).Int("days", len(series)).Msg("Fetched daily series")
	return series, nil
}

// FetchIndicator returns the series for an economic indicator function such
// as REAL_GDP or INFLATION. A payload without data yields an empty series.
func (c *Client) FetchIndicator(ctx context.Context, name string) (IndicatorSeries, error) {
	log := logger.FromContext(ctx)
	log.Info().Str("indicator", name).Msg("Fetching economic indicator")

	payload, err := c.get(ctx, url.Values{"function": {name}})
	if err != nil {
		return IndicatorSeries{}, fmt.Errorf("FetchIndicator: %s: %w", name, err)
	}

	series := IndicatorSeries{
		Name:     name,
		Interval: stringify(payload["interval"]),
		Unit:     stringify(payload["unit"]),
	}

	raw, err := jsonpath.Get(pathIndicator, payload)
	if err != nil {
		log.Warn().Str("indicator", name).Msg("Indicator payload has no data")
		return series, nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return IndicatorSeries{}, fmt.Errorf("FetchIndicator: %s: data is %T, want list", name, raw)
	}

	series.Data = make([]IndicatorObservation, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		series.Data = append(series.Data, IndicatorObservation{
			Date:  stringify(obj["date"]),
			Value: stringify(obj["value"]),
			Unit:  stringify(obj["unit"]),
		})
	}

	log.Info().Str("indicator", name).Int("observations", len(series.Data)).Msg("Fetched economic indicator")
	return series, nil
}

func (c *Client) get(ctx context.Context, params url.Values) (map[string]interface{}, error) {
	params.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http get %s%s: %s", req.URL.Host, req.URL.Path, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}

	if err := checkPayload(params.Get("function"), payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// checkPayload turns the API's in-band error objects into errors.
func checkPayload(function string, payload map[string]interface{}) error {
	if msg, ok := payload["Error Message"]; ok {
		return &APIError{Function: function, Message: stringify(msg)}
	}
	for _, key := range []string{"Note", "Information"} {
		if msg, ok := payload[key]; ok {
			return fmt.Errorf("%w: %s", ErrRateLimited, strings.TrimSpace(stringify(msg)))
		}
	}
	return nil
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
