package marketdata

import (
	"errors"
	"fmt"
)

var (
	// ErrRateLimited is returned when the API answers with a throttling note
	// instead of data.
	ErrRateLimited = errors.New("marketdata: API rate limit exceeded")
	// ErrNoTimeSeries is returned when a daily series response has no
	// "Time Series (Daily)" object.
	ErrNoTimeSeries = errors.New("marketdata: no time series data found in API response")
)

// APIError carries an "Error Message" payload returned by the API.
type APIError struct {
	Function string
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("marketdata: API error for %s: %s", e.Function, e.Message)
}
