package eodhd

import (
	"errors"
	"fmt"
)

// TokenPlaceholder replaces the api_token value in every URL that leaves the client.
const TokenPlaceholder = "YOUR_HIDDEN_API"

var (
	// ErrInvalidDateRange is returned before any request when a date bound cannot be
	// parsed or the start falls after the end.
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrInvalidRequest is returned when symbol or exchange is missing.
	ErrInvalidRequest = errors.New("invalid request")
)

// RemoteDataError is returned for non-200 provider responses.
// URL always carries TokenPlaceholder instead of the real token.
type RemoteDataError struct {
	StatusCode int
	Reason     string
	URL        string
}

func (e *RemoteDataError) Error() string {
	return fmt.Sprintf("EODHD remote data error: %d %s (url: %s)", e.StatusCode, e.Reason, e.URL)
}
