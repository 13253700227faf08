package authenticator

import (
	"errors"
	"fmt"
)

var (
	ErrExchangeFailed    = errors.New("token exchange failed")
	ErrMalformedResponse = errors.New("malformed provider response")
	ErrUnauthenticated   = errors.New("provider rejected the token")
)

// ExchangeError is returned when the token endpoint answers with a non-2xx
// status.
type ExchangeError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("%s: token exchange failed with status %d: %s", e.Provider, e.StatusCode, e.Body)
}

func (e *ExchangeError) Is(target error) bool {
	return target == ErrExchangeFailed
}
