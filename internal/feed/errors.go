package feed

import "fmt"

// Failure codes for FetchError. Parse failures are non-retryable until the
// next scheduled cycle; everything transport-shaped is retryable.
const (
	CodeHTTP    = "http"
	CodeTimeout = "timeout"
	CodeNetwork = "network"
	CodeParse   = "parse"
	CodeBreaker = "breaker_open"
)

// FetchError is the typed failure returned by every feed adapter. Retryable
// reflects the HTTP taxonomy: 429 and 5xx are retryable, other 4xx are not,
// timeouts and transport errors are.
type FetchError struct {
	Code      string
	Status    int // HTTP status when Code is CodeHTTP, else 0
	Retryable bool
	Err       error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("feed fetch %s (status %d): %v", e.Code, e.Status, e.Err)
	}
	return fmt.Sprintf("feed fetch %s: %v", e.Code, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// httpError builds a FetchError from a non-2xx response status.
func httpError(status int, err error) *FetchError {
	return &FetchError{
		Code:      CodeHTTP,
		Status:    status,
		Retryable: status == 429 || status >= 500,
		Err:       err,
	}
}

// parseError marks a malformed payload. Not retryable: the same payload would
// fail again, so the adapter waits for the next scheduled cycle.
func parseError(err error) *FetchError {
	return &FetchError{Code: CodeParse, Err: err}
}
