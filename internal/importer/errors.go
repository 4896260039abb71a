package importer

import (
	"errors"
	"fmt"
)

// Import errors. Simple conditions are sentinels checked with
// errors.Is(); fetch failures carry the URL and status code and are
// matched with errors.As().
var (
	// ErrUnsupportedScheme is returned for URLs that are not plain
	// http or https, including unparseable ones.
	ErrUnsupportedScheme = errors.New("importer: unsupported URL scheme")

	// ErrResponseTooLarge is returned when the fetched document
	// exceeds the configured size cap.
	ErrResponseTooLarge = errors.New("importer: response too large")
)

// FetchError reports a failed document fetch. StatusCode is zero when
// the request never produced an HTTP response (transport error,
// exhausted retries, cancelled context).
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("importer: fetching %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("importer: fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
