package providers

import (
	"errors"
	"fmt"
)

// ErrToolArgsIncomplete reports that the stream finished while a tool call's
// arguments were still not valid JSON. The turn cannot be continued safely.
var ErrToolArgsIncomplete = errors.New("tool call arguments incomplete")

// HTTPError is returned for non-200 responses from the provider endpoint.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("provider returned HTTP %d: %s", e.Status, e.Body)
}

// IsUnavailable reports whether err looks like the provider endpoint being
// down or broken (connection failure or 5xx), as opposed to a bad request.
func IsUnavailable(err error) bool {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Status >= 500
	}
	// non-HTTP errors are transport failures (refused, reset, DNS)
	return err != nil
}
