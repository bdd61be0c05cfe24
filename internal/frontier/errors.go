package frontier

import "errors"

var (
	// ErrMalformedURL is returned by Normalize for unparsable input.
	ErrMalformedURL = errors.New("malformed URL")

	// ErrNoHost is returned by Normalize for URLs without a host.
	ErrNoHost = errors.New("URL has no host")
)
