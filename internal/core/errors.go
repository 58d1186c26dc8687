package core

import (
	"errors"

	"github.com/git-pkgs/blueprints/client"
)

// ErrNotFound is returned when a package or version is not found.
var ErrNotFound = client.ErrNotFound

// ErrNoMatchingVersion is returned when no published version satisfies a range.
var ErrNoMatchingVersion = errors.New("no matching version")

type (
	HTTPError      = client.HTTPError
	NotFoundError  = client.NotFoundError
	RateLimitError = client.RateLimitError
)

// IsHTTPNotFound reports whether err is a 404 response from the registry.
func IsHTTPNotFound(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.IsNotFound()
}
