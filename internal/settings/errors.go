package settings

import "errors"

var (
	// ErrEmptySite is returned when no site identifier is supplied.
	ErrEmptySite = errors.New("site identifier must not be empty")
	// ErrInvalidSite is returned when a site identifier is not a plain directory name.
	ErrInvalidSite = errors.New("site identifier must be a single directory name")
	// ErrMalformedFragment is returned when a fragment document cannot be parsed.
	ErrMalformedFragment = errors.New("malformed settings fragment")
)
