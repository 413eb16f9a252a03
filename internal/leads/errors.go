package leads

import "errors"

var (
	// ErrMissingName is returned when the name is absent after sanitization
	ErrMissingName = errors.New("name is required")

	// ErrMissingContact is returned when both phone and instagram are missing
	ErrMissingContact = errors.New("either phone or instagram is required")

	// ErrInvalidStatus is returned when a patch carries an unknown status value
	ErrInvalidStatus = errors.New("invalid status")

	// ErrNotFound is returned when a lead is not found
	ErrNotFound = errors.New("lead not found")
)
