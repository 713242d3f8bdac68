package usecase

import "errors"

// ErrEmptySector is returned when the sector path segment is empty.
var ErrEmptySector = errors.New("sector is required")
