package store

import "errors"

// Sentinel kinds shared by every driver.
var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateEmployee = errors.New("employee id already exists")
	ErrDuplicatePhone    = errors.New("phone already registered")
	ErrClosed            = errors.New("store closed")
)
