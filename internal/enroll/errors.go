package enroll

import "errors"

var (
	// ErrSessionActive indicates another enrollment session is running.
	ErrSessionActive = errors.New("enrollment session already active")
	// ErrNoSession indicates no enrollment session is running.
	ErrNoSession = errors.New("no enrollment session")
	// ErrEmptyName rejects enrollment under a blank name.
	ErrEmptyName = errors.New("enrollment name is empty")
	// ErrBadEncoding rejects a sample whose encoding has the wrong length.
	ErrBadEncoding = errors.New("encoding has wrong length")
)
