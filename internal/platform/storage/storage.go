package storage

import "errors"

var (
	// ErrNotFound is the repo-level sentinel for missing rows.
	ErrNotFound = errors.New("record not found")
	// ErrStaleVersion signals an optimistic-lock conflict: the row was
	// modified between read and write.
	ErrStaleVersion = errors.New("stale version")
	// ErrDuplicate signals a unique-constraint violation on insert, the
	// losing side of a check-then-insert race.
	ErrDuplicate = errors.New("duplicate key")
)
