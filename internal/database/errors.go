package database

import "errors"

var (
	// ErrInvalidDatabaseURL indicates the database URL could not be parsed.
	ErrInvalidDatabaseURL = errors.New("invalid database URL")

	// ErrConnectionFailed indicates the database could not be reached.
	ErrConnectionFailed = errors.New("database connection failed")

	// ErrLockNotAcquired indicates another process holds the migration lock.
	ErrLockNotAcquired = errors.New("migration lock not acquired")
)
