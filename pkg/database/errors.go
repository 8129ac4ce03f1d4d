package database

import "errors"

var (
	// ErrConfiguration is returned when no working pool can be built:
	// the connection string is missing or invalid, or the store is unreachable.
	ErrConfiguration = errors.New("database configuration error")

	// ErrPoolExhausted is returned when no connection became available
	// within the configured connect timeout.
	ErrPoolExhausted = errors.New("database connection pool exhausted")
)
