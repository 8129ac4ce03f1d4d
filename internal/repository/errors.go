package repository

import (
	"errors"
	"fmt"

	"sensorgrid/pkg/database"
)

// StorageError reports a failed statement, transaction or query against the
// readings table. Pool errors (configuration, exhaustion) are passed through
// unwrapped so callers can tell them apart.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func wrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, database.ErrPoolExhausted) || errors.Is(err, database.ErrConfiguration) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
