package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	ErrNotFound        = errors.New("resource not found")
	ErrDatasetNotFound = fmt.Errorf("%w: dataset", ErrNotFound)
	ErrChartNotFound   = fmt.Errorf("%w: chart", ErrNotFound)

	ErrNoDataset     = errors.New("no dataset uploaded")
	ErrUnknownAction = errors.New("unknown cleaning action")
	ErrEmptyQuestion = errors.New("question cannot be empty")
)

// NewNotFoundError wraps ErrNotFound with the resource and id
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// IsNotFoundError reports whether err is any not-found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
