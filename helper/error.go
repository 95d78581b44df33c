package helper

import "fmt"

// NewError wraps an error with the operation that failed.
// The wrapped error stays available for errors.Is/errors.As.
func NewError(operation string, err error) error {
	return fmt.Errorf("%v error: %w", operation, err)
}
