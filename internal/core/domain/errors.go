package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateInvoice     = errors.New("duplicate invoice")
	ErrClassificationFailed = errors.New("classification failed")
	ErrIndexWriteFailed     = errors.New("index write failed")
	ErrUploadNotFound       = errors.New("upload not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrTemporary            = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
