package app

import (
	"errors"
	"fmt"
)

var (
	ErrForbidden         = errors.New("not allowed")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnknownCursorType = errors.New("unknown cursor type")
	ErrBarcodeTaken      = errors.New("a product with this barcode already exists or is awaiting review")
)

func invalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
