package debounce

import "github.com/pkg/errors"

// ErrInvalidOperand is returned when the wrapped operation is missing.
var ErrInvalidOperand = errors.New("debounce: invalid operand")
