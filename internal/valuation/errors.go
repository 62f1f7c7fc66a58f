package valuation

import (
	"errors"
	"fmt"
)

// ErrDegenerateMath marks a calculation whose inputs make the formula
// undefined or economically meaningless (zero denominators, WACC at or below
// the perpetual growth rate).
var ErrDegenerateMath = errors.New("degenerate math")

func degenerate(op, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", op, ErrDegenerateMath, fmt.Sprintf(format, args...))
}
