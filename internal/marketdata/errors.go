package marketdata

import (
	"errors"
	"fmt"
)

// ErrEmptySymbol is returned for blank symbols
var ErrEmptySymbol = errors.New("symbol is empty")

// BothProvidersFailedError names the primary and secondary causes
type BothProvidersFailedError struct {
	Operation string
	Symbol    string
	Primary   error
	Secondary error
}

func (e *BothProvidersFailedError) Error() string {
	return fmt.Sprintf("%s %s: both providers failed: primary: %v; secondary: %v",
		e.Operation, e.Symbol, e.Primary, e.Secondary)
}

// Unwrap exposes both causes to errors.Is and errors.As
func (e *BothProvidersFailedError) Unwrap() []error {
	return []error{e.Primary, e.Secondary}
}
