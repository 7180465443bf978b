package pricing

import (
	"errors"
	"fmt"
)

// ConfigurationError reports a malformed catalog or pricing setup. It is a
// programmer error and should stop the process at startup.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "pricing configuration: " + e.Reason
}

func configErrorf(format string, args ...any) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// InvalidLineItemError reports a caller contract violation on one line item.
// Index is -1 when the item was priced on its own.
type InvalidLineItemError struct {
	Index  int
	Field  string
	Reason string
}

func (e *InvalidLineItemError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid line item: %s %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid line item %d: %s %s", e.Index, e.Field, e.Reason)
}

func invalidItem(field, reason string) error {
	return &InvalidLineItemError{Index: -1, Field: field, Reason: reason}
}

// withIndex annotates item errors with their position in the order.
func withIndex(err error, index int) error {
	var itemErr *InvalidLineItemError
	if errors.As(err, &itemErr) {
		annotated := *itemErr
		annotated.Index = index
		return &annotated
	}
	return err
}

// IsInvalidLineItem reports whether err carries an InvalidLineItemError.
func IsInvalidLineItem(err error) bool {
	var target *InvalidLineItemError
	return errors.As(err, &target)
}

// IsConfiguration reports whether err carries a ConfigurationError.
func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}
