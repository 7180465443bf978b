// Package present formats pricing results for the checkout API and the
// confirmation email. It never computes prices.
package present

import (
	"fmt"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/noah-isme/banner-pricing/internal/pricing"
)

// Formatter renders integer cents as display strings.
type Formatter struct {
	code    string
	symbol  string
	printer *message.Printer
}

// NewFormatter validates the ISO currency code and locale. Only currencies
// with two minor digits are accepted since amounts are stored in cents.
func NewFormatter(code, symbol, locale string) (*Formatter, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, fmt.Errorf("currency code %q: %w", code, err)
	}
	if scale, _ := currency.Standard.Rounding(unit); scale != 2 {
		return nil, fmt.Errorf("currency %s has %d minor digits, cents require 2", unit, scale)
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("locale %q: %w", locale, err)
	}
	if symbol == "" {
		symbol = unit.String() + " "
	}
	return &Formatter{code: unit.String(), symbol: symbol, printer: message.NewPrinter(tag)}, nil
}

// MustFormatter panics when NewFormatter fails.
func MustFormatter(code, symbol, locale string) *Formatter {
	f, err := NewFormatter(code, symbol, locale)
	if err != nil {
		panic(err)
	}
	return f
}

// Code returns the ISO 4217 code.
func (f *Formatter) Code() string { return f.code }

// Money formats m as e.g. "$1,234.56" using integer arithmetic only.
func (f *Formatter) Money(m pricing.Money) string {
	sign := ""
	if m < 0 {
		sign = "-"
		m = -m
	}
	whole := int64(m) / 100
	cents := int64(m) % 100
	return fmt.Sprintf("%s%s%s.%02d", sign, f.symbol, f.printer.Sprintf("%d", whole), cents)
}
