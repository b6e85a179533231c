package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	MinUnit     = decimal.NewFromInt(1)
	MaxUnit     = decimal.NewFromInt(100000)
	DefaultUnit = Unit{value: MinUnit}
)

// Unit is a held quantity. It marshals to a bare JSON number.
type Unit struct {
	value decimal.Decimal
}

// NewUnit wraps d without bounds checking; use ClampUnit for user input.
func NewUnit(d decimal.Decimal) Unit { return Unit{value: d} }

// U is a shorthand for tests and literals.
func U(v int64) Unit { return Unit{value: decimal.NewFromInt(v)} }

// ClampUnit forces d into [MinUnit, MaxUnit].
func ClampUnit(d decimal.Decimal) Unit {
	if d.LessThan(MinUnit) {
		return Unit{value: MinUnit}
	}
	if d.GreaterThan(MaxUnit) {
		return Unit{value: MaxUnit}
	}
	return Unit{value: d}
}

// ParseUnit reads a unit from user input. Empty or non-numeric input yields
// DefaultUnit, numeric input is clamped.
func ParseUnit(s string) Unit {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultUnit
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return DefaultUnit
	}
	return ClampUnit(d)
}

func (u Unit) Decimal() decimal.Decimal { return u.value }
func (u Unit) Equal(o Unit) bool        { return u.value.Equal(o.value) }
func (u Unit) String() string           { return u.value.String() }
func (u Unit) InRange() bool {
	return !u.value.LessThan(MinUnit) && !u.value.GreaterThan(MaxUnit)
}

func (u Unit) MarshalJSON() ([]byte, error) {
	return []byte(u.value.String()), nil
}

func (u *Unit) UnmarshalJSON(b []byte) error {
	return u.value.UnmarshalJSON(b)
}
