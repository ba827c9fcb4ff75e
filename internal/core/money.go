// Package core holds the settlement ledger domain: money, calendar
// dates, platform entries, daily reports and their invariants.
//
// Amounts are whole Korean won held as int64. There is no fractional
// unit, so the only rounding in the system happens when a platform fee
// is derived from a fractional fee rate, and that rounding is always
// floor.
package core

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a non-negative amount of won.
type Money struct {
	Won int64
}

func (m Money) Validate() error {
	if m.Won < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns the sum of two amounts.
func (m Money) Add(o Money) Money {
	return Money{Won: m.Won + o.Won}
}

// Sub returns m minus o.
func (m Money) Sub(o Money) Money {
	return Money{Won: m.Won - o.Won}
}

// Fee computes floor(total × rate) exactly, without float drift.
//
// Fee rates arrive as decimal fractions (0.068 for 6.8%). Multiplying
// int64 won by a float64 rate and flooring can lose a won on amounts
// like 150000 × 0.068, so the multiplication goes through decimals.
func Fee(total Money, rate float64) Money {
	if rate == 0 || total.Won == 0 {
		return Money{}
	}
	fee := decimal.NewFromInt(total.Won).Mul(decimal.NewFromFloat(rate)).Floor()
	return Money{Won: fee.IntPart()}
}

// MarshalJSON encodes the amount as a bare JSON number, matching the
// stored payload shape.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(m.Won, 10)), nil
}

// UnmarshalJSON accepts integer amounts and, for tolerance with legacy
// payloads written by lenient producers, floats (floored).
func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		m.Won = 0
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		m.Won = i
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return ErrInvalidAmount
	}
	m.Won = int64(math.Floor(f))
	return nil
}
