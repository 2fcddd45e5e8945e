// Package money provides the canonical fixed-point rounding used by every
// balance-affecting computation, plus loose numeric coercion for untrusted
// import values.
package money

import (
	"math"
	"strconv"
	"strings"
)

// Epsilon is the tolerance under which a balance counts as zero (friend
// removal, settle guard).
const Epsilon = 0.0001

// RoundToCents rounds x to hundredths of a unit with ties rounding toward
// positive infinity, for negative values too: -1.995 rounds to -1.99, not
// -2.00. Downstream invariants (participants sum == total) were written
// against this exact rule, so it must not be swapped for half-to-even.
// Negative zero normalizes to 0; non-finite inputs map to 0.
func RoundToCents(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	r := math.Floor(x*100+0.5) / 100
	if r == 0 {
		return 0 // collapse -0
	}
	return r
}

// Coerce converts an arbitrary decoded-JSON value to a float64, mirroring
// loose numeric coercion: numbers pass through, numeric strings parse,
// everything else (and non-finite results) maps to 0.
func Coerce(v any) float64 {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		return n
	case float32:
		return Coerce(float64(n))
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return f
	case bool:
		if n {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// IsZero reports whether a balance is zero within Epsilon.
func IsZero(x float64) bool {
	return math.Abs(x) < Epsilon
}
