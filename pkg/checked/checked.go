/*
Package checked implements uint64 arithmetic with overflow and underflow
checks. Balance mutations in the ledger must go through this package; a false
ok result maps to the arithmetic-overflow error code.
*/
package checked

import "math"

// Add returns a + b with an overflow check.
func Add(a, b uint64) (sum uint64, ok bool) {
	if a > math.MaxUint64-b {
		return 0, false
	}
	return a + b, true
}

// Sub returns a - b with an underflow check.
func Sub(a, b uint64) (diff uint64, ok bool) {
	if b > a {
		return 0, false
	}
	return a - b, true
}

// Mul returns a * b with an overflow check.
func Mul(a, b uint64) (product uint64, ok bool) {
	if a != 0 && b > math.MaxUint64/a {
		return 0, false
	}
	return a * b, true
}

// Div returns a / b with a zero-divisor check.
func Div(a, b uint64) (quotient uint64, ok bool) {
	if b == 0 {
		return 0, false
	}
	return a / b, true
}
