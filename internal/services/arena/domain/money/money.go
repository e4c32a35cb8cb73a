// Package money holds stake arithmetic in integer base units.
package money

import (
	"math"
	"math/bits"
)

// MaxBps is 100% expressed in basis points.
const MaxBps = 10000

// MaxBalance is the largest balance an account may hold.
const MaxBalance = math.MaxInt64

// Fee returns floor(total * bps / 10000) using a 128-bit intermediate.
func Fee(total uint64, bps uint16) uint64 {
	if bps > MaxBps {
		bps = MaxBps
	}
	hi, lo := bits.Mul64(total, uint64(bps))
	quo, _ := bits.Div64(hi, lo, MaxBps)
	return quo
}

// Split divides total into the winner payout and the protocol fee.
// payout + fee == total always holds.
func Split(total uint64, bps uint16) (payout, fee uint64) {
	fee = Fee(total, bps)
	return total - fee, fee
}

// Add returns a+b and false when the sum exceeds MaxBalance.
func Add(a, b uint64) (uint64, bool) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 || sum > MaxBalance {
		return 0, false
	}
	return sum, true
}

// Escrow returns the total held by a vault for a pool, 2 × pool.
func Escrow(pool uint64) (uint64, bool) {
	return Add(pool, pool)
}
