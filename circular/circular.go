package circular

import "math/bits"

// NextExp2 returns the next power of 2 strictly greater than x.  (Useful when
// setting circular buffer size.)
func NextExp2(x int) int {
	log2 := 63 - bits.LeadingZeros64(uint64(x))
	return 2 << uint32(log2)
}

// CeilExp2 returns the smallest power of 2 which is >= x.  x must be
// positive.
func CeilExp2(x int) int {
	if x&(x-1) == 0 {
		return x
	}
	return NextExp2(x)
}

// Mod returns pos modulo size, where size is a power of 2.  Unlike the %
// operator, the result is never negative.
func Mod(pos, size int) int {
	return pos & (size - 1)
}
