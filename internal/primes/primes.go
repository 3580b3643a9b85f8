// Package primes generates the prime numbers that back symbol encoding.
package primes

// FirstN returns the first n primes in ascending order.
//
// Candidates are tested by trial division against every integer in
// [2, candidate). No sieve and no skipping of even numbers: alphabets are
// small (tens of symbols) so the quadratic cost never matters.
//
// FirstN(0) and negative n return an empty, non-nil slice.
func FirstN(n int) []int64 {
	if n <= 0 {
		return []int64{}
	}

	out := make([]int64, 0, n)
	for candidate := int64(2); len(out) < n; candidate++ {
		if isPrime(candidate) {
			out = append(out, candidate)
		}
	}
	return out
}

func isPrime(candidate int64) bool {
	for d := int64(2); d < candidate; d++ {
		if candidate%d == 0 {
			return false
		}
	}
	return true
}
