package fft

// StockhamRadices lists the butterfly radices the Stockham generator can
// emit, in the order Factorize tries them.
var StockhamRadices = []int{16, 8, 4, 2, 3, 5, 7, 11, 13}

// Factorize splits n into a product of the given radices, greedily taking
// the earliest radix that still divides the remainder.
// It reports false if some factor of n is not covered by radices.
func Factorize(n int, radices []int) ([]int, bool) {
	if n < 2 {
		return nil, false
	}

	var factors []int

	rem := n
	for _, r := range radices {
		if r < 2 {
			continue
		}

		for rem%r == 0 {
			factors = append(factors, r)
			rem /= r
		}
	}

	if rem != 1 {
		return nil, false
	}

	return factors, true
}

// LargestFactor returns the biggest entry of factors, or 1 when empty.
func LargestFactor(factors []int) int {
	largest := 1
	for _, f := range factors {
		if f > largest {
			largest = f
		}
	}

	return largest
}
