package math

// CeilDiv returns ceil(a/b) for a >= 0, b > 0.
func CeilDiv(a, b int) int {
	return (a + b - 1) / b
}

// RoundUp rounds n up to the next multiple of m (m > 0).
func RoundUp(n, m int) int {
	return CeilDiv(n, m) * m
}

// Product multiplies all values; the empty product is 1.
func Product(values ...int) int {
	p := 1
	for _, v := range values {
		p *= v
	}

	return p
}
