package math

import "math"

// UnitRoot returns exp(sign * 2πi * k / n) as (re, im).
//
// Quarter turns are returned exactly so generated kernels can recognise
// multiplications by ±1 and ±i and emit swizzles instead of products.
func UnitRoot(k, n int, sign float64) (float64, float64) {
	k %= n
	if k < 0 {
		k += n
	}

	if (4*k)%n == 0 {
		switch 4 * k / n {
		case 0:
			return 1, 0
		case 1:
			return 0, sign
		case 2:
			return -1, 0
		case 3:
			return 0, -sign
		}
	}

	angle := sign * TwoPi * float64(k) / float64(n)

	return math.Cos(angle), math.Sin(angle)
}
