package math

import (
	"math"
	"testing"
)

func TestIntegerHelpers(t *testing.T) {
	t.Parallel()

	if got := RoundUp(1000, 64); got != 1024 {
		t.Fatalf("RoundUp(1000, 64) = %d, want 1024", got)
	}

	if got := CeilDiv(17, 16); got != 2 {
		t.Fatalf("CeilDiv(17, 16) = %d, want 2", got)
	}

	if got := Product(); got != 1 {
		t.Fatalf("Product() = %d, want 1", got)
	}

	if got := Product(4, 8, 2); got != 64 {
		t.Fatalf("Product(4, 8, 2) = %d, want 64", got)
	}
}

func TestUnitRoot(t *testing.T) {
	t.Parallel()

	re, im := UnitRoot(1, 4, -1)
	if re != 0 || im != -1 {
		t.Fatalf("UnitRoot(1, 4, -1) = (%v, %v), want (0, -1)", re, im)
	}

	re, im = UnitRoot(3, 4, 1)
	if re != 0 || im != -1 {
		t.Fatalf("UnitRoot(3, 4, 1) = (%v, %v), want (0, -1)", re, im)
	}

	re, im = UnitRoot(-1, 8, 1)
	want := math.Sqrt2 / 2
	if math.Abs(re-want) > 1e-15 || math.Abs(im+want) > 1e-15 {
		t.Fatalf("UnitRoot(-1, 8, 1) = (%v, %v)", re, im)
	}
}
