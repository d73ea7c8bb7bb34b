package fftgen

import (
	"fmt"
	"math"

	mathpkg "github.com/cwbudde/fftgen/internal/math"
)

// Plan is one resolved step of an FFT plan: a single copy, transform or
// transpose over fixed geometry. Kernel generation reads it and never
// modifies it.
type Plan struct {
	// Handle and Callback belong to the caller. They never influence the
	// generated kernels.
	Handle   uint64
	Callback any

	Operation Operation

	// Lengths are the transform lengths, fastest-varying dimension first.
	Lengths []int

	// Strides and distances are in elements. Nil strides and zero distances
	// mean contiguous storage.
	InStrides   []int
	OutStrides  []int
	InDistance  int
	OutDistance int

	InputLayout  Layout
	OutputLayout Layout
	Precision    Precision
	Placement    Placement

	// BatchSize is the number of transforms per launch; 0 means 1.
	BatchSize int

	// ForwardScale and BackwardScale multiply the results; 0 selects the
	// defaults 1 and 1/N.
	ForwardScale  float64
	BackwardScale float64

	// TransposeTwiddles makes a transpose also multiply element (r, c) by
	// exp(∓2πi·r·c/(rows·cols)), as needed between the passes of a
	// large one-dimensional transform.
	TransposeTwiddles bool
}

func (p *Plan) batch() int {
	if p.BatchSize <= 0 {
		return 1
	}
	return p.BatchSize
}

func (p *Plan) inPlace() bool {
	return p.Placement == PlacementInPlace
}

// Addressing is the normalized storage description of one side of a
// transform. Unused dimensions hold zero.
type Addressing struct {
	Layout   Layout
	Strides  [MaxDimensions]int
	Distance int
}

// geometry is the normalized shape shared by both sides of a plan.
type geometry struct {
	dims    int
	lengths [MaxDimensions]int
	in, out Addressing
}

// maxIndex is the largest element offset or counter a generated kernel can
// hold; kernels index buffers with u32.
const maxIndex = math.MaxUint32

func checkLengths(lengths []int) error {
	if len(lengths) == 0 || len(lengths) > MaxDimensions {
		return fmt.Errorf("plan has %d dimensions, want 1..%d", len(lengths), MaxDimensions)
	}

	total := uint64(1)
	for d, n := range lengths {
		if n < 1 {
			return fmt.Errorf("length %d of dimension %d is not positive", n, d)
		}
		if uint64(n) > maxIndex {
			return fmt.Errorf("length %d of dimension %d exceeds the u32 index range", n, d)
		}
		total *= uint64(n)
		if total > maxIndex {
			return fmt.Errorf("lengths %v hold more elements than a u32 index can address", lengths)
		}
	}
	return nil
}

// lastOffset returns the offset of the furthest element that batch
// transforms over phys touch through a. ok is false once the offset leaves
// the u32 index range.
func lastOffset(a Addressing, phys []int, batch int) (last uint64, ok bool) {
	add := func(count, step int) bool {
		if count <= 0 {
			return true
		}
		c, s := uint64(count), uint64(step)
		if s != 0 && c > (maxIndex-last)/s {
			return false
		}
		last += c * s
		return true
	}

	for d, n := range phys {
		if !add(n-1, a.Strides[d]) {
			return 0, false
		}
	}
	if !add(batch-1, a.Distance) {
		return 0, false
	}

	return last, true
}

// checkBatch verifies that batch transforms through a stay addressable.
func checkBatch(a Addressing, phys []int, batch int) error {
	if _, ok := lastOffset(a, phys, batch); !ok {
		return fmt.Errorf("%d transforms with distance %d address past the u32 index range", batch, a.Distance)
	}
	return nil
}

// physicalLengths returns the element counts stored along each dimension.
// Hermitian storage keeps only N/2+1 elements of the first dimension.
func physicalLengths(lengths []int, layout Layout) []int {
	phys := append([]int(nil), lengths...)
	if layout.Hermitian() {
		phys[0] = phys[0]/2 + 1
	}
	return phys
}

// resolveAddressing fills in contiguous strides and distance where the plan
// leaves them unset. Every stride, the distance and the extent of one
// transform must fit the u32 index range.
func resolveAddressing(layout Layout, phys, strides []int, distance int) (Addressing, error) {
	a := Addressing{Layout: layout}

	if strides == nil {
		s := 1
		for d, n := range phys {
			a.Strides[d] = s
			s *= n
		}
	} else {
		if len(strides) != len(phys) {
			return a, fmt.Errorf("%d strides for %d dimensions", len(strides), len(phys))
		}
		for d, s := range strides {
			if s < 1 {
				return a, fmt.Errorf("stride %d of dimension %d is not positive", s, d)
			}
			if uint64(s) > maxIndex {
				return a, fmt.Errorf("stride %d of dimension %d exceeds the u32 index range", s, d)
			}
			a.Strides[d] = s
		}
	}

	if _, ok := lastOffset(a, phys, 1); !ok {
		return a, fmt.Errorf("strides %v over %v address past the u32 index range", a.Strides[:len(phys)], phys)
	}

	switch {
	case distance < 0:
		return a, fmt.Errorf("negative batch distance %d", distance)
	case distance == 0:
		d := len(phys) - 1
		next := uint64(a.Strides[d]) * uint64(phys[d])
		if next > maxIndex {
			return a, fmt.Errorf("contiguous batch distance exceeds the u32 index range")
		}
		a.Distance = int(next)
	case uint64(distance) > maxIndex:
		return a, fmt.Errorf("batch distance %d exceeds the u32 index range", distance)
	default:
		a.Distance = distance
	}

	return a, nil
}

// resolveGeometry normalizes the addressing of both sides. Dimensions of
// length one beyond the first are dropped with their strides, so plans
// that differ only in such dimensions share kernels.
func resolveGeometry(p *Plan) (geometry, error) {
	var g geometry

	if err := checkLengths(p.Lengths); err != nil {
		return g, err
	}

	in, err := resolveAddressing(p.InputLayout, physicalLengths(p.Lengths, p.InputLayout), p.InStrides, p.InDistance)
	if err != nil {
		return g, fmt.Errorf("input: %w", err)
	}

	out, err := resolveAddressing(p.OutputLayout, physicalLengths(p.Lengths, p.OutputLayout), p.OutStrides, p.OutDistance)
	if err != nil {
		return g, fmt.Errorf("output: %w", err)
	}

	if err := checkBatch(in, physicalLengths(p.Lengths, p.InputLayout), p.batch()); err != nil {
		return g, fmt.Errorf("input: %w", err)
	}
	if err := checkBatch(out, physicalLengths(p.Lengths, p.OutputLayout), p.batch()); err != nil {
		return g, fmt.Errorf("output: %w", err)
	}

	if b := uint64(p.batch()); b > maxIndex || b*uint64(mathpkg.Product(p.Lengths[1:]...)) > maxIndex {
		return g, fmt.Errorf("batch of %d transforms exceeds the u32 index range", b)
	}

	g.in.Layout, g.in.Distance = in.Layout, in.Distance
	g.out.Layout, g.out.Distance = out.Layout, out.Distance

	for d, n := range p.Lengths {
		if d > 0 && n == 1 {
			continue
		}
		g.lengths[g.dims] = n
		g.in.Strides[g.dims] = in.Strides[d]
		g.out.Strides[g.dims] = out.Strides[d]
		g.dims++
	}

	return g, nil
}

// resolveScales applies the default scale factors. n is the length the
// backward transform divides by.
func resolveScales(p *Plan, n int) (float64, float64, error) {
	fwd, bwd := p.ForwardScale, p.BackwardScale
	if fwd == 0 {
		fwd = 1
	}
	if bwd == 0 {
		bwd = 1 / float64(n)
	}
	if math.IsNaN(fwd) || math.IsInf(fwd, 0) || math.IsNaN(bwd) || math.IsInf(bwd, 0) {
		return 0, 0, fmt.Errorf("scale factors %v/%v are not finite", p.ForwardScale, p.BackwardScale)
	}
	return fwd, bwd, nil
}
