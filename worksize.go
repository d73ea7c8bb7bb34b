package fftgen

import "fmt"

// maxLocalSize caps work-group sizes regardless of what the device reports.
const maxLocalSize = 256

// WorkSizes is the launch geometry of an action: global and local sizes per
// dimension, OpenCL NDRange style.
type WorkSizes struct {
	Global []int
	Local  []int
}

// LocalSize returns the number of work-items in one work-group.
func (w WorkSizes) LocalSize() int {
	n := 1
	for _, l := range w.Local {
		n *= l
	}
	return n
}

// Groups returns the number of work-groups per dimension.
func (w WorkSizes) Groups() []int {
	groups := make([]int, len(w.Global))
	for d := range w.Global {
		if d < len(w.Local) && w.Local[d] > 0 {
			groups[d] = w.Global[d] / w.Local[d]
		}
	}
	return groups
}

// Validate checks that every global size is a positive multiple of its
// local size and that a work-group holds at most maxLocal work-items.
func (w WorkSizes) Validate(maxLocal int) error {
	if len(w.Global) == 0 || len(w.Global) != len(w.Local) || len(w.Global) > 3 {
		return fmt.Errorf("work sizes have %d global and %d local dimensions", len(w.Global), len(w.Local))
	}

	for d := range w.Global {
		if w.Local[d] < 1 || w.Global[d] < 1 {
			return fmt.Errorf("dimension %d has global %d, local %d", d, w.Global[d], w.Local[d])
		}
		if uint64(w.Global[d]) > maxIndex {
			return fmt.Errorf("dimension %d: global %d exceeds the u32 index range", d, w.Global[d])
		}
		if w.Global[d]%w.Local[d] != 0 {
			return fmt.Errorf("dimension %d: global %d is not a multiple of local %d", d, w.Global[d], w.Local[d])
		}
	}

	if n := w.LocalSize(); n > maxLocal {
		return fmt.Errorf("work-group of %d items exceeds %d", n, maxLocal)
	}

	return nil
}

// localLimit is the largest work-group a generator may use on dev.
func localLimit(maxWorkGroup int) int {
	if maxWorkGroup <= 0 || maxWorkGroup > maxLocalSize {
		return maxLocalSize
	}
	return maxWorkGroup
}
