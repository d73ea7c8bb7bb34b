// Package codegen holds the small text-emission helpers shared by the kernel
// generators. Kernels are built line by line; indentation is tracked by the
// writer so generators only describe structure.
package codegen

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const indentUnit = "    "

// Writer accumulates kernel source.
type Writer struct {
	sb    strings.Builder
	depth int
}

// Line writes one line at the current depth. An empty string writes a blank line.
func (w *Writer) Line(s string) {
	if s != "" {
		for i := 0; i < w.depth; i++ {
			w.sb.WriteString(indentUnit)
		}

		w.sb.WriteString(s)
	}

	w.sb.WriteByte('\n')
}

// Linef is Line with fmt formatting.
func (w *Writer) Linef(format string, args ...any) {
	w.Line(fmt.Sprintf(format, args...))
}

// Open writes a line ending in '{' and indents what follows.
func (w *Writer) Open(format string, args ...any) {
	w.Line(fmt.Sprintf(format, args...) + " {")
	w.depth++
}

// Close dedents and writes the matching '}'.
func (w *Writer) Close() {
	if w.depth > 0 {
		w.depth--
	}

	w.Line("}")
}

// Else closes the current block and opens an else branch at the same depth.
func (w *Writer) Else() {
	w.Close()
	w.Line("else {")
	w.depth++
}

// Blank writes an empty line.
func (w *Writer) Blank() {
	w.Line("")
}

// Depth reports the current nesting depth. Generators use it to detect
// unbalanced Open/Close pairs.
func (w *Writer) Depth() int {
	return w.depth
}

// String returns the accumulated source.
func (w *Writer) String() string {
	return w.sb.String()
}

// Uint formats a WGSL u32 literal.
func Uint(v int) string {
	return strconv.Itoa(v) + "u"
}

// Float formats a float literal that WGSL parses as a floating-point value
// with enough digits to round-trip a float64.
func Float(v float64) (string, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "", fmt.Errorf("codegen: non-finite literal %v", v)
	}

	if v == 0 {
		// Normalise -0 as well.
		return "0.0", nil
	}

	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}

	return s, nil
}
