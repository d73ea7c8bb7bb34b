package fftgen

import (
	"errors"

	"github.com/cwbudde/fftgen/internal/codegen"
	mathpkg "github.com/cwbudde/fftgen/internal/math"
)

// kernelIO describes the storage buffers a kernel binds.
type kernelIO struct {
	src, dst Layout
	// inPlace binds a single read-write buffer laid out as src.
	inPlace bool
	scalar  string
}

// literals formats float literals and keeps the first failure, so emitters
// can check once at the end.
type literals struct {
	err error
}

func (l *literals) float(v float64) string {
	s, err := codegen.Float(v)
	if err != nil && l.err == nil {
		l.err = err
	}
	return s
}

func emitHeader(w *codegen.Writer, kind GeneratorKind, dir Direction, detail string) {
	w.Linef("// fftgen %s kernel (%s)", kind, dir)
	if detail != "" {
		w.Linef("// %s", detail)
	}
	w.Line("// Generated code. Do not edit.")
	w.Blank()
}

// emitBuffers declares the storage bindings together with load_src and
// store_dst, which hide the layout from the kernel body. It returns the
// next free binding index.
func emitBuffers(w *codegen.Writer, io kernelIO) int {
	t := io.scalar
	binding := 0

	bind := func(name, access, elem string) {
		w.Linef("@group(0) @binding(%d) var<storage, %s> %s : array<%s>;", binding, access, name, elem)
		binding++
	}

	declare := func(name, access string, l Layout) {
		switch {
		case l.Planar():
			bind(name+"_re", access, t)
			bind(name+"_im", access, t)
		case l == LayoutReal:
			bind(name, access, t)
		default:
			bind(name, access, "vec2<"+t+">")
		}
	}

	src, dst := "src", "dst"
	srcLayout, dstLayout := io.src, io.dst

	if io.inPlace {
		src, dst = "data", "data"
		dstLayout = srcLayout
		declare("data", "read_write", srcLayout)
	} else {
		declare(src, "read", srcLayout)
		declare(dst, "read_write", dstLayout)
	}

	w.Blank()

	w.Open("fn load_src(i : u32) -> vec2<%s>", t)
	switch {
	case srcLayout.Planar():
		w.Linef("return vec2<%s>(%s_re[i], %s_im[i]);", t, src, src)
	case srcLayout == LayoutReal:
		w.Linef("return vec2<%s>(%s[i], 0.0);", t, src)
	default:
		w.Linef("return %s[i];", src)
	}
	w.Close()
	w.Blank()

	w.Open("fn store_dst(i : u32, v : vec2<%s>)", t)
	switch {
	case dstLayout.Planar():
		w.Linef("%s_re[i] = v.x;", dst)
		w.Linef("%s_im[i] = v.y;", dst)
	case dstLayout == LayoutReal:
		w.Linef("%s[i] = v.x;", dst)
	default:
		w.Linef("%s[i] = v;", dst)
	}
	w.Close()
	w.Blank()

	return binding
}

// emitLaunch declares the uniform that carries the batch count.
func emitLaunch(w *codegen.Writer, binding int) {
	w.Open("struct Launch")
	w.Line("count : u32,")
	w.Line("pad0 : u32,")
	w.Line("pad1 : u32,")
	w.Line("pad2 : u32,")
	w.Close()
	w.Linef("@group(0) @binding(%d) var<uniform> launch : Launch;", binding)
	w.Blank()
}

func emitCmul(w *codegen.Writer, t string) {
	w.Open("fn cmul(a : vec2<%s>, b : vec2<%s>) -> vec2<%s>", t, t, t)
	w.Linef("return vec2<%s>(a.x * b.x - a.y * b.y, a.x * b.y + a.y * b.x);", t)
	w.Close()
	w.Blank()
}

func emitTwiddle(w *codegen.Writer, t string) {
	w.Open("fn twiddle(a : %s) -> vec2<%s>", t, t)
	w.Linef("return vec2<%s>(cos(a), sin(a));", t)
	w.Close()
	w.Blank()
}

// emitOffset writes a function mapping a transform index to the element
// offset of its first sample. Dimensions above the first are addressed
// through their strides; batches through the distance.
func emitOffset(w *codegen.Writer, name string, dims int, lengths [MaxDimensions]int, a Addressing) {
	w.Open("fn %s(t : u32) -> u32", name)
	defer w.Close()

	if dims <= 1 {
		w.Linef("return t * %s;", codegen.Uint(a.Distance))
		return
	}

	higher := mathpkg.Product(lengths[1:dims]...)

	w.Linef("var o = (t / %s) * %s;", codegen.Uint(higher), codegen.Uint(a.Distance))
	w.Linef("var r = t %% %s;", codegen.Uint(higher))
	for d := 1; d < dims; d++ {
		w.Linef("o = o + (r %% %s) * %s;", codegen.Uint(lengths[d]), codegen.Uint(a.Strides[d]))
		if d < dims-1 {
			w.Linef("r = r / %s;", codegen.Uint(lengths[d]))
		}
	}
	w.Line("return o;")
}

var errUnbalanced = errors.New("unbalanced blocks in generated source")

// finish returns the accumulated source after a final consistency check.
func finish(w *codegen.Writer, lit *literals) (string, error) {
	if lit != nil && lit.err != nil {
		return "", lit.err
	}
	if w.Depth() != 0 {
		return "", errUnbalanced
	}
	return w.String(), nil
}
