package fftypes

import (
	"fmt"
	"strings"
)

// GeneratorKind identifies the code-generation strategy that produced a kernel.
type GeneratorKind uint8

const (
	GeneratorCopy GeneratorKind = iota
	GeneratorStockham
	GeneratorTransposeVLIW
	GeneratorTransposeGCN
	GeneratorTransposeInplace
)

// GeneratorKinds lists every generator in declaration order.
var GeneratorKinds = []GeneratorKind{
	GeneratorCopy,
	GeneratorStockham,
	GeneratorTransposeVLIW,
	GeneratorTransposeGCN,
	GeneratorTransposeInplace,
}

// String returns the short name used in signatures, logs and plan files.
func (g GeneratorKind) String() string {
	switch g {
	case GeneratorCopy:
		return "copy"
	case GeneratorStockham:
		return "stockham"
	case GeneratorTransposeVLIW:
		return "transpose-vliw"
	case GeneratorTransposeGCN:
		return "transpose-gcn"
	case GeneratorTransposeInplace:
		return "transpose-inplace"
	default:
		return "unknown"
	}
}

// Valid reports whether g names a known generator.
func (g GeneratorKind) Valid() bool {
	return g <= GeneratorTransposeInplace
}

// ParseGeneratorKind maps a generator name back to its kind.
// Matching is case-insensitive and accepts '_' in place of '-'.
func ParseGeneratorKind(s string) (GeneratorKind, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	for _, g := range GeneratorKinds {
		if g.String() == name {
			return g, nil
		}
	}

	return 0, fmt.Errorf("unknown generator %q", s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *GeneratorKind) UnmarshalText(text []byte) error {
	kind, err := ParseGeneratorKind(string(text))
	if err != nil {
		return err
	}

	*g = kind

	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (g GeneratorKind) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// SIMDLevel describes the widest vector unit available on a host device.
type SIMDLevel uint8

const (
	SIMDNone   SIMDLevel = iota // Pure Go implementation
	SIMDSSE2                    // Requires SSE2 (x86_64 baseline)
	SIMDSSE3                    // Requires SSE3
	SIMDAVX2                    // Requires AVX2
	SIMDAVX512                  // Requires AVX-512
	SIMDNEON                    // Requires ARM NEON
)

// String returns a human-readable name for the SIMD level.
func (s SIMDLevel) String() string {
	switch s {
	case SIMDNone:
		return "generic"
	case SIMDSSE2:
		return "sse2"
	case SIMDSSE3:
		return "sse3"
	case SIMDAVX2:
		return "avx2"
	case SIMDAVX512:
		return "avx512"
	case SIMDNEON:
		return "neon"
	default:
		return "unknown"
	}
}

// Float32Lanes reports how many float32 values one vector register holds.
func (s SIMDLevel) Float32Lanes() int {
	switch s {
	case SIMDAVX512:
		return 16
	case SIMDAVX2:
		return 8
	case SIMDSSE2, SIMDSSE3, SIMDNEON:
		return 4
	default:
		return 1
	}
}
