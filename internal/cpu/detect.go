package cpu

import (
	"runtime"

	"golang.org/x/sys/cpu"

	"github.com/cwbudde/fftgen/internal/fftypes"
)

// Features describes host CPU capabilities relevant to the host device profile.
type Features struct {
	HasSSE2      bool
	HasSSE3      bool
	HasAVX2      bool
	HasAVX512    bool
	HasNEON      bool
	Architecture string
}

// DetectFeatures reports the available CPU features for the current process.
//
// golang.org/x/sys/cpu exposes the X86 and ARM64 flag sets on every
// architecture; flags of a foreign architecture are simply false.
func DetectFeatures() Features {
	return Features{
		HasSSE2:      cpu.X86.HasSSE2,
		HasSSE3:      cpu.X86.HasSSE3,
		HasAVX2:      cpu.X86.HasAVX2,
		HasAVX512:    cpu.X86.HasAVX512F,
		HasNEON:      cpu.ARM64.HasASIMD,
		Architecture: runtime.GOARCH,
	}
}

// SIMDLevel returns the widest vector extension present.
func (f Features) SIMDLevel() fftypes.SIMDLevel {
	switch {
	case f.HasAVX512:
		return fftypes.SIMDAVX512
	case f.HasAVX2:
		return fftypes.SIMDAVX2
	case f.HasNEON:
		return fftypes.SIMDNEON
	case f.HasSSE3:
		return fftypes.SIMDSSE3
	case f.HasSSE2:
		return fftypes.SIMDSSE2
	default:
		return fftypes.SIMDNone
	}
}
