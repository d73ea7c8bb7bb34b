package cpu

import (
	"runtime"
	"testing"

	"github.com/cwbudde/fftgen/internal/fftypes"
)

func TestDetectFeaturesArchitecture(t *testing.T) {
	t.Parallel()

	f := DetectFeatures()
	if f.Architecture != runtime.GOARCH {
		t.Fatalf("Architecture = %q, want %q", f.Architecture, runtime.GOARCH)
	}

	if lanes := f.SIMDLevel().Float32Lanes(); lanes < 1 {
		t.Fatalf("Float32Lanes = %d, want >= 1", lanes)
	}
}

func TestSIMDLevelPriority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		f    Features
		want fftypes.SIMDLevel
	}{
		{"none", Features{}, fftypes.SIMDNone},
		{"sse2", Features{HasSSE2: true}, fftypes.SIMDSSE2},
		{"avx2 beats sse", Features{HasSSE2: true, HasSSE3: true, HasAVX2: true}, fftypes.SIMDAVX2},
		{"avx512 beats avx2", Features{HasAVX2: true, HasAVX512: true}, fftypes.SIMDAVX512},
		{"neon", Features{HasNEON: true}, fftypes.SIMDNEON},
	}

	for _, tt := range tests {
		if got := tt.f.SIMDLevel(); got != tt.want {
			t.Errorf("%s: SIMDLevel = %v, want %v", tt.name, got, tt.want)
		}
	}
}
