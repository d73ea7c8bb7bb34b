package fftgen

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cwbudde/fftgen/gpu"
)

// testDevice is a GCN-class device with round limits so expectations do
// not depend on the host CPU.
func testDevice() gpu.DeviceInfo {
	return gpu.DeviceInfo{
		Name:             "TestGPU",
		Vendor:           "fftgen",
		Driver:           "test",
		Class:            gpu.DeviceClassGCN,
		MaxWorkGroupSize: 256,
		LocalMemSize:     64 * 1024,
		SupportsDouble:   true,
	}
}

func newMockQueue(t *testing.T, dev gpu.DeviceInfo) (*gpu.MockBackend, gpu.Queue) {
	t.Helper()

	backend := gpu.NewMockBackendWithDevice(dev)
	return backend, backend.NewQueue()
}

func newTestBuilder(t *testing.T, opts ...Option) (*Builder, *KernelRepo) {
	t.Helper()

	repo := NewKernelRepo()
	b, err := NewBuilder(repo, opts...)
	require.NoError(t, err)

	return b, repo
}

func fftPlan(lengths ...int) *Plan {
	return &Plan{Operation: OperationFFT, Lengths: lengths}
}

// fakeProgram stands in for a compiled program in repository tests.
type fakeProgram struct {
	name   string
	closed atomic.Bool
}

func (p *fakeProgram) Label() string       { return p.name }
func (p *fakeProgram) EntryPoint() string  { return p.name }
func (p *fakeProgram) Fingerprint() string { return p.name }

func (p *fakeProgram) Close() error {
	p.closed.Store(true)
	return nil
}

func fakePair(name string) *ProgramPair {
	return &ProgramPair{
		Forward:  &fakeProgram{name: name + "/fwd"},
		Backward: &fakeProgram{name: name + "/bwd"},
	}
}

// beyondIndex returns the first value outside the u32 index range. Where
// int is 32 bits wide it returns -1, which is rejected just the same.
func beyondIndex() int {
	u := uint64(maxIndex)
	if n := int(u + 1); n > 0 {
		return n
	}
	return -1
}

func sigFor(t *testing.T, kind GeneratorKind, plan *Plan) Signature {
	t.Helper()

	sig, _, err := GenerateSource(kind, plan, testDevice())
	require.NoError(t, err)

	return sig
}
