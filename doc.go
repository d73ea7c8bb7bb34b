// Package fftgen generates and compiles GPU kernels for the steps of an FFT
// plan and caches the compiled programs by signature.
//
// A resolved plan step is handed to a Builder together with a command
// queue. The chosen generator (copy, Stockham, or one of three transposes)
// validates the plan, derives a normalized Signature and the launch
// geometry, and, when the repository has no programs for that signature
// yet, renders WGSL source for both directions and compiles it on the
// queue's device. Plans that normalize to the same signature share one
// program pair; concurrent requests for a missing signature build it once.
//
//	repo := fftgen.NewKernelRepo()
//	builder, _ := fftgen.NewBuilder(repo)
//	action, err := builder.Build(ctx, &fftgen.Plan{Lengths: []int{1024}}, queue)
package fftgen
