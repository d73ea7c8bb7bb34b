package fftgen

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"
	"golang.org/x/sync/singleflight"

	"github.com/cwbudde/fftgen/gpu"
)

// ProgramPair holds the forward and backward programs built from one
// signature. Pairs are owned by the repository and shared read-only by
// every action with that signature.
type ProgramPair struct {
	Forward  gpu.Program
	Backward gpu.Program
}

// For returns the program of one direction.
func (p *ProgramPair) For(dir Direction) gpu.Program {
	if dir == DirectionBackward {
		return p.Backward
	}
	return p.Forward
}

// Close releases both programs.
func (p *ProgramPair) Close() error {
	var errs []error
	if p.Forward != nil {
		errs = append(errs, p.Forward.Close())
	}
	if p.Backward != nil {
		errs = append(errs, p.Backward.Close())
	}
	return errors.Join(errs...)
}

// BuildFunc generates and compiles the programs for a signature.
type BuildFunc func(ctx context.Context) (*KernelSource, *ProgramPair, error)

// Repository caches compiled programs by signature.
type Repository interface {
	// Lookup returns the programs registered for sig.
	Lookup(sig Signature) (*ProgramPair, bool)

	// Register stores programs and their source under sig. A second
	// registration for the same signature fails with ErrAlreadyRegistered.
	Register(sig Signature, src *KernelSource, programs *ProgramPair) error

	// Acquire returns the programs for sig, running build on a miss. At most
	// one build runs per signature at a time; concurrent callers share its
	// outcome. The bool reports whether the caller skipped building.
	Acquire(ctx context.Context, sig Signature, build BuildFunc) (*ProgramPair, bool, error)
}

// RepoStats is a snapshot of repository activity.
type RepoStats struct {
	Entries  int
	Hits     int64
	Misses   int64
	Builds   int64
	Failures int64
}

type repoEntry struct {
	source   *KernelSource
	programs *ProgramPair
}

// RepoOption configures a KernelRepo.
type RepoOption func(*KernelRepo)

// WithRepoLogger sets the repository logger.
func WithRepoLogger(log logr.Logger) RepoOption {
	return func(r *KernelRepo) {
		r.log = log
	}
}

// WithFailureCaching controls whether failed builds are remembered. When
// enabled (the default) later requests for the signature get the same error
// without compiling again until the signature is invalidated.
func WithFailureCaching(enabled bool) RepoOption {
	return func(r *KernelRepo) {
		r.cacheFailures = enabled
	}
}

// KernelRepo is an in-memory Repository. Compilation never happens under
// its lock, so builds for different signatures proceed in parallel.
type KernelRepo struct {
	log           logr.Logger
	cacheFailures bool

	mu       sync.RWMutex
	entries  map[Signature]*repoEntry
	failures map[Signature]error

	group singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
	builds atomic.Int64
	failed atomic.Int64
}

var _ Repository = (*KernelRepo)(nil)

// NewKernelRepo returns an empty repository.
func NewKernelRepo(opts ...RepoOption) *KernelRepo {
	r := &KernelRepo{
		log:           logr.Discard(),
		cacheFailures: true,
		entries:       make(map[Signature]*repoEntry),
		failures:      make(map[Signature]error),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *KernelRepo) Lookup(sig Signature) (*ProgramPair, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[sig]
	if !ok {
		return nil, false
	}
	return e.programs, true
}

// Source returns the kernel source registered with sig.
func (r *KernelRepo) Source(sig Signature) (*KernelSource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[sig]
	if !ok {
		return nil, false
	}
	return e.source, true
}

func (r *KernelRepo) Register(sig Signature, src *KernelSource, programs *ProgramPair) error {
	if programs == nil || programs.Forward == nil || programs.Backward == nil {
		return fmt.Errorf("fftgen: registering incomplete program pair for %s", sig.Key())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[sig]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, sig.Key())
	}

	r.entries[sig] = &repoEntry{source: src, programs: programs}
	delete(r.failures, sig)
	r.builds.Add(1)

	r.log.V(1).Info("registered kernel programs", "generator", sig.Kind.String(), "signature", sig.Key())

	return nil
}

// cachedFailure returns the remembered build error of sig, if any.
func (r *KernelRepo) cachedFailure(sig Signature) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.failures[sig]
}

func (r *KernelRepo) recordFailure(sig Signature, err error) {
	if !r.cacheFailures {
		return
	}

	r.mu.Lock()
	r.failures[sig] = err
	r.mu.Unlock()
}

func (r *KernelRepo) Acquire(ctx context.Context, sig Signature, build BuildFunc) (*ProgramPair, bool, error) {
	if programs, ok := r.Lookup(sig); ok {
		r.hits.Add(1)
		return programs, true, nil
	}

	if err := r.cachedFailure(sig); err != nil {
		return nil, false, err
	}

	// ran is written by the flight goroutine and read only after its result
	// has been received.
	var ran bool

	ch := r.group.DoChan(sig.Key(), func() (any, error) {
		// A flight that finished between the lookup above and this one
		// starting has already settled the signature.
		if programs, ok := r.Lookup(sig); ok {
			return programs, nil
		}

		if err := r.cachedFailure(sig); err != nil {
			return nil, err
		}

		ran = true
		r.misses.Add(1)

		// Other callers may be waiting on this build; one caller giving up
		// must not cancel it for them.
		src, programs, err := build(context.WithoutCancel(ctx))
		if err == nil && programs == nil {
			err = fmt.Errorf("%w: build for %s returned no programs", ErrGenerationFailure, sig.Key())
		}

		if err != nil {
			r.failed.Add(1)
			r.recordFailure(sig, err)
			return nil, err
		}

		if err := r.Register(sig, src, programs); err != nil {
			_ = programs.Close()
			return nil, err
		}

		return programs, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}

		if !ran {
			r.hits.Add(1)
		}

		return res.Val.(*ProgramPair), !ran, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// Invalidate drops sig together with any cached failure and closes its
// programs. It reports whether anything was removed.
func (r *KernelRepo) Invalidate(sig Signature) bool {
	r.mu.Lock()
	e, ok := r.entries[sig]
	_, failed := r.failures[sig]
	delete(r.entries, sig)
	delete(r.failures, sig)
	r.mu.Unlock()

	if ok {
		if err := e.programs.Close(); err != nil {
			r.log.Error(err, "closing invalidated programs", "signature", sig.Key())
		}
	}

	return ok || failed
}

// Purge empties the repository and closes every program.
func (r *KernelRepo) Purge() error {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[Signature]*repoEntry)
	r.failures = make(map[Signature]error)
	r.mu.Unlock()

	var errs []error
	for _, e := range entries {
		errs = append(errs, e.programs.Close())
	}

	r.log.V(1).Info("purged kernel repository", "entries", len(entries))

	return errors.Join(errs...)
}

// Len reports the number of registered signatures.
func (r *KernelRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *KernelRepo) Stats() RepoStats {
	return RepoStats{
		Entries:  r.Len(),
		Hits:     r.hits.Load(),
		Misses:   r.misses.Load(),
		Builds:   r.builds.Load(),
		Failures: r.failed.Load(),
	}
}
