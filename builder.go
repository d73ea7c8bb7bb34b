package fftgen

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/fftgen/gpu"
)

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the builder logger.
func WithLogger(log logr.Logger) Option {
	return func(b *Builder) {
		b.log = log
	}
}

// WithMetrics records cache requests and build durations into m.
func WithMetrics(m *Metrics) Option {
	return func(b *Builder) {
		b.metrics = m
	}
}

// WithConcurrency bounds the number of actions Prebuild constructs at once.
func WithConcurrency(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// Builder constructs actions, generating and compiling kernels on a
// repository miss and reusing cached programs otherwise. A Builder is safe
// for concurrent use.
type Builder struct {
	repo        Repository
	log         logr.Logger
	metrics     *Metrics
	concurrency int
}

// NewBuilder returns a builder that caches programs in repo.
func NewBuilder(repo Repository, opts ...Option) (*Builder, error) {
	if repo == nil {
		return nil, ErrNilRepository
	}

	b := &Builder{
		repo:        repo,
		log:         logr.Discard(),
		concurrency: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(b)
	}

	return b, nil
}

// Repository returns the repository the builder caches programs in.
func (b *Builder) Repository() Repository {
	return b.repo
}

// NewAction builds the action for plan with the given generator on the
// device behind queue. Parameters are validated before the repository is
// consulted; on a miss the kernels are generated and both directions
// compiled exactly once, however many callers ask concurrently.
func (b *Builder) NewAction(ctx context.Context, kind GeneratorKind, plan *Plan, queue gpu.Queue) (*Action, error) {
	if plan == nil {
		return nil, ErrNilPlan
	}

	dev, err := gpu.QueueDevice(queue)
	if err != nil {
		return nil, err
	}

	gen, err := lookupGenerator(kind)
	if err != nil {
		return nil, err
	}

	a := &Action{
		kind:   kind,
		gen:    gen,
		plan:   plan,
		queue:  queue,
		device: dev,
	}

	if err := a.initParams(); err != nil {
		b.metrics.ObserveRequest(kind, resultError)
		return nil, err
	}

	if err := a.getWorkSizes(); err != nil {
		b.metrics.ObserveRequest(kind, resultError)
		return nil, err
	}

	log := b.log.WithValues("generator", kind.String(), "signature", a.signature.Key())

	programs, hit, err := b.repo.Acquire(ctx, a.signature, func(ctx context.Context) (*KernelSource, *ProgramPair, error) {
		start := time.Now()
		src, pair, err := a.build(ctx)
		elapsed := time.Since(start)

		b.metrics.ObserveBuild(kind, elapsed.Seconds(), err)

		if err != nil {
			log.Error(err, "building kernel programs failed")
			return nil, nil, err
		}

		log.V(1).Info("built kernel programs", "duration", elapsed)

		return src, pair, nil
	})
	if err != nil {
		b.metrics.ObserveRequest(kind, resultError)
		return nil, err
	}

	if hit {
		b.metrics.ObserveRequest(kind, resultHit)
		log.V(1).Info("kernel cache hit")
	} else {
		b.metrics.ObserveRequest(kind, resultMiss)
	}

	a.programs = programs

	return a, nil
}

// Build selects the generator for plan and constructs its action.
func (b *Builder) Build(ctx context.Context, plan *Plan, queue gpu.Queue) (*Action, error) {
	if plan == nil {
		return nil, ErrNilPlan
	}

	dev, err := gpu.QueueDevice(queue)
	if err != nil {
		return nil, err
	}

	kind, err := SelectGenerator(plan, dev)
	if err != nil {
		return nil, err
	}

	return b.NewAction(ctx, kind, plan, queue)
}

// Prebuild constructs the actions of plans concurrently, warming the
// repository. Actions are returned in plan order; the first failure cancels
// the remaining work and is returned.
func (b *Builder) Prebuild(ctx context.Context, plans []*Plan, queue gpu.Queue) ([]*Action, error) {
	actions := make([]*Action, len(plans))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, plan := range plans {
		i, plan := i, plan
		g.Go(func() error {
			a, err := b.Build(ctx, plan, queue)
			if err != nil {
				return fmt.Errorf("plan %d: %w", i, err)
			}
			actions[i] = a
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	b.log.V(1).Info("prebuilt actions", "count", len(actions))

	return actions, nil
}
