package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/fftgen"
	"github.com/cwbudde/fftgen/gpu"
)

// resolveKind picks the generator for p: the flag override first, then the
// plan file override, then the device-based selection.
func resolveKind(override string, p namedPlan, dev gpu.DeviceInfo) (fftgen.GeneratorKind, error) {
	if override != "" {
		return fftgen.ParseGeneratorKind(override)
	}
	if p.Kind != nil {
		return *p.Kind, nil
	}
	return fftgen.SelectGenerator(p.Plan, dev)
}

type sourceOptions struct {
	plan      string
	kind      string
	direction string
}

func newSourceCommand(g *globalOptions) *cobra.Command {
	opts := &sourceOptions{}

	cmd := &cobra.Command{
		Use:   "source",
		Short: "Print the generated WGSL for each plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSource(cmd.OutOrStdout(), g, opts)
		},
	}

	cmd.Flags().StringVar(&opts.plan, "plan", "", "Only print the plan with this name")
	cmd.Flags().StringVar(&opts.kind, "kind", "", "Force a generator (copy, stockham, transpose-vliw, transpose-gcn, transpose-inplace)")
	cmd.Flags().StringVar(&opts.direction, "direction", "both", "Direction to print. One of: (forward | backward | both)")

	return cmd
}

func runSource(w io.Writer, g *globalOptions, opts *sourceOptions) error {
	var dirs []fftgen.Direction
	switch opts.direction {
	case "both":
		dirs = []fftgen.Direction{fftgen.DirectionForward, fftgen.DirectionBackward}
	default:
		var d fftgen.Direction
		if err := d.UnmarshalText([]byte(opts.direction)); err != nil {
			return err
		}
		dirs = []fftgen.Direction{d}
	}

	plans, err := g.loadPlans()
	if err != nil {
		return err
	}
	plans, err = selectPlans(plans, opts.plan)
	if err != nil {
		return err
	}

	queue, _, err := g.openQueue()
	if err != nil {
		return err
	}
	defer queue.Close()

	dev, err := gpu.QueueDevice(queue)
	if err != nil {
		return err
	}

	for _, p := range plans {
		kind, err := resolveKind(opts.kind, p, dev)
		if err != nil {
			return fmt.Errorf("%s: %w", p.Name, err)
		}

		sig, src, err := fftgen.GenerateSource(kind, p.Plan, dev)
		if err != nil {
			return fmt.Errorf("%s: %w", p.Name, err)
		}

		for _, dir := range dirs {
			code, entry := src.For(dir)
			fmt.Fprintf(w, "%s\n", color.CyanString("// ---- %s %s (entry %s)", p.Name, dir, entry))
			fmt.Fprintf(w, "// signature %s\n", sig.Key())
			fmt.Fprintln(w, code)
		}
	}

	return nil
}

func newSignatureCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "signature",
		Short: "Print the generator and signature key of each plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSignature(cmd.OutOrStdout(), g)
		},
	}
}

func runSignature(w io.Writer, g *globalOptions) error {
	plans, err := g.loadPlans()
	if err != nil {
		return err
	}

	queue, _, err := g.openQueue()
	if err != nil {
		return err
	}
	defer queue.Close()

	dev, err := gpu.QueueDevice(queue)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PLAN\tGENERATOR\tSIGNATURE")
	for _, p := range plans {
		kind, err := resolveKind("", p, dev)
		if err != nil {
			return fmt.Errorf("%s: %w", p.Name, err)
		}
		sig, _, err := fftgen.GenerateSource(kind, p.Plan, dev)
		if err != nil {
			return fmt.Errorf("%s: %w", p.Name, err)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Name, kind, sig.Key())
	}

	return tw.Flush()
}

type buildOptions struct {
	repeat      int
	concurrency int
	timeout     time.Duration
}

func newBuildCommand(g *globalOptions) *cobra.Command {
	opts := &buildOptions{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Compile every plan on the selected backend",
		Long: "build creates an action for every plan, repeat times each, all concurrently.\n" +
			"Plans that share a signature compile once; the summary shows how many\n" +
			"program pairs were built and how the cache answered.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd.Context(), cmd.OutOrStdout(), g, opts)
		},
	}

	cmd.Flags().IntVar(&opts.repeat, "repeat", 1, "Number of concurrent requests per plan")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "Maximum requests in flight (0 = unlimited)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", time.Minute, "Overall build timeout")

	return cmd
}

func runBuild(ctx context.Context, w io.Writer, g *globalOptions, opts *buildOptions) error {
	if opts.repeat < 1 {
		return fmt.Errorf("--repeat must be at least 1, got %d", opts.repeat)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	plans, err := g.loadPlans()
	if err != nil {
		return err
	}

	queue, backend, err := g.openQueue()
	if err != nil {
		return err
	}
	defer queue.Close()

	dev, err := gpu.QueueDevice(queue)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	metrics := fftgen.NewMetrics()
	metrics.MustRegister(registry)

	repo := fftgen.NewKernelRepo(fftgen.WithRepoLogger(g.log))
	defer func() {
		if err := repo.Purge(); err != nil {
			g.log.Error(err, "releasing programs")
		}
	}()

	builder, err := fftgen.NewBuilder(repo, fftgen.WithLogger(g.log), fftgen.WithMetrics(metrics))
	if err != nil {
		return err
	}

	actions := make([]*fftgen.Action, len(plans)*opts.repeat)
	eg, egctx := errgroup.WithContext(ctx)
	if opts.concurrency > 0 {
		eg.SetLimit(opts.concurrency)
	}

	start := time.Now()
	for i := range actions {
		i := i
		p := plans[i%len(plans)]
		eg.Go(func() error {
			kind, err := resolveKind("", p, dev)
			if err != nil {
				return fmt.Errorf("%s: %w", p.Name, err)
			}
			a, err := builder.NewAction(egctx, kind, p.Plan, queue)
			if err != nil {
				return fmt.Errorf("%s: %w", p.Name, err)
			}
			actions[i] = a
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	g.log.Info("built plans", "plans", len(plans), "requests", len(actions), "elapsed", elapsed)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PLAN\tGENERATOR\tGLOBAL\tLOCAL\tGROUPS\tFORWARD")
	for i, p := range plans {
		a := actions[i]
		ws := a.WorkSizes()
		fwd, err := a.Program(fftgen.DirectionForward)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			p.Name, a.Generator(), ints(ws.Global), ints(ws.Local), ints(ws.Groups()), shortFingerprint(fwd.Fingerprint()))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	stats := repo.Stats()
	fmt.Fprintf(w, "\n%s %s on %s (%s)\n", color.GreenString("device"), dev.Name, backendLabel(backend), dev.Class)
	fmt.Fprintf(w, "%s entries=%d hits=%d misses=%d builds=%d failures=%d in %s\n",
		color.GreenString("cache"), stats.Entries, stats.Hits, stats.Misses, stats.Builds, stats.Failures, elapsed.Round(time.Microsecond))
	if cc, ok := backend.(compileCounter); ok {
		fmt.Fprintf(w, "%s %d\n", color.GreenString("compilations"), cc.CompileCount())
	}

	return writeMetrics(w, registry)
}

// writeMetrics prints the request counters gathered from registry.
func writeMetrics(w io.Writer, registry *prometheus.Registry) error {
	families, err := registry.Gather()
	if err != nil {
		return err
	}

	for _, mf := range families {
		if !strings.HasSuffix(mf.GetName(), "_total") {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			fmt.Fprintf(w, "%s{%s} %g\n", mf.GetName(), strings.Join(labels, ","), m.GetCounter().GetValue())
		}
	}

	return nil
}

func backendLabel(b gpu.Backend) string {
	info := b.Info()
	if info.Version == "" {
		return info.Name
	}
	return info.Name + " " + info.Version
}

func ints(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = fmt.Sprint(n)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
