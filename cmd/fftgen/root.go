package main

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/cwbudde/fftgen/gpu"
)

// globalOptions are shared by every subcommand.
type globalOptions struct {
	backend   string
	logFormat string
	verbosity int
	planFile  string

	log logr.Logger
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{log: logr.Discard()}

	cmd := &cobra.Command{
		Use:   "fftgen",
		Short: "Generate and build GPU FFT kernels",
		Long: "fftgen derives kernel signatures for FFT plan steps, prints the generated\n" +
			"WGSL and compiles program pairs through the selected GPU backend.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log, err := newLogger(cmd.ErrOrStderr(), opts.logFormat, opts.verbosity)
			if err != nil {
				return err
			}
			opts.log = log
			return nil
		},
	}

	cmd.CompletionOptions.DisableDefaultCmd = true

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.backend, "backend", "mock", "GPU backend. One of: ("+backendNames()+")")
	flags.StringVar(&opts.logFormat, "log-format", "human", "Log format. One of: (human | json)")
	flags.CountVarP(&opts.verbosity, "verbose", "v", "Increase log verbosity (repeatable)")
	flags.StringVarP(&opts.planFile, "file", "f", "", "YAML plan file ('-' for stdin)")

	cmd.AddCommand(
		newSourceCommand(opts),
		newSignatureCommand(opts),
		newBuildCommand(opts),
	)

	return cmd
}

// openQueue registers the selected backend and opens a queue on device 0.
func (o *globalOptions) openQueue() (gpu.Queue, gpu.Backend, error) {
	backend, err := newBackend(o.backend)
	if err != nil {
		return nil, nil, err
	}

	gpu.RegisterBackend(backend)

	queue, err := gpu.OpenQueue(0)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s queue: %w", o.backend, err)
	}

	dev, _ := gpu.QueueDevice(queue)
	o.log.V(1).Info("opened queue", "backend", o.backend, "device", dev.Name, "class", dev.Class.String())

	return queue, backend, nil
}

func (o *globalOptions) loadPlans() ([]namedPlan, error) {
	if o.planFile == "" {
		return nil, fmt.Errorf("no plan file given (use -f)")
	}
	return loadPlanFile(o.planFile)
}
