// Command fftgen generates, inspects and builds GPU FFT kernels for the
// plans described in a YAML plan file.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

func main() {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		color.NoColor = true
	}

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}
