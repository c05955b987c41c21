package main

import (
	"fmt"
	"os"

	"github.com/arthur-debert/stager/cmd/stager"
	"github.com/arthur-debert/stager/pkg/output"
)

func main() {
	rootCmd := stager.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		renderer, rerr := output.New(os.Stderr, output.FormatText)
		if rerr != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		_ = renderer.RenderError(err)
		os.Exit(1)
	}
}
