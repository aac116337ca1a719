// Command possum-asm runs the two-pass macro assembler over one source
// file and writes the resulting binary image.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/possum-systems/possum/pkg/assembler"
)

func main() {
	var includeDirs []string

	root := &cobra.Command{
		Use:   "possum-asm INPUT [OUTPUT]",
		Short: "Assemble a possum source file into a binary image",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := args[0]
			out := ""
			if len(args) == 2 {
				out = args[1]
			}
			return run(in, out, includeDirs)
		},
	}
	root.Flags().StringArrayVarP(&includeDirs, "include", "I", nil, "additional @include search directory")
	root.SilenceUsage = true

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(in, out string, includeDirs []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	var w *os.File
	if out == "" {
		w = os.Stdout
	} else {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("creating %s: %w", out, err)
		}
		defer f.Close()
		w = f
	}

	if err := assembler.Assemble(cwd, in, includeDirs, w); err != nil {
		return err
	}
	return nil
}
