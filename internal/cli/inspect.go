package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xab-mack/jvmdeps/internal/classfile"
	"github.com/xab-mack/jvmdeps/internal/model"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <classfile>...",
		Short: "List the classes a compiled class file references",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, path := range args {
				refs, err := classfile.InspectFile(classfile.Parser{}, path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if len(args) > 1 {
					fmt.Fprintf(out, "%s:\n", path)
				}
				for _, a := range model.Sorted(refs) {
					fmt.Fprintln(out, a)
				}
			}
			return nil
		},
	}
}
