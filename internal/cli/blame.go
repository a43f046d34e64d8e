package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xab-mack/jvmdeps/internal/model"
)

func newBlameCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "blame <from> <to>",
		Short: "Show the source file and class that make one target depend on another",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(cmd, g, g.manifest, nil)
			if err != nil {
				return err
			}
			from, to := model.TargetID(args[0]), model.TargetID(args[1])
			b, ok, err := ws.engine.Blame(cmd.Context(), from, to)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "no class of %s references %s\n", from, to)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "source file %s of %s depends on class %s\n", b.Source.Path, from, b.Artifact)
			return nil
		},
	}
}
