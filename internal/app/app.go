package app

import (
	"github.com/spf13/cobra"

	"github.com/xab-mack/jvmdeps/internal/cli"
)

func BuildRoot() *cobra.Command {
	root := &cobra.Command{
		Use:          "jvmdeps",
		Short:        "Infer JVM target dependencies from compiled classes and check them against the build graph",
		SilenceUsage: true,
	}
	cli.AddCommands(root)
	return root
}
