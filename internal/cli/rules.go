package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xab-mack/jvmdeps/internal/model"
	"github.com/xab-mack/jvmdeps/internal/report"
)

// defaultSeverity is the severity a kind is reported with unless escalated
// by configuration.
var defaultSeverity = map[model.DiagnosticKind]model.Severity{
	model.KindMissing:           model.SeverityError,
	model.KindIntransitive:      model.SeverityWarning,
	model.KindUnused:            model.SeverityWarning,
	model.KindUndeclaredPackage: model.SeverityWarning,
}

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "rules", Short: "List diagnostic kinds"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the diagnostic kinds a check can report",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, k := range model.Kinds {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", k, defaultSeverity[k], report.Describe(k))
			}
			return nil
		},
	})
	return cmd
}
