package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xab-mack/jvmdeps/internal/engine"
	"github.com/xab-mack/jvmdeps/internal/model"
)

type graphEntry struct {
	Target     model.TargetID     `json:"target"`
	Deps       []model.TargetID   `json:"deps"`
	Packages   []model.PackageRef `json:"packages,omitempty"`
	Unresolved int                `json:"unresolved"`
}

func newGraphCmd(g *globals) *cobra.Command {
	var (
		format  string
		targets []string
	)
	cmd := &cobra.Command{
		Use:   "graph [manifest]",
		Short: "Print the dependencies computed from compiled classes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []engine.Option
			if len(targets) > 0 {
				opts = append(opts, engine.WithTargets(targetIDs(targets)...))
			}
			ws, err := openWorkspace(cmd, g, g.manifestPath(args), nil, opts...)
			if err != nil {
				return err
			}
			cg, err := ws.engine.Compute(cmd.Context())
			if err != nil {
				return err
			}
			entries := make([]graphEntry, 0, len(cg.Targets))
			for _, t := range cg.Targets {
				deps := cg.Deps[t.ID].Clone()
				delete(deps, t.ID)
				entries = append(entries, graphEntry{
					Target:     t.ID,
					Deps:       model.Sorted(deps),
					Packages:   model.SortedPackages(cg.PackageDeps[t.ID]),
					Unresolved: len(cg.Unresolved[t.ID]),
				})
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				data, err := json.MarshalIndent(entries, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
			case "table", "":
				for _, e := range entries {
					fmt.Fprintf(out, "%s -> [%s]", e.Target, join(e.Deps))
					if len(e.Packages) > 0 {
						fmt.Fprintf(out, " packages [%s]", join(e.Packages))
					}
					fmt.Fprintln(out)
				}
				for _, p := range cg.Problems {
					fmt.Fprintf(out, "[problem] %s %s: %s\n", p.Kind, p.Path, p.Err)
				}
			default:
				return fmt.Errorf("unknown format %q (want table|json)", format)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table|json")
	cmd.Flags().StringSliceVarP(&targets, "target", "t", nil, "Restrict output to these targets")
	return cmd
}

func join[T fmt.Stringer](items []T) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = it.String()
	}
	return strings.Join(parts, ", ")
}
