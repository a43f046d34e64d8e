package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/xab-mack/jvmdeps/internal/checker"
	"github.com/xab-mack/jvmdeps/internal/config"
	"github.com/xab-mack/jvmdeps/internal/engine"
	"github.com/xab-mack/jvmdeps/internal/model"
	"github.com/xab-mack/jvmdeps/internal/report"
	"github.com/xab-mack/jvmdeps/internal/tui"
)

func AddCommands(root *cobra.Command) {
	g := &globals{}
	g.register(root)
	root.AddCommand(newCheckCmd(g))
	root.AddCommand(newGraphCmd(g))
	root.AddCommand(newBlameCmd(g))
	root.AddCommand(newInspectCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newRulesCmd())
}

func newCheckCmd(g *globals) *cobra.Command {
	var (
		checkMissing      bool
		checkIntransitive string
		checkUnnecessary  bool
		checkPackages     bool
		targets           []string
		format            string
		outputFile        string
		baseline          string
		writeBaseline     string
		useTUI            bool
		metricsOut        string
	)
	cmd := &cobra.Command{
		Use:   "check [manifest]",
		Short: "Check declared dependencies against the classes each target references",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			override := func(cfg *config.Config) error {
				flags := cmd.Flags()
				if flags.Changed("check-missing-deps") {
					cfg.CheckMissingDeps = checkMissing
				}
				if flags.Changed("check-intransitive-deps") {
					cfg.CheckIntransitiveDeps = checkIntransitive
				}
				if flags.Changed("check-unnecessary-deps") {
					cfg.CheckUnnecessaryDeps = checkUnnecessary
				}
				if flags.Changed("check-package-deps") {
					cfg.CheckPackageDeps = checkPackages
				}
				if flags.Changed("baseline") {
					cfg.Baseline = baseline
				}
				return nil
			}
			var opts []engine.Option
			if len(targets) > 0 {
				opts = append(opts, engine.WithTargets(targetIDs(targets)...))
			}
			ws, err := openWorkspace(cmd, g, g.manifestPath(args), override, opts...)
			if err != nil {
				return err
			}
			level, err := model.ParseCheckLevel(ws.cfg.CheckIntransitiveDeps)
			if err != nil {
				return err
			}
			chk := checker.New(ws.engine, checker.Policy{
				CheckMissing:      ws.cfg.CheckMissingDeps,
				CheckIntransitive: level,
				CheckUnnecessary:  ws.cfg.CheckUnnecessaryDeps,
				CheckPackages:     ws.cfg.CheckPackageDeps,
			}, ws.log, ws.metrics)

			res, err := chk.Check(cmd.Context())
			if err != nil && !errors.Is(err, checker.ErrDependencyCheckFailed) {
				return err
			}

			res.Diagnostics = engine.ApplyIgnores(res.Diagnostics, ws.cfg.Ignore, time.Now())
			if writeBaseline != "" {
				if err := engine.WriteBaseline(writeBaseline, res.Diagnostics); err != nil {
					return err
				}
				ws.log.Info("wrote baseline", "path", writeBaseline, "diagnostics", len(res.Diagnostics))
				return nil
			}
			b, err := engine.LoadBaseline(ws.cfg.Baseline)
			if err != nil {
				return fmt.Errorf("load baseline: %w", err)
			}
			res.Diagnostics = engine.FilterByBaseline(res.Diagnostics, b)
			res.Recount()
			report.Annotate(res.Diagnostics, ws.manifest.SourceRoot)

			if metricsOut != "" {
				if err := ws.metrics.WriteTextfile(metricsOut); err != nil {
					return fmt.Errorf("write metrics: %w", err)
				}
			}

			if useTUI && !isatty.IsTerminal(os.Stdout.Fd()) {
				ws.log.Warn("stdout is not a terminal, falling back to table output")
				useTUI = false
			}
			if useTUI {
				if err := tui.Run(res); err != nil {
					return err
				}
			} else if err := writeResult(cmd, res, format, outputFile); err != nil {
				return err
			}

			if res.Failed {
				return fmt.Errorf("%w (%d error diagnostic(s))", checker.ErrDependencyCheckFailed, countErrors(res))
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVar(&checkMissing, "check-missing-deps", false, "Fail when a target references classes of targets outside its declared closure")
	f.StringVar(&checkIntransitive, "check-intransitive-deps", "none", "Report dependencies satisfied only transitively: none|warn|error")
	f.BoolVar(&checkUnnecessary, "check-unnecessary-deps", false, "Warn about declared dependencies that are never referenced")
	f.BoolVar(&checkPackages, "check-package-deps", false, "Warn about packages referenced but not declared")
	f.StringSliceVarP(&targets, "target", "t", nil, "Restrict the check to these targets")
	f.StringVarP(&format, "format", "f", "table", "Output format: table|json|sarif")
	f.StringVarP(&outputFile, "out", "o", "", "Write report to file")
	f.StringVar(&baseline, "baseline", "", "Suppress diagnostics whose fingerprints are in this baseline file")
	f.StringVar(&writeBaseline, "write-baseline", "", "Write a baseline file with the current diagnostic fingerprints")
	f.BoolVar(&useTUI, "tui", false, "Render interactive TUI output")
	f.StringVar(&metricsOut, "metrics-out", "", "Write Prometheus text-format metrics to this file")
	return cmd
}

func writeResult(cmd *cobra.Command, res *model.CheckResult, format, outputFile string) error {
	var data []byte
	switch format {
	case "json":
		b, err := report.JSON(res)
		if err != nil {
			return err
		}
		data = b
	case "sarif":
		b, err := report.ToSARIF(res)
		if err != nil {
			return err
		}
		data = b
	case "table", "":
		if outputFile == "" {
			report.Text(cmd.OutOrStdout(), res)
			return nil
		}
		f, err := os.Create(outputFile)
		if err != nil {
			return err
		}
		report.Text(f, res)
		return f.Close()
	default:
		return fmt.Errorf("unknown format %q (want table|json|sarif)", format)
	}
	if outputFile != "" {
		return os.WriteFile(outputFile, data, 0o644)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func countErrors(res *model.CheckResult) int {
	n := 0
	for _, d := range res.Diagnostics {
		if d.Severity == model.SeverityError {
			n++
		}
	}
	return n
}
