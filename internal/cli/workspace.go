package cli

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/xab-mack/jvmdeps/internal/buildgraph"
	"github.com/xab-mack/jvmdeps/internal/cache"
	"github.com/xab-mack/jvmdeps/internal/classfile"
	"github.com/xab-mack/jvmdeps/internal/config"
	"github.com/xab-mack/jvmdeps/internal/engine"
	"github.com/xab-mack/jvmdeps/internal/metrics"
	"github.com/xab-mack/jvmdeps/internal/model"
	"github.com/xab-mack/jvmdeps/internal/products"
)

const defaultManifest = "build-manifest.yaml"

// globals are the persistent flags shared by every command.
type globals struct {
	manifest string
	workers  int
	logLevel string
	cacheDir string
}

func (g *globals) register(root *cobra.Command) {
	f := root.PersistentFlags()
	f.StringVarP(&g.manifest, "manifest", "m", defaultManifest, "Build manifest describing targets and product registries")
	f.IntVar(&g.workers, "workers", 0, "Concurrent indexing workers (default from config)")
	f.StringVar(&g.logLevel, "log-level", "", "Log level: debug|info|warn|error (default from config)")
	f.StringVar(&g.cacheDir, "cache-dir", "", "Cache inspected class references in this directory")
}

// apply overrides cfg with the flags the user set explicitly.
func (g *globals) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("workers") {
		cfg.Workers = g.workers
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = g.logLevel
	}
	if cmd.Flags().Changed("cache-dir") {
		cfg.CacheDir = g.cacheDir
	}
}

func (g *globals) manifestPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return g.manifest
}

// workspace is everything loaded for one run.
type workspace struct {
	manifest *buildgraph.Manifest
	cfg      config.Config
	log      *slog.Logger
	metrics  *metrics.Recorder
	engine   *engine.Engine
}

// openWorkspace loads the manifest, its config and product registries and
// builds an engine over them. override may adjust the config before use.
func openWorkspace(cmd *cobra.Command, g *globals, manifestPath string, override func(*config.Config) error, opts ...engine.Option) (*workspace, error) {
	m, err := buildgraph.Load(manifestPath)
	if err != nil {
		return nil, err
	}
	cfg, cfgPath, err := config.Load(filepath.Dir(manifestPath))
	if err != nil {
		return nil, err
	}
	g.apply(cmd, &cfg)
	if override != nil {
		if err := override(&cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	if m.ClassProducts == "" {
		return nil, fmt.Errorf("manifest %s: classProducts is required", m.Path)
	}
	classes, err := products.LoadClassProducts(m.ClassProducts)
	if err != nil {
		return nil, err
	}
	jars := products.NewJarProducts()
	if m.JarProducts != "" {
		if jars, err = products.LoadJarProducts(m.JarProducts); err != nil {
			return nil, err
		}
	}

	var inspector classfile.Inspector = classfile.Parser{}
	if cfg.CacheDir != "" {
		store, err := cache.Open(cfg.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
		inspector = cache.NewInspector(inspector, store, log)
	}

	log.Debug("loaded workspace",
		"manifest", m.Path,
		"config", cfgPath,
		"targets", len(m.Graph.Targets()),
		"coordinates", len(jars.Coordinates()))

	rec := metrics.New()
	opts = append([]engine.Option{
		engine.WithInspector(inspector),
		engine.WithWorkers(cfg.Workers),
		engine.WithLogger(log),
		engine.WithMetrics(rec),
	}, opts...)
	eng := engine.New(m.Graph, classes, jars.Lookup(m.Graph.PackageNodes()), opts...)
	return &workspace{manifest: m, cfg: cfg, log: log, metrics: rec, engine: eng}, nil
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var l slog.Level
	if level != "" {
		if err := l.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q", level)
		}
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})), nil
}

func targetIDs(args []string) []model.TargetID {
	ids := make([]model.TargetID, 0, len(args))
	for _, a := range args {
		ids = append(ids, model.TargetID(a))
	}
	return ids
}
