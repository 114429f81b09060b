package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/jward/wayfind"
	"github.com/jward/wayfind/internal/config"
	"github.com/jward/wayfind/internal/metrics"
)

var (
	flagDB       string
	flagFormat   string
	flagConfig   string
	flagLogLevel string
	flagMetrics  bool
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

// Per-invocation state set up by PersistentPreRunE.
var (
	settings *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "wayfind",
	Short:         "Go to definition, hover and type-of for Rust sources",
	Long:          "Wayfind indexes Rust sources with tree-sitter into a SQLite symbol index and answers navigation queries against them.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		return setup(cmd)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if !flagMetrics {
			return nil
		}
		return writeMetrics(cmd.ErrOrStderr())
	},
	// No Run; prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: .wayfind.db relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: "+config.FileName+" in repo root)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug|info|warn|error")
	rootCmd.PersistentFlags().BoolVar(&flagMetrics, "metrics", false, "print collected metrics to stderr on exit")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(gotoCmd)
	rootCmd.AddCommand(hoverCmd)
	rootCmd.AddCommand(typeOfCmd)
	rootCmd.AddCommand(symbolsCmd)
	rootCmd.AddCommand(lspCmd)
}

// setup loads the config file and builds the logger. Flags override values
// from the file.
func setup(cmd *cobra.Command) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting cwd: %w", err)
	}
	path := flagConfig
	if path == "" {
		path = filepath.Join(findRepoRoot(cwd), config.FileName)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	settings = cfg
	logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	registry = prometheus.NewRegistry()
	return nil
}

func writeMetrics(w io.Writer) error {
	families, err := registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}
	return nil
}

// newEngine opens the engine for dbPath with options taken from the loaded
// settings.
func newEngine(dbPath string) (*wayfind.Engine, error) {
	opts := []wayfind.Option{
		wayfind.WithLogger(logger),
		wayfind.WithMetrics(metrics.New(registry)),
		wayfind.WithWorkers(settings.Workers),
	}
	if len(settings.Exclude) > 0 {
		opts = append(opts, wayfind.WithExclude(settings.Exclude...))
	}
	engine, err := wayfind.New(dbPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	return engine, nil
}

var (
	flagForce bool
	flagWatch bool
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a Rust project",
	Long:  "Parses .rs files with tree-sitter, extracts their declarations and writes them to the SQLite database. Unchanged files are skipped.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "delete database and reindex from scratch")
	indexCmd.Flags().BoolVar(&flagWatch, "watch", false, "keep running and reindex files as they change")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}
	repoRoot := findRepoRoot(targetDir)
	dbPath := resolveDBPath(repoRoot)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}
	if flagForce {
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing database for --force: %w", err)
		}
		logger.Info("cleared database", "path", dbPath)
	}

	engine, err := newEngine(dbPath)
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.IndexDirectory(context.Background(), targetDir); err != nil {
		return fmt.Errorf("indexing: %w", err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Indexed %s in %s\n", targetDir, time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(cmd.ErrOrStderr(), "Database: %s\n", dbPath)
	if flagWatch {
		return watchDirectory(cmd.Context(), engine, targetDir)
	}
	return nil
}

// resolveTargetDir returns the absolute path of the directory to index.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// findRepoRoot walks up from startDir looking for a .git directory or a
// Cargo.lock. Returns startDir if neither is found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		if _, err := os.Stat(filepath.Join(dir, "Cargo.lock")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from the --db flag, the config
// file, or the default, relative to repoRoot unless absolute.
func resolveDBPath(repoRoot string) string {
	db := flagDB
	if db == "" && settings != nil {
		db = settings.DB
	}
	if db == "" {
		db = config.Default().DB
	}
	if filepath.IsAbs(db) {
		return db
	}
	return filepath.Join(repoRoot, db)
}
