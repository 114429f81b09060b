package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/jward/wayfind/internal/config"
	"github.com/jward/wayfind/internal/lsp"
)

// Version is set at build time with -ldflags.
var Version = "(dev) v0.0.0"

var lspCmd = &cobra.Command{
	Use:   "lsp",
	Short: "Run a language server on stdin/stdout",
	Long:  "Serves go to definition and hover over the Language Server Protocol. The workspace root sent by the client is indexed on startup; open buffers are indexed as they change.",
	Args:  cobra.NoArgs,
	RunE:  runLSP,
}

func runLSP(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting cwd: %w", err)
	}
	dbPath := resolveDBPath(findRepoRoot(cwd))
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}

	engine, err := newEngine(dbPath)
	if err != nil {
		return err
	}
	defer engine.Close()

	// glsp logs through commonlog; keep it quiet unless debugging.
	verbosity := 0
	if level, err := config.ParseLevel(settings.LogLevel); err == nil && level <= slog.LevelDebug {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	logger.Info("starting language server", "db", dbPath, "version", Version)
	return lsp.NewServer(engine, logger, Version).RunStdio()
}
