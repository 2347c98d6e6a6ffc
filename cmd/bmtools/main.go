package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nikbrunner/bmtools/internal/config"
	"github.com/nikbrunner/bmtools/internal/engine"
	"github.com/nikbrunner/bmtools/internal/journal"
)

const (
	appName    = "bmtools"
	appVersion = "0.3.0"
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Browser bookmark toolbox for AI agents and the command line",
	Long: `bmtools edits the bookmark file of a Chromium-based browser profile.

Every change is written through a guard: the current file is copied to a
timestamped backup next to it before the new content replaces it.

When stdin is not a terminal bmtools serves its tools over MCP (stdio).`,
	Version:       appVersion,
	SilenceUsage:  true,
	SilenceErrors: true,
	// Default behavior: if stdin is not a terminal, run as MCP server
	RunE: func(cmd *cobra.Command, args []string) error {
		if !isTerminal(os.Stdin) {
			return runMCP(cmd, args)
		}
		return cmd.Help()
	},
}

var (
	flagProfile  string
	flagConfig   string
	flagLogLevel string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagProfile, "profile", "", "Bookmarks file (default: configured or browser default profile)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default ~/.config/bmtools/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(structureCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(dedupeCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(backupsCmd)

	rootCmd.SetVersionTemplate(fmt.Sprintf("%s v%s\n", appName, appVersion))
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
}

func printError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	if hint := engine.Hint(err); hint != "" {
		fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
	}
}

func isTerminal(f *os.File) bool {
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// app holds what every command needs.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	journal *journal.Journal
	eng     *engine.Engine
}

func newApp() (*app, error) {
	configPath := flagConfig
	if configPath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, err
		}
		configPath = p
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if flagProfile != "" {
		cfg.ProfilePath = flagProfile
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log}
	params := engine.Params{Config: cfg, Logger: log}
	if cfg.JournalPath != "" {
		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			log.Warn("journal unavailable, continuing without it",
				zap.String("path", cfg.JournalPath),
				zap.Error(err))
		} else {
			log.Debug("journal opened", zap.String("path", j.Path()))
			a.journal = j
			params.Journal = j
		}
	}
	a.eng = engine.New(params)
	return a, nil
}

func (a *app) Close() {
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.log.Warn("close journal", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}

// newLogger logs JSON to stderr; stdout belongs to the MCP stream.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}
