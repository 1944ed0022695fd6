// Package main provides the softsend binary entry point.
// Softsend is RoomNote's complaint rewrite toolchain: it assembles
// privacy-minimized provider batch requests, extracts rewritten text
// from provider responses, and gates rewrites through a deterministic
// safety lexicon.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roomnote/softsend/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "softsend"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
}

func rootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "softsend",
		Short: "Complaint rewrite batch toolchain",
		Long: `Softsend prepares and checks LLM-assisted complaint rewrites for RoomNote.

It provides:
- batch: turn rewrite requests into a provider batch input file
- extract: pull rewritten text out of provider batch results
- eval: replay outputs against regression fixtures through the safety lexicon
- lexicon: print the active safety rule taxonomy

Requests never leave the machine; softsend only produces and consumes the
files exchanged with the provider's batch API.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	// Version command
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	cmd.AddCommand(batchCmd(opts))
	cmd.AddCommand(extractCmd(opts))
	cmd.AddCommand(evalCmd(opts))
	cmd.AddCommand(lexiconCmd(opts))

	return cmd
}

// setup loads configuration and installs the default logger. Every
// subcommand except version calls it first.
func setup(opts *rootOptions) (*config.Config, error) {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}

	configureLogging(cfg.Log.Level)
	return cfg, nil
}

func loadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		cfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return cfg, nil
	}

	return config.NewLoader(nil).Load()
}

func configureLogging(logLevel string) {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// maxLineBytes bounds one NDJSON line on any input the toolchain
// scans. Large enough for any real request or provider response row.
const maxLineBytes = 1 << 20

// openInput returns stdin for "-", otherwise opens the file.
func openInput(path string) (*os.File, func(), error) {
	if path == "" || path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, func() { f.Close() }, nil
}

// createOutput returns stdout for "-", otherwise creates the file.
func createOutput(path string) (*os.File, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, func() { f.Close() }, nil
}
