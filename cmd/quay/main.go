// Package main is the entry point for the quay application host.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/quayhost/quay/apps"
	"github.com/quayhost/quay/internal/bus"
	"github.com/quayhost/quay/internal/component"
	"github.com/quayhost/quay/internal/component/lua"
	"github.com/quayhost/quay/internal/dock"
	"github.com/quayhost/quay/internal/host"
	"github.com/quayhost/quay/internal/setup"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()
	log := initLogger(opts.LogLevel)

	doc, err := setup.Load(opts.SetupPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	components := component.NewRegistry(
		component.WithSearchPaths(opts.ComponentPaths...),
		component.WithScriptFactory(lua.NewFactory),
	)
	if err := apps.RegisterAll(components); err != nil {
		fmt.Fprintf(os.Stderr, "Error: registering applications: %v\n", err)
		return 1
	}

	registry := bus.NewRegistry(bus.WithLogger(log))

	var container dock.Container = dock.NewNop()
	var terminal *dock.Terminal
	if !opts.Headless {
		terminal, err = dock.NewTerminal()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create terminal: %v\n", err)
			return 1
		}
		container = terminal
	}

	h := host.New(registry, components, container, host.WithLogger(log))

	if err := registry.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := registry.Stop(ctx); err != nil {
			log.Warn().Err(err).Msg("dispatch shutdown incomplete")
		}
	}()

	if err := h.Load(doc); err != nil {
		log.Error().Err(err).Msg("some applications failed to start")
	}

	if opts.Watch {
		watcher, err := setup.Watch(opts.SetupPath, func(doc *setup.Document) {
			if err := h.Reconcile(doc); err != nil {
				log.Error().Err(err).Msg("reconcile incomplete")
			}
		}, setup.WithWatchLogger(log))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: watching setup file: %v\n", err)
			return 1
		}
		defer watcher.Close()
	}

	// Handle signals for graceful shutdown
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	if terminal != nil {
		go func() {
			<-signals
			terminal.Close()
		}()
		terminal.Run()
		return 0
	}

	log.Info().Str("setup", opts.SetupPath).Msg("running headless")
	<-signals
	return 0
}

func parseFlags() setup.Options {
	var (
		optionsPath string
		setupPath   string
		logLevel    string
		headless    bool
		watch       bool
		paths       []string
		showVersion bool
		showHelp    bool
	)

	flag.StringVar(&optionsPath, "options", "./quay.toml", "Path to host options file")
	flag.StringVar(&setupPath, "setup", "", "Path to set-up document")
	flag.StringVar(&setupPath, "s", "", "Path to set-up document (shorthand)")
	flag.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.BoolVar(&headless, "headless", false, "Run without the terminal container")
	flag.BoolVar(&watch, "watch", false, "Reconcile on set-up file changes")
	flag.Func("path", "Script component search path (repeatable)", func(p string) error {
		paths = append(paths, p)
		return nil
	})
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Quay - in-process application host\n\n")
		fmt.Fprintf(os.Stderr, "Usage: quay [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  quay                        Load ./setup.json\n")
		fmt.Fprintf(os.Stderr, "  quay -s lab.json -watch     Reconcile on file changes\n")
		fmt.Fprintf(os.Stderr, "  quay -headless              Run without panels\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("Quay %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	opts, err := setup.LoadOptions(optionsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Explicit flags override the options file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "setup", "s":
			opts.SetupPath = setupPath
		case "log-level":
			opts.LogLevel = logLevel
		case "headless":
			opts.Headless = headless
		case "watch":
			opts.Watch = watch
		}
	})
	opts.ComponentPaths = append(opts.ComponentPaths, paths...)

	switch opts.LogLevel {
	case "debug", "info", "warn", "error":
		// Valid
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", opts.LogLevel)
		os.Exit(1)
	}

	return opts
}

func initLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).Level(lvl).With().Timestamp().Str("app", "quay").Logger()
}
