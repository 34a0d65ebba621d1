// Command events-portal serves the events web portal, its MCP endpoint and,
// with -dev, a seeded in-memory events API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bobmcallan/events-portal/internal/app"
	"github.com/bobmcallan/events-portal/internal/common"
	"github.com/bobmcallan/events-portal/internal/config"
	"github.com/bobmcallan/events-portal/internal/server"
)

// stringList collects a repeatable flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

type options struct {
	configFiles stringList
	port        int
	host        string
	dev         bool
	version     bool
}

func parseFlags(args []string) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("events-portal", flag.ContinueOnError)
	fs.Var(&opts.configFiles, "config", "Configuration file path (repeatable, later files win)")
	fs.Var(&opts.configFiles, "c", "Configuration file path (shorthand)")
	fs.IntVar(&opts.port, "port", 0, "Server port (overrides config)")
	fs.IntVar(&opts.port, "p", 0, "Server port (shorthand)")
	fs.StringVar(&opts.host, "host", "", "Server host (overrides config)")
	fs.BoolVar(&opts.dev, "dev", false, "Serve the seeded in-memory events API")
	fs.BoolVar(&opts.version, "version", false, "Print version information")
	return opts, fs.Parse(args)
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	opts, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	config.LoadVersionFromFile()
	if opts.version {
		fmt.Printf("events-portal version %s\n", config.GetFullVersion())
		return 0
	}

	if len(opts.configFiles) == 0 {
		if found := config.Discover(); found != "" {
			opts.configFiles = append(opts.configFiles, found)
		}
	}
	cfg, err := config.LoadFromFiles(opts.configFiles...)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load configuration: %v\n", err)
		return 1
	}
	config.ApplyFlagOverrides(cfg, opts.port, opts.host)
	if opts.dev {
		cfg.Environment = "dev"
	}
	if issues := cfg.Validate(); len(issues) > 0 {
		printIssues(stderr, issues)
		return 1
	}

	logger := common.NewLoggerFromConfig(cfg.Logging)
	logger.Info().
		Str("version", config.GetVersion()).
		Str("environment", cfg.Environment).
		Str("config_files", opts.configFiles.String()).
		Msg("configuration loaded")

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize application")
		return 1
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Error().Err(err).Msg("application shutdown failed")
		}
	}()

	srv := server.New(application)
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Start() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error().Err(err).Msg("server failed")
			return 1
		}
		return 0
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return 1
	}
	return 0
}

func printIssues(w io.Writer, issues []string) {
	fmt.Fprintln(w, "Configuration is invalid:")
	for _, issue := range issues {
		fmt.Fprintf(w, "  - %s\n", issue)
	}
	fmt.Fprintln(w, "Set values in events-portal.toml, EVENTS_* environment variables or flags.")
}
