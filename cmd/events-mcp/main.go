// Command events-mcp serves the events tools over stdio for desktop MCP
// clients. It shares the portal's session store, so log in through the
// portal or eventctl first.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/bobmcallan/events-portal/internal/client"
	"github.com/bobmcallan/events-portal/internal/common"
	"github.com/bobmcallan/events-portal/internal/config"
	"github.com/bobmcallan/events-portal/internal/mcp"
	"github.com/bobmcallan/events-portal/internal/session"
	"github.com/bobmcallan/events-portal/internal/storage"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	configFile := flag.String("config", "", "Path to config file (default: discovered events-portal.toml)")
	flag.Parse()

	config.LoadVersionFromFile()

	var paths []string
	if *configFile != "" {
		paths = append(paths, *configFile)
	} else if found := config.Discover(); found != "" {
		paths = append(paths, found)
	}
	cfg, err := config.LoadFromFiles(paths...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if cfg.IsDevMode() {
		// The portal owns the dev API; reach it on its fixed port.
		cfg.API.URL = cfg.DevAPIURL()
	}

	// Console output goes to stderr, stdout carries JSON-RPC.
	logger := common.NewLoggerFromConfig(cfg.Logging)

	mgr, err := storage.NewStorageManager(logger, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open session storage: %v\n", err)
		os.Exit(1)
	}
	defer mgr.Close()

	store := session.New(mgr.KeyValueStorage(), logger, session.WithKey(cfg.Session.Key))
	if err := store.Load(context.Background()); err != nil {
		logger.Warn().Err(err).Msg("failed to restore session")
	}
	if !store.IsAuthenticated() {
		logger.Warn().Msg("no saved session, tools will report an expired session until you log in")
	}

	c := client.NewFromConfig(cfg, store, logger)

	if err := server.ServeStdio(mcp.NewServer(c, logger)); err != nil {
		fmt.Fprintf(os.Stderr, "stdio server error: %v\n", err)
		os.Exit(1)
	}
}
