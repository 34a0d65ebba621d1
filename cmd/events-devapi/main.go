// Command events-devapi runs the seeded in-memory events API on its own,
// for containers and for pointing eventctl at something disposable.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bobmcallan/events-portal/internal/common"
	"github.com/bobmcallan/events-portal/internal/config"
	"github.com/bobmcallan/events-portal/internal/devapi"
)

func main() {
	addr := flag.String("addr", "", "Listen address (default 0.0.0.0:<dev_api.port>)")
	configFile := flag.String("config", "", "Path to config file")
	flag.Parse()

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
	if *addr == "" {
		*addr = fmt.Sprintf("0.0.0.0:%d", cfg.DevAPI.Port)
	}

	logger := common.NewLoggerFromConfig(cfg.Logging)

	api, err := devapi.New(devapi.OptionsFromConfig(cfg), logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to create development API")
		os.Exit(1)
	}
	url, err := api.Start(*addr)
	if err != nil {
		logger.Error().Err(err).Msg("failed to start development API")
		os.Exit(1)
	}
	logger.Info().
		Str("url", url).
		Str("admin", devapi.AdminEmail).
		Str("user", devapi.UserEmail).
		Msg("development API ready")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := api.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("development API shutdown failed")
	}
}
