package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/bobmcallan/events-portal/internal/client"
	"github.com/bobmcallan/events-portal/internal/common"
	"github.com/bobmcallan/events-portal/internal/config"
	"github.com/bobmcallan/events-portal/internal/interfaces"
	"github.com/bobmcallan/events-portal/internal/notify"
	"github.com/bobmcallan/events-portal/internal/session"
	"github.com/bobmcallan/events-portal/internal/storage"
	"github.com/bobmcallan/events-portal/internal/validation"
	"github.com/spf13/cobra"
)

// cli is the state shared by every subcommand. It is filled in by the root
// command's PersistentPreRunE.
type cli struct {
	configFile string
	jsonOut    bool
	verbose    bool

	cfg     *config.Config
	logger  *common.Logger
	storage interfaces.StorageManager
	client  *client.Client
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "eventctl",
		Short:         "Manage events, registrations and your profile from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.connect(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.storage != nil {
				return c.storage.Close()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&c.configFile, "config", "c", "", "config file (default: events-portal.toml when present)")
	root.PersistentFlags().BoolVar(&c.jsonOut, "json", false, "print JSON instead of tables")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log requests to stderr")

	root.AddCommand(
		c.loginCmd(),
		c.logoutCmd(),
		c.statusCmd(),
		c.registerCmd(),
		c.eventsCmd(),
		c.registrationsCmd(),
		c.categoriesCmd(),
		c.profileCmd(),
		versionCmd(),
	)

	return root
}

// connect loads configuration and opens the persisted session.
func (c *cli) connect(cmd *cobra.Command) error {
	if cmd.Name() == "version" {
		return nil
	}

	var paths []string
	if c.configFile != "" {
		paths = append(paths, c.configFile)
	} else if found := config.Discover(); found != "" {
		paths = append(paths, found)
	}
	cfg, err := config.LoadFromFiles(paths...)
	if err != nil {
		return err
	}
	if cfg.IsDevMode() {
		cfg.API.URL = cfg.DevAPIURL()
	}
	if issues := cfg.Validate(); len(issues) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(issues, "; "))
	}

	c.cfg = cfg
	if c.verbose {
		c.logger = common.NewTextLogger("debug", cmd.ErrOrStderr())
	} else {
		cfg.Logging.Outputs = []string{"console"}
		cfg.Logging.Level = "warn"
		c.logger = common.NewLoggerFromConfig(cfg.Logging)
	}

	mgr, err := storage.NewStorageManager(c.logger, cfg)
	if err != nil {
		return err
	}
	c.storage = mgr

	store := session.New(mgr.KeyValueStorage(), c.logger, session.WithKey(cfg.Session.Key))
	if err := store.Load(cmd.Context()); err != nil {
		c.logger.Warn().Err(err).Msg("failed to restore session")
	}
	c.client = client.NewFromConfig(cfg, store, c.logger)
	return nil
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// describe turns client and validation errors into something a terminal
// user can act on.
func describe(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, client.ErrSessionExpired) {
		return errors.New("not logged in or session expired, run `eventctl login`")
	}
	if errors.Is(err, client.ErrNotFound) {
		return errors.New("not found")
	}
	if apiErr, ok := client.AsAPIError(err); ok {
		msg := notify.ErrorText(err)
		if fields := apiErr.FieldErrors(); len(fields) > 0 {
			msg += "\n" + fieldLines(fields)
		}
		return errors.New(msg)
	}
	return err
}

// invalid reports validation failures one field per line.
func invalid(errs validation.Errors) error {
	return errors.New("invalid input\n" + fieldLines(errs))
}

func fieldLines(fields map[string]string) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	lines := make([]string, len(names))
	for i, name := range names {
		lines[i] = fmt.Sprintf("  %s: %s", name, fields[name])
	}
	return strings.Join(lines, "\n")
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the eventctl version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config.LoadVersionFromFile()
			fmt.Fprintf(cmd.OutOrStdout(), "eventctl version %s\n", config.GetFullVersion())
			return nil
		},
	}
}
