package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/errorterry/algotrack-agent/internal/algos"
	"github.com/errorterry/algotrack-agent/internal/bus"
	"github.com/errorterry/algotrack-agent/internal/config"
	"github.com/errorterry/algotrack-agent/internal/fetch"
	"github.com/errorterry/algotrack-agent/internal/ledger"
	"github.com/errorterry/algotrack-agent/internal/relay"
	"github.com/errorterry/algotrack-agent/internal/watcher"
)

var watchCommand = &cobra.Command{
	Use:   "watch",
	Short: "Watch the results listing and relay the next accepted submission",
	Long: `Polls the user's own results listing until a qualifying accepted submission
appears, resolves its algorithm tag, posts it to the companion service and
records it so it is never reported twice.

Configuration can be loaded from a JSON file using --config. Command-line
arguments override config file values.`,
	RunE: runWatchCmd,
}

var (
	watchConfigPath string
	watchSiteURL    string
	watchAPIURL     string
	watchUserID     string
	watchStore      string
	watchStorePath  string
	watchDBURL      string
	watchUseBrowser bool
	watchVerbose    bool
)

func init() {
	watchCommand.Flags().StringVar(&watchConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	watchCommand.Flags().StringVar(&watchSiteURL, "site-url", "", "Judge site root URL")
	watchCommand.Flags().StringVar(&watchAPIURL, "api-url", "", "Companion service root URL for solve logs")
	watchCommand.Flags().StringVarP(&watchUserID, "user", "u", "", "Judge-site handle whose results are watched")
	watchCommand.Flags().StringVar(&watchStore, "store", "", "Store driver: memory, sqlite or postgres")
	watchCommand.Flags().StringVar(&watchStorePath, "store-path", "", "SQLite database file")
	watchCommand.Flags().StringVar(&watchDBURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	watchCommand.Flags().BoolVar(&watchUseBrowser, "use-browser", false, "Render pages in a headless browser (requires Chrome)")
	watchCommand.Flags().BoolVarP(&watchVerbose, "verbose", "v", false, "Print detailed debug information")

	rootCmd.AddCommand(watchCommand)
}

func runWatchCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadCommandConfig(watchConfigPath, func(c *config.Config) {
		if cmd.Flags().Changed("site-url") {
			c.SiteBaseURL = watchSiteURL
		}
		if cmd.Flags().Changed("api-url") {
			c.APIBaseURL = watchAPIURL
		}
		if cmd.Flags().Changed("user") {
			c.UserID = watchUserID
		}
		if cmd.Flags().Changed("store") {
			c.StoreDriver = watchStore
		}
		if cmd.Flags().Changed("store-path") {
			c.StorePath = watchStorePath
		}
		if cmd.Flags().Changed("db-url") {
			c.DatabaseURL = watchDBURL
		}
		if cmd.Flags().Changed("use-browser") {
			c.UseBrowser = watchUseBrowser
		}
	})
	if err != nil {
		return err
	}
	if cfg.SiteBaseURL == "" {
		return fmt.Errorf("a judge site URL is required (--site-url or %s)", config.EnvSiteBaseURL)
	}
	if cfg.APIBaseURL == "" {
		return fmt.Errorf("a companion service URL is required (--api-url or %s)", config.EnvAPIBaseURL)
	}

	logger := newLogger(watchVerbose || cfg.Verbose)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() { _ = store.Close() }()

	b := bus.NewMemory()
	defer func() { _ = b.Close() }()

	reporter := relay.NewReporter(relay.ReporterConfig{BaseURL: cfg.APIBaseURL}, store, logger.With("task", "reporter"))
	defer reporter.Start(b)()

	catalog := algos.NewCatalog(store)
	resolver := algos.NewResolver(catalog, &algos.TerminalPrompter{In: os.Stdin, Out: os.Stdout})

	opts := fetch.DefaultOptions()
	opts.UseBrowser = cfg.UseBrowser
	statusURL, err := statusListingURL(cfg)
	if err != nil {
		return err
	}

	wcfg := watcher.Config{
		InitialDelay:  cfg.InitialDelay(),
		SweepInterval: cfg.SweepInterval(),
		Budget:        cfg.Budget(),
	}
	if watchVerbose || cfg.Verbose {
		onRow, cancel := verboseObserver(b)
		defer cancel()
		wcfg.OnRow = onRow
	}
	w := watcher.New(wcfg, fetch.Loader(statusURL, opts), ledger.New(store), resolver, b, nil, logger.With("task", "watcher"))

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// statusListingURL builds the results listing URL for the configured user.
func statusListingURL(cfg *config.Config) (string, error) {
	base, err := url.Parse(cfg.SiteBaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid site URL %q: %w", cfg.SiteBaseURL, err)
	}
	base.Path = "/status"
	if cfg.UserID != "" {
		q := base.Query()
		q.Set("user_id", cfg.UserID)
		base.RawQuery = q.Encode()
	}
	return base.String(), nil
}

// loadCommandConfig loads the optional config file, overlays environment
// variables, applies explicit flag overrides on top, and validates the
// result.
func loadCommandConfig(path string, applyFlags func(*config.Config)) (*config.Config, error) {
	var cfg config.Config
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	applyFlags(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
