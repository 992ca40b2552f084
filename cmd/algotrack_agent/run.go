package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/errorterry/algotrack-agent/internal/algos"
	"github.com/errorterry/algotrack-agent/internal/bridge"
	"github.com/errorterry/algotrack-agent/internal/bus"
	"github.com/errorterry/algotrack-agent/internal/config"
	"github.com/errorterry/algotrack-agent/internal/fetch"
	"github.com/errorterry/algotrack-agent/internal/ledger"
	"github.com/errorterry/algotrack-agent/internal/page"
	"github.com/errorterry/algotrack-agent/internal/relay"
	"github.com/errorterry/algotrack-agent/internal/samples"
	"github.com/errorterry/algotrack-agent/internal/watcher"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run the full observation and relay pipeline",
	Long: `Runs every pipeline role in one process: the sample bridge on a problem
page, the submission watcher on the results listing, the run-result sink,
the login gate and the solve-log reporter, all wired over one message bus.

With --hub-url the process joins a relay hub instead of staying local, so
several agent processes can share one pipeline.

Configuration can be loaded from a JSON file using --config. Command-line
arguments override config file values.`,
	RunE: runAgentCmd,
}

var (
	runConfigPath string
	runProblemURL string
	runSiteURL    string
	runAPIURL     string
	runUserID     string
	runHubURL     string
	runStore      string
	runStorePath  string
	runDBURL      string
	runUseBrowser bool
	runVerbose    bool
)

func init() {
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	runCommand.Flags().StringVarP(&runProblemURL, "problem-url", "p", "", "Problem page to bridge samples from (optional)")
	runCommand.Flags().StringVar(&runSiteURL, "site-url", "", "Judge site root URL")
	runCommand.Flags().StringVar(&runAPIURL, "api-url", "", "Companion service root URL for solve logs")
	runCommand.Flags().StringVarP(&runUserID, "user", "u", "", "Judge-site handle whose results are watched")
	runCommand.Flags().StringVar(&runHubURL, "hub-url", "", "Relay hub websocket URL (optional, runs locally when unset)")
	runCommand.Flags().StringVar(&runStore, "store", "", "Store driver: memory, sqlite or postgres")
	runCommand.Flags().StringVar(&runStorePath, "store-path", "", "SQLite database file")
	runCommand.Flags().StringVar(&runDBURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	runCommand.Flags().BoolVar(&runUseBrowser, "use-browser", false, "Render pages in a headless browser (requires Chrome)")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print detailed debug information")

	rootCmd.AddCommand(runCommand)
}

func runAgentCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadCommandConfig(runConfigPath, func(c *config.Config) {
		if cmd.Flags().Changed("site-url") {
			c.SiteBaseURL = runSiteURL
		}
		if cmd.Flags().Changed("api-url") {
			c.APIBaseURL = runAPIURL
		}
		if cmd.Flags().Changed("user") {
			c.UserID = runUserID
		}
		if cmd.Flags().Changed("hub-url") {
			c.HubURL = runHubURL
		}
		if cmd.Flags().Changed("store") {
			c.StoreDriver = runStore
		}
		if cmd.Flags().Changed("store-path") {
			c.StorePath = runStorePath
		}
		if cmd.Flags().Changed("db-url") {
			c.DatabaseURL = runDBURL
		}
		if cmd.Flags().Changed("use-browser") {
			c.UseBrowser = runUseBrowser
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

	logger := newLogger(runVerbose || cfg.Verbose)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() { _ = store.Close() }()

	var b bus.Bus
	if cfg.HubURL != "" {
		client, err := bus.Dial(ctx, cfg.HubURL, logger)
		if err != nil {
			return fmt.Errorf("failed to join hub: %w", err)
		}
		b = client
		logger.Info("joined relay hub", "url", cfg.HubURL)
	} else {
		b = bus.NewMemory()
	}
	defer func() { _ = b.Close() }()

	// Background roles: solve-log reporter, run-result sink, login gate.
	defer relay.NewReporter(relay.ReporterConfig{BaseURL: cfg.APIBaseURL}, store, logger.With("task", "reporter")).Start(b)()
	defer relay.NewResultSink(store, logger.With("task", "results")).Start(b)()
	defer relay.NewLoginGate(cfg.AllowedOrigins, store, logger.With("task", "login")).Start(b)()

	catalog := algos.NewCatalog(store)
	resolver := algos.NewResolver(catalog, &algos.TerminalPrompter{In: os.Stdin, Out: os.Stdout})

	opts := fetch.DefaultOptions()
	opts.UseBrowser = cfg.UseBrowser
	loader := fetch.NewCachedLoader(opts, 0)

	group, groupCtx := errgroup.WithContext(ctx)

	if runProblemURL != "" {
		br := bridge.New(bridge.Config{}, loader.Loader(runProblemURL), samples.NewExtractor(), b, nil, nil, logger.With("task", "bridge"))
		group.Go(func() error { return br.Run(groupCtx) })
		group.Go(func() error { return learnProblemTags(groupCtx, loader, runProblemURL, catalog, logger) })
	}

	statusURL, err := statusListingURL(cfg)
	if err != nil {
		return err
	}
	wcfg := watcher.Config{
		InitialDelay:  cfg.InitialDelay(),
		SweepInterval: cfg.SweepInterval(),
		Budget:        cfg.Budget(),
	}
	if runVerbose || cfg.Verbose {
		onRow, cancel := verboseObserver(b)
		defer cancel()
		wcfg.OnRow = onRow
	}
	w := watcher.New(wcfg, fetch.Loader(statusURL, opts), ledger.New(store), resolver, b, nil, logger.With("task", "watcher"))
	group.Go(func() error { return w.Run(groupCtx) })

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// learnProblemTags scrapes the problem page's tag list once so the
// resolver can name the algorithm when the submission lands.
func learnProblemTags(ctx context.Context, loader *fetch.CachedLoader, problemURL string, catalog *algos.Catalog, logger *slog.Logger) error {
	doc, u, err := loader.Document(ctx, problemURL)
	if err != nil {
		logger.Warn("failed to load problem page for tags", "err", err)
		return nil
	}
	meta := page.ExtractMeta(doc, u)
	tags := algos.ScrapeTags(doc)
	if meta.ProblemID == "" || len(tags) == 0 {
		return nil
	}
	if err := catalog.Learn(ctx, meta.ProblemID, tags); err != nil {
		logger.Warn("failed to learn tags", "problem", meta.ProblemID, "err", err)
		return nil
	}
	logger.Info("learned tags", "problem", meta.ProblemID, "tags", tags)
	return nil
}
