package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/errorterry/algotrack-agent/internal/algos"
	"github.com/errorterry/algotrack-agent/internal/config"
	"github.com/errorterry/algotrack-agent/internal/fetch"
	"github.com/errorterry/algotrack-agent/internal/messages"
	"github.com/errorterry/algotrack-agent/internal/observability"
	"github.com/errorterry/algotrack-agent/internal/page"
	"github.com/errorterry/algotrack-agent/internal/samples"
)

var samplesCommand = &cobra.Command{
	Use:   "samples <problem-url>",
	Short: "Extract the sample inputs and outputs from a problem page",
	Long: `Fetches one problem page, extracts its sample blocks and prints the full
broadcast payload as JSON. With a store configured, the page's algorithm
tags are learned as a side effect, exactly as the live pipeline does.`,
	Args: cobra.ExactArgs(1),
	RunE: runSamplesCmd,
}

var (
	samplesConfigPath string
	samplesStore      string
	samplesStorePath  string
	samplesDBURL      string
	samplesUseBrowser bool
	samplesVerbose    bool
)

func init() {
	samplesCommand.Flags().StringVar(&samplesConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	samplesCommand.Flags().StringVar(&samplesStore, "store", "", "Store driver: memory, sqlite or postgres")
	samplesCommand.Flags().StringVar(&samplesStorePath, "store-path", "", "SQLite database file")
	samplesCommand.Flags().StringVar(&samplesDBURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	samplesCommand.Flags().BoolVar(&samplesUseBrowser, "use-browser", false, "Render pages in a headless browser (requires Chrome)")
	samplesCommand.Flags().BoolVarP(&samplesVerbose, "verbose", "v", false, "Print detailed debug information")

	rootCmd.AddCommand(samplesCommand)
}

func runSamplesCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadCommandConfig(samplesConfigPath, func(c *config.Config) {
		if cmd.Flags().Changed("store") {
			c.StoreDriver = samplesStore
		}
		if cmd.Flags().Changed("store-path") {
			c.StorePath = samplesStorePath
		}
		if cmd.Flags().Changed("db-url") {
			c.DatabaseURL = samplesDBURL
		}
		if cmd.Flags().Changed("use-browser") {
			c.UseBrowser = samplesUseBrowser
		}
	})
	if err != nil {
		return err
	}

	logger := newLogger(samplesVerbose || cfg.Verbose)
	ctx := context.Background()

	opts := fetch.DefaultOptions()
	opts.UseBrowser = cfg.UseBrowser
	doc, u, err := fetch.Document(ctx, args[0], opts)
	if err != nil {
		return err
	}
	if !page.IsProblemPage(u) {
		return fmt.Errorf("%s is not a problem page", args[0])
	}

	extracted := samples.NewExtractor().Extract(doc)
	if extracted == nil {
		extracted = []samples.Sample{}
	}
	meta := page.ExtractMeta(doc, u)

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() { _ = store.Close() }()

	if tags := algos.ScrapeTags(doc); len(tags) > 0 {
		if err := algos.NewCatalog(store).Learn(ctx, meta.ProblemID, tags); err != nil {
			logger.Warn("failed to learn tags", "problem", meta.ProblemID, "err", err)
		} else {
			logger.Debug("learned tags", "problem", meta.ProblemID, "tags", tags)
		}
	}

	payload := messages.SamplesPayload{
		ProblemID:    meta.ProblemID,
		ProblemTitle: meta.ProblemTitle,
		URL:          meta.SourceURL,
		Samples:      extracted,
		ParsedAt:     time.Now().UnixMilli(),
	}
	if samplesVerbose || cfg.Verbose {
		observability.NewPrinter(os.Stderr).PrintSamples(&payload)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
