package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/errorterry/algotrack-agent/internal/bus"
	"github.com/errorterry/algotrack-agent/internal/config"
)

// defaultHubAddr is the loopback address agent processes rendezvous on.
const defaultHubAddr = "127.0.0.1:8777"

var hubCommand = &cobra.Command{
	Use:   "hub",
	Short: "Run the relay hub that connects agent processes",
	Long: `Runs the websocket hub other agent processes dial to exchange sample
broadcasts, run results and submission relays across process boundaries.`,
	RunE: runHubCmd,
}

var (
	hubConfigPath string
	hubAddr       string
	hubVerbose    bool
)

func init() {
	hubCommand.Flags().StringVar(&hubConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	hubCommand.Flags().StringVar(&hubAddr, "addr", "", "Listen address (default "+defaultHubAddr+")")
	hubCommand.Flags().BoolVarP(&hubVerbose, "verbose", "v", false, "Print detailed debug information")

	rootCmd.AddCommand(hubCommand)
}

func runHubCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadCommandConfig(hubConfigPath, func(c *config.Config) {
		if cmd.Flags().Changed("addr") {
			c.HubAddr = hubAddr
		}
	})
	if err != nil {
		return err
	}
	addr := cfg.HubAddr
	if addr == "" {
		addr = defaultHubAddr
	}

	logger := newLogger(hubVerbose || cfg.Verbose)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return bus.NewHub(logger).ListenAndServe(ctx, addr)
}
