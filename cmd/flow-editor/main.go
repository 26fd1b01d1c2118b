package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ritzau/flow-editor/pkg/config"
	"github.com/ritzau/flow-editor/pkg/logging"
	"github.com/ritzau/flow-editor/pkg/model"
	"github.com/ritzau/flow-editor/pkg/seed"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "flow-editor",
		Short:         "Source/destination diagram editor backend",
		Long:          "flow-editor owns a graph of source and destination nodes and serves it to browser rendering surfaces over HTTP, SSE and WebSocket.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	config.RegisterFlags(root.PersistentFlags())
	root.AddCommand(serveCmd(), seedCmd())
	return root
}

// setup loads the layered config for cmd and configures logging from it
func setup(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(cfg.Verbosity, cfg.VerboseCnt)
	if err != nil {
		return nil, err
	}
	if err := logging.Setup(os.Stderr, level, cfg.Log.Format); err != nil {
		return nil, err
	}

	logging.Debug("configuration loaded",
		"port", cfg.Port,
		"seed", cfg.Seed,
		"watch", cfg.Watch,
		"ids", cfg.IDs,
		"viewport", fmt.Sprintf("%gx%g", cfg.Viewport.Width, cfg.Viewport.Height))
	return cfg, nil
}

func loadSeed(cfg *config.Config) (seed.Set, string, error) {
	origin := cfg.Seed
	if origin == "" {
		origin = "built-in"
	}
	set, err := seed.Resolve(cfg.Seed)
	return set, origin, err
}

func idGenerator(cfg *config.Config) (model.IDGenerator, error) {
	return model.NewIDGenerator(cfg.IDs)
}
