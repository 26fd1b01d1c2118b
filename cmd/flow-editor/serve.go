package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ritzau/flow-editor/pkg/config"
	"github.com/ritzau/flow-editor/pkg/controller"
	"github.com/ritzau/flow-editor/pkg/diff"
	"github.com/ritzau/flow-editor/pkg/logging"
	"github.com/ritzau/flow-editor/pkg/seed"
	"github.com/ritzau/flow-editor/pkg/watcher"
	"github.com/ritzau/flow-editor/pkg/web"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the editor state to rendering surfaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	set, origin, err := loadSeed(cfg)
	if err != nil {
		return err
	}

	ids, err := idGenerator(cfg)
	if err != nil {
		return err
	}

	ctrl, err := controller.New(set.Nodes, set.Edges, controller.Options{
		IDs:      ids,
		Viewport: controller.Viewport{Width: cfg.Viewport.Width, Height: cfg.Viewport.Height},
	})
	if err != nil {
		return fmt.Errorf("seed %s: %w", origin, err)
	}
	logging.Info("graph seeded", "seed", origin, "nodes", len(set.Nodes), "edges", len(set.Edges))

	if cfg.Watch {
		err := watcher.Watch(ctx, cfg.Seed, watcher.DefaultQuietPeriod, watcher.DefaultMaxWait, func(context.Context) error {
			set, err := seed.Load(cfg.Seed)
			if err != nil {
				return err
			}
			before := ctrl.Snapshot()
			if err := ctrl.Reset(set.Nodes, set.Edges); err != nil {
				return err
			}

			d := diff.Compute(before, ctrl.Snapshot())
			logging.Info("graph re-seeded",
				"seed", cfg.Seed,
				"addedNodes", len(d.AddedNodes),
				"removedNodes", len(d.RemovedNodes),
				"modifiedNodes", len(d.ModifiedNodes)+len(d.MovedNodes),
				"addedEdges", len(d.AddedEdges),
				"removedEdges", len(d.RemovedEdges))
			return nil
		})
		if err != nil {
			return err
		}
	}

	// Run closes the server on the way out
	return web.NewServer(ctrl).Run(ctx, cfg.Port)
}
