package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/ritzau/flow-editor/pkg/controller"
	"github.com/ritzau/flow-editor/pkg/output"
)

var errInvalidSeed = errors.New("invalid seed")

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Validate the seed and print a summary without serving",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}

			set, origin, err := loadSeed(cfg)
			if err != nil {
				output.PrintProblems(os.Stdout, origin, err)
				return errInvalidSeed
			}

			ctrl, err := controller.New(set.Nodes, set.Edges, controller.Options{})
			if err != nil {
				output.PrintProblems(os.Stdout, origin, err)
				return errInvalidSeed
			}

			output.PrintGraphSummary(os.Stdout, origin, ctrl.Snapshot(), ctrl.Stats())
			return nil
		},
	}
}
