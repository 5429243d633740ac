package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newDetectCommand() *cobra.Command {
	var (
		groupID int64
		orderID int64
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Run one detection pass over a group, or recheck a single order",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (groupID == 0) == (orderID == 0) {
				return fmt.Errorf("exactly one of --group or --order is required")
			}

			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}

			a := newApp(cfg, logger)
			if err := a.start(cmd.Context()); err != nil {
				return err
			}
			defer a.stop()

			var result any
			if groupID != 0 {
				report, err := a.service.DetectGroup(cmd.Context(), groupID, force)
				if err != nil {
					return err
				}
				result = report.Summary
			} else {
				outcome, err := a.service.CheckOrder(cmd.Context(), orderID)
				if err != nil {
					return err
				}
				result = outcome
			}

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().Int64Var(&groupID, "group", 0, "group id to screen")
	cmd.Flags().Int64Var(&orderID, "order", 0, "order id to recheck")
	cmd.Flags().BoolVar(&force, "force", false, "rescan orders that were already checked")
	return cmd
}
