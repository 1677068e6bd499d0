package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var monitorLabel string

var monitorCmd = &cobra.Command{
	Use:   "monitor [user|team|portfolio|project] [gid]",
	Short: "Add an entity to the monitored set that sync-all iterates (spec.md §4.5)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		if err := f.AddMonitoredEntity(ctx, args[1], args[0], monitorLabel); err != nil {
			return err
		}
		fmt.Printf("now monitoring %s %s\n", args[0], args[1])
		return nil
	},
}

func init() {
	monitorCmd.Flags().StringVar(&monitorLabel, "label", "", "human-readable label for this monitored entity")
}
