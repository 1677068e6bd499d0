package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adlio/asanadw/internal/sync"
)

var (
	syncSinceFlag string
	syncForceFlag bool
)

var syncCmd = &cobra.Command{
	Use:   "sync [all|user|team|portfolio|project] [gid]",
	Short: "Sync one monitored entity, or every monitored entity, from Asana",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		opts := sync.Options{Force: syncForceFlag}
		if syncSinceFlag != "" {
			t, err := parseSince(syncSinceFlag)
			if err != nil {
				return err
			}
			opts.Since = &t
		}

		kind := args[0]
		if kind == "all" {
			reports, err := f.SyncAll(ctx, opts)
			if err != nil {
				return err
			}
			for _, r := range reports {
				printReport(r)
			}
			return nil
		}

		if len(args) != 2 {
			return fmt.Errorf("sync %s requires a gid argument", kind)
		}
		report, err := f.SyncEntity(ctx, args[1], kind, opts)
		if err != nil {
			return err
		}
		printReport(report)
		return nil
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncSinceFlag, "since", "", "only sync activity since this time (freeform, e.g. \"7 days ago\")")
	syncCmd.Flags().BoolVar(&syncForceFlag, "force", false, "force a full resync of the desired window")
}

func printReport(r sync.Report) {
	fmt.Printf("%s %s: %s (synced=%d skipped=%d failed=%d batches=%d)\n",
		r.EntityGID, "job="+r.JobID, r.Status, r.ItemsSynced, r.ItemsSkipped, r.ItemsFailed, r.BatchesTotal)
}
