package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shuttle/internal/space"
)

// newStatusCommand reports host state without mutating anything: worker
// slots, queue depth, lease holders, and tier free space.
func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show workers, queue depth, and tier free space",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(cmd.OutOrStdout())

			fmt.Fprintln(out, renderSectionHeader("Shuttle status", colorize))

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			coord, err := ctx.newCoordinator(store)
			if err != nil {
				return err
			}

			workers, err := coord.WorkerCount()
			if err != nil {
				fmt.Fprintln(out, renderStatusLine("Workers", statusError, err.Error(), colorize))
			} else {
				kind := statusOK
				if workers >= cfg.Workers.MaxConcurrent {
					kind = statusWarn
				}
				fmt.Fprintln(out, renderStatusLine("Workers", kind,
					fmt.Sprintf("%d of %d slots in use", workers, cfg.Workers.MaxConcurrent), colorize))
			}

			summary, err := store.Summary(cmd.Context())
			if err != nil {
				fmt.Fprintln(out, renderStatusLine("Queue", statusError, err.Error(), colorize))
			} else if summary.Count == 0 {
				fmt.Fprintln(out, renderStatusLine("Queue", statusOK, "empty", colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Queue", statusWarn,
					fmt.Sprintf("%d waiting, oldest since %s", summary.Count,
						summary.Oldest.Format("2006-01-02 15:04:05")), colorize))
			}

			leases, err := ctx.leaseManager()
			if err != nil {
				return err
			}
			held, err := leases.IsHeldByLiveProcess("space-reclamation")
			switch {
			case err != nil:
				fmt.Fprintln(out, renderStatusLine("Reclamation", statusError, err.Error(), colorize))
			case held:
				pid, _ := leases.HolderPID("space-reclamation")
				fmt.Fprintln(out, renderStatusLine("Reclamation", statusInfo,
					fmt.Sprintf("running (pid %d)", pid), colorize))
			default:
				fmt.Fprintln(out, renderStatusLine("Reclamation", statusOK, "idle", colorize))
			}

			for _, tier := range []struct {
				label string
				path  string
				floor float64
			}{
				{"Fast tier free", cfg.Paths.FastDir, float64(cfg.Space.ThresholdGiB)},
				{"Capacity tier free", cfg.Paths.CapacityDir, 0},
			} {
				free, ok := space.AvailableGiB(tier.path)
				if !ok {
					fmt.Fprintln(out, renderStatusLine(tier.label, statusError,
						"unavailable: "+tier.path, colorize))
					continue
				}
				kind := statusOK
				if tier.floor > 0 && free < tier.floor {
					kind = statusWarn
				}
				fmt.Fprintln(out, renderStatusLine(tier.label, kind,
					fmt.Sprintf("%.1f GiB", free), colorize))
			}
			return nil
		},
	}
}
