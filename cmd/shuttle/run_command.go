package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"shuttle/internal/controller"
	"shuttle/internal/logging"
	"shuttle/internal/services"
)

// newRunCommand builds the entry point rtorrent's event hook and cron both
// call: dispatch an optional finished item, reclaim fast-tier space, then
// drain any queued work into free slots.
func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run [HASH]",
		Short: "Dispatch a finished item and reclaim fast-tier space",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := ctx.logger()
			if err != nil {
				return err
			}
			runCtx := services.WithRequestID(cmd.Context(), uuid.NewString())
			log = logging.NewComponentLogger(log, "run")

			client, _, err := ctx.rtorrentClient()
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			coord, err := ctx.newCoordinator(store)
			if err != nil {
				return err
			}

			if len(args) == 1 {
				id, err := controller.ParseID(args[0])
				if err != nil {
					return fmt.Errorf("invalid info hash %q: %w", args[0], err)
				}
				itemCtx := services.WithItemHash(runCtx, string(id))
				outcome, err := coord.Dispatch(itemCtx, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "item %s %s\n", id.Short(), outcome)
				if item, err := client.Item(itemCtx, id, controller.FieldName, controller.FieldLabel, controller.FieldSize); err != nil {
					log.Warn("could not fetch item details",
						logging.String(logging.FieldItemHash, id.Short()),
						logging.Error(err))
				} else {
					log.Info("dispatched item",
						logging.String(logging.FieldItemHash, id.Short()),
						logging.String("name", item.Name),
						logging.String("label", item.Label),
						logging.Int64("size_bytes", item.SizeBytes))
				}
			}

			manager, err := ctx.newReclaimManager(client)
			if err != nil {
				return err
			}
			ran, err := coord.WithReclamationLease(runCtx, func(leaseCtx context.Context) error {
				summary, err := manager.Reclaim(leaseCtx)
				if err != nil {
					return err
				}
				if summary.Relocated > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "relocated %d item(s), freed %.1f GiB\n",
						summary.Relocated, summary.FreedGiB)
				}
				return nil
			})
			if err != nil {
				return err
			}
			if !ran {
				log.Info("reclamation skipped, lease held elsewhere")
			}

			drained, err := coord.DrainQueue(runCtx)
			if err != nil {
				return err
			}
			if drained > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "dispatched %d queued item(s)\n", drained)
			}
			return nil
		},
	}
}
