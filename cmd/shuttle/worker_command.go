package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"shuttle/internal/controller"
	"shuttle/internal/services"
)

// newWorkerCommand builds the hidden per-item worker the coordinator spawns.
// It copies one finished item to the capacity tier and requests a rescan.
func newWorkerCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:    "worker HASH",
		Short:  "Process one finished item (spawned internally)",
		Hidden: true,
		Args:   cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := controller.ParseID(args[0])
			if err != nil {
				return fmt.Errorf("invalid info hash %q: %w", args[0], err)
			}

			client, _, err := ctx.rtorrentClient()
			if err != nil {
				return err
			}
			relocator, err := ctx.newRelocator(client)
			if err != nil {
				return err
			}

			workCtx := services.WithRequestID(cmd.Context(), uuid.NewString())
			workCtx = services.WithItemHash(workCtx, string(id))
			return relocator.ProcessFinished(workCtx, id)
		},
	}
}
