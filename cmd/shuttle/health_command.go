package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shuttle/internal/health"
	"shuttle/internal/logging"
)

// newHealthCommand probes dependencies and exits non-zero when a critical one
// is down, so it can serve as a container healthcheck.
func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe storage tiers, the controller, and library services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			log, err := ctx.logger()
			if err != nil {
				return err
			}

			_, raw, err := ctx.rtorrentClient()
			if err != nil {
				return err
			}

			runner := health.NewRunner(cfg, raw, logging.NewComponentLogger(log, "health"))
			report := runner.Run(cmd.Context())

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintln(out, renderSectionHeader("Health", colorize))
			for _, check := range report.Checks {
				kind := statusOK
				if !check.Healthy {
					kind = statusWarn
					if check.Critical {
						kind = statusError
					}
				}
				fmt.Fprintln(out, renderStatusLine(check.Name, kind, check.Detail, colorize))
			}
			if report.InGrace {
				fmt.Fprintln(out, renderStatusLine("Startup grace", statusInfo, "active", colorize))
			}
			if !report.Healthy {
				return fmt.Errorf("unhealthy")
			}
			return nil
		},
	}
}
