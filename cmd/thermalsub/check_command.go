package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"thermalsub/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check [PRINTER]",
		Short: "Check directories and printer transport readiness",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			printer := ""
			if len(args) == 1 {
				printer = args[0]
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("thermalsub preflight", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderStatusLine("Config", statusInfo, ctx.configPath, colorize))
			fmt.Fprintln(out, renderStatusLine("Transport", statusInfo, cfg.Printer.Transport, colorize))

			results := preflight.RunAll(cmd.Context(), cfg, printer)
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}
			if preflight.Failed(results) {
				return errors.New("preflight checks failed")
			}
			return nil
		},
	}
}
