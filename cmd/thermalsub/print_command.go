package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"thermalsub/internal/runner"
)

func newPrintCommand(ctx *commandContext) *cobra.Command {
	var transportFlag string
	var waitSeconds int
	var lookahead int

	cmd := &cobra.Command{
		Use:   "print [PRINTER] SCRIPT",
		Short: "Play a subtitle script on a printer in real time",
		Long: "Compile SCRIPT and send each line to PRINTER at its subtitle start time.\n" +
			"PRINTER defaults to printer.name from the configuration (or THERMALSUB_PRINTER).\n" +
			"Ctrl-C stops between units; a job already sent is never interrupted.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if transportFlag != "" {
				cfg.Printer.Transport = strings.ToLower(strings.TrimSpace(transportFlag))
			}
			if cmd.Flags().Changed("wait-device") {
				cfg.Printer.WaitForDeviceSeconds = waitSeconds
			}
			if cmd.Flags().Changed("lookahead") {
				cfg.Render.LookaheadSlots = lookahead
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			printer, script := "", args[0]
			if len(args) == 2 {
				printer, script = args[0], args[1]
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := runner.Print(runCtx, cfg, printer, script, logger); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Playback complete")
			return nil
		},
	}

	cmd.Flags().StringVarP(&transportFlag, "transport", "t", "", "Override printer.transport (cups, device, file, tcp)")
	cmd.Flags().IntVar(&waitSeconds, "wait-device", 0, "Seconds to wait for a missing device node (device transport)")
	cmd.Flags().IntVar(&lookahead, "lookahead", 0, "Override render.lookahead_slots")
	return cmd
}
