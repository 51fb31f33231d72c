package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"thermalsub/internal/escpos"
	"thermalsub/internal/runner"
	"thermalsub/internal/subtitles"
)

const previewWidth = 48

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var dumpPath string
	var limit int

	cmd := &cobra.Command{
		Use:   "plan SCRIPT",
		Short: "Compile a script and show when each unit will print",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			plan, err := runner.Compile(cmd.Context(), cfg, args[0], logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Script:    %s\n", plan.ScriptPath)
			fmt.Fprintf(out, "Entries:   %d (%d images, %d skipped lines)\n", plan.Stats.Entries, plan.Stats.Images, plan.Stats.Skipped)
			fmt.Fprintf(out, "Fragments: %d -> %d units (lookahead %d)\n", len(plan.Fragments), len(plan.Units), cfg.Render.LookaheadSlots)
			fmt.Fprintf(out, "Bytes:     %d\n", plan.Bytes())
			fmt.Fprintf(out, "Duration:  %s\n", subtitles.FormatTimestamp(plan.Duration()))

			units := plan.Units
			truncated := 0
			if limit > 0 && len(units) > limit {
				truncated = len(units) - limit
				units = units[:limit]
			}
			rows := make([][]string, 0, len(units))
			for i, unit := range units {
				rows = append(rows, []string{
					strconv.Itoa(i),
					subtitles.FormatTimestamp(unit.Time),
					strconv.Itoa(len(unit.Data)),
					truncatePreview(escpos.Printable(unit.Data), previewWidth),
				})
			}
			if len(rows) > 0 {
				fmt.Fprintln(out, renderTable(
					[]string{"#", "Due", "Bytes", "Preview"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
				))
			}
			if truncated > 0 {
				fmt.Fprintf(out, "... %d more units\n", truncated)
			}

			if dumpPath != "" {
				if err := os.WriteFile(dumpPath, plan.Stream(), 0o644); err != nil {
					return fmt.Errorf("write dump: %w", err)
				}
				fmt.Fprintf(out, "Wrote %d bytes to %s\n", plan.Bytes(), dumpPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dumpPath, "dump", "", "Write the raw ESC/POS stream to this file")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most this many units (0 shows all)")
	return cmd
}

func truncatePreview(s string, width int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}
