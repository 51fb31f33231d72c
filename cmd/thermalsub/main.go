package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"thermalsub/internal/failures"
)

const exitInterrupted = 130

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "interrupted")
			os.Exit(exitInterrupted)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(failures.ExitCode(err))
	}
}
