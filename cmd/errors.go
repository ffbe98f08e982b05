package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var errorsCmd = &cobra.Command{
	Use:   "errors <instance>",
	Short: "Show recorded runtime errors",
	Long: `Show the instance's runtime error log.

Failed commands and dev server crashes are recorded inside the sandbox;
this prints them oldest first. Pass --clear to drop the log, or -v to
include stack traces.`,
	Args: cobra.ExactArgs(1),
	RunE: runErrors,
}

var errorsClear bool

func init() {
	errorsCmd.Flags().BoolVar(&errorsClear, "clear", false, "Clear the error log instead of printing it")
	rootCmd.AddCommand(errorsCmd)
}

func runErrors(cmd *cobra.Command, args []string) error {
	instanceID := args[0]
	ctx := context.Background()

	if errorsClear {
		if err := orchestrator().ClearErrors(ctx, instanceID); err != nil {
			return err
		}
		logSuccess("Cleared error log for %s", instanceID)
		return nil
	}

	errs, err := orchestrator().Errors(ctx, instanceID)
	if err != nil {
		return err
	}
	if len(errs) == 0 {
		logInfo("No runtime errors recorded for %s", instanceID)
		return nil
	}

	for i, e := range errs {
		if i > 0 {
			fmt.Println()
		}
		fmt.Printf("[%s] %s (%s)\n", e.Timestamp, e.Severity, e.Source)
		fmt.Printf("  %s\n", e.Message)
		if e.FilePath != "" {
			loc := e.FilePath
			if e.LineNumber > 0 {
				loc = fmt.Sprintf("%s:%d", loc, e.LineNumber)
				if e.ColumnNumber > 0 {
					loc = fmt.Sprintf("%s:%d", loc, e.ColumnNumber)
				}
			}
			fmt.Printf("  at %s\n", loc)
		}
		if e.Stack != "" && verbose {
			indented := strings.ReplaceAll(strings.TrimRight(e.Stack, "\n"), "\n", "\n  ")
			fmt.Printf("  %s\n", indented)
		}
	}
	return nil
}
