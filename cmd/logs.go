package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs <instance>",
	Short: "Show dev server output",
	Long: `Show the captured output of the instance's dev server.

The supervisor keeps the full stdout/stderr stream of the monitored
process; by default only the last 50 lines are printed.`,
	Args: cobra.ExactArgs(1),
	RunE: runLogs,
}

var logsLines int

func init() {
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 50, "Number of lines to show (0 for all)")
	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	out, err := orchestrator().Logs(context.Background(), args[0])
	if err != nil {
		return err
	}
	fmt.Print(tailLines(out, logsLines))
	return nil
}

// tailLines returns the last n lines of s. n <= 0 means no limit.
func tailLines(s string, n int) string {
	if n <= 0 || s == "" {
		return s
	}
	lines := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[len(lines)-n:], "\n") + "\n"
}
