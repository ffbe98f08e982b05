package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <instance> <path>...",
	Short: "Print file contents from the working tree",
	Long: `Read one or more files from the instance's working tree.

Paths resolve against the instance root; escapes are rejected. Files
listed in the template's protected manifest come back redacted unless
--raw is given.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runFetch,
}

var fetchRaw bool

func init() {
	fetchCmd.Flags().BoolVar(&fetchRaw, "raw", false, "Skip protected-path redaction")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	instanceID := args[0]
	filePaths := args[1:]

	contents, err := orchestrator().FetchFiles(context.Background(), instanceID, filePaths, !fetchRaw)
	if err != nil {
		return err
	}

	for i, fc := range contents {
		if len(contents) > 1 {
			if i > 0 {
				fmt.Println()
			}
			fmt.Printf("==> %s <==\n", fc.Path)
		}
		if fc.Truncated {
			logWarning("%s exceeds the fetch size limit; content is truncated", fc.Path)
		}
		fmt.Print(fc.Content)
		if fc.Content != "" && !strings.HasSuffix(fc.Content, "\n") {
			fmt.Println()
		}
	}
	return nil
}
