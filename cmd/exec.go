package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"

	"github.com/yomna-shousha/orange-build-sub000/internal/errors"
)

var execCmd = &cobra.Command{
	Use:   "exec <instance> -- <command>",
	Short: "Execute a command in an instance's working tree",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runExec,
}

var execTimeout int

func init() {
	execCmd.Flags().IntVar(&execTimeout, "timeout", 60, "Command timeout in seconds")
	rootCmd.AddCommand(execCmd)
}

func runExec(cmd *cobra.Command, args []string) error {
	instanceID := args[0]

	// Find the command to execute (everything after --)
	var execArgs []string
	foundSeparator := false
	for i, arg := range args {
		if arg == "--" {
			execArgs = args[i+1:]
			foundSeparator = true
			break
		}
	}

	// Cobra strips the first -- from the arg list, so a bare
	// "exec <instance> npm test" arrives without a separator.
	if !foundSeparator && len(args) > 1 {
		execArgs = args[1:]
	}

	if len(execArgs) == 0 {
		return errors.ValidationError("usage: orangectl exec <instance> -- <command>")
	}

	cmdStr := shellquote.Join(execArgs...)
	timeout := time.Duration(execTimeout) * time.Second

	result, err := orchestrator().Exec(context.Background(), instanceID, cmdStr, timeout)
	if err != nil {
		return err
	}

	if result.Stdout != "" {
		fmt.Fprint(os.Stdout, result.Stdout)
	}
	if result.Stderr != "" {
		fmt.Fprint(os.Stderr, result.Stderr)
	}

	if !result.Success() {
		return errors.New(result.ExitCode, fmt.Sprintf("command exited %d", result.ExitCode))
	}
	return nil
}
