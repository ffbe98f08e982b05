package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yomna-shousha/orange-build-sub000/internal/analysis"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <instance>",
	Short: "Run lint and typecheck over the working tree",
	Long: `Run the project's lint and typecheck tools inside the instance and
print the merged diagnostics.

A missing tool is reported as skipped rather than as a clean pass, so
"no issues" always means the tool actually ran.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

var analyzeJSON bool

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Output the report as JSON")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	report, err := orchestrator().Analyze(context.Background(), args[0])
	if err != nil {
		return err
	}

	if analyzeJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	if !report.LintRan {
		logWarning("Lint skipped: no lint tool available in the instance")
	}
	if !report.TypecheckRan {
		logWarning("Typecheck skipped: no typecheck tool available in the instance")
	}

	if len(report.Issues) == 0 {
		if report.LintRan || report.TypecheckRan {
			logSuccess("No issues found")
		}
		return nil
	}

	for _, issue := range report.Issues {
		fmt.Println(formatIssue(issue))
	}
	fmt.Printf("\n%d issue(s)\n", len(report.Issues))
	return nil
}

func formatIssue(issue analysis.CodeIssue) string {
	loc := issue.FilePath
	if issue.Line > 0 {
		loc = fmt.Sprintf("%s:%d", loc, issue.Line)
		if issue.Column > 0 {
			loc = fmt.Sprintf("%s:%d", loc, issue.Column)
		}
	}
	s := fmt.Sprintf("%s: %s [%s] %s", loc, issue.Severity, issue.Source, issue.Message)
	if issue.RuleID != "" {
		s += fmt.Sprintf(" (%s)", issue.RuleID)
	}
	return s
}
