// Package analysis runs lint and typecheck tooling inside an instance and
// normalizes their heterogeneous output into one issue list.
//
// The two tools run concurrently and are isolated from each other: a
// missing or crashing tool drops its issues from the report instead of
// failing the request. Exit code 1 with parseable output is
// success-with-issues, not failure.
package analysis

import (
	"context"
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/yomna-shousha/orange-build-sub000/internal/logging"
	"github.com/yomna-shousha/orange-build-sub000/internal/sandbox"
)

// Issue severities.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// Issue sources.
const (
	SourceLint      = "lint"
	SourceTypecheck = "typecheck"
)

// toolTimeout bounds each analysis tool run.
const toolTimeout = 2 * time.Minute

// CodeIssue is one normalized diagnostic. Never persisted.
type CodeIssue struct {
	Message  string `json:"message"`
	FilePath string `json:"filePath"`
	Line     int    `json:"line"`
	Column   int    `json:"column,omitempty"`
	Severity string `json:"severity"`
	RuleID   string `json:"ruleId,omitempty"`
	Source   string `json:"source"`
}

// Report is the outcome of one analysis pass. LintRan and TypecheckRan
// distinguish "no issues" from "tool unavailable".
type Report struct {
	Issues       []CodeIssue `json:"issues"`
	LintRan      bool        `json:"lintRan"`
	TypecheckRan bool        `json:"typecheckRan"`
}

// Run executes both tools concurrently and merges their results. Issues
// come back sorted by file, line, and source so the report is stable
// across runs.
func Run(ctx context.Context, c sandbox.Client, instanceID string) (*Report, error) {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		report Report
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		issues, ran := runLint(ctx, c, instanceID)
		mu.Lock()
		report.LintRan = ran
		report.Issues = append(report.Issues, issues...)
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		issues, ran := runTypecheck(ctx, c, instanceID)
		mu.Lock()
		report.TypecheckRan = ran
		report.Issues = append(report.Issues, issues...)
		mu.Unlock()
	}()
	wg.Wait()

	sort.Slice(report.Issues, func(i, j int) bool {
		a, b := report.Issues[i], report.Issues[j]
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Source < b.Source
	})

	return &report, nil
}

// eslintFile is one entry of eslint's JSON formatter output.
type eslintFile struct {
	FilePath string `json:"filePath"`
	Messages []struct {
		RuleID   string `json:"ruleId"`
		Severity int    `json:"severity"`
		Message  string `json:"message"`
		Line     int    `json:"line"`
		Column   int    `json:"column"`
	} `json:"messages"`
}

// runLint executes eslint and flattens its JSON output.
func runLint(ctx context.Context, c sandbox.Client, instanceID string) ([]CodeIssue, bool) {
	result, err := c.Exec(ctx, sandbox.ExecRequest{
		Cmd:     "npx eslint . --format json",
		Cwd:     instanceID,
		Timeout: toolTimeout,
	})
	if err != nil {
		logging.Debug("lint unavailable", "instance", instanceID, "error", err)
		return nil, false
	}

	var files []eslintFile
	if err := json.Unmarshal([]byte(strings.TrimSpace(result.Stdout)), &files); err != nil {
		logging.Debug("lint output not parseable",
			"instance", instanceID, "exitCode", result.ExitCode, "stderr", result.Stderr)
		return nil, false
	}

	var issues []CodeIssue
	for _, f := range files {
		for _, m := range f.Messages {
			severity := SeverityInfo
			switch m.Severity {
			case 2:
				severity = SeverityError
			case 1:
				severity = SeverityWarning
			}
			issues = append(issues, CodeIssue{
				Message:  m.Message,
				FilePath: normalizePath(instanceID, f.FilePath),
				Line:     m.Line,
				Column:   m.Column,
				Severity: severity,
				RuleID:   m.RuleID,
				Source:   SourceLint,
			})
		}
	}
	return issues, true
}

// tscLineRe captures one tsc diagnostic: file(line,col): severity TSnnnn: message.
var tscLineRe = regexp.MustCompile(`^(.+)\((\d+),(\d+)\): (error|warning) (TS\d+): (.*)$`)

// runTypecheck executes tsc and parses its line-oriented output.
// Lines that do not open a new diagnostic continue the previous one.
func runTypecheck(ctx context.Context, c sandbox.Client, instanceID string) ([]CodeIssue, bool) {
	result, err := c.Exec(ctx, sandbox.ExecRequest{
		Cmd:     "npx tsc --noEmit --pretty false",
		Cwd:     instanceID,
		Timeout: toolTimeout,
	})
	if err != nil {
		logging.Debug("typecheck unavailable", "instance", instanceID, "error", err)
		return nil, false
	}

	issues := parseTscOutput(instanceID, result.Stdout)
	if result.ExitCode == 0 || len(issues) > 0 {
		return issues, true
	}

	logging.Debug("typecheck output not parseable",
		"instance", instanceID, "exitCode", result.ExitCode, "stderr", result.Stderr)
	return nil, false
}

// parseTscOutput walks tsc's stdout line by line.
func parseTscOutput(instanceID, out string) []CodeIssue {
	var issues []CodeIssue
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}

		m := tscLineRe.FindStringSubmatch(line)
		if m == nil {
			if len(issues) > 0 {
				issues[len(issues)-1].Message += "\n" + strings.TrimSpace(line)
			}
			continue
		}

		lineNo, _ := strconv.Atoi(m[2])
		colNo, _ := strconv.Atoi(m[3])
		issues = append(issues, CodeIssue{
			Message:  m[6],
			FilePath: normalizePath(instanceID, m[1]),
			Line:     lineNo,
			Column:   colNo,
			Severity: m[4],
			RuleID:   m[5],
			Source:   SourceTypecheck,
		})
	}
	return issues
}

// normalizePath strips the instance directory prefix from tool-reported
// paths, leaving them instance-relative.
func normalizePath(instanceID, p string) string {
	if idx := strings.Index(p, instanceID+"/"); idx >= 0 {
		return p[idx+len(instanceID)+1:]
	}
	return strings.TrimPrefix(p, "./")
}
