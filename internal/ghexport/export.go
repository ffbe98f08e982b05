// Package ghexport pushes an instance's working tree to a GitHub
// repository. Every step is idempotent so a re-export of the same instance
// converges instead of failing: init only when missing, commit only when
// dirty, repository creation tolerating "already exists".
package ghexport

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/yomna-shousha/orange-build-sub000/internal/app"
	"github.com/yomna-shousha/orange-build-sub000/internal/audit"
	"github.com/yomna-shousha/orange-build-sub000/internal/config"
	"github.com/yomna-shousha/orange-build-sub000/internal/errors"
	"github.com/yomna-shousha/orange-build-sub000/internal/logging"
	"github.com/yomna-shousha/orange-build-sub000/internal/metadata"
	"github.com/yomna-shousha/orange-build-sub000/internal/sandbox"
)

const (
	defaultCommitMessage = "Exported by orangectl"

	gitTimeout  = 30 * time.Second
	pushTimeout = 5 * time.Minute
)

// Request describes one export.
type Request struct {
	RepositoryName string
	Private        bool
	Description    string

	// Username and Email become the committer identity inside the
	// instance; the repository owner is always the token's account.
	Username string
	Email    string
	Token    string

	CommitMessage string
}

// Result reports one export.
type Result struct {
	RepositoryURL string
	CloneURL      string
	CommitSHA     string

	// Created is false when the repository already existed on the remote.
	Created bool
}

// Exporter runs the export pipeline against an instance's working tree.
type Exporter struct {
	app    *app.App
	meta   *metadata.Store
	audit  *audit.Logger
	newAPI func(token string) *APIClient
}

// NewExporter creates an Exporter.
func NewExporter(a *app.App) *Exporter {
	return &Exporter{
		app:    a,
		meta:   metadata.NewStore(),
		audit:  audit.NewLogger(a.Paths.EventsDir),
		newAPI: NewAPIClient,
	}
}

func (e *Exporter) validate(instanceID string, req Request) error {
	if err := config.ValidateInstanceID(instanceID); err != nil {
		return errors.ValidationError(err.Error())
	}
	if req.RepositoryName == "" {
		return errors.ValidationError("repository name is required")
	}
	if req.Token == "" {
		return errors.ValidationError("a GitHub token is required")
	}
	if req.Username == "" || req.Email == "" {
		return errors.ValidationError("committer username and email are required")
	}
	return nil
}

// Export creates (or reuses) the remote repository and pushes the instance
// working tree to its main branch.
func (e *Exporter) Export(ctx context.Context, instanceID string, req Request) (*Result, error) {
	if err := e.validate(instanceID, req); err != nil {
		return nil, err
	}
	repoName := SanitizeRepoName(req.RepositoryName)
	if repoName == "" {
		return nil, errors.ValidationError(fmt.Sprintf("repository name %q has no usable characters", req.RepositoryName))
	}

	client, err := e.dial(instanceID)
	if err != nil {
		return nil, err
	}
	if _, err := e.meta.Get(ctx, client, instanceID); err != nil {
		if errors.Is(err, metadata.ErrNotFound) {
			return nil, errors.InstanceNotFound(instanceID)
		}
		return nil, errors.RunnerFailed("metadata read", err)
	}

	api := e.newAPI(req.Token)
	user, err := api.AuthenticatedUser(ctx)
	if err != nil {
		return nil, errors.ExportError("resolving the token's account failed", err)
	}
	repo, created, err := api.EnsureRepo(ctx, user.Login, repoName, req.Description, req.Private)
	if err != nil {
		return nil, errors.ExportError("preparing the remote repository failed", err)
	}
	logging.Info("remote repository ready",
		"instance", instanceID, "repo", repo.FullName, "created", created)

	sha, err := e.pushTree(ctx, client, instanceID, req, repo)
	if err != nil {
		return nil, err
	}

	logging.Info("instance exported", "instance", instanceID, "repo", repo.HTMLURL, "commit", sha)
	e.event(audit.EventExport, instanceID, repo.HTMLURL)
	return &Result{
		RepositoryURL: repo.HTMLURL,
		CloneURL:      repo.CloneURL,
		CommitSHA:     sha,
		Created:       created,
	}, nil
}

// pushTree runs the git sequence inside the instance directory. Probes
// decide each conditional step so the sequence converges on re-runs.
func (e *Exporter) pushTree(ctx context.Context, client sandbox.Client, instanceID string, req Request, repo *Repo) (string, error) {
	message := req.CommitMessage
	if message == "" {
		message = defaultCommitMessage
	}

	probe, err := e.git(ctx, client, instanceID, "test -d .git", gitTimeout)
	if err != nil {
		return "", err
	}
	if !probe.Success() {
		if _, err := e.run(ctx, client, instanceID, "git init", "git init -q", req.Token, gitTimeout); err != nil {
			return "", err
		}
	}

	identity := shellquote.Join("git", "config", "user.name", req.Username) +
		" && " + shellquote.Join("git", "config", "user.email", req.Email)
	if _, err := e.run(ctx, client, instanceID, "git config", identity, req.Token, gitTimeout); err != nil {
		return "", err
	}

	status, err := e.git(ctx, client, instanceID, "git status --porcelain", gitTimeout)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(status.Stdout) != "" {
		commit := "git add -A && " + shellquote.Join("git", "commit", "-q", "-m", message)
		if _, err := e.run(ctx, client, instanceID, "git commit", commit, req.Token, gitTimeout); err != nil {
			return "", err
		}
	}

	// A remote cannot be pushed from a repository with zero commits.
	head, err := e.git(ctx, client, instanceID, "git rev-list --count HEAD", gitTimeout)
	if err != nil {
		return "", err
	}
	if !head.Success() {
		empty := shellquote.Join("git", "commit", "-q", "--allow-empty", "-m", message)
		if _, err := e.run(ctx, client, instanceID, "git commit", empty, req.Token, gitTimeout); err != nil {
			return "", err
		}
	}

	if _, err := e.run(ctx, client, instanceID, "git branch", "git branch -M main", req.Token, gitTimeout); err != nil {
		return "", err
	}

	remote := pushURL(repo.CloneURL, req.Token)
	setRemote := shellquote.Join("git", "remote", "add", "origin", remote) +
		" 2>/dev/null || " + shellquote.Join("git", "remote", "set-url", "origin", remote)
	if _, err := e.run(ctx, client, instanceID, "git remote", setRemote, req.Token, gitTimeout); err != nil {
		return "", err
	}

	if _, err := e.run(ctx, client, instanceID, "git push", "git push -u origin main", req.Token, pushTimeout); err != nil {
		return "", err
	}

	rev, err := e.run(ctx, client, instanceID, "git rev-parse", "git rev-parse HEAD", req.Token, gitTimeout)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(rev.Stdout), nil
}

func (e *Exporter) git(ctx context.Context, client sandbox.Client, instanceID, cmd string, timeout time.Duration) (*sandbox.ExecResult, error) {
	res, err := client.Exec(ctx, sandbox.ExecRequest{Cmd: cmd, Cwd: instanceID, Timeout: timeout})
	if err != nil {
		return nil, errors.RunnerFailed("git", err)
	}
	return res, nil
}

// run executes a step that must succeed. Failures carry the tool's own
// error text, with the token scrubbed.
func (e *Exporter) run(ctx context.Context, client sandbox.Client, instanceID, label, cmd, token string, timeout time.Duration) (*sandbox.ExecResult, error) {
	res, err := e.git(ctx, client, instanceID, cmd, timeout)
	if err != nil {
		return nil, err
	}
	if !res.Success() {
		detail := strings.TrimSpace(res.Stderr)
		if detail == "" {
			detail = strings.TrimSpace(res.Stdout)
		}
		if detail == "" {
			detail = fmt.Sprintf("exit code %d", res.ExitCode)
		}
		return nil, errors.ExportError(fmt.Sprintf("%s failed: %s", label, redact(detail, token)), nil)
	}
	return res, nil
}

// pushURL embeds the token in the clone URL so the push needs no
// credential helper inside the sandbox. The URL never appears in logs.
func pushURL(cloneURL, token string) string {
	return strings.Replace(cloneURL, "https://", "https://x-access-token:"+token+"@", 1)
}

func redact(text, token string) string {
	if token == "" {
		return text
	}
	return strings.ReplaceAll(text, token, "***")
}

func (e *Exporter) dial(instanceID string) (sandbox.Client, error) {
	if e.app.Dialer == nil {
		return nil, errors.ConfigError("no runner backend configured", nil)
	}
	c, err := e.app.DialInstance(instanceID)
	if err != nil {
		return nil, errors.RunnerFailed("dial", err)
	}
	return c, nil
}

func (e *Exporter) event(eventType audit.EventType, instanceID, details string) {
	if err := e.audit.LogEvent(eventType, instanceID, details); err != nil {
		logging.Debug("audit write failed", "instance", instanceID, "error", err)
	}
}
