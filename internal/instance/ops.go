package instance

import (
	"context"
	"time"

	"github.com/yomna-shousha/orange-build-sub000/internal/analysis"
	"github.com/yomna-shousha/orange-build-sub000/internal/audit"
	"github.com/yomna-shousha/orange-build-sub000/internal/command"
	"github.com/yomna-shousha/orange-build-sub000/internal/config"
	"github.com/yomna-shousha/orange-build-sub000/internal/errlog"
	"github.com/yomna-shousha/orange-build-sub000/internal/errors"
	"github.com/yomna-shousha/orange-build-sub000/internal/files"
	"github.com/yomna-shousha/orange-build-sub000/internal/metadata"
	"github.com/yomna-shousha/orange-build-sub000/internal/sandbox"
)

// resolve validates an instance id, dials its runner, and loads its
// descriptor. Every instance-scoped operation funnels through here so a
// bad or unknown id fails the same way everywhere.
func (o *Orchestrator) resolve(ctx context.Context, instanceID string) (sandbox.Client, *metadata.InstanceMetadata, error) {
	if err := config.ValidateInstanceID(instanceID); err != nil {
		return nil, nil, errors.ValidationError(err.Error())
	}
	client, err := o.dial(instanceID)
	if err != nil {
		return nil, nil, err
	}
	meta, err := o.load(ctx, client, instanceID)
	if err != nil {
		return nil, nil, err
	}
	return client, meta, nil
}

// Exec runs a shell command in the instance's working directory. Non-zero
// exits come back in the result and are recorded as runtime errors.
func (o *Orchestrator) Exec(ctx context.Context, instanceID, cmd string, timeout time.Duration) (*sandbox.ExecResult, error) {
	client, _, err := o.resolve(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	return command.Run(ctx, client, instanceID, cmd, timeout)
}

// Logs returns the dev server's cumulative output.
func (o *Orchestrator) Logs(ctx context.Context, instanceID string) (string, error) {
	client, meta, err := o.resolve(ctx, instanceID)
	if err != nil {
		return "", err
	}
	if meta.ProcessID == "" {
		return "", errors.InstanceNotRunning(instanceID)
	}
	logs, err := client.ProcessLogs(ctx, meta.ProcessID)
	if err != nil {
		return "", errors.RunnerFailed("process logs", err)
	}
	return logs, nil
}

// Errors returns the instance's recorded runtime errors, oldest first.
func (o *Orchestrator) Errors(ctx context.Context, instanceID string) ([]errlog.RuntimeError, error) {
	client, _, err := o.resolve(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	return errlog.List(ctx, client, instanceID)
}

// ClearErrors drops the instance's runtime error log.
func (o *Orchestrator) ClearErrors(ctx context.Context, instanceID string) error {
	client, _, err := o.resolve(ctx, instanceID)
	if err != nil {
		return err
	}
	return errlog.Clear(ctx, client, instanceID)
}

// Tree builds the instance's navigable file tree.
func (o *Orchestrator) Tree(ctx context.Context, instanceID string) (*files.FileTreeNode, error) {
	client, _, err := o.resolve(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	return files.Tree(ctx, client, instanceID)
}

// FetchFiles reads file contents from the working tree. With filtered set,
// paths listed in the instance's protected manifest come back redacted.
func (o *Orchestrator) FetchFiles(ctx context.Context, instanceID string, paths []string, filtered bool) ([]files.FileContent, error) {
	client, _, err := o.resolve(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	return files.Fetch(ctx, client, instanceID, paths, filtered)
}

// Analyze runs lint and typecheck over the working tree.
func (o *Orchestrator) Analyze(ctx context.Context, instanceID string) (*analysis.Report, error) {
	client, _, err := o.resolve(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	return analysis.Run(ctx, client, instanceID)
}

// Events returns the instance's lifecycle audit trail.
func (o *Orchestrator) Events(instanceID string) ([]audit.Event, error) {
	if err := config.ValidateInstanceID(instanceID); err != nil {
		return nil, errors.ValidationError(err.Error())
	}
	return o.audit.Events(instanceID)
}
