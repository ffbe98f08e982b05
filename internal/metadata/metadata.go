// Package metadata owns the per-instance descriptor: one JSON file per
// instance inside its runner's filesystem, mirrored by an in-process cache.
//
// Descriptors live outside the instance working tree, under
// .orange/instances/<id>.json at the runner workspace root, so a shutdown
// can remove the working tree while leaving the descriptor behind for audit.
// The cache is read-through (refreshed on miss) and dropped on shutdown;
// it is never authoritative beyond one lifecycle call.
package metadata

import (
	"errors"
	"time"
)

// ErrNotFound indicates no descriptor exists for the instance.
var ErrNotFound = errors.New("instance metadata not found")

// DescriptorDir is the workspace-relative directory holding descriptors.
const DescriptorDir = ".orange/instances"

// DescriptorPath returns the workspace-relative descriptor path for an
// instance.
func DescriptorPath(instanceID string) string {
	return DescriptorDir + "/" + instanceID + ".json"
}

// InstanceMetadata is the descriptor for one instance. Exactly one exists
// per instance id at any time; the lifecycle orchestrator is its only
// writer.
type InstanceMetadata struct {
	InstanceID    string `json:"instanceId"`
	TemplateName  string `json:"templateName"`
	ProjectName   string `json:"projectName"`
	StartTime     string `json:"startTime"`
	WebhookURL    string `json:"webhookUrl,omitempty"`
	PreviewURL    string `json:"previewURL,omitempty"`
	TunnelURL     string `json:"tunnelURL,omitempty"`
	ProcessID     string `json:"processId,omitempty"`
	AllocatedPort int    `json:"allocatedPort,omitempty"`

	// SetupError summarizes a failed background setup. Empty when setup
	// succeeded or has not finished yet.
	SetupError string `json:"setupError,omitempty"`
}

// New returns a descriptor with the start time stamped.
func New(instanceID, templateName, projectName string) *InstanceMetadata {
	return &InstanceMetadata{
		InstanceID:   instanceID,
		TemplateName: templateName,
		ProjectName:  projectName,
		StartTime:    time.Now().Format(time.RFC3339),
	}
}

// Started parses the descriptor's start time. Returns the zero time when
// the field is missing or malformed.
func (m *InstanceMetadata) Started() time.Time {
	t, err := time.Parse(time.RFC3339, m.StartTime)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Dir returns the instance's workspace-relative working directory.
func (m *InstanceMetadata) Dir() string {
	return m.InstanceID
}
