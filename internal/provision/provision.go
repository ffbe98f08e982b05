// Package provision resolves resource placeholders in instance deployment
// manifests.
//
// Templates declare the cloud resources they need with
// {{provision:<type>:<binding>}} tokens inside wrangler.toml. A provisioning
// pass finds every token, creates the referenced resource through the
// platform API, and substitutes the resulting id in place. Failures are
// per-token: one resource failing leaves its placeholder untouched and the
// rest of the batch proceeds. Without platform credentials every token is
// reported failed, never thrown.
package provision

import (
	"context"
	"fmt"
	"strings"

	"github.com/yomna-shousha/orange-build-sub000/internal/config"
	"github.com/yomna-shousha/orange-build-sub000/internal/logging"
	"github.com/yomna-shousha/orange-build-sub000/internal/sandbox"
)

// Result reports one provisioning pass over a manifest.
type Result struct {
	Provisioned     map[string]string `json:"provisioned"` // token → resource id
	Failed          map[string]string `json:"failed"`      // token → error text
	Replacements    int               `json:"replacements"`
	WranglerUpdated bool              `json:"wranglerUpdated"`
}

// Provisioner runs provisioning passes against instances.
type Provisioner struct {
	client ResourceClient
}

// NewProvisioner builds a Provisioner from platform config. Without
// credentials the provisioner still runs; it reports every placeholder as
// failed instead of erroring.
func NewProvisioner(cfg config.PlatformConfig) *Provisioner {
	if !cfg.HasCredentials() {
		return &Provisioner{}
	}
	return &Provisioner{client: NewAPIClient(cfg)}
}

// NewProvisionerWithClient injects a ResourceClient directly.
func NewProvisionerWithClient(client ResourceClient) *Provisioner {
	return &Provisioner{client: client}
}

// Run provisions every placeholder in the instance's manifest and rewrites
// the file once when at least one resource succeeded. A manifest without
// placeholders produces zero API calls and WranglerUpdated=false.
func (p *Provisioner) Run(ctx context.Context, c sandbox.Client, instanceID string) (*Result, error) {
	result := &Result{
		Provisioned: make(map[string]string),
		Failed:      make(map[string]string),
	}

	manifestPath := instanceID + "/" + ManifestFile
	data, _, err := c.ReadFile(ctx, manifestPath, 0)
	if err != nil {
		logging.Debug("no manifest to provision", "instance", instanceID)
		return result, nil
	}
	text := string(data)

	tokens := dedupe(FindPlaceholders(text))
	if len(tokens) == 0 {
		return result, nil
	}

	if _, err := ParseManifest(text); err != nil {
		return nil, err
	}

	if p.client == nil {
		for _, tok := range tokens {
			result.Failed[tok.Raw] = "platform credentials not configured"
		}
		logging.Warn("provisioning skipped, no platform credentials",
			"instance", instanceID, "placeholders", len(tokens))
		return result, nil
	}

	for _, tok := range tokens {
		id, err := p.client.Provision(ctx, tok.Type, tok.Binding)
		if err != nil {
			result.Failed[tok.Raw] = err.Error()
			logging.Warn("resource provisioning failed",
				"instance", instanceID, "type", tok.Type, "binding", tok.Binding, "error", err)
			continue
		}
		result.Provisioned[tok.Raw] = id
		logging.Info("resource provisioned",
			"instance", instanceID, "type", tok.Type, "binding", tok.Binding, "id", id)
	}

	if len(result.Provisioned) == 0 {
		return result, nil
	}

	updated := text
	for raw, id := range result.Provisioned {
		result.Replacements += strings.Count(updated, raw)
		updated = strings.ReplaceAll(updated, raw, id)
	}

	if err := c.WriteFile(ctx, manifestPath, []byte(updated)); err != nil {
		return nil, fmt.Errorf("failed to rewrite manifest: %w", err)
	}
	result.WranglerUpdated = true
	return result, nil
}

// dedupe drops repeated tokens, keeping first-appearance order. The same
// placeholder occurring twice provisions one resource; both occurrences get
// the same id on rewrite.
func dedupe(tokens []Placeholder) []Placeholder {
	seen := make(map[string]bool, len(tokens))
	var out []Placeholder
	for _, tok := range tokens {
		if seen[tok.Raw] {
			continue
		}
		seen[tok.Raw] = true
		out = append(out, tok)
	}
	return out
}
