package provision

import (
	"fmt"
	"regexp"

	"github.com/BurntSushi/toml"
)

// ManifestFile is the deployment manifest every template ships.
const ManifestFile = "wrangler.toml"

// Resource types provisionable through manifest placeholders.
const (
	TypeKV    = "kv"
	TypeD1    = "d1"
	TypeR2    = "r2"
	TypeQueue = "queue"
)

// placeholderRe matches {{provision:<type>:<binding>}} tokens.
var placeholderRe = regexp.MustCompile(`\{\{provision:(kv|d1|r2|queue):([A-Za-z0-9_-]+)\}\}`)

// nameKeyRe matches the manifest's name assignment. Only the first match is
// rewritten; later ones belong to environment blocks.
var nameKeyRe = regexp.MustCompile(`(?m)^(\s*name\s*=\s*)"[^"]*"`)

// Placeholder is one provisioning token found in a manifest.
type Placeholder struct {
	Raw     string // full token text, replaced byte-for-byte on success
	Type    string
	Binding string
}

// FindPlaceholders returns every provisioning token in order of appearance,
// duplicates included.
func FindPlaceholders(manifest string) []Placeholder {
	var out []Placeholder
	for _, m := range placeholderRe.FindAllStringSubmatch(manifest, -1) {
		out = append(out, Placeholder{Raw: m[0], Type: m[1], Binding: m[2]})
	}
	return out
}

// Manifest is the structural view of wrangler.toml. Only the fields the
// provisioner and deploy pipeline read are modeled; everything else passes
// through untouched because rewrites are textual.
type Manifest struct {
	Name              string `toml:"name"`
	Main              string `toml:"main"`
	CompatibilityDate string `toml:"compatibility_date"`
}

// ParseManifest decodes the manifest, confirming it is well-formed TOML.
func ParseManifest(text string) (*Manifest, error) {
	var m Manifest
	if _, err := toml.Decode(text, &m); err != nil {
		return nil, fmt.Errorf("invalid wrangler.toml: %w", err)
	}
	return &m, nil
}

// RewriteName replaces the manifest's project name in place, preserving
// every other byte. Text without a name key comes back unchanged.
func RewriteName(manifest, newName string) string {
	replaced := false
	return nameKeyRe.ReplaceAllStringFunc(manifest, func(match string) string {
		if replaced {
			return match
		}
		replaced = true
		prefix := nameKeyRe.FindStringSubmatch(match)[1]
		return prefix + `"` + newName + `"`
	})
}
