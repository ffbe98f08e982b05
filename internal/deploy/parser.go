package deploy

import "regexp"

// Output is the structured result scraped from the deploy tool's free-text
// output. Zero fields mean the pattern did not match.
type Output struct {
	URL       string
	VersionID string
}

var (
	workersURLRe = regexp.MustCompile(`https://[a-z0-9][-a-z0-9.]*\.workers\.dev`)

	// Newer wrangler prints "Current Version ID:", older releases printed
	// "Deployment ID:".
	versionIDRe    = regexp.MustCompile(`Current Version ID:\s*([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})`)
	deploymentIDRe = regexp.MustCompile(`Deployment ID:\s*([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})`)
)

// ParseOutput scans deploy tool output for the live URL and the version
// identifier.
func ParseOutput(out string) Output {
	return Output{
		URL:       workersURLRe.FindString(out),
		VersionID: ParseVersionID(out),
	}
}

// ParseVersionID extracts the version identifier from deploy tool output,
// preferring the current-version form over the legacy deployment form.
func ParseVersionID(out string) string {
	if m := versionIDRe.FindStringSubmatch(out); m != nil {
		return m[1]
	}
	if m := deploymentIDRe.FindStringSubmatch(out); m != nil {
		return m[1]
	}
	return ""
}
