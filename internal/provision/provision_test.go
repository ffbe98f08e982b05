package provision

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yomna-shousha/orange-build-sub000/internal/sandbox"
)

// fakeResourceClient scripts provisioning outcomes per binding.
type fakeResourceClient struct {
	ids   map[string]string
	errs  map[string]error
	calls int
}

func (f *fakeResourceClient) Provision(ctx context.Context, resourceType, binding string) (string, error) {
	f.calls++
	if err, ok := f.errs[binding]; ok {
		return "", err
	}
	if id, ok := f.ids[binding]; ok {
		return id, nil
	}
	return "", errors.New("unscripted binding: " + binding)
}

func seedManifest(mock *sandbox.Mock, instanceID, text string) {
	mock.Files[instanceID+"/"+ManifestFile] = []byte(text)
}

func TestRun_AllSucceed(t *testing.T) {
	mock := sandbox.NewMock()
	seedManifest(mock, "demo-app-1a2b3c4d", sampleManifest)

	fake := &fakeResourceClient{ids: map[string]string{
		"CACHE":   "kv-123",
		"DB":      "d1-456",
		"UPLOADS": "uploads-bucket",
	}}
	p := NewProvisionerWithClient(fake)

	result, err := p.Run(context.Background(), mock, "demo-app-1a2b3c4d")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Provisioned) != 3 || len(result.Failed) != 0 {
		t.Fatalf("result = %+v", result)
	}
	if !result.WranglerUpdated || result.Replacements != 3 {
		t.Errorf("WranglerUpdated=%v Replacements=%d, want true/3", result.WranglerUpdated, result.Replacements)
	}

	updated := string(mock.Files["demo-app-1a2b3c4d/"+ManifestFile])
	if strings.Contains(updated, "{{provision:") {
		t.Errorf("placeholders left in rewritten manifest:\n%s", updated)
	}
	if !strings.Contains(updated, `id = "kv-123"`) {
		t.Errorf("kv id not substituted:\n%s", updated)
	}
	// Untouched bytes stay untouched.
	if !strings.Contains(updated, `compatibility_date = "2026-01-15"`) {
		t.Error("rewrite disturbed unrelated manifest content")
	}
}

func TestRun_PartialFailure(t *testing.T) {
	mock := sandbox.NewMock()
	seedManifest(mock, "demo-app-1a2b3c4d", sampleManifest)

	fake := &fakeResourceClient{
		ids:  map[string]string{"CACHE": "kv-123", "UPLOADS": "uploads-bucket"},
		errs: map[string]error{"DB": errors.New("quota exceeded")},
	}
	p := NewProvisionerWithClient(fake)

	result, err := p.Run(context.Background(), mock, "demo-app-1a2b3c4d")
	if err != nil {
		t.Fatalf("partial failure must not abort the batch: %v", err)
	}

	if len(result.Provisioned) != 2 || len(result.Failed) != 1 {
		t.Fatalf("result = %+v", result)
	}
	if !strings.Contains(result.Failed["{{provision:d1:DB}}"], "quota exceeded") {
		t.Errorf("failed = %v", result.Failed)
	}

	// Failed placeholder stays byte-for-byte; successes substituted.
	updated := string(mock.Files["demo-app-1a2b3c4d/"+ManifestFile])
	if !strings.Contains(updated, "{{provision:d1:DB}}") {
		t.Error("failed placeholder must stay untouched")
	}
	if strings.Contains(updated, "{{provision:kv:CACHE}}") {
		t.Error("successful placeholder should be substituted")
	}
	if !result.WranglerUpdated {
		t.Error("one success is enough to rewrite")
	}
}

func TestRun_NoPlaceholders(t *testing.T) {
	mock := sandbox.NewMock()
	seedManifest(mock, "demo-app-1a2b3c4d", `name = "resolved-app"`)

	fake := &fakeResourceClient{}
	p := NewProvisionerWithClient(fake)

	result, err := p.Run(context.Background(), mock, "demo-app-1a2b3c4d")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if fake.calls != 0 {
		t.Errorf("got %d API calls, want 0", fake.calls)
	}
	if result.WranglerUpdated {
		t.Error("nothing to do means WranglerUpdated=false")
	}
}

func TestRun_IdempotentAfterResolution(t *testing.T) {
	mock := sandbox.NewMock()
	seedManifest(mock, "demo-app-1a2b3c4d", sampleManifest)

	fake := &fakeResourceClient{ids: map[string]string{
		"CACHE": "kv-123", "DB": "d1-456", "UPLOADS": "uploads-bucket",
	}}
	p := NewProvisionerWithClient(fake)
	ctx := context.Background()

	if _, err := p.Run(ctx, mock, "demo-app-1a2b3c4d"); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	callsAfterFirst := fake.calls

	result, err := p.Run(ctx, mock, "demo-app-1a2b3c4d")
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if fake.calls != callsAfterFirst {
		t.Errorf("second pass made %d extra API calls, want 0", fake.calls-callsAfterFirst)
	}
	if result.WranglerUpdated {
		t.Error("second pass on a resolved manifest must report WranglerUpdated=false")
	}
}

func TestRun_MissingCredentials(t *testing.T) {
	mock := sandbox.NewMock()
	seedManifest(mock, "demo-app-1a2b3c4d", sampleManifest)

	p := &Provisioner{} // no client configured

	result, err := p.Run(context.Background(), mock, "demo-app-1a2b3c4d")
	if err != nil {
		t.Fatalf("missing credentials must not throw: %v", err)
	}
	if len(result.Failed) != 3 || len(result.Provisioned) != 0 {
		t.Errorf("result = %+v, want all placeholders failed", result)
	}
	if result.WranglerUpdated {
		t.Error("nothing provisioned, nothing rewritten")
	}
}

func TestRun_NoManifest(t *testing.T) {
	p := NewProvisionerWithClient(&fakeResourceClient{})

	result, err := p.Run(context.Background(), sandbox.NewMock(), "demo-app-1a2b3c4d")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(result.Provisioned) != 0 || len(result.Failed) != 0 || result.WranglerUpdated {
		t.Errorf("result = %+v, want empty no-op", result)
	}
}

func TestRun_DuplicateTokenProvisionedOnce(t *testing.T) {
	mock := sandbox.NewMock()
	manifest := `name = "x"
a = "{{provision:kv:CACHE}}"
b = "{{provision:kv:CACHE}}"`
	seedManifest(mock, "demo-app-1a2b3c4d", manifest)

	fake := &fakeResourceClient{ids: map[string]string{"CACHE": "kv-123"}}
	p := NewProvisionerWithClient(fake)

	result, err := p.Run(context.Background(), mock, "demo-app-1a2b3c4d")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if fake.calls != 1 {
		t.Errorf("got %d API calls, want 1", fake.calls)
	}
	if result.Replacements != 2 {
		t.Errorf("replacements = %d, want 2", result.Replacements)
	}

	updated := string(mock.Files["demo-app-1a2b3c4d/"+ManifestFile])
	if strings.Count(updated, "kv-123") != 2 {
		t.Errorf("both occurrences should carry the id:\n%s", updated)
	}
}

func TestRun_MalformedManifest(t *testing.T) {
	mock := sandbox.NewMock()
	seedManifest(mock, "demo-app-1a2b3c4d", "a = \"{{provision:kv:CACHE}}\"\nname = [broken")

	p := NewProvisionerWithClient(&fakeResourceClient{})
	if _, err := p.Run(context.Background(), mock, "demo-app-1a2b3c4d"); err == nil {
		t.Error("expected error for malformed manifest")
	}
}
