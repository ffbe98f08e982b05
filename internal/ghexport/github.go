package ghexport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	apiBase    = "https://api.github.com"
	apiTimeout = 15 * time.Second

	// userFetchRetries bounds the rate-limit retry loop: three retries
	// after the initial attempt, four requests total.
	userFetchRetries = 3
)

// APIClient is a minimal GitHub REST client covering the calls the export
// pipeline needs: the authenticated user and repository creation/lookup.
type APIClient struct {
	base  string
	token string
	http  *http.Client

	// retryInterval seeds the exponential backoff for rate-limited calls.
	retryInterval time.Duration
}

// NewAPIClient creates a client authenticating with the given token.
func NewAPIClient(token string) *APIClient {
	return &APIClient{
		base:          apiBase,
		token:         token,
		http:          &http.Client{Timeout: apiTimeout},
		retryInterval: 500 * time.Millisecond,
	}
}

// User is the authenticated GitHub account.
type User struct {
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Repo is the subset of repository metadata the export pipeline uses.
type Repo struct {
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Private       bool   `json:"private"`
	HTMLURL       string `json:"html_url"`
	CloneURL      string `json:"clone_url"`
	DefaultBranch string `json:"default_branch"`
}

func (c *APIClient) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", "orangectl")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

// apiMessage extracts the "message" field GitHub puts in error bodies.
func apiMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil && e.Message != "" {
		return e.Message
	}
	return strings.TrimSpace(string(body))
}

// AuthenticatedUser fetches the account behind the token. Rate-limited and
// server-side failures are retried with exponential backoff; anything else
// fails immediately.
func (c *APIClient) AuthenticatedUser(ctx context.Context) (*User, error) {
	var user User
	op := func() error {
		status, data, err := c.do(ctx, http.MethodGet, "/user", nil)
		if err != nil {
			return err
		}
		switch {
		case status == http.StatusOK:
			if err := json.Unmarshal(data, &user); err != nil {
				return backoff.Permanent(fmt.Errorf("decode user: %w", err))
			}
			return nil
		case status == http.StatusForbidden, status == http.StatusTooManyRequests, status >= 500:
			return fmt.Errorf("github user fetch: status %d: %s", status, apiMessage(data))
		default:
			return backoff.Permanent(fmt.Errorf("github user fetch: status %d: %s", status, apiMessage(data)))
		}
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryInterval
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, userFetchRetries), ctx)); err != nil {
		return nil, err
	}
	return &user, nil
}

// EnsureRepo creates the repository on the authenticated account. A 422
// response means the name is taken on that account; the existing repository
// is fetched and returned instead. The second return reports whether the
// repository was created by this call.
func (c *APIClient) EnsureRepo(ctx context.Context, owner, name, description string, private bool) (*Repo, bool, error) {
	payload := map[string]any{
		"name":      name,
		"private":   private,
		"auto_init": false,
	}
	if description != "" {
		payload["description"] = description
	}
	status, data, err := c.do(ctx, http.MethodPost, "/user/repos", payload)
	if err != nil {
		return nil, false, err
	}
	switch status {
	case http.StatusCreated:
		var repo Repo
		if err := json.Unmarshal(data, &repo); err != nil {
			return nil, false, fmt.Errorf("decode repository: %w", err)
		}
		return &repo, true, nil
	case http.StatusUnprocessableEntity:
		repo, err := c.Repo(ctx, owner, name)
		if err != nil {
			return nil, false, err
		}
		return repo, false, nil
	default:
		return nil, false, fmt.Errorf("create repository: status %d: %s", status, apiMessage(data))
	}
}

// Repo fetches repository metadata by owner and name.
func (c *APIClient) Repo(ctx context.Context, owner, name string) (*Repo, error) {
	status, data, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/repos/%s/%s", owner, name), nil)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
		var repo Repo
		if err := json.Unmarshal(data, &repo); err != nil {
			return nil, fmt.Errorf("decode repository: %w", err)
		}
		return &repo, nil
	case http.StatusNotFound:
		return nil, fmt.Errorf("repository %s/%s not found", owner, name)
	default:
		return nil, fmt.Errorf("fetch repository: status %d: %s", status, apiMessage(data))
	}
}

var repoNameRe = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeRepoName maps a requested name into GitHub's allowed character
// set. Runs of disallowed characters collapse into a single hyphen; leading
// and trailing hyphens are dropped.
func SanitizeRepoName(name string) string {
	return strings.Trim(repoNameRe.ReplaceAllString(name, "-"), "-")
}
