package provision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yomna-shousha/orange-build-sub000/internal/config"
)

// ResourceClient provisions one cloud resource and returns its identifier.
type ResourceClient interface {
	Provision(ctx context.Context, resourceType, binding string) (string, error)
}

// APIClient provisions resources through the platform REST API.
type APIClient struct {
	baseURL    string
	accountID  string
	token      string
	httpClient *http.Client
}

// NewAPIClient creates a client for the configured platform account.
func NewAPIClient(cfg config.PlatformConfig) *APIClient {
	return &APIClient{
		baseURL:   strings.TrimSuffix(cfg.APIBaseURL, "/"),
		accountID: cfg.AccountID,
		token:     cfg.APIToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiEnvelope is the platform API response wrapper.
type apiEnvelope struct {
	Success bool `json:"success"`
	Errors  []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
	Result json.RawMessage `json:"result"`
}

// Provision creates the resource and returns its id.
func (a *APIClient) Provision(ctx context.Context, resourceType, binding string) (string, error) {
	endpoint, payload, err := requestFor(resourceType, binding)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s/accounts/%s/%s", a.baseURL, a.accountID, endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("platform API unreachable: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return "", fmt.Errorf("platform API returned status %d: %s", resp.StatusCode, respBody)
	}

	if !envelope.Success {
		if len(envelope.Errors) > 0 {
			return "", fmt.Errorf("platform API error %d: %s", envelope.Errors[0].Code, envelope.Errors[0].Message)
		}
		return "", fmt.Errorf("platform API returned status %d", resp.StatusCode)
	}

	return idFor(resourceType, envelope.Result)
}

// requestFor returns the account-relative API path and request body for a
// resource type.
func requestFor(resourceType, binding string) (string, any, error) {
	switch resourceType {
	case TypeKV:
		return "storage/kv/namespaces", map[string]string{"title": binding}, nil
	case TypeD1:
		return "d1/database", map[string]string{"name": binding}, nil
	case TypeR2:
		return "r2/buckets", map[string]string{"name": binding}, nil
	case TypeQueue:
		return "queues", map[string]string{"queue_name": binding}, nil
	}
	return "", nil, fmt.Errorf("unknown resource type: %s", resourceType)
}

// idFor extracts the created resource's identifier from the result payload.
// Each resource type names its id field differently.
func idFor(resourceType string, result json.RawMessage) (string, error) {
	var fields struct {
		ID      string `json:"id"`
		UUID    string `json:"uuid"`
		Name    string `json:"name"`
		QueueID string `json:"queue_id"`
	}
	if err := json.Unmarshal(result, &fields); err != nil {
		return "", fmt.Errorf("unparseable provisioning result: %w", err)
	}

	var id string
	switch resourceType {
	case TypeKV:
		id = fields.ID
	case TypeD1:
		id = fields.UUID
		if id == "" {
			id = fields.ID
		}
	case TypeR2:
		// Buckets are referenced by name, not id.
		id = fields.Name
	case TypeQueue:
		id = fields.QueueID
		if id == "" {
			id = fields.ID
		}
	}

	if id == "" {
		return "", fmt.Errorf("provisioning result carried no id for %s", resourceType)
	}
	return id, nil
}
