package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"log/slog"

	"github.com/pagecrane/pagecrane/internal/config"
	"github.com/pagecrane/pagecrane/internal/domain"
)

// CloudflareClient drives the Cloudflare Pages REST API. The deployment ID
// stored on a project is the Pages project name.
type CloudflareClient struct {
	baseURL   string
	accountID string
	token     string
	client    *http.Client
	logger    *slog.Logger
}

// NewCloudflareClient constructs a Pages client from server configuration.
func NewCloudflareClient(cfg config.APIConfig, logger *slog.Logger) *CloudflareClient {
	return &CloudflareClient{
		baseURL:   cfg.CloudflareBaseURL,
		accountID: cfg.CloudflareAccountID,
		token:     cfg.CloudflareAPIToken,
		client:    &http.Client{Timeout: cfg.ProviderTimeout},
		logger:    logger,
	}
}

type cloudflareEnvelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
}

type cloudflareProject struct {
	Name             string                `json:"name"`
	Subdomain        string                `json:"subdomain"`
	CreatedOn        time.Time             `json:"created_on"`
	LatestDeployment *cloudflareDeployment `json:"latest_deployment"`
}

type cloudflareDeployment struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	ModifiedOn  time.Time `json:"modified_on"`
	LatestStage struct {
		Name   string `json:"name"`
		Status string `json:"status"`
	} `json:"latest_stage"`
}

// CreateDeployment creates a Pages project sourced from a GitHub repository.
func (c *CloudflareClient) CreateDeployment(ctx context.Context, name, repoFullName, branch, credential string) (*Deployment, error) {
	owner, repo, err := ParseRepo(repoFullName)
	if err != nil {
		return nil, err
	}
	if credential == "" {
		return nil, ErrCredentialMissing
	}
	if c.token == "" || c.accountID == "" {
		return nil, ErrNotConfigured
	}
	body := map[string]any{
		"name":              name,
		"production_branch": branch,
		"source": map[string]any{
			"type": "github",
			"config": map[string]any{
				"owner":             owner,
				"repo_name":         repo,
				"production_branch": branch,
			},
		},
	}
	var project cloudflareProject
	if err := c.do(ctx, http.MethodPost, c.projectsPath(), body, &project); err != nil {
		return nil, err
	}
	return &Deployment{
		ID:        project.Name,
		URL:       "https://" + project.Subdomain,
		CreatedAt: project.CreatedOn,
	}, nil
}

// GetDeploymentStatus reads the Pages project and classifies its latest
// deployment stage.
func (c *CloudflareClient) GetDeploymentStatus(ctx context.Context, deploymentID string) (*domain.DeploymentStatus, error) {
	var project cloudflareProject
	if err := c.do(ctx, http.MethodGet, c.projectPath(deploymentID), nil, &project); err != nil {
		return nil, err
	}
	status := &domain.DeploymentStatus{
		Status: domain.StatusDeploying,
		URL:    "https://" + project.Subdomain,
	}
	if latest := project.LatestDeployment; latest != nil {
		status.Status = NormalizeCloudflareStatus(latest.LatestStage.Status)
		status.DeploymentURL = latest.URL
		status.LastDeployed = latest.ModifiedOn
	}
	return status, nil
}

// TriggerRedeploy requests a new production deployment. Completion is observed
// later via GetDeploymentStatus.
func (c *CloudflareClient) TriggerRedeploy(ctx context.Context, deploymentID string) error {
	return c.do(ctx, http.MethodPost, c.projectPath(deploymentID)+"/deployments", nil, nil)
}

// DeleteDeployment removes the Pages project.
func (c *CloudflareClient) DeleteDeployment(ctx context.Context, deploymentID string) error {
	return c.do(ctx, http.MethodDelete, c.projectPath(deploymentID), nil, nil)
}

// GetDeploymentLogs fetches the log lines of the latest deployment. A project
// with no deployments yields an empty sequence.
func (c *CloudflareClient) GetDeploymentLogs(ctx context.Context, deploymentID string) ([]domain.LogEntry, error) {
	var deployments []cloudflareDeployment
	if err := c.do(ctx, http.MethodGet, c.projectPath(deploymentID)+"/deployments", nil, &deployments); err != nil {
		return nil, err
	}
	if len(deployments) == 0 {
		return nil, nil
	}
	latest := deployments[0]
	var logs struct {
		Data []struct {
			Timestamp time.Time `json:"ts"`
			Line      string    `json:"line"`
		} `json:"data"`
	}
	path := fmt.Sprintf("%s/deployments/%s/history/logs", c.projectPath(deploymentID), latest.ID)
	if err := c.do(ctx, http.MethodGet, path, nil, &logs); err != nil {
		return nil, err
	}
	entries := make([]domain.LogEntry, 0, len(logs.Data))
	for _, line := range logs.Data {
		entries = append(entries, domain.LogEntry{
			Timestamp: line.Timestamp,
			Message:   line.Line,
			Level:     InferLogLevel(line.Line),
		})
	}
	return entries, nil
}

func (c *CloudflareClient) projectsPath() string {
	return fmt.Sprintf("/accounts/%s/pages/projects", c.accountID)
}

func (c *CloudflareClient) projectPath(name string) string {
	return c.projectsPath() + "/" + name
}

func (c *CloudflareClient) do(ctx context.Context, method, path string, body, out any) error {
	if c.token == "" || c.accountID == "" {
		return ErrNotConfigured
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return &Error{StatusCode: http.StatusBadGateway, Message: err.Error()}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{StatusCode: resp.StatusCode, Message: "could not read response"}
	}
	if resp.StatusCode >= 300 {
		c.logger.Warn("cloudflare request failed", "method", method, "path", path, "status", resp.StatusCode)
		return decodeAPIError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	var envelope cloudflareEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return &Error{StatusCode: resp.StatusCode, Message: "unexpected response shape"}
	}
	if !envelope.Success {
		return decodeAPIError(resp.StatusCode, raw)
	}
	if len(envelope.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return &Error{StatusCode: resp.StatusCode, Message: "unexpected response shape"}
	}
	return nil
}
