package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/pagecrane/pagecrane/internal/config"
	"github.com/pagecrane/pagecrane/internal/domain"
)

// NetlifyClient drives the Netlify REST API. The deployment ID stored on a
// project is the Netlify site ID.
type NetlifyClient struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *slog.Logger
}

// NewNetlifyClient constructs a Netlify client from server configuration.
func NewNetlifyClient(cfg config.APIConfig, logger *slog.Logger) *NetlifyClient {
	return &NetlifyClient{
		baseURL: cfg.NetlifyBaseURL,
		token:   cfg.NetlifyAPIToken,
		client:  &http.Client{Timeout: cfg.ProviderTimeout},
		logger:  logger,
	}
}

type netlifySite struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	State           string         `json:"state"`
	URL             string         `json:"url"`
	SSLURL          string         `json:"ssl_url"`
	CreatedAt       time.Time      `json:"created_at"`
	PublishedDeploy *netlifyDeploy `json:"published_deploy"`
}

type netlifyDeploy struct {
	ID           string    `json:"id"`
	State        string    `json:"state"`
	DeploySSLURL string    `json:"deploy_ssl_url"`
	DeployURL    string    `json:"deploy_url"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateDeployment creates a Netlify site linked to a GitHub repository. The
// user's GitHub credential authorizes the repo linkage.
func (n *NetlifyClient) CreateDeployment(ctx context.Context, name, repoFullName, branch, credential string) (*Deployment, error) {
	if _, _, err := ParseRepo(repoFullName); err != nil {
		return nil, err
	}
	if credential == "" {
		return nil, ErrCredentialMissing
	}
	body := map[string]any{
		"name": name,
		"repo": map[string]any{
			"provider":   "github",
			"repo":       repoFullName,
			"branch":     branch,
			"auth_token": credential,
		},
	}
	var site netlifySite
	if err := n.do(ctx, http.MethodPost, "/sites", body, &site); err != nil {
		return nil, err
	}
	return &Deployment{
		ID:        site.ID,
		URL:       siteURL(site),
		CreatedAt: site.CreatedAt,
	}, nil
}

// GetDeploymentStatus reads the site and classifies its published deploy, or
// the site state while nothing has been published yet.
func (n *NetlifyClient) GetDeploymentStatus(ctx context.Context, deploymentID string) (*domain.DeploymentStatus, error) {
	var site netlifySite
	if err := n.do(ctx, http.MethodGet, "/sites/"+deploymentID, nil, &site); err != nil {
		return nil, err
	}
	status := &domain.DeploymentStatus{
		Status: NormalizeNetlifyStatus(site.State),
		URL:    siteURL(site),
	}
	if published := site.PublishedDeploy; published != nil {
		status.Status = NormalizeNetlifyStatus(published.State)
		status.DeploymentURL = deployURL(*published)
		status.LastDeployed = published.UpdatedAt
	}
	return status, nil
}

// TriggerRedeploy requests a new site build without waiting for completion.
func (n *NetlifyClient) TriggerRedeploy(ctx context.Context, deploymentID string) error {
	return n.do(ctx, http.MethodPost, "/sites/"+deploymentID+"/builds", map[string]any{}, nil)
}

// DeleteDeployment removes the Netlify site.
func (n *NetlifyClient) DeleteDeployment(ctx context.Context, deploymentID string) error {
	return n.do(ctx, http.MethodDelete, "/sites/"+deploymentID, nil, nil)
}

// GetDeploymentLogs resolves the latest deploy and normalizes its
// newline-delimited log text. A site with no deploys yields an empty sequence.
func (n *NetlifyClient) GetDeploymentLogs(ctx context.Context, deploymentID string) ([]domain.LogEntry, error) {
	var deploys []netlifyDeploy
	if err := n.do(ctx, http.MethodGet, "/sites/"+deploymentID+"/deploys", nil, &deploys); err != nil {
		return nil, err
	}
	if len(deploys) == 0 {
		return nil, nil
	}
	latest := deploys[0]
	text, err := n.getText(ctx, "/deploys/"+latest.ID+"/log")
	if err != nil {
		return nil, err
	}
	var entries []domain.LogEntry
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		entries = append(entries, domain.LogEntry{
			Timestamp: latest.CreatedAt,
			Message:   line,
			Level:     InferLogLevel(line),
		})
	}
	return entries, nil
}

func siteURL(site netlifySite) string {
	if site.SSLURL != "" {
		return site.SSLURL
	}
	return site.URL
}

func deployURL(deploy netlifyDeploy) string {
	if deploy.DeploySSLURL != "" {
		return deploy.DeploySSLURL
	}
	return deploy.DeployURL
}

func (n *NetlifyClient) do(ctx context.Context, method, path string, body, out any) error {
	raw, status, err := n.roundTrip(ctx, method, path, body, "application/json")
	if err != nil {
		return err
	}
	if status >= 300 {
		n.logger.Warn("netlify request failed", "method", method, "path", path, "status", status)
		return decodeAPIError(status, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{StatusCode: status, Message: "unexpected response shape"}
	}
	return nil
}

func (n *NetlifyClient) getText(ctx context.Context, path string) (string, error) {
	raw, status, err := n.roundTrip(ctx, http.MethodGet, path, nil, "text/plain")
	if err != nil {
		return "", err
	}
	if status >= 300 {
		return "", decodeAPIError(status, raw)
	}
	return string(raw), nil
}

func (n *NetlifyClient) roundTrip(ctx context.Context, method, path string, body any, accept string) ([]byte, int, error) {
	if n.token == "" {
		return nil, 0, ErrNotConfigured
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, 0, err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, n.baseURL+path, reader)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+n.token)
	req.Header.Set("Accept", accept)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := n.client.Do(req)
	if err != nil {
		return nil, 0, &Error{StatusCode: http.StatusBadGateway, Message: err.Error()}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &Error{StatusCode: resp.StatusCode, Message: "could not read response"}
	}
	return raw, resp.StatusCode, nil
}
