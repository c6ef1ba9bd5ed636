package domain

import "time"

// Deployment providers supported by the control plane.
const (
	ProviderCloudflare = "cloudflare"
	ProviderNetlify    = "netlify"
)

// Project lifecycle states. Deployed and failed are both re-enterable via any
// later redeploy.
const (
	StatusDeploying = "deploying"
	StatusDeployed  = "deployed"
	StatusFailed    = "failed"
)

// Project describes one deployable static site bound to a GitHub repository.
type Project struct {
	ID               string
	OwnerID          string
	Name             string
	Description      string
	GitHubRepo       string
	Provider         string
	DeploymentID     string
	DeploymentURL    string
	Status           string
	WebhookSecret    string
	DefaultBranch    string
	LastDeploymentAt *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DeploymentStatus is the normalized result of a provider status query. It is
// transient; the interesting fields are folded back into Project on refresh.
type DeploymentStatus struct {
	Status        string
	URL           string
	DeploymentURL string
	LastDeployed  time.Time
}

// LogEntry is one normalized line of provider build/deploy output.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Level     string    `json:"level"`
}
