package provider

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"context"

	"github.com/pagecrane/pagecrane/internal/domain"
)

// Deployment is the result of a provider-side create call.
type Deployment struct {
	ID        string
	URL       string
	CreatedAt time.Time
}

// Client is the uniform capability interface over a hosting provider's
// deployment API. Both backends conform to it; call sites are written once
// against the interface and selection is a pure function of the project's
// stored provider field.
type Client interface {
	CreateDeployment(ctx context.Context, name, repoFullName, branch, credential string) (*Deployment, error)
	GetDeploymentStatus(ctx context.Context, deploymentID string) (*domain.DeploymentStatus, error)
	TriggerRedeploy(ctx context.Context, deploymentID string) error
	DeleteDeployment(ctx context.Context, deploymentID string) error
	GetDeploymentLogs(ctx context.Context, deploymentID string) ([]domain.LogEntry, error)
}

// Error carries the upstream HTTP status and a best-effort human message
// extracted from the provider's own error envelope.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider request failed (status %d): %s", e.StatusCode, e.Message)
}

var (
	// ErrUnknownProvider is returned for a provider name outside the closed set.
	ErrUnknownProvider = errors.New("provider: unknown deployment provider")
	// ErrCredentialMissing is returned when no usable GitHub credential is available.
	ErrCredentialMissing = errors.New("provider: github credential missing")
	// ErrInvalidRepo is returned for repository names not matching owner/repo.
	ErrInvalidRepo = errors.New("provider: repository must be in owner/repo form")
)

var repoPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)

// ParseRepo validates and splits an owner/repo string before any network call.
func ParseRepo(fullName string) (owner, repo string, err error) {
	if !repoPattern.MatchString(fullName) {
		return "", "", ErrInvalidRepo
	}
	parts := strings.SplitN(fullName, "/", 2)
	return parts[0], parts[1], nil
}

// Registry selects a client by the stored provider enum.
type Registry struct {
	clients map[string]Client
}

// NewRegistry wires one client per provider at process start.
func NewRegistry(cloudflare, netlify Client) *Registry {
	return &Registry{clients: map[string]Client{
		domain.ProviderCloudflare: cloudflare,
		domain.ProviderNetlify:    netlify,
	}}
}

// ForProvider resolves the client for a provider name.
func (r *Registry) ForProvider(name string) (Client, error) {
	client, ok := r.clients[name]
	if !ok || client == nil {
		return nil, ErrUnknownProvider
	}
	return client, nil
}
