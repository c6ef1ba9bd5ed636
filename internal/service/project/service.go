package project

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/pagecrane/pagecrane/internal/domain"
	"github.com/pagecrane/pagecrane/internal/provider"
	"github.com/pagecrane/pagecrane/internal/repository"
	"github.com/pagecrane/pagecrane/internal/service/events"
	"github.com/pagecrane/pagecrane/internal/vault"
)

var (
	// ErrNameInvalid rejects project names outside 3-50 characters.
	ErrNameInvalid = errors.New("project name must be 3-50 characters")
	// ErrProviderInvalid rejects providers outside the closed set.
	ErrProviderInvalid = errors.New("deployment provider must be cloudflare or netlify")
	// ErrCredentialUnavailable signals a missing or undecryptable GitHub token.
	ErrCredentialUnavailable = errors.New("github credential unavailable")
)

// CreateInput encapsulates project creation attributes.
type CreateInput struct {
	OwnerID       string
	Name          string
	Description   string
	GitHubRepo    string
	Provider      string
	DefaultBranch string
}

// UpdateInput holds the owner-editable fields.
type UpdateInput struct {
	Name          *string
	Description   *string
	DefaultBranch *string
}

// Service owns the project deployment lifecycle. All state transitions flow
// through it; records are saved whole so concurrent refreshes cannot tear the
// stored state.
type Service struct {
	projects  repository.ProjectRepository
	users     repository.UserRepository
	providers *provider.Registry
	vault     *vault.Vault
	events    events.Service
	logger    *slog.Logger
}

// New returns a project service.
func New(projects repository.ProjectRepository, users repository.UserRepository, providers *provider.Registry, credVault *vault.Vault, eventSvc events.Service, logger *slog.Logger) Service {
	return Service{
		projects:  projects,
		users:     users,
		providers: providers,
		vault:     credVault,
		events:    eventSvc,
		logger:    logger,
	}
}

// Create validates input, creates the provider-side deployment and persists
// the project. A provider failure prevents persistence entirely, so no local
// record can reference a deployment that does not exist.
func (s Service) Create(ctx context.Context, input CreateInput) (*domain.Project, error) {
	name := strings.TrimSpace(input.Name)
	if len(name) < 3 || len(name) > 50 {
		return nil, ErrNameInvalid
	}
	if _, _, err := provider.ParseRepo(input.GitHubRepo); err != nil {
		return nil, err
	}
	client, err := s.providers.ForProvider(input.Provider)
	if err != nil {
		return nil, ErrProviderInvalid
	}
	branch := strings.TrimSpace(input.DefaultBranch)
	if branch == "" {
		branch = "main"
	}

	credential, err := s.githubCredential(ctx, input.OwnerID)
	if err != nil {
		return nil, err
	}

	deployment, err := client.CreateDeployment(ctx, name, input.GitHubRepo, branch, credential)
	if err != nil {
		s.logger.Warn("provider create failed", "owner_id", input.OwnerID, "provider", input.Provider, "error", err)
		return nil, err
	}

	secret, err := newWebhookSecret()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	project := &domain.Project{
		ID:               uuid.NewString(),
		OwnerID:          input.OwnerID,
		Name:             name,
		Description:      strings.TrimSpace(input.Description),
		GitHubRepo:       input.GitHubRepo,
		Provider:         input.Provider,
		DeploymentID:     deployment.ID,
		DeploymentURL:    deployment.URL,
		Status:           domain.StatusDeploying,
		WebhookSecret:    secret,
		DefaultBranch:    branch,
		LastDeploymentAt: &now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.projects.CreateProject(ctx, project); err != nil {
		return nil, err
	}
	s.logger.Info("project created", "project_id", project.ID, "owner_id", project.OwnerID, "provider", project.Provider)
	s.events.Publish(project.ID, events.KindDeploymentCreated, project.Status)
	return project, nil
}

// Get returns a project when it exists and belongs to the owner. Non-owner
// access reads as not found so project existence is never revealed.
func (s Service) Get(ctx context.Context, ownerID, projectID string) (*domain.Project, error) {
	project, err := s.projects.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.OwnerID != ownerID {
		return nil, repository.ErrNotFound
	}
	return project, nil
}

// Update applies owner edits to name, description and default branch.
func (s Service) Update(ctx context.Context, ownerID, projectID string, input UpdateInput) (*domain.Project, error) {
	project, err := s.Get(ctx, ownerID, projectID)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if len(name) < 3 || len(name) > 50 {
			return nil, ErrNameInvalid
		}
		project.Name = name
	}
	if input.Description != nil {
		project.Description = strings.TrimSpace(*input.Description)
	}
	if input.DefaultBranch != nil {
		branch := strings.TrimSpace(*input.DefaultBranch)
		if branch == "" {
			branch = "main"
		}
		project.DefaultBranch = branch
	}
	project.UpdatedAt = time.Now().UTC()
	if err := s.projects.SaveProject(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

// Delete removes the provider deployment first and drops the local record only
// when the remote deletion succeeds, keeping the operation retryable.
func (s Service) Delete(ctx context.Context, ownerID, projectID string) error {
	project, err := s.Get(ctx, ownerID, projectID)
	if err != nil {
		return err
	}
	client, err := s.providers.ForProvider(project.Provider)
	if err != nil {
		return err
	}
	if err := client.DeleteDeployment(ctx, project.DeploymentID); err != nil {
		s.logger.Warn("provider delete failed", "project_id", project.ID, "error", err)
		return err
	}
	if err := s.projects.DeleteProject(ctx, projectID); err != nil {
		return err
	}
	s.logger.Info("project deleted", "project_id", projectID, "owner_id", ownerID)
	return nil
}

// Redeploy transitions the project to deploying and fires the provider trigger
// without waiting for build completion. Status becomes accurate again on the
// next refresh.
func (s Service) Redeploy(ctx context.Context, project *domain.Project) error {
	client, err := s.providers.ForProvider(project.Provider)
	if err != nil {
		return err
	}
	if err := client.TriggerRedeploy(ctx, project.DeploymentID); err != nil {
		s.logger.Warn("provider redeploy failed", "project_id", project.ID, "error", err)
		return err
	}
	now := time.Now().UTC()
	project.Status = domain.StatusDeploying
	project.LastDeploymentAt = &now
	project.UpdatedAt = now
	if err := s.projects.SaveProject(ctx, project); err != nil {
		return err
	}
	s.logger.Info("redeploy triggered", "project_id", project.ID, "provider", project.Provider)
	s.events.Publish(project.ID, events.KindRedeployTriggered, project.Status)
	return nil
}

// RedeployByID resolves the project for an owner and triggers a redeploy.
func (s Service) RedeployByID(ctx context.Context, ownerID, projectID string) (*domain.Project, error) {
	project, err := s.Get(ctx, ownerID, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.Redeploy(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

// RefreshStatus polls the provider and folds the normalized snapshot into the
// stored record. The whole record is written atomically; concurrent refreshes
// of the same project resolve by last writer wins.
func (s Service) RefreshStatus(ctx context.Context, project *domain.Project) (*domain.DeploymentStatus, error) {
	client, err := s.providers.ForProvider(project.Provider)
	if err != nil {
		return nil, err
	}
	status, err := client.GetDeploymentStatus(ctx, project.DeploymentID)
	if err != nil {
		return nil, err
	}
	project.Status = status.Status
	if status.URL != "" {
		project.DeploymentURL = status.URL
	}
	if !status.LastDeployed.IsZero() {
		lastDeployed := status.LastDeployed.UTC()
		project.LastDeploymentAt = &lastDeployed
	}
	project.UpdatedAt = time.Now().UTC()
	if err := s.projects.SaveProject(ctx, project); err != nil {
		return nil, err
	}
	s.events.Publish(project.ID, events.KindStatusRefreshed, project.Status)
	return status, nil
}

// RefreshStatusByID resolves the project for an owner and refreshes it.
func (s Service) RefreshStatusByID(ctx context.Context, ownerID, projectID string) (*domain.Project, *domain.DeploymentStatus, error) {
	project, err := s.Get(ctx, ownerID, projectID)
	if err != nil {
		return nil, nil, err
	}
	status, err := s.RefreshStatus(ctx, project)
	if err != nil {
		return nil, nil, err
	}
	return project, status, nil
}

// ListWithStatus returns the owner's projects, refreshing each one's status on
// a best-effort basis. One project's refresh failure never aborts the others;
// its last known state is returned instead.
func (s Service) ListWithStatus(ctx context.Context, ownerID string) ([]domain.Project, error) {
	projects, err := s.projects.ListProjectsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	var wg sync.WaitGroup
	for i := range projects {
		wg.Add(1)
		go func(p *domain.Project) {
			defer wg.Done()
			if _, err := s.RefreshStatus(ctx, p); err != nil {
				s.logger.Warn("status refresh failed", "project_id", p.ID, "error", err)
			}
		}(&projects[i])
	}
	wg.Wait()
	return projects, nil
}

// Logs fetches and normalizes the latest deployment logs for an owner's project.
func (s Service) Logs(ctx context.Context, ownerID, projectID string) ([]domain.LogEntry, error) {
	project, err := s.Get(ctx, ownerID, projectID)
	if err != nil {
		return nil, err
	}
	client, err := s.providers.ForProvider(project.Provider)
	if err != nil {
		return nil, err
	}
	return client.GetDeploymentLogs(ctx, project.DeploymentID)
}

// WebhookInfo returns the webhook secret for an owner's project. This is the
// only code path that exposes the secret.
func (s Service) WebhookInfo(ctx context.Context, ownerID, projectID string) (secret string, err error) {
	project, err := s.Get(ctx, ownerID, projectID)
	if err != nil {
		return "", err
	}
	return project.WebhookSecret, nil
}

func (s Service) githubCredential(ctx context.Context, ownerID string) (string, error) {
	user, err := s.users.GetUserByID(ctx, ownerID)
	if err != nil {
		return "", err
	}
	if user.GitHubToken == "" {
		return "", ErrCredentialUnavailable
	}
	token, err := s.vault.Decrypt(user.GitHubToken)
	if err != nil {
		// A blob that no longer authenticates degrades to the
		// not-connected path instead of surfacing a crypto failure.
		s.logger.Warn("github token decryption failed", "owner_id", ownerID)
		return "", ErrCredentialUnavailable
	}
	return token, nil
}

// newWebhookSecret draws a random 256-bit hex-encoded secret.
func newWebhookSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
