package repository

import (
	"context"

	"github.com/pagecrane/pagecrane/internal/domain"
)

// UserRepository persists users and their linked credentials.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	UpdateGitHubToken(ctx context.Context, userID string, encrypted string) error
}

// ProjectRepository persists project state. SaveProject replaces the whole
// record so concurrent refreshes cannot interleave partial writes.
type ProjectRepository interface {
	CreateProject(ctx context.Context, project *domain.Project) error
	GetProjectByID(ctx context.Context, projectID string) (*domain.Project, error)
	ListProjectsByRepo(ctx context.Context, githubRepo string) ([]domain.Project, error)
	ListProjectsByOwner(ctx context.Context, ownerID string) ([]domain.Project, error)
	SaveProject(ctx context.Context, project *domain.Project) error
	DeleteProject(ctx context.Context, projectID string) error
}
