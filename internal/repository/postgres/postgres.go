package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pagecrane/pagecrane/internal/domain"
	"github.com/pagecrane/pagecrane/internal/repository"
)

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.UserRepository    = (*Repository)(nil)
	_ repository.ProjectRepository = (*Repository)(nil)
)

const uniqueViolation = "23505"

func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return repository.ErrConflict
	}
	return err
}

// CreateUser inserts a user.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	const query = `INSERT INTO users (id, email, password_hash, github_token, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.pool.Exec(ctx, query, user.ID, user.Email, user.PasswordHash, user.GitHubToken, user.CreatedAt)
	if err != nil {
		return mapError(err)
	}
	return nil
}

// GetUserByEmail fetches a user by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT id, email, password_hash, github_token, created_at FROM users WHERE email = $1`
	return r.scanUser(r.pool.QueryRow(ctx, query, email))
}

// GetUserByID retrieves a user by identifier.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT id, email, password_hash, github_token, created_at FROM users WHERE id = $1`
	return r.scanUser(r.pool.QueryRow(ctx, query, id))
}

// UpdateGitHubToken stores the encrypted GitHub credential blob for a user.
func (r *Repository) UpdateGitHubToken(ctx context.Context, userID string, encrypted string) error {
	const query = `UPDATE users SET github_token = $2 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, userID, encrypted)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *Repository) scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.GitHubToken, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

const projectColumns = `id, owner_id, name, description, github_repo, provider, deployment_id,
	deployment_url, status, webhook_secret, default_branch, last_deployment_at, created_at, updated_at`

// CreateProject inserts a project.
func (r *Repository) CreateProject(ctx context.Context, project *domain.Project) error {
	const query = `INSERT INTO projects (` + projectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.pool.Exec(ctx, query,
		project.ID, project.OwnerID, project.Name, project.Description, project.GitHubRepo,
		project.Provider, project.DeploymentID, project.DeploymentURL, project.Status,
		project.WebhookSecret, project.DefaultBranch, project.LastDeploymentAt,
		project.CreatedAt, project.UpdatedAt)
	if err != nil {
		return mapError(err)
	}
	return nil
}

// GetProjectByID retrieves a project by identifier.
func (r *Repository) GetProjectByID(ctx context.Context, projectID string) (*domain.Project, error) {
	const query = `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	return r.scanProject(r.pool.QueryRow(ctx, query, projectID))
}

// ListProjectsByRepo returns every project tracking the given repository.
// Multiple owners may deploy forks of the same repo.
func (r *Repository) ListProjectsByRepo(ctx context.Context, githubRepo string) ([]domain.Project, error) {
	const query = `SELECT ` + projectColumns + ` FROM projects WHERE github_repo = $1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, githubRepo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collectProjects(rows)
}

// ListProjectsByOwner returns projects owned by a user.
func (r *Repository) ListProjectsByOwner(ctx context.Context, ownerID string) ([]domain.Project, error) {
	const query = `SELECT ` + projectColumns + ` FROM projects WHERE owner_id = $1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collectProjects(rows)
}

// SaveProject replaces the whole project record in one statement.
func (r *Repository) SaveProject(ctx context.Context, project *domain.Project) error {
	const query = `UPDATE projects SET
		name = $2, description = $3, github_repo = $4, provider = $5, deployment_id = $6,
		deployment_url = $7, status = $8, webhook_secret = $9, default_branch = $10,
		last_deployment_at = $11, updated_at = $12
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query,
		project.ID, project.Name, project.Description, project.GitHubRepo, project.Provider,
		project.DeploymentID, project.DeploymentURL, project.Status, project.WebhookSecret,
		project.DefaultBranch, project.LastDeploymentAt, project.UpdatedAt)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteProject removes a project record.
func (r *Repository) DeleteProject(ctx context.Context, projectID string) error {
	const query = `DELETE FROM projects WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, projectID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *Repository) scanProject(row pgx.Row) (*domain.Project, error) {
	var p domain.Project
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.GitHubRepo, &p.Provider,
		&p.DeploymentID, &p.DeploymentURL, &p.Status, &p.WebhookSecret, &p.DefaultBranch,
		&p.LastDeploymentAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *Repository) collectProjects(rows pgx.Rows) ([]domain.Project, error) {
	var projects []domain.Project
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.GitHubRepo, &p.Provider,
			&p.DeploymentID, &p.DeploymentURL, &p.Status, &p.WebhookSecret, &p.DefaultBranch,
			&p.LastDeploymentAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}
