package httpx

import (
	"time"

	"github.com/pagecrane/pagecrane/internal/domain"
)

// projectView shapes a project for API responses. The webhook secret is
// deliberately absent; it is only served from the dedicated webhook endpoint.
func projectView(p *domain.Project) map[string]any {
	return map[string]any{
		"id":                   p.ID,
		"name":                 p.Name,
		"description":          p.Description,
		"github_repo":          p.GitHubRepo,
		"deployment_provider":  p.Provider,
		"deployment_url":       p.DeploymentURL,
		"status":               p.Status,
		"default_branch":       p.DefaultBranch,
		"last_deployment_time": timeOrNil(p.LastDeploymentAt),
		"created_at":           p.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at":           p.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func timeOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
