package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"log/slog"

	"github.com/pagecrane/pagecrane/internal/domain"
	"github.com/pagecrane/pagecrane/internal/repository"
)

// Dispatch outcomes. Ignored branches and ignored event types both succeed so
// GitHub does not retry, but are reported distinctly.
const (
	ActionRedeployed    = "redeployed"
	ActionIgnoredEvent  = "ignored_event"
	ActionIgnoredBranch = "ignored_branch"
)

var (
	// ErrMissingRepository rejects payloads without repository.full_name.
	ErrMissingRepository = errors.New("webhook: payload missing repository full name")
	// ErrMissingRef rejects push payloads without a ref.
	ErrMissingRef = errors.New("webhook: payload missing ref")
	// ErrUnknownRepository is returned when no tracked project matches the repo.
	ErrUnknownRepository = errors.New("webhook: repository not tracked")
	// ErrSignatureInvalid is returned when no tracked project's secret signs the payload.
	ErrSignatureInvalid = errors.New("webhook: signature verification failed")
)

// Redeployer triggers a redeploy for a project. Satisfied by the project service.
type Redeployer interface {
	Redeploy(ctx context.Context, project *domain.Project) error
}

// Result describes what the dispatcher did with a delivery.
type Result struct {
	Action  string
	Project *domain.Project
}

// Service is the state-free orchestration over one inbound push event.
type Service struct {
	projects repository.ProjectRepository
	deployer Redeployer
	logger   *slog.Logger
}

// New constructs a webhook dispatcher.
func New(projects repository.ProjectRepository, deployer Redeployer, logger *slog.Logger) Service {
	return Service{projects: projects, deployer: deployer, logger: logger}
}

type pushPayload struct {
	Ref        string `json:"ref"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
}

// HandlePush processes one webhook delivery. body must be the raw request
// bytes; signature verification happens against them directly. Redelivery of
// the same event simply re-triggers a redeploy, which the providers themselves
// deduplicate.
func (s Service) HandlePush(ctx context.Context, eventType string, body []byte, signatureHeader string) (Result, error) {
	if eventType != "push" {
		// Other event types are acknowledged without action to avoid
		// provider-side retry storms.
		return Result{Action: ActionIgnoredEvent}, nil
	}

	var payload pushPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Result{}, ErrMissingRepository
	}
	repo := strings.TrimSpace(payload.Repository.FullName)
	if repo == "" {
		return Result{}, ErrMissingRepository
	}

	candidates, err := s.projects.ListProjectsByRepo(ctx, repo)
	if err != nil {
		return Result{}, err
	}
	if len(candidates) == 0 {
		// Uniform not-found keeps untracked and nonexistent repos
		// indistinguishable to the sender.
		return Result{}, ErrUnknownRepository
	}

	// Several owners may track forks of the same repository; the per-project
	// secret identifies which project the delivery was configured for.
	project := s.verifyCandidate(candidates, body, signatureHeader)
	if project == nil {
		s.logger.Warn("webhook signature rejected", "repo", repo, "event", eventType)
		return Result{}, ErrSignatureInvalid
	}
	s.logger.Info("webhook verified", "project_id", project.ID, "event", eventType)

	if strings.TrimSpace(payload.Ref) == "" {
		return Result{}, ErrMissingRef
	}
	branch := strings.TrimPrefix(payload.Ref, "refs/heads/")
	if branch != project.DefaultBranch {
		s.logger.Info("push ignored for non-default branch", "project_id", project.ID, "branch", branch)
		return Result{Action: ActionIgnoredBranch, Project: project}, nil
	}

	if err := s.deployer.Redeploy(ctx, project); err != nil {
		return Result{}, err
	}
	return Result{Action: ActionRedeployed, Project: project}, nil
}

func (s Service) verifyCandidate(candidates []domain.Project, body []byte, signatureHeader string) *domain.Project {
	for i := range candidates {
		if VerifySignature(body, signatureHeader, candidates[i].WebhookSecret) {
			return &candidates[i]
		}
	}
	return nil
}
