package webhook

import (
	"context"
	"errors"
	"io"
	"testing"

	"log/slog"

	"github.com/pagecrane/pagecrane/internal/domain"
)

type fakeProjectRepo struct {
	projects []domain.Project
	listErr  error
}

func (f *fakeProjectRepo) CreateProject(context.Context, *domain.Project) error { return nil }
func (f *fakeProjectRepo) GetProjectByID(context.Context, string) (*domain.Project, error) {
	return nil, nil
}
func (f *fakeProjectRepo) ListProjectsByRepo(_ context.Context, repo string) ([]domain.Project, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var matched []domain.Project
	for _, p := range f.projects {
		if p.GitHubRepo == repo {
			matched = append(matched, p)
		}
	}
	return matched, nil
}
func (f *fakeProjectRepo) ListProjectsByOwner(context.Context, string) ([]domain.Project, error) {
	return nil, nil
}
func (f *fakeProjectRepo) SaveProject(context.Context, *domain.Project) error { return nil }
func (f *fakeProjectRepo) DeleteProject(context.Context, string) error        { return nil }

type fakeDeployer struct {
	calls     int
	lastID    string
	deployErr error
}

func (f *fakeDeployer) Redeploy(_ context.Context, project *domain.Project) error {
	f.calls++
	f.lastID = project.ID
	return f.deployErr
}

func testProject() domain.Project {
	return domain.Project{
		ID:            "proj-1",
		OwnerID:       "user-1",
		Name:          "acme-site",
		GitHubRepo:    "acme/site",
		Provider:      domain.ProviderCloudflare,
		WebhookSecret: "s3cr3t",
		DefaultBranch: "main",
		Status:        domain.StatusDeployed,
	}
}

func newTestService(repo *fakeProjectRepo, deployer *fakeDeployer) Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return New(repo, deployer, logger)
}

func TestHandlePushTriggersRedeployOnDefaultBranch(t *testing.T) {
	repo := &fakeProjectRepo{projects: []domain.Project{testProject()}}
	deployer := &fakeDeployer{}
	svc := newTestService(repo, deployer)

	body := []byte(`{"ref":"refs/heads/main","repository":{"full_name":"acme/site"}}`)
	result, err := svc.HandlePush(context.Background(), "push", body, sign(body, "s3cr3t"))
	if err != nil {
		t.Fatalf("HandlePush returned error: %v", err)
	}
	if result.Action != ActionRedeployed {
		t.Fatalf("action = %q, want redeployed", result.Action)
	}
	if deployer.calls != 1 {
		t.Fatalf("expected exactly one redeploy call, got %d", deployer.calls)
	}
	if deployer.lastID != "proj-1" {
		t.Fatalf("redeployed project %q", deployer.lastID)
	}
}

func TestHandlePushIgnoresOtherBranches(t *testing.T) {
	repo := &fakeProjectRepo{projects: []domain.Project{testProject()}}
	deployer := &fakeDeployer{}
	svc := newTestService(repo, deployer)

	body := []byte(`{"ref":"refs/heads/develop","repository":{"full_name":"acme/site"}}`)
	result, err := svc.HandlePush(context.Background(), "push", body, sign(body, "s3cr3t"))
	if err != nil {
		t.Fatalf("HandlePush returned error: %v", err)
	}
	if result.Action != ActionIgnoredBranch {
		t.Fatalf("action = %q, want ignored_branch", result.Action)
	}
	if deployer.calls != 0 {
		t.Fatalf("expected zero redeploy calls, got %d", deployer.calls)
	}
}

func TestHandlePushIgnoresNonPushEvents(t *testing.T) {
	repo := &fakeProjectRepo{projects: []domain.Project{testProject()}}
	deployer := &fakeDeployer{}
	svc := newTestService(repo, deployer)

	result, err := svc.HandlePush(context.Background(), "ping", []byte(`{}`), "")
	if err != nil {
		t.Fatalf("HandlePush returned error: %v", err)
	}
	if result.Action != ActionIgnoredEvent {
		t.Fatalf("action = %q, want ignored_event", result.Action)
	}
	if deployer.calls != 0 {
		t.Fatalf("expected zero redeploy calls, got %d", deployer.calls)
	}
}

func TestHandlePushRejectsInvalidSignature(t *testing.T) {
	repo := &fakeProjectRepo{projects: []domain.Project{testProject()}}
	deployer := &fakeDeployer{}
	svc := newTestService(repo, deployer)

	body := []byte(`{"ref":"refs/heads/main","repository":{"full_name":"acme/site"}}`)
	_, err := svc.HandlePush(context.Background(), "push", body, "sha256=deadbeef")
	if !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
	if deployer.calls != 0 {
		t.Fatalf("expected zero redeploy calls, got %d", deployer.calls)
	}
}

func TestHandlePushUnknownRepository(t *testing.T) {
	repo := &fakeProjectRepo{}
	deployer := &fakeDeployer{}
	svc := newTestService(repo, deployer)

	body := []byte(`{"ref":"refs/heads/main","repository":{"full_name":"ghost/repo"}}`)
	_, err := svc.HandlePush(context.Background(), "push", body, sign(body, "s3cr3t"))
	if !errors.Is(err, ErrUnknownRepository) {
		t.Fatalf("expected ErrUnknownRepository, got %v", err)
	}
}

func TestHandlePushMalformedPayload(t *testing.T) {
	repo := &fakeProjectRepo{projects: []domain.Project{testProject()}}
	deployer := &fakeDeployer{}
	svc := newTestService(repo, deployer)

	for _, body := range [][]byte{[]byte(`not json`), []byte(`{}`), []byte(`{"repository":{}}`)} {
		if _, err := svc.HandlePush(context.Background(), "push", body, "sig"); !errors.Is(err, ErrMissingRepository) {
			t.Errorf("body %q: expected ErrMissingRepository, got %v", body, err)
		}
	}

	// Valid repo and signature but no ref.
	body := []byte(`{"repository":{"full_name":"acme/site"}}`)
	if _, err := svc.HandlePush(context.Background(), "push", body, sign(body, "s3cr3t")); !errors.Is(err, ErrMissingRef) {
		t.Errorf("expected ErrMissingRef, got %v", err)
	}
}

func TestHandlePushSelectsProjectBySecretAmongForks(t *testing.T) {
	first := testProject()
	second := testProject()
	second.ID = "proj-2"
	second.OwnerID = "user-2"
	second.WebhookSecret = "other-secret"
	second.DefaultBranch = "main"
	repo := &fakeProjectRepo{projects: []domain.Project{first, second}}
	deployer := &fakeDeployer{}
	svc := newTestService(repo, deployer)

	body := []byte(`{"ref":"refs/heads/main","repository":{"full_name":"acme/site"}}`)
	result, err := svc.HandlePush(context.Background(), "push", body, sign(body, "other-secret"))
	if err != nil {
		t.Fatalf("HandlePush returned error: %v", err)
	}
	if result.Project.ID != "proj-2" {
		t.Fatalf("dispatched to %q, want proj-2", result.Project.ID)
	}
}

func TestHandlePushRedeliveryTriggersAgain(t *testing.T) {
	repo := &fakeProjectRepo{projects: []domain.Project{testProject()}}
	deployer := &fakeDeployer{}
	svc := newTestService(repo, deployer)

	body := []byte(`{"ref":"refs/heads/main","repository":{"full_name":"acme/site"}}`)
	signature := sign(body, "s3cr3t")
	for i := 0; i < 2; i++ {
		if _, err := svc.HandlePush(context.Background(), "push", body, signature); err != nil {
			t.Fatalf("delivery %d returned error: %v", i, err)
		}
	}
	if deployer.calls != 2 {
		t.Fatalf("expected two redeploy calls for two deliveries, got %d", deployer.calls)
	}
}

func TestHandlePushPropagatesRedeployFailure(t *testing.T) {
	repo := &fakeProjectRepo{projects: []domain.Project{testProject()}}
	deployer := &fakeDeployer{deployErr: errors.New("provider down")}
	svc := newTestService(repo, deployer)

	body := []byte(`{"ref":"refs/heads/main","repository":{"full_name":"acme/site"}}`)
	if _, err := svc.HandlePush(context.Background(), "push", body, sign(body, "s3cr3t")); err == nil {
		t.Fatal("expected redeploy failure to propagate")
	}
}
