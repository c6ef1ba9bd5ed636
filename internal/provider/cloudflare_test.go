package provider

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"log/slog"

	"github.com/pagecrane/pagecrane/internal/config"
	"github.com/pagecrane/pagecrane/internal/domain"
)

func newCloudflareTestClient(server *httptest.Server) *CloudflareClient {
	cfg := config.APIConfig{
		CloudflareBaseURL:   server.URL,
		CloudflareAccountID: "acct-1",
		CloudflareAPIToken:  "cf-token",
		ProviderTimeout:     5 * time.Second,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCloudflareClient(cfg, logger)
}

func TestCloudflareCreateDeployment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/accounts/acct-1/pages/projects" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer cf-token" {
			t.Errorf("unexpected authorization header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"success":true,"result":{"name":"acme-site","subdomain":"acme-site.pages.dev","created_on":"2026-01-02T03:04:05Z"}}`)
	}))
	defer server.Close()

	client := newCloudflareTestClient(server)
	deployment, err := client.CreateDeployment(context.Background(), "acme-site", "acme/site", "main", "ghp_token")
	if err != nil {
		t.Fatalf("CreateDeployment returned error: %v", err)
	}
	if deployment.ID != "acme-site" {
		t.Errorf("deployment ID = %q, want acme-site", deployment.ID)
	}
	if deployment.URL != "https://acme-site.pages.dev" {
		t.Errorf("deployment URL = %q", deployment.URL)
	}
}

func TestCloudflareCreateDeploymentRejectsMalformedRepoBeforeNetwork(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := newCloudflareTestClient(server)
	if _, err := client.CreateDeployment(context.Background(), "x", "not-a-repo", "main", "ghp_token"); !errors.Is(err, ErrInvalidRepo) {
		t.Fatalf("expected ErrInvalidRepo, got %v", err)
	}
	if called {
		t.Fatal("malformed repo reached the network")
	}
}

func TestCloudflareCreateDeploymentRequiresCredential(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	client := newCloudflareTestClient(server)
	if _, err := client.CreateDeployment(context.Background(), "x", "acme/site", "main", ""); !errors.Is(err, ErrCredentialMissing) {
		t.Fatalf("expected ErrCredentialMissing, got %v", err)
	}
}

func TestCloudflareGetDeploymentStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success":true,"result":{
			"name":"acme-site","subdomain":"acme-site.pages.dev",
			"latest_deployment":{
				"id":"dep-1","url":"https://abc123.acme-site.pages.dev",
				"modified_on":"2026-02-03T04:05:06Z",
				"latest_stage":{"name":"deploy","status":"success"}
			}}}`)
	}))
	defer server.Close()

	client := newCloudflareTestClient(server)
	status, err := client.GetDeploymentStatus(context.Background(), "acme-site")
	if err != nil {
		t.Fatalf("GetDeploymentStatus returned error: %v", err)
	}
	if status.Status != domain.StatusDeployed {
		t.Errorf("status = %q, want deployed", status.Status)
	}
	if status.URL != "https://acme-site.pages.dev" {
		t.Errorf("url = %q", status.URL)
	}
	if status.DeploymentURL != "https://abc123.acme-site.pages.dev" {
		t.Errorf("deployment url = %q", status.DeploymentURL)
	}
}

func TestCloudflareStatusMissingLatestDeployment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success":true,"result":{"name":"acme-site","subdomain":"acme-site.pages.dev"}}`)
	}))
	defer server.Close()

	client := newCloudflareTestClient(server)
	status, err := client.GetDeploymentStatus(context.Background(), "acme-site")
	if err != nil {
		t.Fatalf("GetDeploymentStatus returned error: %v", err)
	}
	if status.Status != domain.StatusDeploying {
		t.Errorf("status = %q, want deploying", status.Status)
	}
}

func TestCloudflareErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"success":false,"errors":[{"code":8000,"message":"project quota exceeded"}]}`)
	}))
	defer server.Close()

	client := newCloudflareTestClient(server)
	_, err := client.GetDeploymentStatus(context.Background(), "acme-site")
	var providerErr *Error
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if providerErr.StatusCode != http.StatusForbidden {
		t.Errorf("status code = %d", providerErr.StatusCode)
	}
	if providerErr.Message != "project quota exceeded" {
		t.Errorf("message = %q", providerErr.Message)
	}
}

func TestCloudflareErrorEnvelopeFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, `<html>gateway broke</html>`)
	}))
	defer server.Close()

	client := newCloudflareTestClient(server)
	_, err := client.GetDeploymentStatus(context.Background(), "acme-site")
	var providerErr *Error
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if providerErr.Message != "request failed" {
		t.Errorf("message = %q, want generic fallback", providerErr.Message)
	}
}

func TestCloudflareLogsEmptyWithoutDeployments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success":true,"result":[]}`)
	}))
	defer server.Close()

	client := newCloudflareTestClient(server)
	logs, err := client.GetDeploymentLogs(context.Background(), "acme-site")
	if err != nil {
		t.Fatalf("GetDeploymentLogs returned error: %v", err)
	}
	if len(logs) != 0 {
		t.Fatalf("expected no logs, got %d", len(logs))
	}
}

func TestCloudflareLogsNormalizeLevels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/accounts/acct-1/pages/projects/acme-site/deployments":
			io.WriteString(w, `{"success":true,"result":[{"id":"dep-2"},{"id":"dep-1"}]}`)
		case "/accounts/acct-1/pages/projects/acme-site/deployments/dep-2/history/logs":
			io.WriteString(w, `{"success":true,"result":{"data":[
				{"ts":"2026-02-03T04:05:06Z","line":"Cloning repository"},
				{"ts":"2026-02-03T04:05:07Z","line":"npm WARN old lockfile"},
				{"ts":"2026-02-03T04:05:08Z","line":"Error: build exited 1"}
			]}}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newCloudflareTestClient(server)
	logs, err := client.GetDeploymentLogs(context.Background(), "acme-site")
	if err != nil {
		t.Fatalf("GetDeploymentLogs returned error: %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(logs))
	}
	levels := []string{"info", "warn", "error"}
	for i, want := range levels {
		if logs[i].Level != want {
			t.Errorf("entry %d level = %q, want %q", i, logs[i].Level, want)
		}
	}
}

func TestCloudflareUnconfiguredClient(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := NewCloudflareClient(config.APIConfig{ProviderTimeout: time.Second}, logger)
	if _, err := client.GetDeploymentStatus(context.Background(), "x"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
