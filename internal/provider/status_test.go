package provider

import (
	"testing"

	"github.com/pagecrane/pagecrane/internal/domain"
)

func TestNormalizeCloudflareStatus(t *testing.T) {
	cases := map[string]string{
		"success":     domain.StatusDeployed,
		"active":      domain.StatusDeployed,
		"failure":     domain.StatusFailed,
		"failed":      domain.StatusFailed,
		"build_error": domain.StatusFailed,
		"building":    domain.StatusDeploying,
		"queued":      domain.StatusDeploying,
		// Unknown-but-benign stages must not be reported as failures.
		"canceled": domain.StatusDeploying,
		"":         domain.StatusDeploying,
	}
	for raw, want := range cases {
		if got := NormalizeCloudflareStatus(raw); got != want {
			t.Errorf("NormalizeCloudflareStatus(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestNormalizeNetlifyStatus(t *testing.T) {
	cases := map[string]string{
		"ready":      domain.StatusDeployed,
		"current":    domain.StatusDeployed,
		"error":      domain.StatusFailed,
		"crashed":    domain.StatusFailed,
		"building":   domain.StatusDeploying,
		"processing": domain.StatusDeploying,
		"new":        domain.StatusDeploying,
		"ANYTHING":   domain.StatusDeploying,
	}
	for raw, want := range cases {
		if got := NormalizeNetlifyStatus(raw); got != want {
			t.Errorf("NormalizeNetlifyStatus(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestNormalizationIsTotal(t *testing.T) {
	inputs := []string{"", "  ", "garbage", "Success!", "deploy_failed", "\x00weird"}
	valid := map[string]bool{domain.StatusDeploying: true, domain.StatusDeployed: true, domain.StatusFailed: true}
	for _, raw := range inputs {
		if !valid[NormalizeCloudflareStatus(raw)] {
			t.Errorf("NormalizeCloudflareStatus(%q) outside closed set", raw)
		}
		if !valid[NormalizeNetlifyStatus(raw)] {
			t.Errorf("NormalizeNetlifyStatus(%q) outside closed set", raw)
		}
	}
}

func TestInferLogLevel(t *testing.T) {
	cases := map[string]string{
		"Error: build failed":   "error",
		"npm WARN deprecated":   "warn",
		"Fetching dependencies": "info",
		"":                      "info",
	}
	for line, want := range cases {
		if got := InferLogLevel(line); got != want {
			t.Errorf("InferLogLevel(%q) = %q, want %q", line, got, want)
		}
	}
}

func TestParseRepo(t *testing.T) {
	owner, repo, err := ParseRepo("acme/site")
	if err != nil {
		t.Fatalf("ParseRepo returned error: %v", err)
	}
	if owner != "acme" || repo != "site" {
		t.Fatalf("ParseRepo = %q/%q, want acme/site", owner, repo)
	}
	for _, invalid := range []string{"", "acme", "acme/", "/site", "acme/site/extra", "ac me/site", "acme/si te"} {
		if _, _, err := ParseRepo(invalid); err == nil {
			t.Errorf("ParseRepo(%q) accepted malformed input", invalid)
		}
	}
}
