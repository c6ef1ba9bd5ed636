package provider

import (
	"strings"

	"github.com/pagecrane/pagecrane/internal/domain"
)

// classify maps a provider-native status string onto the closed three-state
// model. Unrecognized values fall back to deploying, never failed, so
// unknown-but-benign states do not raise false alarms.
func classify(raw string, deployed, failed []string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	for _, keyword := range failed {
		if strings.Contains(value, keyword) {
			return domain.StatusFailed
		}
	}
	for _, keyword := range deployed {
		if strings.Contains(value, keyword) {
			return domain.StatusDeployed
		}
	}
	return domain.StatusDeploying
}

// NormalizeCloudflareStatus classifies Cloudflare Pages stage vocabulary.
func NormalizeCloudflareStatus(raw string) string {
	return classify(raw,
		[]string{"success", "active", "deployed"},
		[]string{"fail", "error"})
}

// NormalizeNetlifyStatus classifies Netlify deploy state vocabulary.
func NormalizeNetlifyStatus(raw string) string {
	return classify(raw,
		[]string{"ready", "current", "published"},
		[]string{"error", "fail", "crash"})
}

// InferLogLevel derives a level for providers that emit unstructured lines.
func InferLogLevel(line string) string {
	lowered := strings.ToLower(line)
	switch {
	case strings.Contains(lowered, "error"):
		return "error"
	case strings.Contains(lowered, "warn"):
		return "warn"
	default:
		return "info"
	}
}
