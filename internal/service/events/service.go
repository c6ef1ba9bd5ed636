package events

import (
	"encoding/json"
	"time"

	"log/slog"

	"github.com/pagecrane/pagecrane/internal/ws"
)

// Event kinds published on the per-project stream.
const (
	KindRedeployTriggered = "redeploy_triggered"
	KindStatusRefreshed   = "status_refreshed"
	KindDeploymentCreated = "deployment_created"
)

// Service broadcasts deployment lifecycle events to websocket subscribers.
type Service struct {
	hub    *ws.Hub
	logger *slog.Logger
}

// New constructs an event service.
func New(hub *ws.Hub, logger *slog.Logger) Service {
	return Service{hub: hub, logger: logger}
}

// Publish sends an event to all subscribers of a project stream. Publishing is
// best-effort; a missing hub or marshal failure never affects the caller.
func (s Service) Publish(projectID, kind, status string) {
	if s.hub == nil || !s.hub.HasSubscribers(projectID) {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"project_id": projectID,
		"event":      kind,
		"status":     status,
		"at":         time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		s.logger.Warn("failed to marshal event payload", "error", err)
		return
	}
	s.hub.Broadcast(projectID, payload)
}

// Hub exposes the underlying hub for HTTP handlers.
func (s Service) Hub() *ws.Hub {
	return s.hub
}
