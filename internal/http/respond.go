package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pagecrane/pagecrane/internal/provider"
	"github.com/pagecrane/pagecrane/internal/repository"
	"github.com/pagecrane/pagecrane/internal/service/project"
	"github.com/pagecrane/pagecrane/internal/service/webhook"
)

// writeJSON writes JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError sends an error message.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps service-level errors onto HTTP status codes. Not-found
// responses are uniform so callers cannot distinguish untracked from
// nonexistent resources, and configuration problems never leak internal detail.
func writeServiceError(w http.ResponseWriter, err error) {
	var providerErr *provider.Error
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, webhook.ErrUnknownRepository):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, repository.ErrConflict):
		writeError(w, http.StatusConflict, "resource already exists")
	case errors.Is(err, webhook.ErrSignatureInvalid):
		writeError(w, http.StatusUnauthorized, "signature verification failed")
	case errors.Is(err, webhook.ErrMissingRepository), errors.Is(err, webhook.ErrMissingRef):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, project.ErrNameInvalid),
		errors.Is(err, project.ErrProviderInvalid),
		errors.Is(err, provider.ErrInvalidRepo):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, project.ErrCredentialUnavailable),
		errors.Is(err, provider.ErrCredentialMissing):
		writeError(w, http.StatusBadGateway, "deployment failed: github credential unavailable")
	case errors.Is(err, provider.ErrNotConfigured):
		writeError(w, http.StatusInternalServerError, "server configuration error")
	case errors.As(err, &providerErr):
		writeError(w, http.StatusBadGateway, "deployment failed: "+providerErr.Message)
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
