package broker

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tech4242/aquaman-broker/internal/apperror"
)

// errorBody is the JSON shape of every non-2xx response this package emits
// itself (as opposed to a streamed-through upstream error body).
type errorBody struct {
	Error string `json:"error"`
	Fix   string `json:"fix,omitempty"`
}

// writeError maps err to a status code and response body per the error
// taxonomy table, then writes it. 403 is the one exception to the JSON
// convention: its body is the plain string "Forbidden" with no detail, so a
// failed client-auth attempt never leaks why it failed. Unrecognized errors
// become a generic 500 with no detail leaked to the caller.
func writeError(w http.ResponseWriter, err error) {
	var clientAuth *apperror.ClientAuthFailure
	if errors.As(err, &clientAuth) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("Forbidden"))
		return
	}

	status, body := statusAndBody(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func statusAndBody(err error) (int, errorBody) {
	var notFound *apperror.CredentialNotFound
	if errors.As(err, &notFound) {
		return http.StatusUnauthorized, errorBody{Error: notFound.Error(), Fix: notFound.Fix()}
	}

	var unknownService *apperror.UnknownService
	if errors.As(err, &unknownService) {
		return http.StatusNotFound, errorBody{Error: unknownService.Error()}
	}

	var invalidName *apperror.InvalidServiceName
	if errors.As(err, &invalidName) {
		return http.StatusNotFound, errorBody{Error: invalidName.Error()}
	}

	var liveDisabled *apperror.LiveAccessDisabled
	if errors.As(err, &liveDisabled) {
		return http.StatusBadRequest, errorBody{Error: liveDisabled.Error()}
	}

	var connErr *apperror.UpstreamConnect
	if errors.As(err, &connErr) {
		return http.StatusBadGateway, errorBody{Error: connErr.Error()}
	}

	var timeoutErr *apperror.UpstreamTimeout
	if errors.As(err, &timeoutErr) {
		return http.StatusGatewayTimeout, errorBody{Error: timeoutErr.Error()}
	}

	var abortErr *apperror.UpstreamAbort
	if errors.As(err, &abortErr) {
		return http.StatusBadGateway, errorBody{Error: abortErr.Error()}
	}

	// BackendUnavailable (credential backend unreachable) has no row of its
	// own in spec.md's wire taxonomy — it folds into the generic 500, same
	// as any other internal error, rather than introducing an undocumented
	// status code.
	return http.StatusInternalServerError, errorBody{Error: "internal error"}
}
