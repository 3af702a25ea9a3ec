// Package handler implements the HTTP surface of : one handler
// struct per concern, each wired to the corresponding pipeline/webhook/
// interaction collaborator. Handlers never touch the database directly
// except for the handful of read-only queries (wallet summaries, gift
// inbox) that back no mutating pipeline.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/booms-platform/booms-core/apperr"
	bmw "github.com/booms-platform/booms-core/middleware"
)

// decodeJSON parses the request body into dst, failing VALIDATION_ERROR on
// malformed JSON.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.New(apperr.CodeValidation, "failed to parse request body: "+err.Error())
	}
	return nil
}

// writeJSON writes v as the JSON response body with status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// requireUserID extracts the acting user id the auth middleware attached
// to the request context, writing FORBIDDEN and returning false if absent.
func requireUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := bmw.GetUserID(r.Context())
	if !ok {
		apperr.WriteJSON(w, apperr.New(apperr.CodeForbidden, "no authenticated user on request"))
		return 0, false
	}
	return userID, true
}

// outcomeLabel reduces a pipeline error to a metrics label: "ok" on
// success, the apperr.Code string otherwise.
func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if appErr := apperr.As(err); appErr != nil {
		return string(appErr.Code)
	}
	return "internal_error"
}
