package api

import (
	"encoding/json"
	"net/http"

	"github.com/flowmesh/controlplane/internal/apierr"
	"github.com/flowmesh/controlplane/internal/ops"
)

// errorBody is the uniform REST error envelope: {"error":{"code",
// "message","details"}}, matching spec.md 4.9 step 5's wire contract.
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details,omitempty"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// writeResult formats an ops.OperationResult, surfacing its human
// message as a response header so callers that only care about the
// JSON body aren't forced to parse it out.
func writeResult[T any](w http.ResponseWriter, code int, res ops.OperationResult[T]) {
	if res.Message != "" {
		w.Header().Set("X-Operation-Message", res.Message)
	}
	writeJSON(w, code, res.Data)
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	var body errorBody
	body.Error.Code = "unauthorized"
	body.Error.Message = message
	writeJSON(w, http.StatusUnauthorized, body)
}

// writeError maps an *apierr.Error's Kind to an HTTP status per spec.md
// 4.9's table (400/404/409/409/403/503/500); anything not already an
// *apierr.Error is treated as Internal, matching apierr.KindOf's default.
func writeError(w http.ResponseWriter, err error) {
	kind := apierr.KindOf(err)
	var body errorBody
	body.Error.Code = string(kind)
	body.Error.Message = err.Error()
	writeJSON(w, statusForKind(kind), body)
}

func statusForKind(k apierr.Kind) int {
	switch k {
	case apierr.Validation:
		return http.StatusBadRequest
	case apierr.NotFound:
		return http.StatusNotFound
	case apierr.AlreadyExists, apierr.Conflict:
		return http.StatusConflict
	case apierr.Forbidden:
		return http.StatusForbidden
	case apierr.ServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, apierr.Validationf("request", "body", "invalid JSON body: %s", err))
		return false
	}
	return true
}
