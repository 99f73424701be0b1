// Package response provides helpers for writing consistent JSON HTTP responses.
//
// Every handler in this application sends JSON back to the client.
// Rather than repeating the same three lines (set header, set status,
// encode JSON) in every handler, we centralise them here.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/aanand-mishra/skillset-api/internal/types"
)

// ─────────────────────────────────────────────────────────────────────────────
// Response is the standard envelope returned for error cases.
//
// Success responses may return any JSON shape (a student, a list…).
// Error responses always look like:
//
//	{ "status": "error", "error": "student with roll number 7 not found" }
//
// Validation failures additionally list every field violation:
//
//	{ "status": "error", "error": "validation failed: ...",
//	  "violations": [ { "field": "skills", "kind": "InvalidSkills", "message": "..." } ] }
//
// ─────────────────────────────────────────────────────────────────────────────
type Response struct {
	Status     string           `json:"status"`
	Error      string           `json:"error"`
	Violations types.Violations `json:"violations,omitempty"`
}

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// WriteJSON writes a JSON-encoded response with the given HTTP status code.
//
// IMPORTANT ORDER: Header() → WriteHeader() → body writes.
// Once WriteHeader is called (or the first Write), headers are locked.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// GeneralError wraps any Go error into our standard Response shape.
func GeneralError(err error) Response {
	return Response{
		Status: StatusError,
		Error:  err.Error(),
	}
}

// Message builds an error Response from a plain message. Used where the
// underlying error must not reach the client (storage failures).
func Message(msg string) Response {
	return Response{
		Status: StatusError,
		Error:  msg,
	}
}

// ValidationError turns a roster validation failure into a Response that
// carries every violation, so the client can flag all bad fields at once.
func ValidationError(err *types.ValidationError) Response {
	return Response{
		Status:     StatusError,
		Error:      err.Error(),
		Violations: err.Violations,
	}
}
