package web

// errors.go provides unified error responses for the import API.
//
// Technical errors are logged server-side with the request ID; clients get a
// user-friendly message, a suggested action, and a short support code they
// can quote when asking for help.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/fieldscope/siteplan/internal/importer"
	"github.com/fieldscope/siteplan/internal/logging"
	"github.com/fieldscope/siteplan/internal/store"
)

// UserMessage is the client-facing rendering of an error.
type UserMessage struct {
	Message string
	Action  string
	Code    string
}

// ErrorResponse is the JSON error envelope: a user-facing error with the
// technical detail alongside, plus a suggested action and support code.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// messagePattern maps a case-insensitive substring of a technical error to a
// user message. First match wins; specific patterns come before general ones.
type messagePattern struct {
	substr string
	msg    UserMessage
}

var messagePatterns = []messagePattern{
	{"unsupported file format", UserMessage{
		Message: "This file type is not supported",
		Action:  "Upload a .csv, .xer or .xml plan export",
		Code:    "IMP001",
	}},
	{"malformed xml", UserMessage{
		Message: "The XML file could not be read",
		Action:  "Re-export the plan from your scheduling tool and try again",
		Code:    "IMP002",
	}},
	{"no valid rows", UserMessage{
		Message: "There are no valid rows to commit",
		Action:  "Fix the reported rows and parse the file again",
		Code:    "IMP003",
	}},
	{"request body too large", UserMessage{
		Message: "The file exceeds the upload size limit",
		Action:  "Split the plan into smaller files",
		Code:    "FILE001",
	}},
	{"no file provided", UserMessage{
		Message: "No file was selected",
		Action:  "Choose a plan file to upload",
		Code:    "FILE002",
	}},
	{"duplicate", UserMessage{
		Message: "An activity with this code already exists in the project",
		Action:  "Review the duplicate codes before committing",
		Code:    "DB001",
	}},
	{"connection refused", UserMessage{
		Message: "The database is unavailable",
		Action:  "Please try again in a few moments",
		Code:    "DB002",
	}},
	{"context deadline exceeded", UserMessage{
		Message: "The request timed out",
		Action:  "Try a smaller file or try again later",
		Code:    "REQ001",
	}},
	{"context canceled", UserMessage{
		Message: "The request was cancelled",
		Action:  "Please try again",
		Code:    "REQ002",
	}},
}

// MapError converts a technical error into its user-facing message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{Message: "OK", Code: "OK"}
	}
	lower := strings.ToLower(err.Error())
	for _, p := range messagePatterns {
		if strings.Contains(lower, p.substr) {
			return p.msg
		}
	}
	return UserMessage{
		Message: "An unexpected error occurred",
		Action:  "Please try again or contact support",
		Code:    "ERR000",
	}
}

// statusForError picks the HTTP status for a request-level failure. Format
// and decode problems are the client's to fix; faults raised by the store's
// transaction machinery are server-side and must not masquerade as 400s.
func statusForError(err error) int {
	switch {
	case errors.Is(err, importer.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, store.ErrNoValidRows):
		return http.StatusUnprocessableEntity
	case isDatabaseUnavailable(err):
		return http.StatusServiceUnavailable
	case isStoreFault(err):
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// storeFaultMarkers are the wrap prefixes the store puts on transaction
// plumbing failures. A match means the database accepted the request shape
// but the commit machinery broke.
var storeFaultMarkers = []string{
	"begin transaction",
	"create savepoint",
	"rollback savepoint",
	"release savepoint",
	"commit transaction",
	"list activity codes",
}

func isStoreFault(err error) bool {
	lower := strings.ToLower(err.Error())
	for _, m := range storeFaultMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func isDatabaseUnavailable(err error) bool {
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "connection reset")
}

// respondError logs the technical error and writes the JSON envelope.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   userMsg.Message,
		Details: err.Error(),
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	})
}

// writeJSON encodes v and writes it with the JSON content type.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
