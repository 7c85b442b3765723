package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fieldscope/siteplan/internal/importer"
	"github.com/fieldscope/siteplan/internal/logging"
)

// ParseResponse is the parse endpoint payload: the full import result plus
// an advisory list of valid codes that already exist in the target project.
type ParseResponse struct {
	*importer.ImportResult
	DuplicateCodes []string `json:"duplicateCodes,omitempty"`
}

// CommitRequest is the body of the commit endpoint: the reviewed subset the
// user chose to persist.
type CommitRequest struct {
	Activities []importer.ParsedActivity `json:"activities"`
}

// handleParse accepts one uploaded plan file and returns the normalized,
// validated rows for review. Row-level problems are part of the 200
// response; only request-level failures produce an error payload.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	projectCode := chi.URLParam(r, "projectCode")
	if projectCode == "" {
		s.respondError(w, r, errors.New("missing project code"), http.StatusBadRequest)
		return
	}

	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)
	if err := r.ParseMultipartForm(maxSize); err != nil {
		s.respondError(w, r, fmt.Errorf("read upload: %w", err), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, errors.New("no file provided"), http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("read upload: %w", err), http.StatusBadRequest)
		return
	}

	opts := importer.Options{NaiveCSVSplit: s.cfg.Import.NaiveCSVSplit}
	result, err := importer.Parse(header.Filename, data, opts)
	if err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}

	logging.FromContext(r.Context()).Info("file parsed",
		"project", projectCode,
		"file", header.Filename,
		"file_type", result.FileType,
		"total", result.TotalRows,
		"valid", result.ValidRows,
		"warnings", result.WarningRows,
		"errors", result.ErrorRows,
	)

	writeJSON(w, http.StatusOK, ParseResponse{
		ImportResult:   result,
		DuplicateCodes: s.duplicateCodes(r, projectCode, result),
	})
}

// duplicateCodes cross-checks the valid rows against codes already stored
// for the project. Best effort: a store failure degrades to no advisory
// rather than failing the parse.
func (s *Server) duplicateCodes(r *http.Request, projectCode string, result *importer.ImportResult) []string {
	validCodes := result.ValidCodes()
	if len(validCodes) == 0 {
		return nil
	}

	existing, err := s.store.ListActivityCodes(r.Context(), projectCode)
	if err != nil {
		logging.FromContext(r.Context()).Warn("duplicate check skipped", "error", err)
		return nil
	}

	existingSet := make(map[string]bool, len(existing))
	for _, code := range existing {
		existingSet[code] = true
	}

	var dupes []string
	for _, code := range validCodes {
		if existingSet[code] {
			dupes = append(dupes, code)
		}
	}
	return dupes
}

// handleCommit persists the reviewed valid rows as durable activities.
func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	projectCode := chi.URLParam(r, "projectCode")
	if projectCode == "" {
		s.respondError(w, r, errors.New("missing project code"), http.StatusBadRequest)
		return
	}

	var req CommitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, fmt.Errorf("decode commit request: %w", err), http.StatusBadRequest)
		return
	}

	result, err := s.store.BulkInsert(r.Context(), projectCode, req.Activities)
	if err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}

	logging.FromContext(r.Context()).Info("activities committed",
		"project", projectCode,
		"commit_id", result.CommitID,
		"inserted", result.Inserted,
		"skipped", result.Skipped,
	)
	writeJSON(w, http.StatusOK, result)
}

// handleTemplate serves a skeleton import document for users to fill in.
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "format") {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="plan_template.csv"`)
		w.Write(importer.TemplateCSV())
	case "xml":
		w.Header().Set("Content-Type", "application/xml")
		w.Header().Set("Content-Disposition", `attachment; filename="plan_template.xml"`)
		w.Write(importer.TemplateXML())
	default:
		s.respondError(w, r, errors.New("unknown template format"), http.StatusNotFound)
	}
}

// handleHealth reports liveness including database reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": "database unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
