package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fieldscope/siteplan/internal/config"
	"github.com/fieldscope/siteplan/internal/importer"
	"github.com/fieldscope/siteplan/internal/store"
)

// stubStore fakes the committer boundary.
type stubStore struct {
	existingCodes []string
	listErr       error
	pingErr       error
	commitErr     error

	committedProject string
	committedRows    []importer.ParsedActivity
}

func (s *stubStore) BulkInsert(ctx context.Context, projectCode string, rows []importer.ParsedActivity) (*store.CommitResult, error) {
	if s.commitErr != nil {
		return nil, s.commitErr
	}
	var valid []importer.ParsedActivity
	for _, a := range rows {
		if a.Status == importer.StatusValid {
			valid = append(valid, a)
		}
	}
	if len(valid) == 0 {
		return nil, store.ErrNoValidRows
	}
	s.committedProject = projectCode
	s.committedRows = valid
	return &store.CommitResult{
		CommitID:  "test-commit",
		Requested: len(valid),
		Inserted:  len(valid),
	}, nil
}

func (s *stubStore) ListActivityCodes(ctx context.Context, projectCode string) ([]string, error) {
	return s.existingCodes, s.listErr
}

func (s *stubStore) Ping(ctx context.Context) error { return s.pingErr }

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:           "127.0.0.1",
			Port:           8080,
			RequestTimeout: 30 * time.Second,
		},
		Import: config.ImportConfig{MaxFileSize: 1 << 20},
		Rate:   config.RateLimitConfig{Enabled: false},
	}
}

func newTestServer(st ActivityStore) *Server {
	return NewServer(st, testConfig())
}

// multipartUpload builds a multipart body with one "file" part.
func multipartUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func doParse(t *testing.T, srv *Server, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartUpload(t, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/api/projects/DEMO/import/parse", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

// ============================================================================
// POST /api/projects/{projectCode}/import/parse
// ============================================================================

func TestHandleParseCSV(t *testing.T) {
	st := &stubStore{existingCodes: []string{"ACT-01"}}
	srv := newTestServer(st)

	rec := doParse(t, srv, "plan.csv",
		"project_code,area_name,system_name,activity_code,activity_name,unit,boq_qty,weight\n"+
			"DEMO,A1,S1,ACT-01,Weld joints,m,120,5\n"+
			"DEMO,A1,S1,ACT-02,Fit pipe,m,80,3\n")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp ParseResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.TotalRows != 2 || resp.ValidRows != 2 {
		t.Errorf("counts = %+v", resp.ImportResult)
	}
	if resp.FileType != "CSV" {
		t.Errorf("fileType = %q", resp.FileType)
	}
	if len(resp.DuplicateCodes) != 1 || resp.DuplicateCodes[0] != "ACT-01" {
		t.Errorf("duplicateCodes = %v, want [ACT-01]", resp.DuplicateCodes)
	}
}

func TestHandleParseDuplicateCheckDegradesGracefully(t *testing.T) {
	st := &stubStore{listErr: errors.New("connection refused")}
	srv := newTestServer(st)

	rec := doParse(t, srv, "plan.csv",
		"project_code,area_name,system_name,activity_code,activity_name,unit,boq_qty,weight\n"+
			"DEMO,A1,S1,ACT-01,Weld joints,m,120,5\n")

	if rec.Code != http.StatusOK {
		t.Fatalf("parse must not fail when the duplicate check does: %d", rec.Code)
	}
	var resp ParseResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.DuplicateCodes != nil {
		t.Errorf("duplicateCodes = %v, want none", resp.DuplicateCodes)
	}
}

func TestHandleParseUnsupportedFormat(t *testing.T) {
	srv := newTestServer(&stubStore{})

	rec := doParse(t, srv, "plan.docx", "not a plan")

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d, want 415", rec.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Code != "IMP001" {
		t.Errorf("error code = %q, want IMP001", resp.Code)
	}
}

func TestHandleParseMPP(t *testing.T) {
	srv := newTestServer(&stubStore{})

	rec := doParse(t, srv, "plan.mpp", "\xd0\xcf\x11\xe0binary")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp ParseResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.TotalRows != 0 || resp.ErrorRows != 1 || len(resp.Activities) != 1 {
		t.Errorf("mpp stub shape wrong: %+v", resp.ImportResult)
	}
}

func TestHandleParseNoFile(t *testing.T) {
	srv := newTestServer(&stubStore{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/projects/DEMO/import/parse", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Code != "FILE002" {
		t.Errorf("error code = %q, want FILE002", resp.Code)
	}
}

func TestHandleParseMalformedXML(t *testing.T) {
	srv := newTestServer(&stubStore{})

	rec := doParse(t, srv, "plan.xml", "<Project><Tasks><Task><UID>1</UID>")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Code != "IMP002" {
		t.Errorf("error code = %q, want IMP002", resp.Code)
	}
}

// ============================================================================
// POST /api/projects/{projectCode}/import/commit
// ============================================================================

func commitBody(t *testing.T, rows []importer.ParsedActivity) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(CommitRequest{Activities: rows})
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewReader(data)
}

func TestHandleCommit(t *testing.T) {
	st := &stubStore{}
	srv := newTestServer(st)

	rows := []importer.ParsedActivity{{
		ProjectCode:  "DEMO",
		ActivityCode: "ACT-01",
		ActivityName: "Weld joints",
		Unit:         "m",
		BOQQty:       120,
		Weight:       5,
		Status:       importer.StatusValid,
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/projects/DEMO/import/commit", commitBody(t, rows))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var result store.CommitResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.Inserted != 1 {
		t.Errorf("inserted = %d", result.Inserted)
	}
	if st.committedProject != "DEMO" {
		t.Errorf("committed project = %q", st.committedProject)
	}
}

func TestHandleCommitNoValidRows(t *testing.T) {
	srv := newTestServer(&stubStore{})

	rows := []importer.ParsedActivity{{
		ActivityCode: "ACT-01",
		ActivityName: "Weld joints",
		Status:       importer.StatusWarning,
		ErrorMessage: "quantity must be greater than zero",
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/projects/DEMO/import/commit", commitBody(t, rows))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Code != "IMP003" {
		t.Errorf("error code = %q, want IMP003", resp.Code)
	}
}

func TestHandleCommitStoreFaultIsServerError(t *testing.T) {
	// Database-side failures must surface as 5xx, not as a client error.
	tests := []struct {
		name       string
		commitErr  error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "database down",
			commitErr:  errors.New("begin transaction: dial tcp 127.0.0.1:5432: connection refused"),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "DB002",
		},
		{
			name:       "transaction fault",
			commitErr:  errors.New("commit transaction: unexpected EOF"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "ERR000",
		},
	}

	rows := []importer.ParsedActivity{{
		ActivityCode: "ACT-01",
		ActivityName: "Weld joints",
		Unit:         "m",
		BOQQty:       120,
		Weight:       5,
		Status:       importer.StatusValid,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&stubStore{commitErr: tt.commitErr})

			req := httptest.NewRequest(http.MethodPost, "/api/projects/DEMO/import/commit", commitBody(t, rows))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			srv.Router().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("error code = %q, want %q", resp.Code, tt.wantCode)
			}
		})
	}
}

func TestHandleCommitBadBody(t *testing.T) {
	srv := newTestServer(&stubStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/projects/DEMO/import/commit", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// ============================================================================
// Templates and health
// ============================================================================

func TestHandleTemplate(t *testing.T) {
	srv := newTestServer(&stubStore{})

	tests := []struct {
		format      string
		wantStatus  int
		wantType    string
		wantContain string
	}{
		{format: "csv", wantStatus: http.StatusOK, wantType: "text/csv", wantContain: "activity_code"},
		{format: "xml", wantStatus: http.StatusOK, wantType: "application/xml", wantContain: "<Task>"},
		{format: "xlsx", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/import/template/"+tt.format, nil)
			rec := httptest.NewRecorder()
			srv.Router().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			if got := rec.Header().Get("Content-Type"); got != tt.wantType {
				t.Errorf("content type = %q", got)
			}
			if !strings.Contains(rec.Body.String(), tt.wantContain) {
				t.Errorf("body missing %q:\n%s", tt.wantContain, rec.Body.String())
			}
		})
	}
}

func TestHandleHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		srv := newTestServer(&stubStore{})
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("database down", func(t *testing.T) {
		srv := newTestServer(&stubStore{pingErr: errors.New("connection refused")})
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", rec.Code)
		}
	})
}
