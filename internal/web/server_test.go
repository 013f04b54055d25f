package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/allocimport/internal/config"
	"github.com/JonMunkholm/allocimport/internal/domain"
	"github.com/JonMunkholm/allocimport/internal/importer"
	"github.com/JonMunkholm/allocimport/internal/reject"
	"github.com/JonMunkholm/allocimport/internal/source"
	"github.com/JonMunkholm/allocimport/internal/store/sqlitestore"
)

const export = "Versorgungsbereich;Datum;Uhrzeit;Geschlecht;Alter;PZC;PZC-Text\n" +
	"Nordkreis;07.01.2025;10:19:45;W;34;123451;Akutes Abdomen\n" +
	"Westkreis;07.01.2025;11:02:10;M;58;321002;Sturz\n"

type testServer struct {
	t     *testing.T
	store *sqlitestore.Store
	svc   *importer.Service
	srv   *Server
}

func newTestServer(t *testing.T, security config.SecurityConfig) *testServer {
	t.Helper()

	store, err := sqlitestore.Open(filepath.Join(t.TempDir(), "web.db"))
	if err != nil {
		t.Fatalf("sqlitestore.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	err = store.SeedReferences(context.Background(),
		[]domain.State{{ID: 1, Name: "Hessen"}},
		[]domain.DispatchArea{{ID: 10, Name: "Nordkreis", StateID: 1}})
	if err != nil {
		t.Fatalf("SeedReferences() error = %v", err)
	}

	base := t.TempDir()
	if err := os.WriteFile(filepath.Join(base, "alloc.csv"), []byte(export), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	svc := importer.NewService(store, nil, importer.NewLimiter(1, 100*time.Millisecond), importer.Options{
		BaseDir:    base,
		RejectKind: reject.KindTable,
	})
	srv := NewServer(svc, config.ServerConfig{RequestTimeout: 5 * time.Second}, security)
	return &testServer{t: t, store: store, svc: svc, srv: srv}
}

func (ts *testServer) do(method, path string, body any, header ...string) *httptest.ResponseRecorder {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			ts.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	ts.srv.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func (ts *testServer) enqueue() domain.ImportJob {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/api/imports", createImportRequest{HospitalID: 7, File: "alloc.csv"})
	if rec.Code != http.StatusCreated {
		ts.t.Fatalf("POST /api/imports status = %d, body %s", rec.Code, rec.Body)
	}
	return decode[domain.ImportJob](ts.t, rec)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, config.SecurityConfig{})

	rec := ts.do(http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	got := decode[healthStatus](t, rec)
	if got.Status != "ok" || got.Imports.MaxConcurrent != 1 || got.Imports.Available != 1 {
		t.Errorf("health = %+v", got)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}
}

func TestCreateAndGetImport(t *testing.T) {
	ts := newTestServer(t, config.SecurityConfig{})

	job := ts.enqueue()
	if job.Status != domain.JobPending || job.HospitalID != 7 || job.FileName != "alloc.csv" {
		t.Errorf("created job = %+v", job)
	}

	rec := ts.do(http.MethodGet, "/api/imports/"+job.ID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d, body %s", rec.Code, rec.Body)
	}
	if got := decode[domain.ImportJob](t, rec); got.ID != job.ID {
		t.Errorf("GET id = %v, want %v", got.ID, job.ID)
	}

	rec = ts.do(http.MethodGet, "/api/imports?status=pending", nil)
	if list := decode[[]domain.ImportJob](t, rec); len(list) != 1 {
		t.Errorf("list pending = %d jobs, want 1", len(list))
	}
}

func TestErrors(t *testing.T) {
	ts := newTestServer(t, config.SecurityConfig{})

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"unknown job", http.MethodGet, "/api/imports/" + uuid.NewString(), nil, http.StatusNotFound, "IMP001"},
		{"bad id", http.MethodGet, "/api/imports/not-a-uuid", nil, http.StatusBadRequest, "IMP008"},
		{"path escape", http.MethodPost, "/api/imports", createImportRequest{HospitalID: 7, File: "../etc/passwd"}, http.StatusBadRequest, "IMP004"},
		{"missing file", http.MethodPost, "/api/imports", createImportRequest{HospitalID: 7}, http.StatusBadRequest, "IMP008"},
		{"bad hospital", http.MethodPost, "/api/imports", createImportRequest{File: "alloc.csv"}, http.StatusBadRequest, "IMP008"},
		{"unknown body field", http.MethodPost, "/api/imports", map[string]any{"file": "alloc.csv", "x": 1}, http.StatusBadRequest, "IMP008"},
		{"bad status filter", http.MethodGet, "/api/imports?status=done", nil, http.StatusBadRequest, "IMP008"},
		{"run unknown job", http.MethodPost, "/api/imports/" + uuid.NewString() + "/run", nil, http.StatusNotFound, "IMP001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(tt.method, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body)
			}
			if got := decode[ErrorResponse](t, rec); got.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestRunImport(t *testing.T) {
	ts := newTestServer(t, config.SecurityConfig{})
	job := ts.enqueue()

	rec := ts.do(http.MethodPost, "/api/imports/"+job.ID.String()+"/run", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("run status = %d, body %s", rec.Code, rec.Body)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ts.svc.Limiter().WaitForDrain(ctx); err != nil {
		t.Fatalf("WaitForDrain() error = %v", err)
	}

	got := decode[domain.ImportJob](t, ts.do(http.MethodGet, "/api/imports/"+job.ID.String(), nil))
	if got.Status != domain.JobCompleted || got.RowsTotal != 2 || got.RowsPassed != 1 || got.RowsRejected != 1 {
		t.Errorf("job after run = %+v", got)
	}

	rec = ts.do(http.MethodGet, "/api/imports/"+job.ID.String()+"/rejects?limit=10", nil)
	rejects := decode[[]domain.RejectRecord](t, rec)
	if len(rejects) != 1 || rejects[0].Row.Get("versorgungsbereich") != "Westkreis" {
		t.Errorf("rejects = %+v", rejects)
	}
}

func TestRunImport_AlreadyRunning(t *testing.T) {
	ts := newTestServer(t, config.SecurityConfig{})
	job := ts.enqueue()

	if ok, err := ts.store.ClaimJob(context.Background(), job.ID); !ok || err != nil {
		t.Fatalf("ClaimJob() = %v, %v", ok, err)
	}

	rec := ts.do(http.MethodPost, "/api/imports/"+job.ID.String()+"/run", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestRunImport_Busy(t *testing.T) {
	ts := newTestServer(t, config.SecurityConfig{})
	job := ts.enqueue()

	if !ts.svc.Limiter().TryAcquire() {
		t.Fatal("TryAcquire() = false")
	}
	defer ts.svc.Limiter().Release()

	rec := ts.do(http.MethodPost, "/api/imports/"+job.ID.String()+"/run", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}

func TestAPIKeyAuth(t *testing.T) {
	ts := newTestServer(t, config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"secret"}})

	if rec := ts.do(http.MethodGet, "/api/imports", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("no key status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if rec := ts.do(http.MethodGet, "/api/imports", nil, "X-API-Key", "wrong"); rec.Code != http.StatusForbidden {
		t.Errorf("wrong key status = %d, want %d", rec.Code, http.StatusForbidden)
	}
	if rec := ts.do(http.MethodGet, "/api/imports", nil, "X-API-Key", "secret"); rec.Code != http.StatusOK {
		t.Errorf("valid key status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec := ts.do(http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want %d without key", rec.Code, http.StatusOK)
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("load: %w", importer.ErrJobNotFound), "IMP001"},
		{importer.ErrJobRunning, "IMP002"},
		{importer.ErrTooManyRuns, "IMP003"},
		{fmt.Errorf("x: %w", importer.ErrInvalidPath), "IMP004"},
		{importer.ErrFileTooLarge, "IMP005"},
		{fmt.Errorf("open: %w", source.ErrMalformedSource), "IMP006"},
		{source.ErrUnknownEncoding, "IMP007"},
		{errors.New("connection reset"), "ERR000"},
	}

	for _, tt := range tests {
		if got := MapError(tt.err); got.Code != tt.want {
			t.Errorf("MapError(%v) = %s, want %s", tt.err, got.Code, tt.want)
		}
	}
}
