package importer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/allocimport/internal/domain"
	"github.com/JonMunkholm/allocimport/internal/reject"
	"github.com/JonMunkholm/allocimport/internal/source"
)

const header = "Versorgungsbereich;Datum;Uhrzeit;Geschlecht;Alter;PZC;PZC-Text;Transportmittel;Schockraum;Schwanger\n"

type fixture struct {
	t       *testing.T
	store   *memStore
	svc     *Service
	baseDir string
	rejects string
}

func newFixture(t *testing.T, kind reject.Kind) *fixture {
	t.Helper()
	base := t.TempDir()
	rejects := filepath.Join(t.TempDir(), "rejects")
	store := newMemStore()
	svc := NewService(store, nil, NewLimiter(2, time.Second), Options{
		BaseDir:    base,
		BatchSize:  2,
		RejectKind: kind,
		RejectDir:  rejects,
	})
	return &fixture{t: t, store: store, svc: svc, baseDir: base, rejects: rejects}
}

func (f *fixture) enqueue(name, content string) *domain.ImportJob {
	f.t.Helper()
	if err := os.WriteFile(filepath.Join(f.baseDir, name), []byte(content), 0o644); err != nil {
		f.t.Fatalf("WriteFile() error = %v", err)
	}
	job, err := f.svc.Enqueue(context.Background(), 7, name, "")
	if err != nil {
		f.t.Fatalf("Enqueue() error = %v", err)
	}
	return job
}

func (f *fixture) job(id uuid.UUID) domain.ImportJob {
	f.t.Helper()
	job, err := f.store.GetJob(context.Background(), id)
	if err != nil {
		f.t.Fatalf("GetJob() error = %v", err)
	}
	return *job
}

func TestRun_ThreeRowScenario(t *testing.T) {
	f := newFixture(t, reject.KindFile)
	job := f.enqueue("alloc.csv", header+
		"Nordkreis;07.01.2025;10:19:45;W;34;123451;Akutes Abdomen;RTW;S+;\n"+
		"Südkreis;07.01.2025;11:02:10;D;58;321002;Sturz;Luft;;\n"+
		"Nordkreis;07.01.2025;12:00:00;M;0;123453;Akutes Abdomen;Boden;;\n")

	sum, err := f.svc.Run(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := domain.Summary{Total: 3, OK: 2, Rejected: 1}
	if sum != want {
		t.Errorf("Run() = %+v, want %+v", sum, want)
	}

	got := f.job(job.ID)
	if got.Status != domain.JobCompleted {
		t.Errorf("Status = %q, want completed", got.Status)
	}
	if got.RowsTotal != 3 || got.RowsPassed != 2 || got.RowsRejected != 1 {
		t.Errorf("counters = %d/%d/%d, want 3/2/1", got.RowsTotal, got.RowsPassed, got.RowsRejected)
	}
	if got.RunCount != 1 {
		t.Errorf("RunCount = %d, want 1", got.RunCount)
	}
	if got.RejectPath == nil {
		t.Fatal("RejectPath = nil, want reject file")
	}
	if !strings.HasPrefix(*got.RejectPath, f.rejects) {
		t.Errorf("RejectPath = %q, want below %q", *got.RejectPath, f.rejects)
	}

	data, err := os.ReadFile(*got.RejectPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("reject file has %d lines, want header + 1:\n%s", len(lines), data)
	}
	if !strings.HasPrefix(lines[1], "4,") || !strings.Contains(lines[1], "age: must be between 1 and 120, got 0") {
		t.Errorf("reject row = %q", lines[1])
	}

	if len(f.store.allocations) != 2 {
		t.Fatalf("allocations = %d, want 2", len(f.store.allocations))
	}
	second := f.store.allocations[1]
	if second.Gender != domain.GenderUnspecified {
		t.Errorf("Gender = %q, want D", second.Gender)
	}
	if second.TransportType == nil || *second.TransportType != domain.TransportAir {
		t.Errorf("TransportType = %v, want air", second.TransportType)
	}
	if second.HospitalID != 7 || second.ImportID != job.ID {
		t.Errorf("owner = %d/%v, want 7/%v", second.HospitalID, second.ImportID, job.ID)
	}
}

func TestRun_UnknownDispatchArea(t *testing.T) {
	f := newFixture(t, reject.KindTable)
	job := f.enqueue("alloc.csv", header+
		"Westkreis;07.01.2025;10:19:45;W;34;123451;Sturz;;;\n")

	sum, err := f.svc.Run(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.OK != 0 || sum.Rejected != 1 {
		t.Errorf("Run() = %+v, want 0 ok / 1 rejected", sum)
	}
	if len(f.store.allocations) != 0 {
		t.Errorf("allocations = %d, want 0", len(f.store.allocations))
	}

	rejects := f.store.rejects[job.ID]
	if len(rejects) != 1 {
		t.Fatalf("rejects = %d, want 1", len(rejects))
	}
	want := `dispatchArea: reference not found ("Westkreis")`
	if len(rejects[0].Messages) != 1 || rejects[0].Messages[0] != want {
		t.Errorf("Messages = %q, want [%q]", rejects[0].Messages, want)
	}
	if rejects[0].Line == nil || *rejects[0].Line != 2 {
		t.Errorf("Line = %v, want 2", rejects[0].Line)
	}
	if rejects[0].Row.Get("versorgungsbereich") != "Westkreis" {
		t.Errorf("Row = %v", rejects[0].Row)
	}

	got := f.job(job.ID)
	if got.RejectPath != nil {
		t.Errorf("RejectPath = %q, want nil for table sink", *got.RejectPath)
	}
	if len(f.store.indications) != 0 {
		t.Errorf("indications = %d, want 0 for rejected row", len(f.store.indications))
	}
}

func TestRun_IndicationDedupAcrossRuns(t *testing.T) {
	f := newFixture(t, reject.KindFile)
	content := header +
		"Nordkreis;07.01.2025;10:19:45;W;34;123451;Akutes Abdomen;;;\n" +
		"Nordkreis;07.01.2025;10:20:45;W;35;123452;Akutes Abdomen;;;\n" +
		"Südkreis;07.01.2025;10:21:45;M;36;555551;Sturz;;;\n" +
		"Südkreis;07.01.2025;10:22:45;M;37;123451;Sturz;;;\n"
	job := f.enqueue("alloc.csv", content)

	for i := 0; i < 2; i++ {
		if _, err := f.svc.Run(context.Background(), job.ID); err != nil {
			t.Fatalf("run %d error = %v", i+1, err)
		}
	}

	// (123, Akutes Abdomen), (555, Sturz), (123, Sturz)
	if len(f.store.indications) != 3 {
		t.Errorf("indications = %d, want 3", len(f.store.indications))
	}
	if got := f.job(job.ID).RunCount; got != 2 {
		t.Errorf("RunCount = %d, want 2", got)
	}
	if len(f.store.allocations) != 8 {
		t.Errorf("allocations = %d, want 8", len(f.store.allocations))
	}
}

func TestRun_RejectCountMatchesSummary(t *testing.T) {
	f := newFixture(t, reject.KindTable)
	job := f.enqueue("alloc.csv", header+
		"Nordkreis;07.01.2025;10:19:45;W;34;123451;;;;\n"+
		";07.01.2025;10:19:45;W;34;123451;;;;\n"+
		"Nordkreis;;10:19:45;W;34;123451;;;;\n"+
		"Nordkreis;07.01.2025;10:19:45;M;34;123451;;;;ja\n"+
		"Nordkreis;07.01.2025;10:19:45;W;34;123450;;;;\n"+
		"\n"+
		"Nordkreis;07.01.2025;10:19:45;W;200;123451;;;;\n"+
		"Nordkreis;07.01.2025;10:19:45;W;34;123451;;Boot;;\n")

	sum, err := f.svc.Run(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.Total != 7 {
		t.Errorf("Total = %d, want 7 (blank row skipped)", sum.Total)
	}
	if got := len(f.store.rejects[job.ID]); got != sum.Total-sum.OK || got != sum.Rejected {
		t.Errorf("rejects = %d, summary = %+v", got, sum)
	}
	if sum.OK != 2 {
		t.Errorf("OK = %d, want 2 (first row and unknown transport dropped to absent)", sum.OK)
	}
}

func TestRun_JobNotFound(t *testing.T) {
	f := newFixture(t, reject.KindFile)
	_, err := f.svc.Run(context.Background(), uuid.New())
	if !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Run() error = %v, want ErrJobNotFound", err)
	}
}

func TestRun_JobAlreadyRunning(t *testing.T) {
	f := newFixture(t, reject.KindFile)
	job := f.enqueue("alloc.csv", header)
	if _, err := f.store.ClaimJob(context.Background(), job.ID); err != nil {
		t.Fatal(err)
	}

	_, err := f.svc.Run(context.Background(), job.ID)
	if !errors.Is(err, ErrJobRunning) {
		t.Errorf("Run() error = %v, want ErrJobRunning", err)
	}
	if got := f.job(job.ID); got.Status != domain.JobRunning || got.RunCount != 0 {
		t.Errorf("job = %q/%d, want untouched", got.Status, got.RunCount)
	}
}

func TestRun_MalformedSourceFailsJob(t *testing.T) {
	f := newFixture(t, reject.KindFile)
	job := f.enqueue("empty.csv", "")

	_, err := f.svc.Run(context.Background(), job.ID)
	if !errors.Is(err, source.ErrMalformedSource) {
		t.Fatalf("Run() error = %v, want ErrMalformedSource", err)
	}

	got := f.job(job.ID)
	if got.Status != domain.JobFailed {
		t.Errorf("Status = %q, want failed", got.Status)
	}
	if got.RunCount != 1 || got.LastError == "" {
		t.Errorf("RunCount/LastError = %d/%q", got.RunCount, got.LastError)
	}
}

func TestRun_StorageErrorFailsJob(t *testing.T) {
	f := newFixture(t, reject.KindFile)
	f.store.insertErr = errStorage
	job := f.enqueue("alloc.csv", header+
		"Nordkreis;07.01.2025;10:19:45;W;34;123451;;;;\n"+
		"Nordkreis;07.01.2025;10:19:45;W;35;123451;;;;\n"+
		"Nordkreis;07.01.2025;10:19:45;W;36;123451;;;;\n")

	sum, err := f.svc.Run(context.Background(), job.ID)
	if !errors.Is(err, errStorage) {
		t.Fatalf("Run() error = %v, want %v", err, errStorage)
	}
	if sum.Total != 2 {
		t.Errorf("Total = %d, want 2 (aborted at first flush)", sum.Total)
	}

	got := f.job(job.ID)
	if got.Status != domain.JobFailed || got.RunCount != 1 {
		t.Errorf("job = %q/%d, want failed/1", got.Status, got.RunCount)
	}
	if got.RowsTotal != 0 {
		t.Errorf("RowsTotal = %d, want counters untouched on failure", got.RowsTotal)
	}
}

func TestRun_PanicMarksFailedAndRepanics(t *testing.T) {
	f := newFixture(t, reject.KindFile)
	f.store.insertPanic = true
	job := f.enqueue("alloc.csv", header+
		"Nordkreis;07.01.2025;10:19:45;W;34;123451;;;;\n")

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Run() did not re-panic")
			}
		}()
		_, _ = f.svc.Run(context.Background(), job.ID)
	}()

	got := f.job(job.ID)
	if got.Status != domain.JobFailed {
		t.Errorf("Status = %q, want failed", got.Status)
	}
	if !strings.Contains(got.LastError, "storage exploded") {
		t.Errorf("LastError = %q", got.LastError)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	f := newFixture(t, reject.KindFile)
	job := f.enqueue("alloc.csv", header+
		"Nordkreis;07.01.2025;10:19:45;W;34;123451;;;;\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// GetJob on the in-memory store ignores ctx, so the run starts and
	// stops at the first context check.
	_, err := f.svc.Run(ctx, job.ID)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if got := f.job(job.ID); got.Status != domain.JobFailed {
		t.Errorf("Status = %q, want failed", got.Status)
	}
}

func TestRun_PathOutsideBaseDir(t *testing.T) {
	f := newFixture(t, reject.KindFile)
	job := domain.NewImportJob(7, "../../etc/passwd", "passwd", 0, "")
	_ = f.store.CreateJob(context.Background(), job)

	_, err := f.svc.Run(context.Background(), job.ID)
	if !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("Run() error = %v, want ErrInvalidPath", err)
	}
	if got := f.job(job.ID); got.Status != domain.JobFailed || got.RunCount != 1 {
		t.Errorf("job = %q/%d, want failed/1", got.Status, got.RunCount)
	}
}

func TestRun_BadPathLeavesJobClaimedElsewhere(t *testing.T) {
	f := newFixture(t, reject.KindFile)
	job := domain.NewImportJob(7, "../../etc/passwd", "passwd", 0, "")
	_ = f.store.CreateJob(context.Background(), job)

	// another process claims the job between the status check and the claim
	f.store.beforeClaim = func(id uuid.UUID) {
		other := f.job(id)
		other.Status = domain.JobRunning
		other.RunCount = 5
		_ = f.store.UpdateJob(context.Background(), &other)
	}

	_, err := f.svc.Run(context.Background(), job.ID)
	if !errors.Is(err, ErrJobRunning) {
		t.Fatalf("Run() error = %v, want ErrJobRunning", err)
	}
	got := f.job(job.ID)
	if got.Status != domain.JobRunning || got.RunCount != 5 || got.LastError != "" {
		t.Errorf("job = %q/%d/%q, want untouched running job", got.Status, got.RunCount, got.LastError)
	}
}

func TestRejects_FileAndTable(t *testing.T) {
	for _, kind := range []reject.Kind{reject.KindFile, reject.KindTable} {
		t.Run(string(kind), func(t *testing.T) {
			f := newFixture(t, kind)
			job := f.enqueue("alloc.csv", header+
				"Westkreis;07.01.2025;10:19:45;W;34;123451;;;;\n"+
				"Nordkreis;07.01.2025;10:19:45;W;0;123451;;;;\n")

			if _, err := f.svc.Run(context.Background(), job.ID); err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			recs, err := f.svc.Rejects(context.Background(), job.ID, 10, 0)
			if err != nil {
				t.Fatalf("Rejects() error = %v", err)
			}
			if len(recs) != 2 {
				t.Fatalf("Rejects() = %d records, want 2", len(recs))
			}
			if recs[1].Line == nil || *recs[1].Line != 3 {
				t.Errorf("recs[1].Line = %v, want 3", recs[1].Line)
			}
		})
	}
}

func TestEnqueue(t *testing.T) {
	f := newFixture(t, reject.KindFile)
	job := f.enqueue("alloc.csv", header)

	if job.Status != domain.JobPending || job.Encoding != domain.EncodingAuto {
		t.Errorf("job = %q/%q, want pending/auto", job.Status, job.Encoding)
	}
	if job.FileName != "alloc.csv" || job.FileSize != int64(len(header)) {
		t.Errorf("file = %q/%d", job.FileName, job.FileSize)
	}

	if _, err := f.svc.Enqueue(context.Background(), 7, "missing.csv", ""); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("Enqueue(missing) error = %v, want ErrInvalidPath", err)
	}
	if _, err := f.svc.Enqueue(context.Background(), 0, "alloc.csv", ""); !errors.Is(err, ErrInvalidHospital) {
		t.Errorf("Enqueue(hospital 0) error = %v, want ErrInvalidHospital", err)
	}
}

func TestResolvePath(t *testing.T) {
	base := t.TempDir()
	_ = os.WriteFile(filepath.Join(base, "a.csv"), []byte("12345"), 0o644)
	_ = os.Mkdir(filepath.Join(base, "dir"), 0o755)

	tests := []struct {
		name    string
		path    string
		max     int64
		wantErr error
	}{
		{"relative", "a.csv", 0, nil},
		{"absolute inside", filepath.Join(base, "a.csv"), 0, nil},
		{"traversal", "../a.csv", 0, ErrInvalidPath},
		{"directory", "dir", 0, ErrInvalidPath},
		{"missing", "b.csv", 0, ErrInvalidPath},
		{"empty", " ", 0, ErrInvalidPath},
		{"too large", "a.csv", 4, ErrFileTooLarge},
		{"at limit", "a.csv", 5, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := ResolvePath(base, tt.path, tt.max)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ResolvePath() error = %v, want %v", err, tt.wantErr)
			}
			if err == nil && got != filepath.Join(base, "a.csv") {
				t.Errorf("ResolvePath() = %q", got)
			}
		})
	}
}

func TestJobs_ByStatus(t *testing.T) {
	f := newFixture(t, reject.KindTable)
	first := f.enqueue("a.csv", header+"Nordkreis;07.01.2025;10:19:45;W;34;123451;Akutes Abdomen;RTW;;\n")
	f.enqueue("b.csv", header)

	if _, err := f.svc.Run(context.Background(), first.ID); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	pending, err := f.svc.Jobs(context.Background(), domain.JobPending, 10)
	if err != nil {
		t.Fatalf("Jobs() error = %v", err)
	}
	if len(pending) != 1 || pending[0].FileName != "b.csv" {
		t.Errorf("Jobs(pending) = %+v", pending)
	}
	completed, _ := f.svc.Jobs(context.Background(), domain.JobCompleted, 10)
	if len(completed) != 1 || completed[0].ID != first.ID {
		t.Errorf("Jobs(completed) = %+v", completed)
	}
}
