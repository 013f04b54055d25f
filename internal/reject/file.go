package reject

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/allocimport/internal/domain"
)

// fileHeader is the first row of every reject file.
var fileHeader = []string{"line", "error_messages", "row_json"}

// FileSink writes rejects to <base>/<YYYY>/<MM>/alloc_import_<jobId>_rejects_<YYYYMMDD_HHMMSS>.csv.
// The file is created on the first Write, so runs without rejects leave nothing behind.
type FileSink struct {
	baseDir string
	now     func() time.Time

	job   *domain.ImportJob
	path  string
	file  *os.File
	w     *csv.Writer
	count int
}

// NewFileSink creates a sink rooted at baseDir.
func NewFileSink(baseDir string) *FileSink {
	return &FileSink{baseDir: baseDir, now: time.Now}
}

// Start binds the sink to job and resets its counter.
func (s *FileSink) Start(_ context.Context, job *domain.ImportJob) error {
	if s.file != nil {
		return errors.New("reject sink already started")
	}
	s.job = job
	s.path = ""
	s.count = 0
	return nil
}

// Write appends one reject.
func (s *FileSink) Write(_ context.Context, rec domain.RejectRecord) error {
	if s.job == nil {
		return errors.New("reject sink not started")
	}
	if s.w == nil {
		if err := s.open(); err != nil {
			return err
		}
	}

	rowJSON, err := encodeRow(rec.Row)
	if err != nil {
		return fmt.Errorf("encode reject row: %w", err)
	}

	var line string
	if rec.Line != nil {
		line = strconv.Itoa(*rec.Line)
	}

	if err := s.w.Write([]string{line, strings.Join(rec.Messages, MessageSeparator), rowJSON}); err != nil {
		return fmt.Errorf("write reject: %w", err)
	}
	s.count++
	return nil
}

func (s *FileSink) open() error {
	now := s.now()
	dir := filepath.Join(s.baseDir, now.Format("2006"), now.Format("01"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create reject dir: %w", err)
	}

	name := fmt.Sprintf("alloc_import_%s_rejects_%s.csv", s.job.ID, now.Format("20060102_150405"))
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create reject file: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(fileHeader); err != nil {
		f.Close()
		return fmt.Errorf("write reject header: %w", err)
	}

	s.file, s.w, s.path = f, w, path
	return nil
}

// Close flushes and closes the file. It is safe to call more than once.
func (s *FileSink) Close() error {
	if s.file == nil {
		return nil
	}
	s.w.Flush()
	err := s.w.Error()
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	s.file, s.w = nil, nil
	if err != nil {
		return fmt.Errorf("close reject file: %w", err)
	}
	return nil
}

func (s *FileSink) Count() int { return s.count }

func (s *FileSink) Path() string { return s.path }

// encodeRow serializes row as a JSON object in column order.
func encodeRow(row domain.RowData) (string, error) {
	b, err := row.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadFile reads rejects back from a file written by FileSink, skipping
// offset records and returning at most limit (all when limit <= 0).
func ReadFile(path string, limit, offset int) ([]domain.RejectRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reject file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(fileHeader)

	if _, err := r.Read(); err != nil {
		return nil, fmt.Errorf("read reject header: %w", err)
	}

	var out []domain.RejectRecord
	for i := 0; ; i++ {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read reject file: %w", err)
		}
		if i < offset {
			continue
		}

		var rec domain.RejectRecord
		if fields[1] != "" {
			rec.Messages = strings.Split(fields[1], MessageSeparator)
		}
		if fields[0] != "" {
			if n, err := strconv.Atoi(fields[0]); err == nil {
				rec.Line = &n
			}
		}
		if err := json.Unmarshal([]byte(fields[2]), &rec.Row); err != nil {
			return nil, fmt.Errorf("decode reject row %d: %w", i+1, err)
		}
		out = append(out, rec)

		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
