package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/allocimport/internal/domain"
)

func TestFormatRow(t *testing.T) {
	got := formatRow(domain.NewRowData([]string{"versorgungsbereich", "pzc", "alter"}, []string{"Westkreis", "", "0"}))
	if want := "versorgungsbereich=Westkreis alter=0"; got != want {
		t.Errorf("formatRow() = %q, want %q", got, want)
	}
}

func TestRenderRejects(t *testing.T) {
	line := 4
	var buf bytes.Buffer
	renderRejects(&buf, []domain.RejectRecord{{
		Line:     &line,
		Messages: []string{"age: must be between 1 and 120, got 0"},
		Row:      domain.RowData{{Name: "alter", Value: "0"}},
	}})

	out := buf.String()
	for _, want := range []string{"LINE", "4", "must be between 1 and 120", "alter=0"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderSummary(t *testing.T) {
	path := "/rejects/2025/01/x.csv"
	job := &domain.ImportJob{ID: uuid.New(), RunTime: 1500 * time.Millisecond, RejectPath: &path}

	var buf bytes.Buffer
	renderSummary(&buf, job, domain.Summary{Total: 3, OK: 2, Rejected: 1})

	out := buf.String()
	for _, want := range []string{job.ID.String(), "1.5s", path} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := printJSON(&buf, domain.Summary{Total: 3, OK: 2, Rejected: 1}); err != nil {
		t.Fatalf("printJSON() error = %v", err)
	}
	if !strings.Contains(buf.String(), `"rejected": 1`) {
		t.Errorf("printJSON() = %s", buf.String())
	}
}

func TestParseID(t *testing.T) {
	if _, err := parseID("nope"); err == nil {
		t.Error("parseID(nope) expected error")
	}
	id := uuid.New()
	if got, err := parseID(id.String()); err != nil || got != id {
		t.Errorf("parseID() = %v, %v", got, err)
	}
}
