package main

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/JonMunkholm/allocimport/internal/domain"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderJob(w io.Writer, job *domain.ImportJob) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendRows([]table.Row{
		{"ID", job.ID},
		{"Hospital", job.HospitalID},
		{"File", job.FilePath},
		{"Size", job.FileSize},
		{"Encoding", job.Encoding},
		{"Status", job.Status},
		{"Rows", job.RowsTotal},
		{"Passed", job.RowsPassed},
		{"Rejected", job.RowsRejected},
		{"Runs", job.RunCount},
		{"Run time", job.RunTime.Round(time.Millisecond)},
		{"Reject file", deref(job.RejectPath)},
		{"Last error", job.LastError},
		{"Updated", job.UpdatedAt.Format(time.RFC3339)},
	})
	tw.Render()
}

func renderJobs(w io.Writer, jobs []*domain.ImportJob) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"ID", "Hospital", "File", "Status", "Rows", "Passed", "Rejected", "Created"})
	for _, j := range jobs {
		tw.AppendRow(table.Row{j.ID, j.HospitalID, j.FileName, j.Status, j.RowsTotal, j.RowsPassed, j.RowsRejected, j.CreatedAt.Format(time.RFC3339)})
	}
	tw.Render()
}

func renderSummary(w io.Writer, job *domain.ImportJob, sum domain.Summary) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetTitle("Import " + job.ID.String())
	tw.AppendHeader(table.Row{"Total", "OK", "Rejected", "Run time", "Reject file"})
	tw.AppendRow(table.Row{sum.Total, sum.OK, sum.Rejected, job.RunTime.Round(time.Millisecond), deref(job.RejectPath)})
	tw.Render()
}

func renderRejects(w io.Writer, recs []domain.RejectRecord) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Line", "Errors", "Row"})
	for _, r := range recs {
		line := ""
		if r.Line != nil {
			line = strconv.Itoa(*r.Line)
		}
		tw.AppendRow(table.Row{line, strings.Join(r.Messages, "\n"), formatRow(r.Row)})
	}
	tw.Render()
}

// formatRow prints a row as key=value pairs in column order, skipping empty cells.
func formatRow(row domain.RowData) string {
	parts := make([]string, 0, len(row))
	for _, c := range row {
		if c.Value != "" {
			parts = append(parts, c.Name+"="+c.Value)
		}
	}
	return strings.Join(parts, " ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
