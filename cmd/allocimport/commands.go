package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/allocimport/internal/app"
	"github.com/JonMunkholm/allocimport/internal/domain"
)

func enqueueCmd() *cobra.Command {
	var (
		hospital int64
		file     string
		encoding string
		runNow   bool
	)
	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Register a pending import job for a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				job, err := a.Service.Enqueue(ctx, hospital, file, encoding)
				if err != nil {
					return err
				}
				if runNow {
					sum, err := a.Service.Run(ctx, job.ID)
					if err != nil {
						return err
					}
					return printRun(cmd, a, job.ID, sum)
				}
				if jsonOutput(cmd) {
					return printJSON(os.Stdout, job)
				}
				renderJob(os.Stdout, job)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&hospital, "hospital", 0, "hospital id (required)")
	cmd.Flags().StringVar(&file, "file", "", "file path, relative to the upload directory (required)")
	cmd.Flags().StringVar(&encoding, "encoding", "", "charset hint: auto, utf-8, windows-1252, ... (default from config)")
	cmd.Flags().BoolVar(&runNow, "run", false, "run the job right away")
	_ = cmd.MarkFlagRequired("hospital")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <job-id>",
		Short: "Run an import job and print its summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				sum, err := a.Service.Run(ctx, id)
				if err != nil {
					return err
				}
				return printRun(cmd, a, id, sum)
			})
		},
	}
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show an import job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				job, err := a.Service.Job(ctx, id)
				if err != nil {
					return err
				}
				if jsonOutput(cmd) {
					return printJSON(os.Stdout, job)
				}
				renderJob(os.Stdout, job)
				return nil
			})
		},
	}
}

func listCmd() *cobra.Command {
	var (
		status string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List import jobs by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			st := domain.JobStatus(status)
			switch st {
			case domain.JobPending, domain.JobRunning, domain.JobCompleted, domain.JobFailed:
			default:
				return fmt.Errorf("unknown status %q (pending, running, completed, failed)", status)
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				jobs, err := a.Service.Jobs(ctx, st, limit)
				if err != nil {
					return err
				}
				if jsonOutput(cmd) {
					return printJSON(os.Stdout, jobs)
				}
				renderJobs(os.Stdout, jobs)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", string(domain.JobPending), "job status")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of jobs")
	return cmd
}

func rejectsCmd() *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "rejects <job-id>",
		Short: "List the rejected rows of a job's last run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				recs, err := a.Service.Rejects(ctx, id, limit, offset)
				if err != nil {
					return err
				}
				if jsonOutput(cmd) {
					return printJSON(os.Stdout, recs)
				}
				renderRejects(os.Stdout, recs)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum number of rows")
	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")
	return cmd
}

func printRun(cmd *cobra.Command, a *app.App, id uuid.UUID, sum domain.Summary) error {
	job, err := a.Service.Job(cmd.Context(), id)
	if err != nil {
		return err
	}
	if jsonOutput(cmd) {
		return printJSON(os.Stdout, struct {
			Summary domain.Summary    `json:"summary"`
			Job     *domain.ImportJob `json:"job"`
		}{sum, job})
	}
	renderSummary(os.Stdout, job, sum)
	return nil
}

func parseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid job id %q: %w", s, err)
	}
	return id, nil
}
