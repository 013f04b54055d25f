// Command allocimport enqueues, runs and inspects allocation import jobs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/allocimport/internal/app"
	"github.com/JonMunkholm/allocimport/internal/config"
	"github.com/JonMunkholm/allocimport/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "allocimport",
	Short: "Hospital allocation import CLI",
	Long: `allocimport loads dispatch allocation exports (CSV or XLSX) into the
allocation store. Jobs are enqueued for a hospital and a file below the
upload directory, then run once or re-run after a failure. Rejected rows are
written to a reject file or table and can be listed per job.

Configuration comes from the environment (and .env / ALLOC_CONFIG_FILE),
the same as the server.`,
	SilenceUsage: true,
}

func main() {
	_ = godotenv.Overload()

	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.AddCommand(enqueueCmd(), runCmd(), showCmd(), listCmd(), rejectsCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// withApp loads configuration, opens the store and calls fn.
func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}
