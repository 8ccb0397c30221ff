package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/peterskelv123-tech/backend-offline/internal/config"
	"github.com/peterskelv123-tech/backend-offline/internal/database"
	"github.com/peterskelv123-tech/backend-offline/internal/extractor"
	"github.com/peterskelv123-tech/backend-offline/internal/repository"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cbtctl",
		Short:         "Operator tools for the CBT backend",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")

	root.AddCommand(extractCmd(), attendanceCmd())
	return root
}

// cliLogger writes human-readable logs to stderr so stdout stays pipeable.
func cliLogger(cmd *cobra.Command) zerolog.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.WarnLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()
}

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Parse a .docx or .pdf question document and print the questions as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runExtract,
	}
	f := cmd.Flags()
	f.IntP("total", "n", 1, "Questions each student must answer")
	f.Int("max", 0, "Cap on the size of the parsed bank (0 = unlimited)")
	return cmd
}

func runExtract(cmd *cobra.Command, args []string) error {
	total, _ := cmd.Flags().GetInt("total")
	limit, _ := cmd.Flags().GetInt("max")

	ex := extractor.New(limit, cliLogger(cmd))
	questions, err := ex.ExtractFile(cmd.Context(), args[0], total)
	if err != nil {
		return err
	}

	if err := writeJSON(cmd.OutOrStdout(), questions); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%d questions extracted from %s\n", len(questions), args[0])
	return nil
}

func attendanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attendance",
		Short: "Inspect or purge live attendance entries",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Print every live attendance entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(ctx context.Context, store *repository.SessionStore) error {
				entries, err := store.AttendanceSnapshot(ctx)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), entries)
			})
		},
	}

	purge := &cobra.Command{
		Use:   "purge",
		Short: "Remove every live attendance entry of one exam",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			examID, _ := cmd.Flags().GetInt64("exam")
			if examID <= 0 {
				return fmt.Errorf("--exam must be a positive exam id")
			}
			return withStore(cmd, func(ctx context.Context, store *repository.SessionStore) error {
				removed, err := store.RemoveStudentsByExam(ctx, examID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d entries for exam %d\n", removed, examID)
				return nil
			})
		},
	}
	purge.Flags().Int64("exam", 0, "Exam id")
	_ = purge.MarkFlagRequired("exam")

	cmd.AddCommand(list, purge)
	return cmd
}

// withStore connects to the configured redis and hands fn a session store.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, store *repository.SessionStore) error) error {
	cfg := config.Load()
	ctx := cmd.Context()
	rdb, err := database.NewRedisClient(ctx, cfg, cliLogger(cmd))
	if err != nil {
		return err
	}
	defer rdb.Close()

	return fn(ctx, repository.NewSessionStore(rdb, cfg.ProgressTTL))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
