package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"shifter/shift-service/internal/export"
	"shifter/shift-service/internal/models"
	"shifter/shift-service/internal/schedule"
	"shifter/shift-service/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var defaultBranches = []string{
	"Tel-Aviv",
	"Haifa",
	"Rishon-Lezion",
	"Natanya",
	"Beer-Sheva",
	"Gan-Shmuel",
	"Eilat",
	"Petah-Tikva",
	"Kfar-Saba",
	"Ashdod",
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		be, err := openBackend(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer be.close()
		if err := be.migrate(ctx); err != nil {
			return err
		}
		logger.Info("schema applied", zap.String("driver", cfg.DatabaseDriver))
		return nil
	},
}

var seedBranchesCmd = &cobra.Command{
	Use:   "seed-branches",
	Short: "Insert the default branch list, skipping existing names",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		be, err := openBackend(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer be.close()
		if err := be.migrate(ctx); err != nil {
			return err
		}
		created, err := seedBranches(ctx, be.store, defaultBranches, logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %d of %d branches\n", created, len(defaultBranches))
		return nil
	},
}

var exportFlags struct {
	branchID int64
	start    string
	out      string
}

var exportBoardCmd = &cobra.Command{
	Use:   "export-board",
	Short: "Write a branch's weekly board to an .xlsx file",
	Example: `  shift-service export-board --branch 1 --start 2024-01-01
  shift-service export-board --branch 3 --start 2024-02-05 --out haifa.xlsx`,
	RunE: func(cmd *cobra.Command, args []string) error {
		start, err := schedule.ParseDate(exportFlags.start)
		if err != nil {
			return fmt.Errorf("--start: %w", err)
		}
		out := exportFlags.out
		if out == "" {
			out = fmt.Sprintf("weekly-board-%d-%s.xlsx", exportFlags.branchID, start.Format(schedule.DateLayout))
		}

		ctx := cmd.Context()
		be, err := openBackend(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer be.close()

		scheduler := schedule.New(be.store, schedule.Options{Logger: logger.Named("schedule")})
		if err := exportBoard(ctx, scheduler, exportFlags.branchID, start, out); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
		return nil
	},
}

func init() {
	exportBoardCmd.Flags().Int64Var(&exportFlags.branchID, "branch", 0, "branch id")
	exportBoardCmd.Flags().StringVar(&exportFlags.start, "start", "", "first day of the week (YYYY-MM-DD)")
	exportBoardCmd.Flags().StringVar(&exportFlags.out, "out", "", "output path (default weekly-board-<branch>-<start>.xlsx)")
	_ = exportBoardCmd.MarkFlagRequired("branch")
	_ = exportBoardCmd.MarkFlagRequired("start")
}

// seedBranches creates every name not already present and reports how many
// were inserted.
func seedBranches(ctx context.Context, st store.Store, names []string, logger *zap.Logger) (int, error) {
	created := 0
	for _, name := range names {
		_, err := st.GetBranchByName(ctx, name)
		if err == nil {
			logger.Debug("branch exists", zap.String("name", name))
			continue
		}
		if !errors.Is(err, store.ErrBranchNotFound) {
			return created, fmt.Errorf("lookup branch %s: %w", name, err)
		}
		branch, err := st.CreateBranch(ctx, models.Branch{Name: name})
		if errors.Is(err, store.ErrDuplicate) {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("create branch %s: %w", name, err)
		}
		logger.Info("branch created", zap.Int64("branch_id", branch.ID), zap.String("name", branch.Name))
		created++
	}
	return created, nil
}

func exportBoard(ctx context.Context, scheduler *schedule.Scheduler, branchID int64, start time.Time, out string) error {
	days, err := scheduler.WeeklyBoard(ctx, branchID, start)
	if err != nil {
		return err
	}
	workbook, err := export.WeeklyBoardWorkbook(days)
	if err != nil {
		return err
	}
	defer workbook.Close()

	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := workbook.SaveAs(out); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
