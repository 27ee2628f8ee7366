package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/erazemk/assettrack/internal/export"
	"github.com/erazemk/assettrack/internal/seed"
	"github.com/erazemk/assettrack/internal/store"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(*cobra.Command, []string) error {
			database, err := a.openDB()
			if err != nil {
				return err
			}
			defer database.Close()
			slog.Info("database migrated", "path", a.cfg.Database.Path)
			return nil
		},
	}
}

func newSeedCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load catalog entries from a YAML file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := seed.ParseFile(file)
			if err != nil {
				return err
			}

			database, err := a.openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			res, err := seed.Apply(cmd.Context(), database, f)
			if err != nil {
				return err
			}
			slog.Info("catalogs seeded", "created", res.Created, "skipped", res.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "seed.yaml", "seed file")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var (
		out             string
		includeInactive bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the asset register to an Excel workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			database, err := a.openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			assets, err := store.ExportAssets(cmd.Context(), database, store.AssetFilter{
				IncludeInactive: includeInactive,
				Ordering:        "name",
			})
			if err != nil {
				return err
			}

			fh, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("creating %s: %w", out, err)
			}
			if err := export.WriteAssets(fh, assets); err != nil {
				fh.Close()
				return err
			}
			if err := fh.Close(); err != nil {
				return fmt.Errorf("closing %s: %w", out, err)
			}

			slog.Info("assets exported", "file", out, "count", len(assets))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "assets.xlsx", "output file")
	cmd.Flags().BoolVar(&includeInactive, "include-inactive", false, "include soft-deleted assets")
	return cmd
}

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify-ledger",
		Short: "Check cached departments against the transfer ledger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			database, err := a.openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			mismatches, err := store.VerifyLedger(cmd.Context(), database)
			if err != nil {
				return err
			}
			for _, m := range mismatches {
				slog.Warn("ledger mismatch", "asset", m.AssetID,
					"cached", deref(m.Cached), "replayed", deref(m.Replayed))
			}
			if len(mismatches) > 0 {
				return errors.New("transfer ledger and cached departments disagree")
			}
			slog.Info("transfer ledger consistent")
			return nil
		},
	}
}

func deref(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}
