package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"lifeos/internal/notefs"
	"lifeos/internal/workspace"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Rewrite stored data in canonical form",
	Long: `migrate loads every collection of one owner, repairing legacy records on
the way, and writes them back in canonical form.

With --import-notes it first imports a directory of legacy text notes, one
folder per note project and one .txt file per note.`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().String("owner", "", "Owner to migrate (default: the configured default owner)")
	migrateCmd.Flags().String("import-notes", "", "Directory of legacy text notes to import")
	addStorageFlags(migrateCmd)
}

// addStorageFlags registers the flags that select the backend.
func addStorageFlags(cmd *cobra.Command) {
	cmd.Flags().String("backend", "file", "Storage backend: file, sqlite or mongo")
	cmd.Flags().String("data-dir", "data", "Directory for data files")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	owner, _ := cmd.Flags().GetString("owner")
	if owner == "" {
		owner = cfg.DefaultOwner
	}
	importDir, _ := cmd.Flags().GetString("import-notes")

	ctx := cmd.Context()
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()

	ws, err := workspace.Open(ctx, store, owner, workspaceOptions(cfg, logger))
	if err != nil {
		return err
	}

	if importDir != "" {
		folders, err := notefs.New(importDir, logger).Scan()
		if err != nil {
			return fmt.Errorf("failed to scan %s: %w", importDir, err)
		}
		report, err := ws.Notes.Import(ctx, folders)
		if err != nil {
			return fmt.Errorf("failed to import notes: %w", err)
		}
		logger.Info("notes imported",
			slog.String("dir", importDir),
			slog.Int("projects", report.Projects),
			slog.Int("notes", report.Notes),
			slog.Int("skipped", report.Skipped))
	}

	if err := ws.Flush(ctx); err != nil {
		return fmt.Errorf("failed to write collections: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Migrated %d projects, %d tasks and %d note projects for %s\n",
		len(ws.Projects.List()), len(ws.Tasks.List()), len(ws.Notes.Projects()), owner)
	return nil
}
