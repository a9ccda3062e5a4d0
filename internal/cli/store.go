package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"lifeos/internal/config"
	"lifeos/internal/notefs"
	"lifeos/internal/notes"
	"lifeos/internal/storage"
	"lifeos/internal/storage/jsonfile"
	"lifeos/internal/storage/mongo"
	"lifeos/internal/storage/sqlite"
	"lifeos/internal/workspace"
)

// openStore opens the configured storage backend.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	switch cfg.Backend {
	case config.BackendFile:
		store, err := jsonfile.Open(cfg.DataDir,
			jsonfile.WithFile(storage.Tasks, cfg.TasksFile),
			jsonfile.WithFile(storage.Projects, cfg.ProjectsFile),
			jsonfile.WithDefaultOwner(cfg.DefaultOwner),
			jsonfile.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendSQLite:
		store, err := sqlite.Open(cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendMongo:
		store, err := mongo.Open(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// notesRoot returns the directory holding owner's text notes. The default
// owner uses the notes directory itself.
func notesRoot(cfg *config.Config, owner string) string {
	if owner == cfg.DefaultOwner {
		return cfg.NotesDir
	}
	return filepath.Join(cfg.NotesDir, "owners", owner)
}

// workspaceOptions builds the per-owner options, including the text file
// mirror when enabled.
func workspaceOptions(cfg *config.Config, logger *slog.Logger) workspace.Options {
	opts := workspace.Options{Logger: logger, AutosaveDelay: cfg.AutosaveDelay}
	if cfg.MirrorNotes {
		opts.Mirror = func(owner string) notes.Mirror {
			return notefs.New(notesRoot(cfg, owner), logger.With(slog.String("owner", owner)))
		}
	}
	return opts
}
