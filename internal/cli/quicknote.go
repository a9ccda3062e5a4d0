package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lifeos/internal/workspace"
)

var quicknoteCmd = &cobra.Command{
	Use:   "quicknote TEXT...",
	Short: "Append a timestamped entry to the QuickNote",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuicknote,
}

func init() {
	quicknoteCmd.Flags().String("owner", "", "Owner of the note (default: the configured default owner)")
	addStorageFlags(quicknoteCmd)
}

func runQuicknote(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	owner, _ := cmd.Flags().GetString("owner")
	if owner == "" {
		owner = cfg.DefaultOwner
	}

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
	note, err := ws.Notes.QuickAppend(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Appended to %s\n", note.Filename)
	return nil
}
