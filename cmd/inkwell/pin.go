// ABOUTME: Pin and unpin commands.
// ABOUTME: Toggle a note's pinned flag without touching its version.

package main

import (
	"fmt"

	"github.com/harper/inkwell/internal/models"
	"github.com/harper/inkwell/internal/ui"
	"github.com/spf13/cobra"
)

func newPinCmd(a *app, pinned bool) *cobra.Command {
	use, short, verb := "unpin", "Unpin a note", "Unpinned"
	if pinned {
		use, short, verb = "pin", "Pin a note", "Pinned"
	}

	return &cobra.Command{
		Use:   use + " <id-prefix>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			note, err := a.lookup(ctx, args[0], false)
			if err != nil {
				return err
			}
			if _, err := a.repo.UpdateNote(ctx, models.NoteUpdate{ID: note.ID, IsPinned: models.BoolPtr(pinned)}); err != nil {
				return fmt.Errorf("failed to update note: %w", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("%s note %s", verb, ui.ShortID(note))))
			return nil
		},
	}
}
