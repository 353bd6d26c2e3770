// ABOUTME: Remove and restore commands.
// ABOUTME: rm moves a note to the trash (or purges it); restore brings it back.

package main

import (
	"fmt"

	"github.com/harper/inkwell/internal/ui"
	"github.com/spf13/cobra"
)

func newRmCmd(a *app) *cobra.Command {
	var (
		force bool
		purge bool
	)

	cmd := &cobra.Command{
		Use:   "rm <id-prefix>",
		Short: "Remove a note",
		Long:  `Move a note to the trash. With --purge the note is deleted permanently, including notes already in the trash.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			note, err := a.lookup(ctx, args[0], purge)
			if err != nil {
				return err
			}

			if !force {
				verb := "Delete"
				if purge {
					verb = "Permanently delete"
				}
				if !a.confirm(cmd, fmt.Sprintf("%s note %q (%s)?", verb, note.Title, ui.ShortID(note))) {
					_, _ = fmt.Fprintln(out, "Cancelled.")
					return nil
				}
			}

			a.saver.Cancel(note.ID)
			if purge {
				if err := a.repo.PurgeNote(ctx, note.ID); err != nil {
					return fmt.Errorf("failed to purge note: %w", err)
				}
				_, _ = fmt.Fprintln(out, ui.Success(fmt.Sprintf("Purged note %s", ui.ShortID(note))))
				return nil
			}

			if err := a.repo.SoftDeleteNote(ctx, note.ID); err != nil {
				return fmt.Errorf("failed to delete note: %w", err)
			}
			_, _ = fmt.Fprintln(out, ui.Success(fmt.Sprintf("Deleted note %s", ui.ShortID(note))))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation")
	cmd.Flags().BoolVar(&purge, "purge", false, "delete permanently")
	return cmd
}

func newRestoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <id-prefix>",
		Short: "Restore a note from the trash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			note, err := a.lookup(ctx, args[0], true)
			if err != nil {
				return err
			}
			if !note.IsDeleted {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), ui.Warn(fmt.Sprintf("Note %s is not in the trash", ui.ShortID(note))))
				return nil
			}
			if _, err := a.repo.RestoreNote(ctx, note.ID); err != nil {
				return fmt.Errorf("failed to restore note: %w", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Restored note %s", ui.ShortID(note))))
			return nil
		},
	}
}
