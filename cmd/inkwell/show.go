// ABOUTME: Show command for displaying a single note.
// ABOUTME: Renders the note's plain text with glamour, or prints raw HTML.

package main

import (
	"fmt"

	"github.com/harper/inkwell/internal/ui"
	"github.com/spf13/cobra"
)

func newShowCmd(a *app) *cobra.Command {
	var (
		raw     bool
		deleted bool
	)

	cmd := &cobra.Command{
		Use:   "show <id-prefix>",
		Short: "Show a note",
		Long:  `Display a note's details and text.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			note, err := a.lookup(cmd.Context(), args[0], deleted)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprint(out, ui.FormatNoteHeader(note))

			if raw {
				_, _ = fmt.Fprintln(out, note.Content)
				return nil
			}
			body, _ := ui.FormatNoteContent(note.PlainText)
			_, _ = fmt.Fprint(out, body)
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "print stored HTML instead of rendered text")
	cmd.Flags().BoolVar(&deleted, "deleted", false, "include notes in the trash")
	return cmd
}
