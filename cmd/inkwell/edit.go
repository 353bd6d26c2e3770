// ABOUTME: Edit command for modifying existing notes through a note session.
// ABOUTME: Edits autosave as they land; on exit the user saves, discards, or keeps editing.

package main

import (
	"fmt"

	"github.com/harper/inkwell/internal/session"
	"github.com/harper/inkwell/internal/ui"
	"github.com/spf13/cobra"
)

func newEditCmd(a *app) *cobra.Command {
	var (
		title   string
		content string
		onClose string
	)

	cmd := &cobra.Command{
		Use:   "edit <id-prefix>",
		Short: "Edit a note",
		Long: `Open a note's HTML content in $EDITOR, or change it with --title/--content.

Changes are autosaved while you work. When you finish with unsaved changes
you choose to save them, discard them (which also undoes anything already
autosaved), or cancel and keep editing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			switch onClose {
			case "ask", "save", "discard":
			default:
				return fmt.Errorf("unknown --on-close value %q (want ask, save or discard)", onClose)
			}

			note, err := a.lookup(ctx, args[0], false)
			if err != nil {
				return err
			}

			s := session.New(a.repo, a.saver, session.WithLogger(a.logger))
			if err := s.Open(ctx, note.ID); err != nil {
				return fmt.Errorf("failed to open note: %w", err)
			}

			interactive := true
			if cmd.Flags().Changed("title") {
				interactive = false
				if err := s.SetTitle(title); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("content") {
				interactive = false
				if err := s.SetContent(content); err != nil {
					return err
				}
			}

			for {
				if interactive {
					current := s.Note().Content
					edited, err := openEditor(current, ".html")
					if err != nil {
						_ = s.Close(ctx)
						return fmt.Errorf("failed to open editor: %w", err)
					}
					if edited != current {
						if err := s.SetContent(edited); err != nil {
							return err
						}
					}
				}

				if s.RequestClose() == session.CloseProceed {
					if err := s.Close(ctx); err != nil {
						return err
					}
					_, _ = fmt.Fprintln(out, "No changes made.")
					return nil
				}

				// The editor is gone and the prompt has focus.
				if _, err := s.Dispatch(ctx, session.EventFocusLost); err != nil {
					a.logger.Debug("autosave flush failed", "note", note.ID, "err", err)
				}
				a.reportFailures(cmd.ErrOrStderr())

				decision := a.decide(cmd, onClose, s.Note().Title)
				if err := s.Resolve(ctx, decision); err != nil {
					return fmt.Errorf("failed to close note: %w", err)
				}

				switch decision {
				case session.DecisionSaveAndExit:
					saved := s.Note()
					_, _ = fmt.Fprintln(out, ui.Success(fmt.Sprintf("Updated note %s (version %d)", ui.ShortID(saved), saved.Metadata.Version)))
					return nil
				case session.DecisionDiscard:
					_, _ = fmt.Fprintln(out, ui.Success(fmt.Sprintf("Discarded changes to %s", ui.ShortID(note))))
					return nil
				default:
					interactive = true
				}
			}
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "set the title without opening an editor")
	cmd.Flags().StringVar(&content, "content", "", "set the HTML content without opening an editor")
	cmd.Flags().StringVar(&onClose, "on-close", "ask", "what to do with unsaved changes: ask, save or discard")
	return cmd
}

func (a *app) decide(cmd *cobra.Command, onClose, title string) session.Decision {
	switch onClose {
	case "save":
		return session.DecisionSaveAndExit
	case "discard":
		return session.DecisionDiscard
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Unsaved changes to %q. [S]ave, [d]iscard, or [c]ancel? ", title)
	switch a.readLine(cmd) {
	case "d", "discard":
		return session.DecisionDiscard
	case "c", "cancel":
		return session.DecisionCancel
	default:
		return session.DecisionSaveAndExit
	}
}
