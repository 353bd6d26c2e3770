// ABOUTME: Add command for creating new notes.
// ABOUTME: Supports inline content, file input, or $EDITOR; markdown is converted to HTML.

package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/harper/inkwell/internal/markup"
	"github.com/harper/inkwell/internal/models"
	"github.com/harper/inkwell/internal/ui"
	"github.com/spf13/cobra"
)

func newAddCmd(a *app) *cobra.Command {
	var (
		tags    string
		content string
		file    string
		folder  string
		pin     bool
		rawHTML bool
	)

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a new note",
		Long:  `Create a new note with the given title. Content can be provided via --content, --file, or $EDITOR. Markdown is converted to HTML unless --html is set.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				body string
				err  error
			)
			switch {
			case cmd.Flags().Changed("content"):
				body = content
			case file != "":
				data, err := os.ReadFile(file) //nolint:gosec // User-specified file path is expected CLI behavior
				if err != nil {
					return fmt.Errorf("failed to read file: %w", err)
				}
				body = string(data)
			default:
				body, err = openEditor("", ".md")
				if err != nil {
					return fmt.Errorf("failed to open editor: %w", err)
				}
			}

			if !rawHTML {
				if body, err = markup.ToHTML(body); err != nil {
					return fmt.Errorf("failed to convert markdown: %w", err)
				}
			}

			params := models.CreateParams{
				Title:    args[0],
				Content:  body,
				Tags:     models.ParseTagList(tags),
				IsPinned: pin,
			}
			if folder != "" {
				params.FolderID = &folder
			}

			note, err := a.repo.CreateNote(cmd.Context(), params)
			if err != nil {
				return fmt.Errorf("failed to create note: %w", err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Created note %s", ui.ShortID(note))))
			return nil
		},
	}

	cmd.Flags().StringVar(&tags, "tags", "", "comma-separated tags")
	cmd.Flags().StringVar(&content, "content", "", "note content (inline)")
	cmd.Flags().StringVar(&file, "file", "", "read content from file")
	cmd.Flags().StringVar(&folder, "folder", "", "folder ID")
	cmd.Flags().BoolVar(&pin, "pin", false, "pin the note")
	cmd.Flags().BoolVar(&rawHTML, "html", false, "treat content as HTML instead of markdown")
	return cmd
}

func openEditor(initial, ext string) (string, error) {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vim"
	}

	tmpFile, err := os.CreateTemp("", "inkwell-*"+ext)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = os.Remove(tmpFile.Name()) // Best-effort cleanup
	}()

	if initial != "" {
		if _, err := tmpFile.WriteString(initial); err != nil {
			_ = tmpFile.Close()
			return "", fmt.Errorf("failed to write initial content: %w", err)
		}
	}
	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	parts := strings.Fields(editor)
	cmd := exec.Command(parts[0], append(parts[1:], tmpFile.Name())...) //nolint:gosec // Launching $EDITOR is expected CLI behavior
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return "", err
	}

	data, err := os.ReadFile(tmpFile.Name())
	if err != nil {
		return "", err
	}

	return string(data), nil
}
