// ABOUTME: Tag command for managing note tags.
// ABOUTME: Provides add, rm, and list subcommands.

package main

import (
	"fmt"

	"github.com/harper/inkwell/internal/models"
	"github.com/harper/inkwell/internal/ui"
	"github.com/spf13/cobra"
)

func newTagCmd(a *app) *cobra.Command {
	tagCmd := &cobra.Command{
		Use:   "tag",
		Short: "Manage tags",
		Long:  `Add, remove, or list tags on notes.`,
	}

	tagAddCmd := &cobra.Command{
		Use:   "add <id-prefix> <tag>",
		Short: "Add a tag to a note",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			note, err := a.lookup(ctx, args[0], false)
			if err != nil {
				return err
			}
			if _, err := a.repo.AddTagToNote(ctx, note.ID, args[1]); err != nil {
				return fmt.Errorf("failed to add tag: %w", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Added tag %q to note %s", models.NormalizeTag(args[1]), ui.ShortID(note))))
			return nil
		},
	}

	tagRmCmd := &cobra.Command{
		Use:   "rm <id-prefix> <tag>",
		Short: "Remove a tag from a note",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			note, err := a.lookup(ctx, args[0], false)
			if err != nil {
				return err
			}
			if _, err := a.repo.RemoveTagFromNote(ctx, note.ID, args[1]); err != nil {
				return fmt.Errorf("failed to remove tag: %w", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Removed tag %q from note %s", models.NormalizeTag(args[1]), ui.ShortID(note))))
			return nil
		},
	}

	tagListCmd := &cobra.Command{
		Use:   "list",
		Short: "List all tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, err := a.repo.ListTagCounts(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list tags: %w", err)
			}

			if len(tags) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No tags found.")
				return nil
			}

			counts := make([]ui.TagCount, 0, len(tags))
			for _, t := range tags {
				counts = append(counts, ui.TagCount{Name: t.Name, Count: t.Count})
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), ui.FormatTagList(counts))
			return nil
		},
	}

	tagCmd.AddCommand(tagAddCmd, tagRmCmd, tagListCmd)
	return tagCmd
}
