// ABOUTME: List command for displaying notes.
// ABOUTME: Supports search, folder and tag filters, trash, sorting and paging.

package main

import (
	"fmt"

	"github.com/harper/inkwell/internal/db"
	"github.com/harper/inkwell/internal/models"
	"github.com/harper/inkwell/internal/ui"
	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	var (
		search    string
		tags      []string
		folder    string
		noFolder  bool
		deleted   bool
		sortBy    string
		ascending bool
		limit     int
		offset    int
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List notes",
		Long:    `List notes, newest first. Search matches title or text case-sensitively; every --tag must be present.`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			field, err := db.ParseSortField(sortBy)
			if err != nil {
				return err
			}

			params := db.SearchParams{
				Query:          search,
				Tags:           models.NormalizeTags(tags),
				NoFolder:       noFolder,
				IncludeDeleted: deleted,
				SortBy:         field,
				Ascending:      ascending,
				Limit:          limit,
				Offset:         offset,
			}
			if folder != "" {
				params.FolderID = &folder
			}

			ctx := cmd.Context()
			notes, err := a.repo.SearchNotes(ctx, params)
			if err != nil {
				return fmt.Errorf("failed to list notes: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(notes) == 0 {
				_, _ = fmt.Fprintln(out, "No notes found.")
				return nil
			}

			for _, note := range notes {
				_, _ = fmt.Fprint(out, ui.FormatNoteListItem(note))
			}

			total, err := a.repo.CountNotes(ctx, params)
			if err != nil {
				return fmt.Errorf("failed to count notes: %w", err)
			}
			if shown := offset + len(notes); shown < total {
				_, _ = fmt.Fprintln(out, ui.Separator()+fmt.Sprintf("%d more (use --offset %d)", total-shown, shown))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "search title and text")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "filter by tag (repeatable)")
	cmd.Flags().StringVar(&folder, "folder", "", "only notes in this folder")
	cmd.Flags().BoolVar(&noFolder, "no-folder", false, "only notes without a folder")
	cmd.Flags().BoolVar(&deleted, "deleted", false, "include notes in the trash")
	cmd.Flags().StringVar(&sortBy, "sort", "lastModified", "sort by lastModified, dateCreated or title")
	cmd.Flags().BoolVar(&ascending, "asc", false, "sort ascending")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of results")
	cmd.Flags().IntVar(&offset, "offset", 0, "skip this many results")
	return cmd
}
