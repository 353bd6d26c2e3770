// ABOUTME: Export command for backing up notes.
// ABOUTME: Supports JSON and markdown-with-frontmatter export formats.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harper/inkwell/internal/db"
	"github.com/harper/inkwell/internal/models"
	"github.com/harper/inkwell/internal/ui"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const exportVersion = "1.0"

type ExportNote struct {
	ID               string    `json:"id" yaml:"id"`
	Title            string    `json:"title" yaml:"title"`
	Content          string    `json:"content" yaml:"-"`
	Tags             []string  `json:"tags" yaml:"tags,omitempty"`
	FolderID         *string   `json:"folder_id,omitempty" yaml:"folder,omitempty"`
	Pinned           bool      `json:"pinned" yaml:"pinned,omitempty"`
	Deleted          bool      `json:"deleted" yaml:"deleted,omitempty"`
	Version          int64     `json:"version" yaml:"version"`
	LastEditPosition int       `json:"last_edit_position" yaml:"-"`
	CreatedAt        time.Time `json:"created_at" yaml:"created"`
	UpdatedAt        time.Time `json:"updated_at" yaml:"updated"`
}

type ExportData struct {
	ExportedAt time.Time    `json:"exported_at"`
	Version    string       `json:"version"`
	Notes      []ExportNote `json:"notes"`
}

func toExport(n *models.Note) ExportNote {
	return ExportNote{
		ID:               n.ID.String(),
		Title:            n.Title,
		Content:          n.Content,
		Tags:             n.Tags,
		FolderID:         n.FolderID,
		Pinned:           n.IsPinned,
		Deleted:          n.IsDeleted,
		Version:          n.Metadata.Version,
		LastEditPosition: n.Metadata.LastEditPosition,
		CreatedAt:        n.CreatedAt,
		UpdatedAt:        n.UpdatedAt,
	}
}

func newExportCmd(a *app) *cobra.Command {
	var (
		format     string
		outputPath string
		notePrefix string
		deleted    bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export notes",
		Long:  `Export notes to a JSON file or a directory of markdown files with YAML frontmatter.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var notes []*models.Note
			if notePrefix != "" {
				note, err := a.lookup(ctx, notePrefix, deleted)
				if err != nil {
					return err
				}
				notes = append(notes, note)
			} else {
				params := db.SearchParams{IncludeDeleted: deleted, SortBy: db.SortByDateCreated, Ascending: true}
				total, err := a.repo.CountNotes(ctx, params)
				if err != nil {
					return fmt.Errorf("failed to count notes: %w", err)
				}
				params.Limit = max(total, 1)
				if notes, err = a.repo.SearchNotes(ctx, params); err != nil {
					return fmt.Errorf("failed to list notes: %w", err)
				}
			}

			switch format {
			case "json":
				return exportJSON(cmd.OutOrStdout(), notes, outputPath)
			case "md":
				return exportMarkdown(cmd.OutOrStdout(), notes, outputPath)
			default:
				return fmt.Errorf("unknown format: %s", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "export format (json|md)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output path")
	cmd.Flags().StringVarP(&notePrefix, "note", "n", "", "single note ID to export")
	cmd.Flags().BoolVar(&deleted, "deleted", false, "include notes in the trash")
	return cmd
}

func exportJSON(out io.Writer, notes []*models.Note, outputPath string) error {
	export := ExportData{
		ExportedAt: time.Now().UTC(),
		Version:    exportVersion,
		Notes:      make([]ExportNote, 0, len(notes)),
	}
	for _, n := range notes {
		export.Notes = append(export.Notes, toExport(n))
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return err
	}

	if outputPath == "" || outputPath == "-" {
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	if err := os.WriteFile(outputPath, data, 0600); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out, ui.Success(fmt.Sprintf("Exported %d notes to %s", len(notes), outputPath)))
	return nil
}

func exportMarkdown(out io.Writer, notes []*models.Note, outputDir string) error {
	if outputDir == "" {
		outputDir = "export"
	}

	if err := os.MkdirAll(outputDir, 0750); err != nil {
		return err
	}

	for _, n := range notes {
		frontmatter, err := yaml.Marshal(toExport(n))
		if err != nil {
			return err
		}

		var sb strings.Builder
		sb.WriteString("---\n")
		sb.Write(frontmatter)
		sb.WriteString("---\n\n")
		sb.WriteString(n.Content)
		sb.WriteString("\n")

		filename := sanitizeFilename(n.Title) + "-" + n.ID.String()[:8] + ".md"
		if err := os.WriteFile(filepath.Join(outputDir, filename), []byte(sb.String()), 0600); err != nil {
			return err
		}
	}

	_, _ = fmt.Fprintln(out, ui.Success(fmt.Sprintf("Exported %d notes to %s", len(notes), outputDir)))
	return nil
}

func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-", "*", "-",
		"?", "-", "\"", "-", "<", "-", ">", "-", "|", "-",
	)
	name = replacer.Replace(name)
	if len(name) > 100 {
		name = name[:100]
	}
	return name
}
