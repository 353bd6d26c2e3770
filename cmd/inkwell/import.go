// ABOUTME: Import command for restoring notes from backup.
// ABOUTME: Supports JSON exports and markdown files or directories, converted to HTML with goldmark.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/harper/inkwell/internal/markup"
	"github.com/harper/inkwell/internal/models"
	"github.com/harper/inkwell/internal/ui"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <path>",
		Short: "Import notes",
		Long:  `Import notes from a JSON export, a markdown file, or a directory of markdown files. JSON imports keep IDs, timestamps and versions.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("failed to stat path: %w", err)
			}

			imp := &importer{app: a, out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()}
			ctx := cmd.Context()

			var count int
			switch {
			case info.IsDir():
				count, err = imp.markdownDir(ctx, path)
			case strings.HasSuffix(path, ".json"):
				count, err = imp.jsonFile(ctx, path)
			default:
				err = imp.markdownFile(ctx, path)
				count = 1
			}
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(imp.out, ui.Success(fmt.Sprintf("Imported %d notes", count)))
			return nil
		},
	}
}

type importer struct {
	app    *app
	out    io.Writer
	errOut io.Writer
}

func (imp *importer) warn(format string, args ...any) {
	_, _ = fmt.Fprintln(imp.errOut, ui.Warn(fmt.Sprintf(format, args...)))
}

func (imp *importer) jsonFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-specified file path is expected CLI behavior
	if err != nil {
		return 0, err
	}

	var export ExportData
	if err := json.Unmarshal(data, &export); err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	count := 0
	for _, en := range export.Notes {
		note := fromExport(en)
		if err := imp.app.repo.InsertNote(ctx, note); err != nil {
			imp.warn("failed to import %q: %v", en.Title, err)
			continue
		}
		count++
	}
	return count, nil
}

// fromExport rebuilds a note, keeping the exported identity where it is valid.
func fromExport(en ExportNote) *models.Note {
	note := models.NewNote(models.CreateParams{
		Title:    en.Title,
		Content:  en.Content,
		FolderID: en.FolderID,
		Tags:     en.Tags,
		IsPinned: en.Pinned,
	})
	if id, err := uuid.Parse(en.ID); err == nil {
		note.ID = id
	}
	if !en.CreatedAt.IsZero() {
		note.CreatedAt = en.CreatedAt.UTC()
	}
	if !en.UpdatedAt.IsZero() {
		note.UpdatedAt = en.UpdatedAt.UTC()
	}
	if en.Version > 0 {
		note.Metadata.Version = en.Version
	}
	note.Metadata.LastEditPosition = en.LastEditPosition
	note.IsDeleted = en.Deleted
	return note
}

func (imp *importer) markdownDir(ctx context.Context, dir string) (int, error) {
	count := 0

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}

		if err := imp.markdownFile(ctx, path); err != nil {
			imp.warn("failed to import %s: %v", path, err)
			return nil
		}
		count++
		return nil
	})
	return count, err
}

type frontmatter struct {
	Title  string   `yaml:"title"`
	Tags   []string `yaml:"tags"`
	Folder string   `yaml:"folder"`
	Pinned bool     `yaml:"pinned"`
}

// splitFrontmatter separates a leading YAML block from the markdown body.
func splitFrontmatter(src string) (frontmatter, string) {
	var fm frontmatter
	if !strings.HasPrefix(src, "---\n") {
		return fm, src
	}
	parts := strings.SplitN(src, "---\n", 3)
	if len(parts) < 3 {
		return fm, src
	}
	if err := yaml.Unmarshal([]byte(parts[1]), &fm); err != nil {
		return frontmatter{}, src
	}
	return fm, parts[2]
}

func (imp *importer) markdownFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // User-specified file path is expected CLI behavior
	if err != nil {
		return err
	}

	fm, body := splitFrontmatter(string(data))
	if fm.Title == "" {
		fm.Title = strings.TrimSuffix(filepath.Base(path), ".md")
	}

	content, err := markup.ToHTML(body)
	if err != nil {
		return fmt.Errorf("failed to convert markdown: %w", err)
	}

	params := models.CreateParams{
		Title:    fm.Title,
		Content:  content,
		Tags:     fm.Tags,
		IsPinned: fm.Pinned,
	}
	if fm.Folder != "" {
		params.FolderID = &fm.Folder
	}

	_, err = imp.app.repo.CreateNote(ctx, params)
	return err
}
