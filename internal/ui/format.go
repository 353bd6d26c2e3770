// ABOUTME: Terminal UI formatting for inkwell output.
// ABOUTME: Uses glamour for note bodies and fatih/color for styling.

package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/harper/inkwell/internal/models"
)

var (
	faint  = color.New(color.Faint).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
)

const timeFormat = "2006-01-02 15:04"

type TagCount struct {
	Name  string
	Count int
}

func ShortID(note *models.Note) string {
	return note.ID.String()[:8]
}

func FormatNoteListItem(note *models.Note) string {
	var sb strings.Builder

	marker := " "
	if note.IsPinned {
		marker = yellow("*")
	}
	title := bold(note.Title)
	if note.IsDeleted {
		title = red(note.Title + " (deleted)")
	}
	sb.WriteString(fmt.Sprintf("%s %s  %s\n", marker, faint(ShortID(note)), title))

	if len(note.Tags) > 0 {
		sb.WriteString(fmt.Sprintf("           %s %s\n",
			faint("Tags:"),
			cyan(strings.Join(note.Tags, ", "))))
	}

	sb.WriteString(fmt.Sprintf("           %s %s  %s\n",
		faint("Updated:"),
		faint(note.UpdatedAt.Local().Format(timeFormat)),
		faint(fmt.Sprintf("%d words", note.WordCount))))

	return sb.String()
}

// FormatNoteContent renders text for the terminal, falling back to the raw
// text if glamour cannot.
func FormatNoteContent(content string) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return content, nil //nolint:nilerr // Intentional fallback
	}

	out, err := renderer.Render(content)
	if err != nil {
		return content, nil //nolint:nilerr // Intentional fallback
	}
	return out, nil
}

func FormatNoteHeader(note *models.Note) string {
	var sb strings.Builder

	title := bold(note.Title)
	if note.IsPinned {
		title = yellow("* ") + title
	}
	sb.WriteString(title + "\n")
	sb.WriteString(fmt.Sprintf("%s %s\n", faint("ID:"), faint(note.ID.String())))
	sb.WriteString(fmt.Sprintf("%s %s\n", faint("Created:"), faint(note.CreatedAt.Local().Format(timeFormat))))
	sb.WriteString(fmt.Sprintf("%s %s\n", faint("Updated:"), faint(note.UpdatedAt.Local().Format(timeFormat))))
	sb.WriteString(fmt.Sprintf("%s %s\n", faint("Stats:"), faint(fmt.Sprintf(
		"%d words, %d min read, %d chars, version %d",
		note.WordCount, note.Metadata.ReadingTime, note.Metadata.CharacterCount, note.Metadata.Version))))

	if note.FolderID != nil {
		sb.WriteString(fmt.Sprintf("%s %s\n", faint("Folder:"), *note.FolderID))
	}
	if len(note.Tags) > 0 {
		sb.WriteString(fmt.Sprintf("%s %s\n", faint("Tags:"), cyan(strings.Join(note.Tags, ", "))))
	}
	if note.IsDeleted {
		sb.WriteString(red("Deleted") + "\n")
	}

	sb.WriteString(Separator())
	return sb.String()
}

func FormatTagList(tags []TagCount) string {
	var sb strings.Builder

	for _, t := range tags {
		sb.WriteString(fmt.Sprintf("  %s %s\n",
			cyan(t.Name),
			faint(fmt.Sprintf("(%d)", t.Count))))
	}

	return sb.String()
}

func Separator() string {
	return faint(strings.Repeat("─", 50)) + "\n"
}

func Success(msg string) string {
	return color.New(color.FgGreen).Sprint("✓ ") + msg
}

func Error(msg string) string {
	return color.New(color.FgRed).Sprint("✗ ") + msg
}

func Warn(msg string) string {
	return yellow("! ") + msg
}
