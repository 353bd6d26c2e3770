// ABOUTME: Root command and shared application state for the CLI.
// ABOUTME: Loads config, builds the logger, store, journal and autosave coordinator.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/harper/inkwell/internal/autosave"
	"github.com/harper/inkwell/internal/config"
	"github.com/harper/inkwell/internal/db"
	"github.com/harper/inkwell/internal/journal"
	"github.com/harper/inkwell/internal/models"
	"github.com/harper/inkwell/internal/ui"
	"github.com/spf13/cobra"
)

// skipStore marks commands that run without opening the note store.
const skipStore = "skip-store"

type app struct {
	configPath string
	dbPath     string
	journalDir string
	logLevel   string

	cfg     *config.Config
	logger  *log.Logger
	store   *db.Store
	repo    *db.Repository
	journal *journal.Journal
	saver   *autosave.Coordinator

	in *bufio.Reader
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "inkwell",
		Short:         "Local notes with debounced autosave",
		Long:          `inkwell stores rich-text notes in a local SQLite database. Edits are buffered and written after a quiet period, and can be served to AI agents over MCP.`,
		Version:       fmt.Sprintf("%s (%s, %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/inkwell/config.yaml)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "database path")
	root.PersistentFlags().StringVar(&a.journalDir, "journal", "", "autosave journal directory")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug|info|warn|error)")

	root.AddCommand(
		newAddCmd(a),
		newEditCmd(a),
		newShowCmd(a),
		newListCmd(a),
		newRmCmd(a),
		newRestoreCmd(a),
		newPinCmd(a, true),
		newPinCmd(a, false),
		newTagCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newMCPCmd(a),
		newConfigCmd(a),
	)
	return root
}

// Execute runs the CLI with args and releases every resource afterwards,
// whether or not the command succeeded.
func Execute(ctx context.Context, args []string) error {
	return execute(ctx, args, os.Stdin, os.Stdout, os.Stderr)
}

func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	a := &app{}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if cerr := a.close(context.WithoutCancel(ctx)); cerr != nil {
		err = errors.Join(err, cerr)
	}
	if err != nil {
		_, _ = fmt.Fprintln(stderr, "Error:", err)
	}
	return err
}

func (a *app) setup(cmd *cobra.Command) error {
	path := a.configPath
	if path == "" {
		path = config.Path()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.DBPath = a.dbPath
	}
	if a.journalDir != "" {
		cfg.JournalDir = a.journalDir
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
		Level:  level,
		Prefix: "inkwell",
	})

	if cmd.Annotations[skipStore] == "true" {
		return nil
	}
	return a.open(cmd.Context())
}

// open builds the store, journal and coordinator, then replays any edits
// a previous process left in the journal.
func (a *app) open(ctx context.Context) error {
	a.store = db.NewStore(a.cfg.DBPath, db.WithLogger(a.logger))
	a.repo = db.NewRepository(a.store)
	if err := a.repo.Init(ctx); err != nil {
		return err
	}

	opts := autosave.Options{
		Debounce:     a.cfg.Autosave.Debounce,
		WriteTimeout: a.cfg.Autosave.WriteTimeout,
		Disabled:     !a.cfg.Autosave.Enabled,
		Logger:       a.logger,
		// A buffered edit for a purged or trashed note can never be written.
		Permanent: func(err error) bool { return db.KindOf(err) == db.KindNotFound },
	}
	j, err := journal.Open(a.cfg.JournalDir)
	if err != nil {
		// Another inkwell process holds the journal; run without crash recovery.
		a.logger.Warn("autosave journal unavailable", "dir", a.cfg.JournalDir, "err", err)
	} else {
		a.journal = j
		opts.Journal = j
	}
	a.saver = autosave.New(a.repo, opts)

	n, err := a.saver.Recover(ctx)
	if err != nil {
		a.logger.Warn("replaying journaled edits failed", "err", err)
	} else if n > 0 {
		a.logger.Info("recovered unsaved edits", "notes", n)
	}
	return nil
}

func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.saver != nil {
		if err := a.saver.FlushAll(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush pending edits: %w", err))
		}
		a.saver.Shutdown()
		a.saver = nil
	}
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			errs = append(errs, err)
		}
		a.journal = nil
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, err)
		}
		a.store = nil
	}
	return errors.Join(errs...)
}

// reportFailures prints autosave failures not yet shown and returns how
// many there were.
func (a *app) reportFailures(w io.Writer) int {
	n := 0
	for {
		select {
		case f := <-a.saver.Failures():
			_, _ = fmt.Fprintln(w, ui.Warn(fmt.Sprintf("Autosave of note %s failed: %v", f.NoteID.String()[:8], f.Err)))
			n++
		default:
			return n
		}
	}
}

// lookup resolves a full ID or unique prefix to a live note. With
// includeDeleted it also matches notes in the trash.
func (a *app) lookup(ctx context.Context, ref string, includeDeleted bool) (*models.Note, error) {
	var (
		note *models.Note
		err  error
	)
	if includeDeleted {
		note, err = a.repo.GetAnyNoteByPrefix(ctx, ref)
	} else {
		note, err = a.repo.GetNoteByPrefix(ctx, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return note, nil
}

// readLine reads one answer from the command's input. The reader is shared
// so buffered input survives across prompts.
func (a *app) readLine(cmd *cobra.Command) string {
	if a.in == nil {
		a.in = bufio.NewReader(cmd.InOrStdin())
	}
	line, _ := a.in.ReadString('\n')
	return strings.TrimSpace(strings.ToLower(line))
}

// confirm asks a yes/no question on the command's streams.
func (a *app) confirm(cmd *cobra.Command, question string) bool {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", question)
	response := a.readLine(cmd)
	return response == "y" || response == "yes"
}
