package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/bekirdag/goal/internal/board"
	"github.com/bekirdag/goal/internal/config"
	"github.com/bekirdag/goal/internal/logging"
	domain "github.com/bekirdag/goal/internal/model"
	"github.com/bekirdag/goal/internal/store"
)

type appOptions struct {
	configPath string
	backend    string
	user       string
	logLevel   string
	theme      string
	getenv     func(string) string

	// configProblem is a config file that could not be read; defaults were used.
	configProblem error
}

// app holds what every command needs once configuration is resolved.
type app struct {
	cfg    config.Config
	log    *slog.Logger
	client store.Client
	closer io.Closer
}

func (a *app) Close() error {
	var errs []error
	if a.client != nil {
		errs = append(errs, a.client.Close())
	}
	if a.closer != nil {
		errs = append(errs, a.closer.Close())
	}
	return errors.Join(errs...)
}

func newRootCmd() *cobra.Command {
	opts := &appOptions{}
	cmd := &cobra.Command{
		Use:           "goal",
		Short:         "Daily, weekly, monthly and yearly goals in one terminal board",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoard(cmd.Context(), opts)
		},
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", config.Path(), "path to config.yaml")
	flags.StringVar(&opts.backend, "backend", "", "storage backend: sqlite, postgres or memory")
	flags.StringVar(&opts.user, "user", "", "user the board belongs to")
	flags.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
	flags.StringVar(&opts.theme, "theme", "", "dark, light or auto")

	cmd.AddCommand(
		newListCmd(opts),
		newAddCmd(opts),
		newMigrateCmd(opts),
		newConfigCmd(opts),
	)
	return cmd
}

func (o *appOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	o.configProblem = err
	cfg.ApplyEnv(o.getenv)
	if v := strings.TrimSpace(o.backend); v != "" {
		cfg.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(o.user); v != "" {
		cfg.User = v
	}
	if v := strings.TrimSpace(o.logLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(o.theme); v != "" {
		cfg.Theme = strings.ToLower(v)
	}
	return cfg, cfg.Validate()
}

// open resolves configuration, logging and the store. console receives text
// logs; pass nil when the TUI owns the terminal.
func (o *appOptions) open(ctx context.Context, console io.Writer, migrate bool) (*app, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	log, closer, err := logging.New(logging.Options{File: cfg.LogFile, Console: console, Level: cfg.LogLevel})
	if err != nil {
		return nil, err
	}
	client, err := store.Open(ctx, store.Options{
		Backend:     cfg.Backend,
		SQLitePath:  cfg.SQLitePath,
		PostgresURL: cfg.PostgresURL,
		User:        cfg.User,
		Migrate:     migrate && cfg.Migrate(),
	})
	if err != nil {
		log.Error("open store", "backend", cfg.Backend, "err", err)
		_ = closer.Close()
		return nil, err
	}
	if o.configProblem != nil {
		log.Warn("config file ignored, using defaults", "path", o.configPath, "err", o.configProblem)
	}
	log.Debug("store opened", "backend", cfg.Backend, "user", cfg.User)
	return &app{cfg: cfg, log: log, client: client, closer: closer}, nil
}

func (a *app) newEngine(ctx context.Context, observer func(board.Outcome)) *board.Engine {
	return board.NewEngine(ctx, a.client, board.Options{
		Logger:       a.log,
		ErrorTimeout: a.cfg.ErrorTimeout,
		Observer:     observer,
	})
}

// loadNow runs the initial load inline for commands that have no event loop.
func loadNow(engine *board.Engine) error {
	engine.Update(engine.Load()())
	if msg := engine.Err(); msg != "" {
		return errors.New(msg)
	}
	if !engine.Session().SignedIn() {
		return errors.New("not signed in: set user in config.yaml, GOAL_USER or --user")
	}
	return nil
}

func runBoard(ctx context.Context, opts *appOptions) error {
	a, err := opts.open(ctx, nil, true)
	if err != nil {
		return err
	}
	defer a.Close()

	var journal *syncJournal
	if a.cfg.TelemetryEnabled() {
		journal = newSyncJournal(a.cfg.TelemetryPath(), journalEntry{UserID: a.cfg.User, Backend: a.cfg.Backend}, a.log)
	}
	engine := a.newEngine(ctx, journal.Observe)
	theme := parseTheme(a.cfg.Theme)

	a.log.Info("starting board", "backend", a.cfg.Backend, "theme", theme)
	_, err = tea.NewProgram(
		newModel(modelOptions{engine: engine, theme: theme, journal: journal, logger: a.log}),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func newListCmd(opts *appOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list [quadrant]",
		Short: "Print the board, or one quadrant of it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			quadrants := domain.Quadrants
			if len(args) == 1 {
				q, err := domain.ParseQuadrant(args[0])
				if err != nil {
					return err
				}
				quadrants = []domain.Quadrant{q}
			}
			a, err := opts.open(cmd.Context(), cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			engine := a.newEngine(cmd.Context(), nil)
			if err := loadNow(engine); err != nil {
				return err
			}
			printBoard(cmd.OutOrStdout(), engine, quadrants)
			return nil
		},
	}
}

func printBoard(w io.Writer, engine *board.Engine, quadrants []domain.Quadrant) {
	for i, q := range quadrants {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s · %s\n", q.Title(), engine.Subtitle(q))
		tasks := engine.Tasks(q)
		if len(tasks) == 0 {
			fmt.Fprintln(w, "  No tasks yet")
			continue
		}
		for _, t := range tasks {
			mark := " "
			if t.Completed {
				mark = "x"
			}
			fmt.Fprintf(w, "  [%s] %s\n", mark, t.Text)
		}
	}
}

func newAddCmd(opts *appOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <quadrant> <text>",
		Short: "Add a task to a quadrant",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := domain.ParseQuadrant(args[0])
			if err != nil {
				return err
			}
			text := strings.Join(args[1:], " ")

			a, err := opts.open(cmd.Context(), cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			engine := a.newEngine(cmd.Context(), nil)
			if err := loadNow(engine); err != nil {
				return err
			}
			run := engine.AddTask(engine.Session(), q, text)
			if run == nil {
				return errors.New("task text cannot be empty")
			}
			engine.Update(run())
			if msg := engine.Err(); msg != "" {
				return errors.New(msg)
			}
			added := engine.Tasks(q)[0]
			fmt.Fprintf(cmd.OutOrStdout(), "added %s to %s\n", added.ID, q.Title())
			return nil
		},
	}
}

func newMigrateCmd(opts *appOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the tasks and quadrant_settings tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd.Context(), cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			migrator, ok := a.client.(store.Migrator)
			if !ok {
				return fmt.Errorf("backend %s has no schema to migrate", a.cfg.Backend)
			}
			if err := migrator.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema ready (%s)\n", a.cfg.Backend)
			return nil
		},
	}
}

func newConfigCmd(opts *appOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), opts.configPath)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if err := config.Save(cfg, opts.configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", opts.configPath)
			return nil
		},
	})
	return cmd
}
