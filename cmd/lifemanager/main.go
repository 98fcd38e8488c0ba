package main

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/GwydionBr/life-manager/internal/config"
	"github.com/GwydionBr/life-manager/internal/db"
	"github.com/GwydionBr/life-manager/internal/logging"
	"github.com/GwydionBr/life-manager/internal/tracker"
	"github.com/GwydionBr/life-manager/internal/tui"
	"github.com/GwydionBr/life-manager/internal/watch"
)

var rootCmd = &cobra.Command{
	Use:   "lifemanager",
	Short: "Local work time tracker",
	Long: `Life Manager tracks work sessions per client and project in a local database.
New sessions never overlap existing ones: they are trimmed or split around them.`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		if !isTerminal() {
			cmd.Help()
			return
		}

		env := mustSetup()
		defer env.Close()

		dbPath, err := config.DatabasePath()
		if err != nil {
			env.fail(err)
		}

		// Live refresh is optional; the TUI works without it.
		var changes <-chan struct{}
		watcher, err := watch.New(dbPath, watch.DefaultDebounce, env.log)
		if err != nil {
			env.log.Warn("database watcher disabled", "error", err)
		} else {
			defer watcher.Close()
			changes = watcher.Changes()
		}

		if err := tui.Run(env.db, env.cfg, env.tracker, changes); err != nil {
			env.fail(err)
		}
	},
}

func isTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// environment is what every command needs once config, log and database
// are set up.
type environment struct {
	cfg     *config.Config
	log     *slog.Logger
	logFile io.Closer
	db      *sql.DB
	tracker *tracker.Tracker
}

func mustSetup() *environment {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger, logFile, err := logging.Open(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log: %v\n", err)
		os.Exit(1)
	}

	database, err := db.OpenAndMigrate()
	if err != nil {
		logger.Error("opening database", "error", err)
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}

	return &environment{
		cfg:     cfg,
		log:     logger,
		logFile: logFile,
		db:      database,
		tracker: tracker.New(database, cfg, logger),
	}
}

func (e *environment) Close() {
	db.Close()
	e.logFile.Close()
}

// fail logs err, prints it and exits.
func (e *environment) fail(err error) {
	e.log.Error("command failed", "error", err)
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	e.Close()
	os.Exit(1)
}

func init() {
	rootCmd.AddCommand(clientCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
