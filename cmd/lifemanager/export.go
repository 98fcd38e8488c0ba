package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/GwydionBr/life-manager/internal/db"
	"github.com/GwydionBr/life-manager/internal/export"
	"github.com/GwydionBr/life-manager/internal/repository"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export sessions as JSON or CSV",
	Long: `Export sessions with their worked time and earnings.

Without --out the export is written to stdout. A bare file name is placed in
the configured reports directory.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		env := mustSetup()
		defer env.Close()

		formatFlag, _ := cmd.Flags().GetString("format")
		out, _ := cmd.Flags().GetString("out")
		projectRef, _ := cmd.Flags().GetString("project")

		format, err := export.ParseFormat(formatFlag)
		if err != nil {
			env.fail(err)
		}

		projectID := ""
		if projectRef != "" {
			p, err := findProject(repository.NewProjectRepo(env.db), projectRef)
			if err != nil {
				env.fail(err)
			}
			projectID = p.ID
		}

		var records []export.Record
		// one read transaction so sessions and projects match
		err = db.WithinTx(env.db, func(tx db.DBTX) error {
			var err error
			records, err = export.Load(tx, projectID)
			return err
		})
		if err != nil {
			env.fail(err)
		}

		var w io.Writer = os.Stdout
		if out != "" && out != "-" {
			if filepath.Base(out) == out {
				out = filepath.Join(env.cfg.ReportsOutput, out)
			}
			if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
				env.fail(err)
			}
			f, err := os.Create(out)
			if err != nil {
				env.fail(err)
			}
			defer f.Close()
			w = f
		}

		if err := export.Write(w, format, records); err != nil {
			env.fail(err)
		}
		if w != os.Stdout {
			fmt.Fprintf(os.Stderr, "Exported %d sessions to %s\n", len(records), out)
		}
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Show the schema version and apply pending migrations",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		database, err := db.Open()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		status, err := db.GetMigrationStatus()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Schema version: %d (latest %d)\n", status.CurrentVersion, status.LatestVersion)
		if status.Dirty {
			fmt.Println("Warning: the last migration did not finish cleanly.")
		}

		if statusOnly, _ := cmd.Flags().GetBool("status"); statusOnly || !status.Pending {
			return
		}

		if err := db.Migrate(database); err != nil {
			fmt.Fprintf(os.Stderr, "Error running migrations: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Migrated to version %d\n", status.LatestVersion)
	},
}

func init() {
	exportCmd.Flags().StringP("format", "f", "json", "Output format: json or csv")
	exportCmd.Flags().StringP("out", "o", "", "Output file (default stdout)")
	exportCmd.Flags().StringP("project", "p", "", "Only this project (name or ID)")

	migrateCmd.Flags().Bool("status", false, "Only show the schema version")
}
