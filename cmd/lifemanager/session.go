package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/GwydionBr/life-manager/internal/repository"
	"github.com/GwydionBr/life-manager/internal/timeline"
	"github.com/GwydionBr/life-manager/internal/tracker"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Record and inspect work sessions",
}

var sessionAddCmd = &cobra.Command{
	Use:   "add <project>",
	Short: "Record a work session",
	Long: `Record a work session for a project (name or ID).

Overlaps with the project's existing sessions are cut away: the new session
is trimmed or split, and a notice lists what changed. A session that is
entirely covered by existing ones is rejected.

Examples:
  lifemanager session add Website --start "2025-03-10 09:00" --end "2025-03-10 12:30"
  lifemanager session add Website --start 2025-03-10T09:00 --end 2025-03-10T10:00 --paused 10m --memo "review"`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		env := mustSetup()
		defer env.Close()

		p, err := findProject(repository.NewProjectRepo(env.db), args[0])
		if err != nil {
			env.fail(err)
		}

		in := tracker.SessionInput{ProjectID: p.ID}
		if err := applySessionFlags(cmd.Flags(), &in, env.tracker.Calendar().Location); err != nil {
			env.fail(err)
		}
		if in.Start.IsZero() || in.End.IsZero() {
			env.fail(errors.New("--start and --end are required"))
		}

		out, err := env.tracker.AddSession(in)
		reportOutcome(env, out, err)
	},
}

var sessionEditCmd = &cobra.Command{
	Use:   "edit <session-id>",
	Short: "Change a recorded session",
	Long: `Change a recorded session. Flags that are not given keep their current value.
The edited session is checked for overlaps against the project's other sessions.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		env := mustSetup()
		defer env.Close()

		current, err := repository.NewSessionRepo(env.db).GetByID(args[0])
		if err != nil {
			env.fail(err)
		}
		if current == nil {
			env.fail(fmt.Errorf("%w: %s", tracker.ErrSessionNotFound, args[0]))
		}

		salary := current.Payload.Salary
		hourly := current.Payload.HourlyPayment
		in := tracker.SessionInput{
			ProjectID:     current.ProjectID,
			Start:         current.Start,
			End:           current.End,
			Paused:        current.Payload.PausedDuration(),
			Salary:        &salary,
			HourlyPayment: &hourly,
			Currency:      current.Payload.Currency,
			Memo:          current.Payload.Memo,
		}
		if ref, _ := cmd.Flags().GetString("project"); ref != "" {
			p, err := findProject(repository.NewProjectRepo(env.db), ref)
			if err != nil {
				env.fail(err)
			}
			in.ProjectID = p.ID
		}
		if err := applySessionFlags(cmd.Flags(), &in, env.tracker.Calendar().Location); err != nil {
			env.fail(err)
		}

		out, err := env.tracker.EditSession(current.ID, in)
		reportOutcome(env, out, err)
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session-id>...",
	Short: "Delete sessions",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		env := mustSetup()
		defer env.Close()

		n, err := env.tracker.DeleteSessions(args)
		if err != nil {
			env.fail(err)
		}
		fmt.Printf("Deleted %d of %d sessions\n", n, len(args))
	},
}

var sessionTreeCmd = &cobra.Command{
	Use:   "tree [project]",
	Short: "Show sessions grouped by year, month, week and day",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		env := mustSetup()
		defer env.Close()

		projectID := ""
		if len(args) == 1 {
			p, err := findProject(repository.NewProjectRepo(env.db), args[0])
			if err != nil {
				env.fail(err)
			}
			projectID = p.ID
		}

		var from, to time.Time
		for name, dst := range map[string]*time.Time{"from": &from, "to": &to} {
			v, _ := cmd.Flags().GetString(name)
			if v == "" {
				continue
			}
			t, wholeDay, err := parseDate(v, env.tracker.Calendar().Location)
			if err != nil {
				env.fail(fmt.Errorf("--%s: %w", name, err))
			}
			if wholeDay && name == "to" {
				// a bare --to day is shown in full
				t = t.AddDate(0, 0, 1)
			}
			*dst = t
		}

		tree, err := env.tracker.TreeBetween(projectID, from, to)
		if err != nil {
			env.fail(err)
		}
		if len(tree) == 0 {
			fmt.Println("No sessions yet.")
			return
		}

		asc, _ := cmd.Flags().GetBool("asc")
		depth, _ := cmd.Flags().GetInt("depth")
		printTree(os.Stdout, tree, env.tracker.Calendar(), !asc, depth)
	},
}

var timeLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

func parseTime(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q (expected YYYY-MM-DD HH:MM)", s)
}

// parseDate accepts a day or a full time. A day is its local midnight and
// is reported as wholeDay.
func parseDate(s string, loc *time.Location) (t time.Time, wholeDay bool, err error) {
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, true, nil
	}
	t, err = parseTime(s, loc)
	return t, false, err
}

// applySessionFlags overrides in with the flags the user actually set.
func applySessionFlags(flags *pflag.FlagSet, in *tracker.SessionInput, loc *time.Location) error {
	if flags.Changed("start") {
		v, _ := flags.GetString("start")
		t, err := parseTime(v, loc)
		if err != nil {
			return err
		}
		in.Start = t
	}
	if flags.Changed("end") {
		v, _ := flags.GetString("end")
		t, err := parseTime(v, loc)
		if err != nil {
			return err
		}
		in.End = t
	}
	if flags.Changed("paused") {
		in.Paused, _ = flags.GetDuration("paused")
	}
	if flags.Changed("rate") {
		v, _ := flags.GetString("rate")
		rate, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("invalid rate %q", v)
		}
		in.Salary = &rate
	}
	if flags.Changed("fixed") {
		fixed, _ := flags.GetBool("fixed")
		hourly := !fixed
		in.HourlyPayment = &hourly
	}
	if flags.Changed("currency") {
		v, _ := flags.GetString("currency")
		in.Currency = strings.ToUpper(v)
	}
	if flags.Changed("memo") {
		in.Memo, _ = flags.GetString("memo")
	}
	return nil
}

func reportOutcome(env *environment, out *tracker.Outcome, err error) {
	if errors.Is(err, timeline.ErrCompleteOverlap) {
		fmt.Fprintln(os.Stderr, out.Notice())
		env.Close()
		os.Exit(1)
	}
	if err != nil {
		env.fail(err)
	}

	if notice := out.Notice(); notice != "" {
		fmt.Println(notice)
	}
	for _, s := range out.Stored {
		fmt.Printf("Saved session %s (%s)\n", s.ID, formatSeconds(timeline.ActiveSeconds(s)))
	}
}

// printTree writes the grouped sessions, each level indented under its
// parent, down to depth levels (0 means down to single sessions).
func printTree(w io.Writer, tree tracker.Tree, cal timeline.Calendar, desc bool, depth int) {
	const labelWidth = 32
	line := func(level int, label string, totals timeline.Totals) {
		label = strings.Repeat("  ", level) + label
		label = runewidth.FillRight(runewidth.Truncate(label, labelWidth, "…"), labelWidth)
		fmt.Fprintf(w, "%s %10s %12s\n", label, formatSeconds(totals.Seconds), totals.Earnings.StringFixed(2))
	}
	show := func(level int) bool {
		return depth <= 0 || level < depth
	}

	for _, yg := range timeline.SortedYears(tree, desc) {
		y := yg.Data
		line(0, fmt.Sprintf("%d", y.Year), y.Totals)
		if !show(1) {
			continue
		}
		for _, m := range y.SortedMonths(desc) {
			line(1, m.Month.String(), m.Totals)
			if !show(2) {
				continue
			}
			for _, wk := range m.SortedWeeks(desc) {
				line(2, fmt.Sprintf("Week %d", wk.Week), wk.Totals)
				if !show(3) {
					continue
				}
				for _, d := range wk.SortedDays(desc) {
					line(3, d.Date.Format("Mon 02 Jan"), d.Totals)
					if !show(4) {
						continue
					}
					for _, s := range d.Sessions {
						label := fmt.Sprintf("%s-%s %s",
							cal.Local(s.Start).Format("15:04"), cal.Local(s.End).Format("15:04"), s.Payload.Memo)
						line(4, strings.TrimSpace(label), timeline.Totals{
							Seconds:  timeline.ActiveSeconds(s),
							Earnings: timeline.Earnings(s),
						})
					}
				}
			}
		}
	}
}

func addSessionFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("start", "s", "", "Start time (YYYY-MM-DD HH:MM, local time)")
	cmd.Flags().StringP("end", "e", "", "End time (YYYY-MM-DD HH:MM, local time)")
	cmd.Flags().Duration("paused", 0, "Time paused during the session, e.g. 15m")
	cmd.Flags().String("rate", "", "Salary for this session (default: the project's)")
	cmd.Flags().Bool("fixed", false, "Paid a fixed amount instead of hourly")
	cmd.Flags().String("currency", "", "Currency code (default: the project's)")
	cmd.Flags().StringP("memo", "m", "", "Note on the session")
}

func init() {
	addSessionFlags(sessionAddCmd)
	addSessionFlags(sessionEditCmd)
	sessionEditCmd.Flags().StringP("project", "p", "", "Move the session to another project")

	sessionTreeCmd.Flags().Bool("asc", false, "Oldest first")
	sessionTreeCmd.Flags().Int("depth", 0, "Levels to show: 1 years ... 4 days, 0 everything")
	sessionTreeCmd.Flags().String("from", "", "Only sessions starting on or after this day (YYYY-MM-DD)")
	sessionTreeCmd.Flags().String("to", "", "Only sessions starting up to the end of this day (YYYY-MM-DD)")

	sessionCmd.AddCommand(sessionAddCmd)
	sessionCmd.AddCommand(sessionEditCmd)
	sessionCmd.AddCommand(sessionRmCmd)
	sessionCmd.AddCommand(sessionTreeCmd)
}
