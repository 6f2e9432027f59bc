package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/okian/evently/internal/adapters/notify"
	"github.com/okian/evently/internal/app/session"
	"github.com/okian/evently/internal/domain/model"
	"github.com/okian/evently/internal/importer"
)

// Rendered texts shared with the views.
const (
	TextNoEvents    = "No events yet"
	TextNoUsers     = "No participants yet"
	TextNotLoggedIn = "Not logged in"
	TextMatching    = "Matching..."
	TextTeamsHeader = "Suggested Teams"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// RenderEvents writes the events list view.
func RenderEvents(w io.Writer, events []model.Event) error {
	if len(events) == 0 {
		_, err := fmt.Fprintln(w, TextNoEvents)
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tDATE\tLOCATION\tSKILLS")
	for _, ev := range events {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", ev.ID, ev.Name, ev.Date, ev.Location, strings.Join(ev.Skills(), ", "))
	}
	return tw.Flush()
}

// RenderUsers writes the participants view.
func RenderUsers(w io.Writer, users []model.User) error {
	if len(users) == 0 {
		_, err := fmt.Fprintln(w, TextNoUsers)
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tSKILLS\tEXPERIENCE")
	for _, u := range users {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, strings.Join(u.SkillList(), ", "), u.Experience)
	}
	return tw.Flush()
}

// RenderTeams writes the match result. Nothing is shown for an empty partition
// except the backend's message, if any.
func RenderTeams(w io.Writer, teams []model.Team, message string) error {
	if message != "" {
		if _, err := fmt.Fprintln(w, message); err != nil {
			return err
		}
	}
	if len(teams) == 0 {
		return nil
	}
	fmt.Fprintln(w, TextTeamsHeader)
	for _, t := range teams {
		fmt.Fprintf(w, "Team %d — Score %.2f\n", t.TeamID, t.CompatibilityScore)
		for _, m := range t.Members {
			fmt.Fprintf(w, "  - %s (%s) — %s\n", m.Name, m.Email, strings.Join(m.Skills, ", "))
		}
	}
	return nil
}

// RenderProfile writes the profile view: avatar or initials, name and email.
func RenderProfile(w io.Writer, sess model.Session, loggedIn bool) error {
	if !loggedIn {
		_, err := fmt.Fprintln(w, TextNotLoggedIn)
		return err
	}
	badge := "[" + sess.Initials() + "]"
	if sess.Avatar != "" {
		badge = sess.Avatar
	}
	_, err := fmt.Fprintf(w, "%s %s <%s>\n", badge, sess.Name, sess.Email)
	return err
}

// RenderUpdate writes one session change observed in watch mode.
func RenderUpdate(w io.Writer, u session.Update) error {
	if !u.LoggedIn {
		_, err := fmt.Fprintf(w, "(%s) logged out\n", u.Source)
		return err
	}
	_, err := fmt.Fprintf(w, "(%s) logged in as %s <%s>\n", u.Source, u.Session.Name, u.Session.Email)
	return err
}

// RenderNotifications writes pending toasts, one per line.
func RenderNotifications(w io.Writer, notes []notify.Notification) error {
	for _, n := range notes {
		if _, err := fmt.Fprintf(w, "[%s] %s\n", n.Level, n.Message); err != nil {
			return err
		}
	}
	return nil
}

// RenderImportStats writes the per-kind import summary.
func RenderImportStats(w io.Writer, st importer.Stats) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "KIND\tSUBMITTED\tCREATED\tDUPLICATE\tINVALID\tFAILED")
	for _, row := range []struct {
		kind string
		c    importer.Counts
	}{{importer.KindEvent, st.Events}, {importer.KindUser, st.Users}} {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n", row.kind, row.c.Submitted, row.c.Created, row.c.Duplicate, row.c.Invalid, row.c.Failed)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "took %s\n", st.Duration)
	return err
}
