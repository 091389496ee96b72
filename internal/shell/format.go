// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

package shell

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/flagdeck/flagdeck/internal/api"
	"github.com/flagdeck/flagdeck/internal/notify"
	"github.com/flagdeck/flagdeck/internal/view"
)

// AdminTag marks admins in the scoreboard and the navigation bar.
const AdminTag = "[ADMIN]"

const descriptionWidth = 48

func newTable(b *strings.Builder) *tabwriter.Writer {
	return tabwriter.NewWriter(b, 0, 0, 2, ' ', 0)
}

// FormatChallenges renders the challenges model as a table.
func FormatChallenges(l view.ChallengeList) string {
	if text := l.Placeholder(); text != "" {
		return text + "\n"
	}
	var b strings.Builder
	w := newTable(&b)
	_, _ = fmt.Fprintln(w, "ID\tTITLE\tCATEGORY\tPOINTS\tDESCRIPTION")
	for _, c := range l.Cards {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", c.ID, c.Title, c.Category, c.Points, truncate(c.Description, descriptionWidth))
	}
	_ = w.Flush()
	return b.String()
}

// FormatScoreboard renders the ranked standings.
func FormatScoreboard(t view.ScoreTable) string {
	if text := t.Placeholder(); text != "" {
		return text + "\n"
	}
	if len(t.Rows) == 0 {
		return "No operators ranked yet.\n"
	}
	var b strings.Builder
	w := newTable(&b)
	_, _ = fmt.Fprintln(w, "RANK\tUSER\tSCORE\tTIER")
	for _, r := range t.Rows {
		name := r.Username
		if r.Admin {
			name += " " + AdminTag
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", r.RankLabel(), name, r.Score, r.Tier)
	}
	_ = w.Flush()
	return b.String()
}

// FormatAdmin renders the admin challenge list.
func FormatAdmin(l view.AdminList) string {
	if text := l.Placeholder(); text != "" {
		return text + "\n"
	}
	if len(l.Items) == 0 {
		return "No challenges.\n"
	}
	var b strings.Builder
	w := newTable(&b)
	_, _ = fmt.Fprintln(w, "ID\tCHALLENGE")
	for _, item := range l.Items {
		_, _ = fmt.Fprintf(w, "%d\t%s\n", item.ID, item.Label)
	}
	_ = w.Flush()
	return b.String()
}

// FormatForm renders the pending create form.
func FormatForm(f view.AdminForm) string {
	var b strings.Builder
	w := newTable(&b)
	for _, field := range []struct{ name, value string }{
		{"title", f.Title},
		{"description", f.Description},
		{"points", f.Points},
		{"category", f.Category},
		{"flag", f.Flag},
	} {
		_, _ = fmt.Fprintf(w, "  %s\t%s\n", field.name, field.value)
	}
	_ = w.Flush()
	return b.String()
}

// FormatAuth renders the auth view.
func FormatAuth(m view.AuthModel) string {
	if m.Mode == view.ModeRegister {
		return "Register a new operator: register <username> [password]\n" +
			"Already registered? Type 'mode login'.\n"
	}
	return "Authenticate: login <username> [password]\n" +
		"New here? Type 'mode register'.\n"
}

// FormatNav renders the navigation bar with the current view bracketed.
// It is empty while navigation is hidden.
func FormatNav(current view.View, chrome view.Chrome) string {
	if !chrome.Navigation {
		return ""
	}
	entries := []view.View{view.Challenges, view.Scoreboard}
	if chrome.AdminEntry {
		entries = append(entries, view.Admin)
	}
	parts := make([]string, 0, len(entries)+1)
	for _, v := range entries {
		label := string(v)
		if v == view.Admin {
			label += " " + AdminTag
		}
		if v == current {
			label = "[" + label + "]"
		}
		parts = append(parts, label)
	}
	parts = append(parts, "logout")
	return strings.Join(parts, " | ") + "\n"
}

// FormatUser renders the current user.
func FormatUser(u api.User) string {
	var b strings.Builder
	w := newTable(&b)
	_, _ = fmt.Fprintf(w, "username\t%s\n", u.Username)
	_, _ = fmt.Fprintf(w, "id\t%d\n", u.ID)
	_, _ = fmt.Fprintf(w, "score\t%d\n", u.Score)
	if u.IsAdmin {
		_, _ = fmt.Fprintf(w, "role\tadmin %s\n", AdminTag)
	} else {
		_, _ = fmt.Fprintln(w, "role\toperator")
	}
	_ = w.Flush()
	return b.String()
}

// FormatNotification renders one notification line.
func FormatNotification(n notify.Notification) string {
	if n.Kind == notify.KindError {
		return "[!] " + n.Message + "\n"
	}
	return "[+] " + n.Message + "\n"
}

func truncate(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}
