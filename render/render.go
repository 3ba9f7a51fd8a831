// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/danielhkuo/vote-x/access"
	"github.com/danielhkuo/vote-x/models"
)

const (
	// MaxLabelLen is the rune count after which chart labels are cut.
	MaxLabelLen = 20
	barWidth    = 24
)

// Badge labels
const (
	BadgePublic       = "Public"
	BadgePrivate      = "Private"
	BadgePrivateOwned = "Private (Yours)"
	BadgeAllowed      = "Allowed"
	BadgeRestricted   = "Restricted"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	idStyle     = lipgloss.NewStyle().Width(7).Foreground(lipgloss.Color("8"))
	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6"))
	chosenStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)

	badgeColors = map[string]lipgloss.Color{
		BadgePublic:       "#3B82F6",
		BadgePrivate:      "#EF4444",
		BadgePrivateOwned: "#EF4444",
		BadgeAllowed:      "#10B981",
		BadgeRestricted:   "#8B5CF6",
	}
)

// ChartRow is one bar of a poll's result chart.
type ChartRow struct {
	OptionID   int64
	Label      string
	FullLabel  string
	Votes      int64
	Percentage string
}

// Chart computes the result rows for a poll, one per option in order.
// Percentages are relative to the poll's total and have one decimal; a
// poll without votes reports "0" for every option.
func Chart(p models.Poll) []ChartRow {
	rows := make([]ChartRow, 0, len(p.Options))
	for _, o := range p.Options {
		pct := "0"
		if p.TotalVotes > 0 {
			pct = strconv.FormatFloat(float64(o.Votes)/float64(p.TotalVotes)*100, 'f', 1, 64)
		}
		rows = append(rows, ChartRow{
			OptionID:   o.ID,
			Label:      Truncate(o.Text, MaxLabelLen),
			FullLabel:  o.Text,
			Votes:      o.Votes,
			Percentage: pct,
		})
	}
	return rows
}

// Truncate cuts s to n runes and appends an ellipsis when it was longer.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}

// Badge returns the visibility label shown to the viewer.
func Badge(p models.Poll, v access.Viewer) string {
	switch p.Visibility {
	case models.VisibilityPrivate:
		if p.IsOwner {
			return BadgePrivateOwned
		}
		return BadgePrivate
	case models.VisibilityRestricted:
		if p.Allows(v.Email) {
			return BadgeAllowed
		}
		return BadgeRestricted
	}
	return BadgePublic
}

func badge(p models.Poll, v access.Viewer) string {
	label := Badge(p, v)
	return lipgloss.NewStyle().Foreground(badgeColors[label]).Render("[" + label + "]")
}

// Votes formats a vote count, e.g. "1,204 votes".
func Votes(n int64) string {
	return humanize.Comma(n) + " " + english.PluralWord(int(n), "vote", "")
}

// Listing renders one line per poll.
func Listing(polls []models.Poll, v access.Viewer) string {
	if len(polls) == 0 {
		return dimStyle.Render("No polls found.") + "\n"
	}

	var b strings.Builder
	for _, p := range polls {
		fmt.Fprintf(&b, "%s%s %s  %s  %s  %s\n",
			idStyle.Render(fmt.Sprintf("#%d", p.ID)),
			titleStyle.Render(p.Title),
			badge(p, v),
			dimStyle.Render(p.CategoryLabel()),
			Votes(p.TotalVotes),
			dimStyle.Render(p.EndsIn),
		)
	}
	return b.String()
}

// Detail renders a full poll with its result chart. choice marks the
// viewer's current option; pass 0 when there is none.
func Detail(p models.Poll, v access.Viewer, choice int64, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", titleStyle.Render(p.Title), badge(p, v))
	if p.Description != "" {
		b.WriteString(p.Description + "\n")
	}

	status := p.EndsIn
	if p.Expired(now) {
		status = models.EndsInEnded
	}
	meta := []string{p.CategoryLabel(), Votes(p.TotalVotes), status}
	if p.AllowGuestVotes {
		meta = append(meta, "guests may vote")
	}
	b.WriteString(dimStyle.Render(strings.Join(meta, " · ")) + "\n\n")

	for _, row := range Chart(p) {
		marker := "  "
		label := fmt.Sprintf("%-*s", MaxLabelLen+1, row.Label)
		if row.OptionID == choice {
			marker = chosenStyle.Render("✓ ")
			label = chosenStyle.Render(label)
		}
		fmt.Fprintf(&b, "%s%s %s %5s%%  %s  %s\n",
			marker, label, bar(row.Votes, p.TotalVotes), row.Percentage,
			humanize.Comma(row.Votes), dimStyle.Render(fmt.Sprintf("(id %d)", row.OptionID)))
	}

	if p.Visibility == models.VisibilityRestricted && p.IsOwner {
		b.WriteString("\n" + titleStyle.Render("Allowed users") + "\n")
		b.WriteString(AllowedUsers(p.AllowedUsers))
	}
	return b.String()
}

// AllowedUsers renders an allowlist, one user per line.
func AllowedUsers(users []models.SimpleUser) string {
	if len(users) == 0 {
		return dimStyle.Render("No allowed users yet.") + "\n"
	}
	var b strings.Builder
	for _, u := range users {
		fmt.Fprintf(&b, "  %s %s\n", u.Email, dimStyle.Render("("+u.Username+")"))
	}
	return b.String()
}

func bar(votes, total int64) string {
	n := 0
	if total > 0 {
		n = int(min(votes, total) * barWidth / total)
	}
	return barStyle.Render(strings.Repeat("█", n)) + dimStyle.Render(strings.Repeat("░", barWidth-n))
}
