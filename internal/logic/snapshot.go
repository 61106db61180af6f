package logic

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/streamingshack/race-api/internal/models"
)

// SnapshotData is a ranked leaderboard together with its window and prize
// table, the unit handed to exports and the webhook push.
type SnapshotData struct {
	Leaderboard []models.LeaderboardEntry `json:"leaderboard"`
	DateRange   models.DateRangeView      `json:"dateRange"`
	Prizes      map[int]float64           `json:"prizes"`
}

// FormatSnapshot renders a snapshot as a deterministic plain-text block:
// title, period, prize pool, up to limit standing lines, and an update
// footer. A non-nil mask is applied to real usernames and the masked name
// is backticked to survive chat markdown; nil leaves names untouched for
// internal exports.
func FormatSnapshot(title string, data SnapshotData, limit int, mask MaskFunc, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🏆 **%s** 🏆\n\n", title)
	fmt.Fprintf(&b, "📅 **Period:** %s %s → %s %s\n\n",
		data.DateRange.Start, data.DateRange.StartTime,
		data.DateRange.End, data.DateRange.EndTime)

	b.WriteString("💰 **Prize Pool:**\n")
	for _, rank := range sortedRanks(data.Prizes) {
		medal := medalFor(rank)
		if medal != "" {
			fmt.Fprintf(&b, "%s %s: $%s\n", medal, ordinal(rank), formatPrize(data.Prizes[rank]))
		} else {
			fmt.Fprintf(&b, "%s: $%s\n", ordinal(rank), formatPrize(data.Prizes[rank]))
		}
	}
	b.WriteString("\n**Current Standings:**\n\n")

	rows := data.Leaderboard
	if len(rows) > limit {
		rows = rows[:limit]
	}
	for _, entry := range rows {
		b.WriteString(formatStandingLine(entry, mask))
	}

	fmt.Fprintf(&b, "\n---\n*Updated: %s*\n", now.UTC().Format("Jan 2, 2006 15:04:05 MST"))

	return b.String()
}

func formatStandingLine(entry models.LeaderboardEntry, mask MaskFunc) string {
	rankStr := fmt.Sprintf("%d.", entry.Rank)
	if medal := medalFor(entry.Rank); medal != "" {
		rankStr = fmt.Sprintf("%s **%d.**", medal, entry.Rank)
	}

	prizeStr := ""
	if entry.Prize > 0 {
		prizeStr = fmt.Sprintf(" | Prize: **$%s**", formatPrize(entry.Prize))
	}

	if entry.IsPlaceholder() {
		return fmt.Sprintf("%s *%s*%s\n", rankStr, models.PlaceholderUsername, prizeStr)
	}

	name := entry.Username
	if mask != nil {
		name = "`" + mask(name) + "`"
	}
	return fmt.Sprintf("%s %s - $%s%s\n", rankStr, name, FormatAmount(entry.Wagered), prizeStr)
}

func medalFor(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	}
	return ""
}

func ordinal(n int) string {
	suffix := "th"
	if n%100 < 11 || n%100 > 13 {
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(n) + suffix
}

func sortedRanks(prizes map[int]float64) []int {
	ranks := make([]int, 0, len(prizes))
	for rank := range prizes {
		ranks = append(ranks, rank)
	}
	sort.Ints(ranks)
	return ranks
}

// formatPrize renders a prize amount without trailing zeros ($2000, $12.50).
func formatPrize(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatAmount renders a wagered amount with two decimal places and grouped
// thousands, e.g. 10586 -> "10,586.00".
func FormatAmount(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	dot := strings.IndexByte(s, '.')
	intPart, fracPart := s[:dot], s[dot:]

	sign := ""
	if strings.HasPrefix(intPart, "-") {
		sign = "-"
		intPart = intPart[1:]
	}

	var groups []string
	for len(intPart) > 3 {
		groups = append([]string{intPart[len(intPart)-3:]}, groups...)
		intPart = intPart[:len(intPart)-3]
	}
	groups = append([]string{intPart}, groups...)

	return sign + strings.Join(groups, ",") + fracPart
}
