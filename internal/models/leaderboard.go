package models

import "time"

// PlaceholderUsername marks an unfilled leaderboard slot.
const PlaceholderUsername = "Awaiting player"

// LeaderboardEntry is one participant's standing in the wager race.
type LeaderboardEntry struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Wagered  float64 `json:"wagered"`
	Rank     int     `json:"rank"`
	Prize    float64 `json:"prize"`
}

// IsPlaceholder reports whether the entry is a synthetic unfilled slot.
func (e LeaderboardEntry) IsPlaceholder() bool {
	return e.Username == PlaceholderUsername || e.Wagered == 0
}

// Snapshot is a resolved leaderboard together with the time of the last
// successful upstream fetch. It is what gets persisted per date range.
type Snapshot struct {
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// DateRange is the aggregation window, inclusive Unix seconds.
type DateRange struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// StartUTC returns the lower bound as a UTC time.
func (r DateRange) StartUTC() time.Time {
	return time.Unix(r.From, 0).UTC()
}

// EndUTC returns the upper bound as a UTC time.
func (r DateRange) EndUTC() time.Time {
	return time.Unix(r.To, 0).UTC()
}

// DateRangeView carries the formatted window bounds for display.
type DateRangeView struct {
	Start     string `json:"start"`
	StartTime string `json:"startTime"`
	End       string `json:"end"`
	EndTime   string `json:"endTime"`
	FromUnix  int64  `json:"fromUnix"`
	ToUnix    int64  `json:"toUnix"`
}

// View formats the range bounds for display. All formatting is UTC to keep
// the output independent of server locale.
func (r DateRange) View() DateRangeView {
	start := r.StartUTC()
	end := r.EndUTC()
	return DateRangeView{
		Start:     start.Format("Jan 2, 2006"),
		StartTime: start.Format("15:04:05 MST"),
		End:       end.Format("Jan 2, 2006"),
		EndTime:   end.Format("15:04:05 MST"),
		FromUnix:  r.From,
		ToUnix:    r.To,
	}
}
