package logic

import (
	"sort"
	"strconv"

	"github.com/streamingshack/race-api/internal/models"
)

// Rank sorts entries by wagered amount descending, assigns dense 1-based
// ranks with the prize schedule applied, and pads with placeholder slots up
// to size. Ties keep their original relative order. Real entries are never
// dropped; callers cap the rendered list, not the ranking.
func Rank(entries []models.LeaderboardEntry, prizes map[int]float64, size int) []models.LeaderboardEntry {
	ranked := make([]models.LeaderboardEntry, len(entries))
	copy(ranked, entries)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Wagered > ranked[j].Wagered
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
		ranked[i].Prize = PrizeFor(prizes, i+1)
	}

	return Pad(ranked, prizes, size)
}

// PrizeFor looks up the prize for a rank; ranks beyond the schedule pay 0.
func PrizeFor(prizes map[int]float64, rank int) float64 {
	return prizes[rank]
}

// Pad extends a ranked leaderboard with placeholder entries until it holds
// at least size rows. Existing entries are returned unchanged, in place.
func Pad(entries []models.LeaderboardEntry, prizes map[int]float64, size int) []models.LeaderboardEntry {
	if len(entries) >= size {
		return entries
	}
	out := make([]models.LeaderboardEntry, len(entries), size)
	copy(out, entries)
	for rank := len(entries) + 1; rank <= size; rank++ {
		out = append(out, models.LeaderboardEntry{
			ID:       "placeholder-" + strconv.Itoa(rank),
			Username: models.PlaceholderUsername,
			Wagered:  0,
			Rank:     rank,
			Prize:    PrizeFor(prizes, rank),
		})
	}
	return out
}
