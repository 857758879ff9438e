package grading

import (
	"sort"

	"github.com/noah-isme/sma-report-card/internal/models"
)

// RankEntry is one student's aggregate used for class ranking.
type RankEntry struct {
	StudentID  string
	Percentage float64
}

// RankClass assigns competition ranks (1, 2, 2, 4) by descending percentage.
func RankClass(entries []RankEntry) map[string]models.Rank {
	sorted := append([]RankEntry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Percentage == sorted[j].Percentage {
			return sorted[i].StudentID < sorted[j].StudentID
		}
		return sorted[i].Percentage > sorted[j].Percentage
	})

	ranks := make(map[string]models.Rank, len(sorted))
	position := 0
	for i, entry := range sorted {
		if i == 0 || entry.Percentage != sorted[i-1].Percentage {
			position = i + 1
		}
		ranks[entry.StudentID] = models.Rank{Position: position, OutOf: len(sorted)}
	}
	return ranks
}
