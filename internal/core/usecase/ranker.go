package usecase

import (
	"sort"

	"github.com/kirillkom/contract-intelligence/internal/core/domain"
)

// MergeResults concatenates per-collection hits, sorts them by score descending and cuts the
// merged list to limit. The cut happens after the merge; limit <= 0 keeps everything.
func MergeResults(perCollection [][]domain.ScoredContract, limit int) []domain.ScoredContract {
	total := 0
	for _, hits := range perCollection {
		total += len(hits)
	}
	merged := make([]domain.ScoredContract, 0, total)
	for _, hits := range perCollection {
		merged = append(merged, hits...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})

	return trimHits(merged, limit)
}

func trimHits(hits []domain.ScoredContract, limit int) []domain.ScoredContract {
	if limit <= 0 || len(hits) <= limit {
		return hits
	}
	return hits[:limit]
}
