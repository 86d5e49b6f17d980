package usecase

import (
	"math"

	"finrag/internal/adapter/store"
	"finrag/internal/domain"
)

// maxMarginalRelevance greedily selects k candidates from a
// similarity-ordered pool, each round picking the one maximizing
//
//	(1-diversity)*relevance - diversity*maxSimilarityToSelected
//
// with similarity measured as vector cosine. Ties keep pool order
// (higher relevance, then lower ID), so selection is deterministic.
func maxMarginalRelevance(pool []domain.ScoredRecord, k int, diversity float64) []domain.ScoredRecord {
	if len(pool) == 0 {
		return nil
	}
	if k > len(pool) {
		k = len(pool)
	}

	selected := make([]domain.ScoredRecord, 0, k)
	remaining := append([]domain.ScoredRecord(nil), pool...)

	for len(selected) < k {
		bestIdx := 0
		bestScore := math.Inf(-1)

		for i, cand := range remaining {
			maxSim := 0.0
			if len(selected) > 0 {
				maxSim = math.Inf(-1)
				for _, sel := range selected {
					if sim := store.Cosine(cand.Record.Vector, sel.Record.Vector); sim > maxSim {
						maxSim = sim
					}
				}
			}

			score := (1-diversity)*cand.Score - diversity*maxSim
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}

		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return selected
}
