package retrieve

import (
	"sort"

	"github.com/loreline/answerd/internal/domain"
	"github.com/loreline/answerd/internal/index/sparse"
)

// rrfK is the Reciprocal Rank Fusion constant (standard value from Cormack et al. 2009).
const rrfK = 60

// defaultFuseTopN caps the fused list when the caller passes no limit.
const defaultFuseTopN = 10

// fuseRRF merges sparse (BM25) and dense (KNN) results via Reciprocal Rank Fusion.
// A document's dense rank score is (list length - position), its sparse rank
// score is the raw BM25 score; fused = 1/(k + denseRankScore) + 1/(k + sparseScore).
// A side where the document is absent contributes 1/(k+0), so single-source
// documents still receive a nonzero fused score from the other term.
// De-duplication is by document content, absorbing metadata drift between the
// two indexes returning logically-identical text.
func fuseRRF(sparseHits []sparse.Hit, dense []domain.Document, topN int) []domain.Candidate {
	if topN <= 0 {
		topN = defaultFuseTopN
	}

	merged := make(map[string]*domain.Candidate)
	order := make([]string, 0, len(sparseHits)+len(dense))

	for _, h := range sparseHits {
		key := h.Doc.Content
		if _, ok := merged[key]; ok {
			continue
		}
		merged[key] = &domain.Candidate{Doc: h.Doc, SparseScore: h.Score}
		order = append(order, key)
	}

	denseLen := len(dense)
	for pos, d := range dense {
		rankScore := float64(denseLen - pos)
		key := d.Content
		if existing, ok := merged[key]; ok {
			if existing.DenseRankScore == 0 {
				existing.DenseRankScore = rankScore
				existing.Doc = d // dense side carries authoritative metadata
			}
			continue
		}
		merged[key] = &domain.Candidate{Doc: d, DenseRankScore: rankScore}
		order = append(order, key)
	}

	results := make([]domain.Candidate, 0, len(order))
	for _, key := range order {
		c := merged[key]
		c.Fused = 1.0/(rrfK+c.DenseRankScore) + 1.0/(rrfK+c.SparseScore)
		results = append(results, *c)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Fused > results[j].Fused
	})

	if len(results) > topN {
		results = results[:topN]
	}
	return results
}
