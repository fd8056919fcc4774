// Package sparse provides an in-memory BM25 keyword index over a document
// set. An Index is read-only after Build; corpus changes are handled by
// building a fresh Index and swapping the reference atomically.
package sparse

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/loreline/answerd/internal/domain"
)

// BM25 parameters (standard Robertson/Walker values).
const (
	k1 = 1.2
	b  = 0.75
)

// Hit is a single keyword search result with its raw BM25 score.
type Hit struct {
	Doc   domain.Document
	Score float64
}

// Index is an immutable BM25 index over a document set.
type Index struct {
	docs     []domain.Document
	termFreq []map[string]int // per-document term frequencies
	docLen   []int
	docFreq  map[string]int // term -> number of documents containing it
	avgLen   float64
}

var tokenPattern = regexp.MustCompile(`[a-z0-9_]+`)

// tokenize lowercases the text and extracts [a-z0-9_]+ runs as tokens.
func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// Build constructs an index over the given documents.
func Build(docs []domain.Document) *Index {
	ix := &Index{
		docs:     docs,
		termFreq: make([]map[string]int, len(docs)),
		docLen:   make([]int, len(docs)),
		docFreq:  make(map[string]int),
	}

	totalLen := 0
	for i, d := range docs {
		tokens := tokenize(d.Content)
		tf := make(map[string]int, len(tokens))
		for _, t := range tokens {
			tf[t]++
		}
		ix.termFreq[i] = tf
		ix.docLen[i] = len(tokens)
		totalLen += len(tokens)
		for t := range tf {
			ix.docFreq[t]++
		}
	}
	if len(docs) > 0 {
		ix.avgLen = float64(totalLen) / float64(len(docs))
	}
	return ix
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int {
	return len(ix.docs)
}

// Search scores documents against the query with BM25 and returns at most
// topK hits with strictly positive score, ordered descending by score.
// A query with no tokens yields an empty result.
func (ix *Index) Search(query string, topK int) []Hit {
	tokens := tokenize(query)
	if len(tokens) == 0 || len(ix.docs) == 0 {
		return nil
	}

	n := float64(len(ix.docs))
	hits := make([]Hit, 0, topK)

	for i, d := range ix.docs {
		score := 0.0
		for _, t := range tokens {
			tf := ix.termFreq[i][t]
			if tf == 0 {
				continue
			}
			df := float64(ix.docFreq[t])
			idf := math.Log(1 + (n-df+0.5)/(df+0.5))
			norm := float64(tf) * (k1 + 1) /
				(float64(tf) + k1*(1-b+b*float64(ix.docLen[i])/ix.avgLen))
			score += idf * norm
		}
		if score > 0 {
			hits = append(hits, Hit{Doc: d, Score: score})
		}
	}

	sort.SliceStable(hits, func(a, c int) bool {
		return hits[a].Score > hits[c].Score
	})

	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}
