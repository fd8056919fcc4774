// Package expand broadens retrieval recall by producing paraphrased query
// variants: static domain-synonym substitutions first, then optional
// LLM-generated paraphrases.
package expand

import (
	"context"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// paraphraseCount is how many LLM paraphrases are requested per query.
const paraphraseCount = 3

// paraphraseCacheSize bounds the paraphrase memoization cache.
const paraphraseCacheSize = 256

// Paraphraser generates reworded variants of a query.
type Paraphraser interface {
	Paraphrase(ctx context.Context, query string, n int) ([]string, error)
}

// Expander produces query variants. The original query is always first and
// the total is capped so fan-out cost stays bounded.
type Expander struct {
	rules       map[string][]string // keyword -> alternate phrasings
	paraphraser Paraphraser         // optional
	cache       *lru.Cache[string, []string]
	maxVariants int
	logger      *zap.Logger
}

// New creates an expander. paraphraser may be nil to disable LLM expansion.
func New(rules map[string][]string, paraphraser Paraphraser, maxVariants int, log *zap.Logger) *Expander {
	lowered := make(map[string][]string, len(rules))
	for k, v := range rules {
		lowered[strings.ToLower(k)] = v
	}

	cache, _ := lru.New[string, []string](paraphraseCacheSize)

	return &Expander{
		rules:       lowered,
		paraphraser: paraphraser,
		cache:       cache,
		maxVariants: maxVariants,
		logger:      log,
	}
}

// Expand returns the query plus synonym and paraphrase variants, deduplicated,
// capped at maxVariants. Expansion never fails: paraphraser errors degrade to
// whatever variants were already collected.
func (e *Expander) Expand(ctx context.Context, query string) []string {
	variants := []string{query}
	seen := map[string]struct{}{strings.ToLower(query): {}}

	add := func(v string) bool {
		if len(variants) >= e.maxVariants {
			return false
		}
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			return true
		}
		if _, dup := seen[key]; dup {
			return true
		}
		seen[key] = struct{}{}
		variants = append(variants, strings.TrimSpace(v))
		return true
	}

	for _, v := range e.synonymVariants(query) {
		if !add(v) {
			return variants
		}
	}

	if e.paraphraser != nil && len(variants) < e.maxVariants {
		for _, v := range e.paraphrases(ctx, query) {
			if !add(v) {
				break
			}
		}
	}

	return variants
}

// synonymVariants applies the static substitution rules: for every rule
// keyword present in the query, one variant per alternate phrasing.
func (e *Expander) synonymVariants(query string) []string {
	lower := strings.ToLower(query)
	var out []string
	for keyword, alternates := range e.rules {
		if !strings.Contains(lower, keyword) {
			continue
		}
		for _, alt := range alternates {
			out = append(out, replaceFold(query, keyword, alt))
		}
	}
	return out
}

func (e *Expander) paraphrases(ctx context.Context, query string) []string {
	if cached, ok := e.cache.Get(query); ok {
		return cached
	}

	out, err := e.paraphraser.Paraphrase(ctx, query, paraphraseCount)
	if err != nil {
		e.logger.Debug("paraphrase expansion failed", zap.Error(err))
		return nil
	}

	e.cache.Add(query, out)
	return out
}

// replaceFold replaces the first case-insensitive occurrence of old with new.
func replaceFold(s, old, new string) string {
	idx := strings.Index(strings.ToLower(s), old)
	if idx < 0 {
		return s
	}
	return s[:idx] + new + s[idx+len(old):]
}
