package retriever

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/lmsbridge/kbindex/internal/knowledge"
)

// Reranking boost weights. Adjusted scores are clamped to 1.0.
const (
	keywordBoostPerMatch = 0.05
	recencyBoostMax      = 0.1
	recencyCeiling       = 30 * 24 * time.Hour
	domainBoostPerMatch  = 0.1
)

// stopWords are query tokens that carry no retrieval signal.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "had": {}, "her": {}, "was": {},
	"one": {}, "our": {}, "out": {}, "has": {}, "have": {}, "what": {},
	"when": {}, "where": {}, "which": {}, "with": {}, "this": {},
	"that": {}, "from": {}, "they": {}, "will": {}, "would": {},
	"there": {}, "their": {}, "about": {}, "into": {}, "does": {},
	"how": {}, "why": {}, "who": {},
}

var nonWord = regexp.MustCompile(`\W+`)

// domainPatterns maps a system name to the query substrings that signal
// the query targets that system. Boosts from multiple matching domains
// stack.
var domainPatterns = map[string][]string{
	"canvas":    {"canvas", "lms", "course", "assignment", "quiz", "grading"},
	"discourse": {"discourse", "forum", "topic", "post", "discussion"},
}

// rerank recomputes candidate scores by blending the vector similarity
// with keyword, recency and domain-match signals, then re-sorts.
func (r *Retriever) rerank(query string, results []Result) []Result {
	keywords := extractKeywords(query)
	now := r.now()

	for i := range results {
		adjusted := results[i].Score +
			keywordBoost(keywords, results[i].Metadata) +
			recencyBoost(results[i].Metadata, now) +
			domainBoost(query, results[i].Metadata)
		if adjusted > 1.0 {
			adjusted = 1.0
		}
		results[i].Score = adjusted
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// extractKeywords lowercases the query, splits on non-word runs and drops
// short tokens and stop words.
func extractKeywords(query string) []string {
	var keywords []string
	seen := make(map[string]struct{})

	for _, token := range nonWord.Split(strings.ToLower(query), -1) {
		if len(token) <= 2 {
			continue
		}
		if _, stop := stopWords[token]; stop {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		keywords = append(keywords, token)
	}
	return keywords
}

// keywordBoost adds a fixed increment for every distinct query keyword
// found anywhere in the candidate's serialized metadata.
func keywordBoost(keywords []string, metadata map[string]string) float64 {
	if len(keywords) == 0 || len(metadata) == 0 {
		return 0
	}

	var sb strings.Builder
	for k, v := range metadata {
		sb.WriteString(k)
		sb.WriteByte(' ')
		sb.WriteString(v)
		sb.WriteByte(' ')
	}
	serialized := strings.ToLower(sb.String())

	boost := 0.0
	for _, kw := range keywords {
		if strings.Contains(serialized, kw) {
			boost += keywordBoostPerMatch
		}
	}
	return boost
}

// recencyBoost decays a fixed maximum linearly to zero as the candidate's
// last-updated timestamp ages from 0 to the ceiling. Missing or stale
// timestamps contribute nothing.
func recencyBoost(metadata map[string]string, now time.Time) float64 {
	raw, ok := metadata[knowledge.MetaUpdatedAt]
	if !ok || raw == "" {
		return 0
	}
	updated, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return 0
	}

	age := now.Sub(updated)
	if age < 0 {
		age = 0
	}
	if age >= recencyCeiling {
		return 0
	}
	return recencyBoostMax * (1 - float64(age)/float64(recencyCeiling))
}

// domainBoost adds a fixed increment for every domain whose patterns match
// the query when the candidate belongs to that domain's system.
func domainBoost(query string, metadata map[string]string) float64 {
	system, ok := metadata[knowledge.MetaSystem]
	if !ok || system == "" {
		return 0
	}

	lowered := strings.ToLower(query)
	boost := 0.0
	for domain, patterns := range domainPatterns {
		if system != domain {
			continue
		}
		for _, pattern := range patterns {
			if strings.Contains(lowered, pattern) {
				boost += domainBoostPerMatch
				break
			}
		}
	}
	return boost
}
