// Package search implements full-text search over the flattened corpus.
//
// The scoring function is a pure function over its input: given a
// flattened pasuk list, a query, and filters, it produces a ranked,
// bounded result list, deterministically. The Engine wraps it in a
// worker goroutine behind a message-passing channel pair so scanning a
// multi-thousand-pasuk corpus never blocks the interactive path, and the
// Coordinator owns the engine handle, debouncing, and last-query-wins
// ordering.
package search

import (
	"sort"
	"strings"

	"github.com/torahstudy/limud/core/torah"
)

// MaxResults bounds every result list.
const MaxResults = 50

// Scope selects which sub-texts of a pasuk are scanned.
type Scope string

const (
	// ScopeAll scans pasuk text, questions, and perushim.
	ScopeAll Scope = "all"
	// ScopePasuk scans only the pasuk text.
	ScopePasuk Scope = "pasuk"
	// ScopeQuestion scans pasuk questions.
	ScopeQuestion Scope = "question"
	// ScopePerush scans commentary perushim.
	ScopePerush Scope = "perush"
)

// Filters restricts which pesukim are candidates and which sub-texts
// are scanned. Zero-valued fields are unset and exclude nothing.
type Filters struct {
	Sefer    int    `json:"sefer,omitempty"`
	Parsha   int    `json:"parsha,omitempty"`
	Perek    int    `json:"perek,omitempty"`
	Mefaresh string `json:"mefaresh,omitempty"`
	Scope    Scope  `json:"searchType"`
}

// scope returns the effective scope, defaulting to ScopeAll.
func (f Filters) scope() Scope {
	if f.Scope == "" {
		return ScopeAll
	}
	return f.Scope
}

// excludes reports whether a pasuk is filtered out before scoring.
func (f Filters) excludes(p *torah.FlatPasuk) bool {
	if f.Sefer != 0 && p.Sefer != f.Sefer {
		return true
	}
	if f.Parsha != 0 && p.ParshaID != f.Parsha {
		return true
	}
	if f.Perek != 0 && p.Perek != f.Perek {
		return true
	}
	return false
}

// scoreText scores one sub-text against the prepared query.
//
//   - +10 if the full query is a substring of the text
//   - +5 for each query word present as a substring
//   - +2 more if that word occurs at the start of the text
func scoreText(text, query string, words []string) int {
	lower := strings.ToLower(text)
	score := 0
	if strings.Contains(lower, query) {
		score += 10
	}
	for _, word := range words {
		if strings.Contains(lower, word) {
			score += 5
			if strings.HasPrefix(lower, word) {
				score += 2
			}
		}
	}
	return score
}

// match pairs a candidate with its accumulated score.
type match struct {
	pasuk torah.FlatPasuk
	score int
}

// Search scans pesukim for query under the given filters and returns at
// most MaxResults pesukim ordered by descending score. Ties keep
// encounter order. An empty or whitespace-only query yields an empty
// result list.
func Search(pesukim []torah.FlatPasuk, query string, filters Filters) []torah.FlatPasuk {
	query = strings.TrimSpace(query)
	if query == "" {
		return []torah.FlatPasuk{}
	}

	lowerQuery := strings.ToLower(query)
	words := strings.Fields(lowerQuery)
	scope := filters.scope()

	var matches []match
	for i := range pesukim {
		pasuk := &pesukim[i]
		if filters.excludes(pasuk) {
			continue
		}

		score := 0
		if scope == ScopeAll || scope == ScopePasuk {
			score += scoreText(pasuk.Text, lowerQuery, words)
		}
		for _, content := range pasuk.Content {
			for _, question := range content.Questions {
				if scope == ScopeAll || scope == ScopeQuestion {
					score += scoreText(question.Text, lowerQuery, words)
				}
				if scope == ScopeAll || scope == ScopePerush {
					for _, perush := range question.Perushim {
						if filters.Mefaresh != "" && perush.Mefaresh != filters.Mefaresh {
							continue
						}
						score += scoreText(perush.Text, lowerQuery, words)
					}
				}
			}
		}

		if score > 0 {
			matches = append(matches, match{pasuk: *pasuk, score: score})
		}
	}

	// Stable: equal scores keep corpus encounter order.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})
	if len(matches) > MaxResults {
		matches = matches[:MaxResults]
	}

	results := make([]torah.FlatPasuk, len(matches))
	for i, m := range matches {
		results[i] = m.pasuk
	}
	return results
}
