package search

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// score assumes 'text' and 'query' are case folded
func score(text, query string) int {
	if strings.Contains(text, query) {
		return 1
	}
	if matchesInitialism(text, query) {
		return 0
	}
	return -1
}

// matchesInitialism assumes inputs are case folded
func matchesInitialism(text, query string) bool {
	for _, word := range strings.Fields(text) {
		if len(query) == 0 {
			return true
		}
		if word[0] == query[0] {
			query = query[1:]
		}
	}
	return len(query) == 0
}

type scoreItem struct {
	index int
	score int
}

// Filter returns the items whose text contains query, or whose words' initials spell it out, ignoring case.
// Substring matches come before initialisms, otherwise items keep their order. A blank query returns items unchanged.
func Filter[T any](items []T, text func(T) string, query string) []T {
	query = strings.TrimSpace(query)
	if query == "" {
		return items
	}
	fold := cases.Fold()
	query = fold.String(query)

	scores := make([]scoreItem, 0, len(items))
	for i, item := range items {
		s := score(fold.String(text(item)), query)
		if s >= 0 {
			scores = append(scores, scoreItem{index: i, score: s})
		}
	}
	sort.SliceStable(scores, func(a, b int) bool {
		return scores[a].score > scores[b].score // sort scores largest to smallest
	})

	results := make([]T, len(scores))
	for i, item := range scores {
		results[i] = items[item.index]
	}
	return results
}
