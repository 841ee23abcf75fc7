package app

import (
	"sort"
)

// SortCountdowns sorts countdowns by date in ascending order, then by title
func SortCountdowns(countdowns []Countdown) {
	sort.Slice(countdowns, func(i, j int) bool {
		if !countdowns[i].Date.Equal(countdowns[j].Date) {
			return countdowns[i].Date.Before(countdowns[j].Date)
		}
		return countdowns[i].Title < countdowns[j].Title
	})
}

// SortedTitles returns the ledger's titles ordered by stored date, then title
func SortedTitles(ledger Ledger) []string {
	titles := make([]string, 0, len(ledger))
	for title := range ledger {
		titles = append(titles, title)
	}
	sort.Slice(titles, func(i, j int) bool {
		a, b := ledger[titles[i]], ledger[titles[j]]
		if a != b {
			return a < b
		}
		return titles[i] < titles[j]
	})
	return titles
}
