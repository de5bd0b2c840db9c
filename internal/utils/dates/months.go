package dates

import "strings"

var monthNames = map[string]int{
	// Dutch
	"januari": 1, "februari": 2, "maart": 3, "april": 4, "mei": 5, "juni": 6,
	"juli": 7, "augustus": 8, "september": 9, "oktober": 10, "november": 11, "december": 12,
	// English
	"january": 1, "february": 2, "march": 3, "may": 5, "june": 6,
	"july": 7, "august": 8, "october": 10,
}

var monthAbbreviations = map[string]int{
	"jan": 1, "feb": 2, "mrt": 3, "mar": 3, "apr": 4, "jun": 6, "jul": 7,
	"aug": 8, "sep": 9, "sept": 9, "okt": 10, "oct": 10, "nov": 11, "dec": 12,
}

// LookupMonth resolves a Dutch or English month name or abbreviation to 1-12.
// It returns 0 when the word is not a month.
func LookupMonth(word string) int {
	w := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(word)), ".")
	if m, ok := monthNames[w]; ok {
		return m
	}
	if m, ok := monthAbbreviations[w]; ok {
		return m
	}
	if len(w) < 3 {
		return 0
	}
	for name, m := range monthNames {
		if strings.HasPrefix(name, w) {
			return m
		}
	}
	return 0
}
