package chatbot

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const (
	minTypoLen     = 4
	typoMatchRatio = 0.8
)

// vocabulary words a misspelt message is compared against, with the suggestion offered for each.
var typoTargets = []struct {
	word       string
	suggestion string
}{
	{"balance", suggestBalance},
	{"payment", suggestPayMethods},
	{"statement", suggestStatement},
	{"assignment", suggestAssignments},
	{"assignments", suggestAssignments},
	{"grades", suggestGrades},
	{"results", suggestGrades},
	{"progress", suggestProgress},
	{"timetable", suggestTimetable},
	{"certificate", suggestCertificate},
	{"registration", suggestRegistration},
	{"register", suggestRegistration},
	{"password", suggestPassword},
}

// didYouMean looks for a word of `cleaned` close to a known topic word and returns the suggestion for the
// closest one. Exact matches are ignored: they would have been classified already.
func didYouMean(cleaned string) (string, bool) {
	var (
		best      string
		bestRatio float64
	)
	for _, word := range strings.Fields(cleaned) {
		if len(word) < minTypoLen {
			continue
		}
		letters := strings.Split(word, "")
		for _, target := range typoTargets {
			if word == target.word {
				continue
			}
			ratio := difflib.NewMatcher(letters, strings.Split(target.word, "")).Ratio()
			if ratio >= typoMatchRatio && ratio > bestRatio {
				best, bestRatio = target.suggestion, ratio
			}
		}
	}
	return best, best != ""
}

// withDidYouMean prefixes a general reply with the closest suggestion, if any.
func withDidYouMean(resp Response, cleaned string) Response {
	suggestion, ok := didYouMean(cleaned)
	if !ok {
		return resp
	}
	resp.Text = "Did you mean \"" + suggestion + "\"? " + resp.Text
	suggestions := []string{suggestion}
	for _, s := range resp.Suggestions {
		if s != suggestion {
			suggestions = append(suggestions, s)
		}
	}
	resp.Suggestions = suggestions
	return resp
}
