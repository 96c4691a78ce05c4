package domain

import (
	"regexp"
	"strings"
)

// MaxTitles caps how many candidates are taken from one generation.
const MaxTitles = 10

var (
	// bracketListRe matches the machine-parseable list form the prompt asks
	// for: "[영화1, 영화2(Movie Two), 영화3]".
	bracketListRe = regexp.MustCompile(`\[([^\[\]]+)\]`)

	// numberedLineRe matches fallback numbered-list lines: "1. 영화1".
	numberedLineRe = regexp.MustCompile(`(?m)^\s*\d+\.\s*(.+)$`)

	// yearParenRe matches a trailing parenthetical containing only a 4-digit
	// year, e.g. "영화1 (2023)". Year-only parentheticals are noise; any other
	// parenthetical is the Local(Foreign) dual-name form and is kept.
	yearParenRe = regexp.MustCompile(`\s*\(\s*\d{4}\s*\)\s*$`)

	// disallowedCharRe strips everything outside the title allow-list:
	// Latin letters, Hangul, digits, whitespace, hyphen, colon, parentheses.
	disallowedCharRe = regexp.MustCompile(`[^0-9A-Za-z가-힣\s\-:()]`)
)

const surroundingQuotes = "\"'“”‘’`"

// ExtractTitles parses generated text into an ordered list of at most
// MaxTitles candidate titles. The bracketed-list form wins over numbered
// lines; text matching neither yields an empty list, which is not an error.
func ExtractTitles(text string) []CandidateTitle {
	if m := bracketListRe.FindStringSubmatch(text); m != nil {
		return collectTitles(strings.Split(m[1], ","))
	}

	matches := numberedLineRe.FindAllStringSubmatch(text, MaxTitles)
	if len(matches) > 0 {
		raws := make([]string, 0, len(matches))
		for _, m := range matches {
			raws = append(raws, m[1])
		}
		return collectTitles(raws)
	}

	return nil
}

// collectTitles normalizes raw fragments, dropping anything that cleans down
// to an empty string and capping the result at MaxTitles.
func collectTitles(raws []string) []CandidateTitle {
	titles := make([]CandidateTitle, 0, len(raws))
	for _, raw := range raws {
		if len(titles) == MaxTitles {
			break
		}
		display := NormalizeTitle(raw)
		if display == "" {
			continue
		}
		titles = append(titles, CandidateTitle{
			RawText:      strings.TrimSpace(raw),
			DisplayTitle: display,
		})
	}
	return titles
}

// NormalizeTitle cleans one raw title fragment. Normalization is idempotent:
// feeding the output back in yields the same string.
func NormalizeTitle(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, surroundingQuotes)
	s = disallowedCharRe.ReplaceAllString(s, "")
	// Stripping disallowed characters can expose a trailing year
	// parenthetical, and stripping one can expose another, so iterate to a
	// fixpoint.
	for {
		trimmed := yearParenRe.ReplaceAllString(s, "")
		if trimmed == s {
			break
		}
		s = trimmed
	}
	return strings.Join(strings.Fields(s), " ")
}
