package market

import (
	"regexp"
	"strings"
)

// abbreviation expands a standalone word in a pattern to its full item
// term, so "trinity p bp" matches "Trinity Prime Blueprint".
type abbreviation struct {
	re   *regexp.Regexp
	full string
}

func newAbbreviation(pattern, full string) abbreviation {
	return abbreviation{
		re:   regexp.MustCompile(`(?i)\b` + pattern + `\b`),
		full: full,
	}
}

// Abbreviations users may write in place of common part names. Applied
// only when the raw pattern matches nothing.
var abbreviations = []abbreviation{
	newAbbreviation(`brl`, "Barrel"),
	newAbbreviation(`bld`, "Blade"),
	newAbbreviation(`bp`, "Blueprint"),
	newAbbreviation(`cara?`, "Carapace"),
	newAbbreviation(`cere?`, "Cerebrum"),
	newAbbreviation(`chas?s?`, "Chassis"),
	newAbbreviation(`gtl?t?`, "Gauntlet"),
	newAbbreviation(`hn?dl`, "Handle"),
	newAbbreviation(`neur?`, "Neuroptics"),
	newAbbreviation(`p`, "Prime"),
	newAbbreviation(`rec`, "Receiver"),
	newAbbreviation(`scul?`, "Sculpture"),
	newAbbreviation(`stk`, "Stock"),
	newAbbreviation(`str`, "String"),
	newAbbreviation(`sys`, "Systems"),
}

// ExpandAbbreviations rewrites standalone abbreviated words in pattern
// to their full terms.
func ExpandAbbreviations(pattern string) string {
	for _, a := range abbreviations {
		pattern = a.re.ReplaceAllString(pattern, a.full)
	}
	return pattern
}

// MatchItems returns the items whose display names match the wildcard
// pattern, case-insensitively, preserving catalog order. Patterns use
// shell-style wildcards: * matches any run, ? any single character, and
// [...] / [!...] character classes. If the raw pattern matches nothing,
// the pattern is retried with abbreviations expanded.
func MatchItems(items []Item, pattern string) []Item {
	matches := matchItems(items, pattern)
	if len(matches) == 0 {
		matches = matchItems(items, ExpandAbbreviations(pattern))
	}
	return matches
}

func matchItems(items []Item, pattern string) []Item {
	re, err := translatePattern(pattern)
	if err != nil {
		return nil
	}
	var matches []Item
	for _, item := range items {
		if re.MatchString(item.Name) {
			matches = append(matches, item)
		}
	}
	return matches
}

// translatePattern converts a shell-style wildcard pattern into an
// anchored, case-insensitive regular expression.
func translatePattern(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString(`(?i)^`)

	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; c {
		case '*':
			b.WriteString(`.*`)
		case '?':
			b.WriteByte('.')
		case '[':
			j := i + 1
			if j < len(pattern) && (pattern[j] == '!' || pattern[j] == '^') {
				j++
			}
			// A leading ] is part of the class, not its end.
			if j < len(pattern) && pattern[j] == ']' {
				j++
			}
			for j < len(pattern) && pattern[j] != ']' {
				j++
			}
			if j >= len(pattern) {
				// Unterminated class, treat the bracket literally.
				b.WriteString(`\[`)
				continue
			}
			set := strings.ReplaceAll(pattern[i+1:j], `\`, `\\`)
			b.WriteByte('[')
			if strings.HasPrefix(set, "!") {
				b.WriteByte('^')
				set = set[1:]
			}
			b.WriteString(set)
			b.WriteByte(']')
			i = j
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}

	b.WriteByte('$')
	return regexp.Compile(b.String())
}
