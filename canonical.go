package dispatch

import (
	"regexp"
	"strings"
)

var camelBoundary = regexp.MustCompile("([a-z0-9])([A-Z])")

// OperationKey canonicalizes an operation name into a stable lookup key:
// snake_cased, lower-cased, with spaces, dashes, dots, and colons collapsed
// to single underscores. Both "StoryWrite" and "story_write" map to
// "story_write", so policy overrides match no matter how callers spell the
// operation.
func OperationKey(name string) string {
	s := strings.TrimSpace(name)
	if s == "" {
		return ""
	}
	s = camelBoundary.ReplaceAllString(s, "${1}_${2}")
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	prevSep := false
	for _, r := range s {
		switch r {
		case ' ', '-', '.', ':', '/':
			r = '_'
		}
		if r == '_' {
			if prevSep {
				continue
			}
			prevSep = true
		} else {
			prevSep = false
		}
		b.WriteRune(r)
	}
	return strings.Trim(b.String(), "_")
}

// KeyVariants returns the lookup spellings tried when resolving an operation
// name, most specific first: the case-folded verbatim name, its canonical
// snake_case key, and the separator-free compact form.
func KeyVariants(name string) []string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil
	}

	variants := []string{strings.ToLower(trimmed)}
	if key := OperationKey(trimmed); key != "" && key != variants[0] {
		variants = append(variants, key)
	}
	compact := strings.ReplaceAll(OperationKey(trimmed), "_", "")
	if compact != "" {
		seen := false
		for _, v := range variants {
			if v == compact {
				seen = true
				break
			}
		}
		if !seen {
			variants = append(variants, compact)
		}
	}
	return variants
}
