package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// slugInvalid matches everything except lowercase letters, digits and hyphens
	slugInvalid = regexp.MustCompile(`[^a-z0-9-]+`)
	// slugHyphens matches runs of hyphens
	slugHyphens = regexp.MustCompile(`-{2,}`)
)

// Slugify converts s to a URL path segment: accents folded, lowercase,
// whitespace and underscores become hyphens, everything else non-alphanumeric
// is dropped.
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)

	result = strings.ToLower(result)
	result = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '_' || r == '/' || r == '.' {
			return '-'
		}
		return r
	}, result)
	result = slugInvalid.ReplaceAllString(result, "")
	result = slugHyphens.ReplaceAllString(result, "-")

	return strings.Trim(result, "-")
}

// IsValidSlug checks that s is non-empty lowercase alphanumerics separated by
// single hyphens.
func IsValidSlug(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-') {
			return false
		}
	}
	if s[0] == '-' || s[len(s)-1] == '-' {
		return false
	}
	return !strings.Contains(s, "--")
}

// UniqueSlug returns base, or base with the smallest numeric suffix (-2, -3, ...)
// that is not taken. fallback is used when base is empty.
func UniqueSlug(base, fallback string, taken func(string) bool) string {
	if base == "" {
		base = fallback
	}
	if !taken(base) {
		return base
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d", base, i)
		if !taken(candidate) {
			return candidate
		}
	}
}
