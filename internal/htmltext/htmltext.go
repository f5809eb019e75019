// Package htmltext provides markup-insensitive text helpers used for the
// title-echo and minimum-length rules across the ingestion pipeline.
package htmltext

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	tagRe        = regexp.MustCompile(`<[^>]*>`)
	whitespaceRe = regexp.MustCompile(`[\s\p{Zs}]+`)
	imgSrcRe     = regexp.MustCompile(`(?i)<img[^>]+src=["']([^"']+)["']`)
	imgTagRe     = regexp.MustCompile(`(?i)<img[^>]*>`)
)

// Normalize strips HTML tags, decodes entities, collapses whitespace, trims,
// and case-folds. Two fragments are "the same text" when their normalized
// forms are equal.
func Normalize(value string) string {
	if value == "" {
		return ""
	}

	stripped := tagRe.ReplaceAllString(value, " ")
	decoded := html.UnescapeString(stripped)
	collapsed := whitespaceRe.ReplaceAllString(decoded, " ")
	return strings.ToLower(strings.TrimSpace(collapsed))
}

// NormalizedLen returns the rune length of the normalized form.
func NormalizedLen(value string) int {
	return utf8.RuneCountInString(Normalize(value))
}

// FirstImageSrc returns the src of the first <img> tag in the fragment, or "".
func FirstImageSrc(fragment string) string {
	m := imgSrcRe.FindStringSubmatch(fragment)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// StripFirstImageTag removes the first <img> tag occurrence from the fragment.
// Later occurrences are left alone.
func StripFirstImageTag(fragment string) string {
	loc := imgTagRe.FindStringIndex(fragment)
	if loc == nil {
		return fragment
	}
	return fragment[:loc[0]] + fragment[loc[1]:]
}
