// Package textutil holds the text helpers shared by prompt building and
// message persistence.
package textutil

import (
	"regexp"
	"strings"
)

// Inline context blocks injected into the provider prompt. File and pasted
// URL-text blocks are stripped before a message is persisted or displayed;
// fetched [URL:] blocks stay because they double as a citation.
var (
	fileBlockRe    = regexp.MustCompile(`(?i)\[FILE:[^\]]+\][\s\S]*?\[/FILE\]`)
	urlTextBlockRe = regexp.MustCompile(`(?i)\[URL_TEXT\][\s\S]*?\[/URL_TEXT\]`)
	blankRunRe     = regexp.MustCompile(`\n{3,}`)
)

// StripContextBlocks removes the inline [FILE:] and [URL_TEXT] blocks from
// s and collapses the blank runs they leave behind.
func StripContextBlocks(s string) string {
	out := fileBlockRe.ReplaceAllString(s, "")
	out = urlTextBlockRe.ReplaceAllString(out, "")
	out = blankRunRe.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

// Shorten truncates s to at most limit runes, marking the cut with an
// ellipsis.
func Shorten(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}
