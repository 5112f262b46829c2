// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package stringutils provides script-aware text helpers shared by the
// title parser and the result matcher: CJK detection, full/half width
// folding, separator normalization and a caching normalizer for hot
// comparison paths.
package stringutils

import (
	"regexp"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/width"
)

var (
	reSpaces     = regexp.MustCompile(`\s+`)
	reSeparators = regexp.MustCompile(`[._]+`)
	// Characters that carry no meaning for matching and only fragment tokens.
	reSpecialChars = regexp.MustCompile(`[\[\]【】()（）「」『』{}*?\\/"'，。！？：；·…~・♥]`)
)

// ContainsChinese reports whether s contains at least one CJK ideograph.
func ContainsChinese(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

// IsAllChinese reports whether every non-space rune in s is a CJK ideograph.
func IsAllChinese(s string) bool {
	seen := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		if !unicode.Is(unicode.Han, r) {
			return false
		}
		seen = true
	}
	return seen
}

// IsDigits reports whether s is a non-empty run of ASCII digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// FoldWidth converts full-width letters, digits and punctuation to their
// half-width forms. Release titles from CJK trackers frequently mix both.
func FoldWidth(s string) string {
	return width.Narrow.String(s)
}

// ClearSpecialChars strips bracket and punctuation characters that only
// exist to decorate a release title, replacing them with spaces so that
// token boundaries survive.
func ClearSpecialChars(s string) string {
	s = reSpecialChars.ReplaceAllString(s, " ")
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}

// Normalize lowercases s, folds width, converts dot/underscore separators
// to spaces and collapses whitespace. Used for title equality checks.
func Normalize(s string) string {
	s = FoldWidth(s)
	s = strings.ReplaceAll(s, "　", " ")
	s = strings.ToLower(strings.TrimSpace(s))
	s = reSeparators.ReplaceAllString(s, " ")
	s = ClearSpecialChars(s)
	return s
}

// Normalizer memoizes Normalize results. Matching runs the same source
// titles and aliases through normalization once per listing, so the cache
// pays for itself on any search with more than a handful of results.
type Normalizer struct {
	mu    sync.RWMutex
	cache map[string]string
}

func NewNormalizer() *Normalizer {
	return &Normalizer{cache: make(map[string]string)}
}

func (n *Normalizer) Normalize(s string) string {
	n.mu.RLock()
	v, ok := n.cache[s]
	n.mu.RUnlock()
	if ok {
		return v
	}

	v = Normalize(Simplified(s))

	n.mu.Lock()
	n.cache[s] = v
	n.mu.Unlock()
	return v
}

// SplitWords splits s on spaces, slashes and interpuncts, dropping empties.
func SplitWords(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '/' || r == '／' || r == '·' || r == '\t'
	})
	out := fields[:0]
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
