// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metainfo

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/moistari/rls"

	"github.com/aggregarr/aggregarr/pkg/stringutils"
)

// AnimeTokens is the output of an anime-release tokenizer.
type AnimeTokens struct {
	Title        string
	ReleaseGroup string
	Season       int
	BeginEpisode float64
	EndEpisode   float64
	Resolution   string
}

// AnimeTokenizer tokenizes a fansub-style release name. The default
// implementation wraps the rls parser; tests may substitute their own.
type AnimeTokenizer interface {
	Tokenize(title string) (*AnimeTokens, bool)
}

type rlsTokenizer struct{}

// NewAnimeTokenizer returns the default rls-backed tokenizer.
func NewAnimeTokenizer() AnimeTokenizer {
	return rlsTokenizer{}
}

func (rlsTokenizer) Tokenize(title string) (*AnimeTokens, bool) {
	r := rls.ParseString(title)
	if r.Title == "" {
		return nil, false
	}
	tok := &AnimeTokens{
		Title:        r.Title,
		ReleaseGroup: r.Group,
		Resolution:   r.Resolution,
		Season:       unset,
		BeginEpisode: float64(unset),
		EndEpisode:   float64(unset),
	}
	if r.Series > 0 {
		tok.Season = r.Series
	}
	if r.Episode > 0 {
		tok.BeginEpisode = float64(r.Episode)
	}
	return tok, true
}

var (
	reBracketGroup = regexp.MustCompile(`\[([^\[\]]+)\]`)
	// " - 12", " - 12.5", " - 12v2", " - 01-12"
	reAnimeEpRange  = regexp.MustCompile(`\s+-\s+(\d{1,4})\s*-\s*(\d{1,4})(?:\s*[vV]\d)?\b`)
	reAnimeEpSingle = regexp.MustCompile(`\s+-\s+(\d{1,4}(?:\.\d)?)(?:\s*[vV]\d)?\b`)
	reAnyPix        = regexp.MustCompile(`(?i)(\d{3,4})\s*[pi]\b`)
	reAnyDimension  = regexp.MustCompile(`(?i)(\d{3,4})\s*[x×]\s*(\d{3,4})`)
	re4K            = regexp.MustCompile(`(?i)\b4k\b`)
)

func parseAnime(pt *ParsedTitle, tokenizer AnimeTokenizer, text string) {
	pt.Type = TypeAnime

	text = stringutils.FoldWidth(text)
	text = strings.NewReplacer("【", "[", "】", "]").Replace(text)

	// Season phrase carries across both the tokenizer and fallback paths.
	if m := reCNSeason.FindStringSubmatch(text); m != nil {
		if n, ok := stringutils.ChineseToInt(m[1]); ok {
			pt.setSeason(n, unset)
		}
	}

	var name, group string
	if tok, ok := tokenizer.Tokenize(text); ok && tok.Title != "" {
		name = tok.Title
		group = tok.ReleaseGroup
		if tok.Season != unset {
			pt.setSeason(tok.Season, unset)
		}
		if tok.BeginEpisode > 0 {
			setDecimalEpisode(pt, tok.BeginEpisode)
			if tok.EndEpisode > tok.BeginEpisode {
				pt.setEpisode(pt.BeginEpisode, int(tok.EndEpisode))
			}
		}
		if tok.Resolution != "" {
			pt.ResourcePix = normalizePix(tok.Resolution)
		}
	}

	// Fall back to bracket extraction when the tokenizer produced nothing
	// usable, or lost the CJK part of the name that the raw text carries.
	outsideBrackets := reBracketGroup.ReplaceAllString(text, " ")
	if name == "" || stringutils.IsDigits(name) ||
		(!stringutils.ContainsChinese(name) && stringutils.ContainsChinese(outsideBrackets)) {
		name, group = extractBracketName(text, group)
	}

	// Episode markers in the raw text win over tokenizer guesses: fansub
	// numbering is the one thing the convention keeps unambiguous.
	if m := reAnimeEpRange.FindStringSubmatch(text); m != nil {
		begin, _ := strconv.Atoi(m[1])
		end, _ := strconv.Atoi(m[2])
		pt.BeginEpisode, pt.EndEpisode = unset, unset
		pt.setEpisode(begin, end)
		name = strings.Replace(name, m[0], " ", 1)
	} else if m := reAnimeEpSingle.FindStringSubmatch(text); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			pt.BeginEpisode, pt.EndEpisode = unset, unset
			setDecimalEpisode(pt, f)
		}
		name = strings.Replace(name, m[0], " ", 1)
	}

	if pt.ResourcePix == "" {
		switch {
		case reAnyPix.MatchString(text):
			pt.ResourcePix = strings.ToLower(reAnyPix.FindStringSubmatch(text)[1]) + "p"
		case reAnyDimension.MatchString(text):
			pt.ResourcePix = reAnyDimension.FindStringSubmatch(text)[2] + "p"
		case re4K.MatchString(text):
			pt.ResourcePix = "2160p"
		}
	}

	if group != "" {
		pt.ResourceTeam = group
	}

	splitAnimeName(pt, name)
}

// setDecimalEpisode stores a possibly fractional fansub episode number.
// The integer part is the episode; the fraction marks a special and is
// kept as the part tag rather than invented as a second episode.
func setDecimalEpisode(pt *ParsedTitle, ep float64) {
	whole := int(ep)
	if whole <= 0 {
		return
	}
	pt.setEpisode(whole, unset)
	if frac := ep - float64(whole); frac > 0 {
		pt.Part = strings.TrimPrefix(strconv.FormatFloat(ep, 'f', 1, 64), strconv.Itoa(whole))
	}
}

// extractBracketName recovers the title from bracket-convention names the
// tokenizer gave up on: the first bracket is the group, the remainder
// outside brackets is the name.
func extractBracketName(text, group string) (string, string) {
	if group == "" {
		if m := reBracketGroup.FindStringSubmatch(text); m != nil {
			group = m[1]
		}
	}
	name := reBracketGroup.ReplaceAllString(text, " ")
	name = reAnimeEpRange.ReplaceAllString(name, " ")
	name = reAnimeEpSingle.ReplaceAllString(name, " ")
	name = strings.TrimSpace(strings.Join(strings.Fields(name), " "))
	return name, group
}

// splitAnimeName distributes the words of a mixed-script name into the
// Chinese and English name fields, preserving order. Bare digit words
// attach to whichever side the previous word went to.
func splitAnimeName(pt *ParsedTitle, name string) {
	var cn, en []string
	lastCN := false

	for _, word := range stringutils.SplitWords(name) {
		switch {
		case stringutils.IsDigits(word):
			if lastCN && len(cn) > 0 {
				cn = append(cn, word)
			} else if len(en) > 0 {
				en = append(en, word)
			}
		case stringutils.ContainsChinese(word):
			cn = append(cn, stringutils.Simplified(word))
			lastCN = true
		default:
			en = append(en, word)
			lastCN = false
		}
	}

	if pt.CNName == "" {
		pt.CNName = strings.Join(cn, "")
	}
	if pt.ENName == "" {
		pt.ENName = strings.Join(en, " ")
	}
}
