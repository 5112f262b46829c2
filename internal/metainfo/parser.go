// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package metainfo turns free-text release titles into structured
// metadata: name (split by script), year, type, season/episode ranges
// and encode/resolution/group tags.
package metainfo

import (
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/aggregarr/aggregarr/pkg/stringutils"
)

// Hint carries caller-supplied context derived from outside the title
// itself, e.g. a parent directory name. Hint values only fill fields the
// title did not provide; they never overwrite a parsed value.
type Hint struct {
	Type        MediaType
	Year        string
	BeginSeason int
}

// Parser is the free-text title parser. Construct once and share; it is
// stateless apart from its configuration.
type Parser struct {
	rules     LexicalRules
	tokenizer AnimeTokenizer
	log       zerolog.Logger
}

type ParserOption func(*Parser)

// WithLexicalRules replaces the default built-in word table.
func WithLexicalRules(rules LexicalRules) ParserOption {
	return func(p *Parser) {
		p.rules = rules
	}
}

// WithAnimeTokenizer replaces the default rls-backed anime tokenizer.
func WithAnimeTokenizer(t AnimeTokenizer) ParserOption {
	return func(p *Parser) {
		p.tokenizer = t
	}
}

func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{
		tokenizer: NewAnimeTokenizer(),
		log:       log.Logger.With().Str("module", "metainfo").Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.rules == nil {
		// Built-in denylist only; LoadWordTable failures are impossible
		// with no user rules.
		p.rules, _ = NewWordTable(nil)
	}
	return p
}

// Parse converts a release title (and optional subtitle/description line)
// into a ParsedTitle. It never fails: garbage input yields a ParsedTitle
// with empty name fields that callers treat as unparseable.
func (p *Parser) Parse(title, subtitle string) *ParsedTitle {
	return p.ParseWithHint(title, subtitle, nil)
}

// ParseWithHint is Parse plus inheritance of caller context for fields
// the title itself does not carry.
func (p *Parser) ParseWithHint(title, subtitle string, hint *Hint) *ParsedTitle {
	pt := newParsedTitle(title)
	title = strings.TrimSpace(title)
	if title == "" {
		return pt
	}

	// Classification reads the raw text: lexical substitution may strip
	// the very bracket headers the heuristic keys on.
	anime := classifyAnime(title)

	processed, fired := p.rules.Apply(title)
	pt.Processed = processed
	for _, rule := range fired {
		pt.AppliedRules = append(pt.AppliedRules, rule.Name)
	}

	if anime {
		parseAnime(pt, p.tokenizer, processed)
	} else {
		parseStandard(pt, processed)

		// A year token can mask episode markers by terminating the name
		// scan early. When a TV parse found a year but no episode, retry
		// without the year and stitch it back on.
		if pt.Type == TypeTV && pt.Year != "" && !pt.HasEpisode() {
			retry := newParsedTitle(title)
			parseStandard(retry, strings.Replace(processed, pt.Year, " ", 1))
			if retry.HasEpisode() {
				retry.Year = pt.Year
				retry.Original = pt.Original
				retry.Processed = pt.Processed
				retry.AppliedRules = pt.AppliedRules
				pt = retry
			}
		}
	}

	p.applySubtitle(pt, subtitle)
	p.applyOffsets(pt, fired)
	p.applyHint(pt, hint)

	p.log.Trace().
		Str("title", title).
		Str("name", pt.Name()).
		Str("type", pt.Type.String()).
		Str("season", pt.SeasonString()).
		Str("episode", pt.EpisodeString()).
		Msg("parsed release title")

	return pt
}

// applySubtitle pulls season/episode phrases out of the description line
// when the title itself had none. Subtitles on CJK trackers routinely
// carry 第N季/第N集 that the uploader left out of the filename.
func (p *Parser) applySubtitle(pt *ParsedTitle, subtitle string) {
	subtitle = strings.TrimSpace(subtitle)
	if subtitle == "" {
		return
	}

	// Subtitles go through the same lexical substitution as titles: a
	// replace rule may be what produces the 第N季 phrase in the first
	// place.
	var fired []AppliedRule
	subtitle, fired = p.rules.Apply(subtitle)
	for _, rule := range fired {
		pt.AppliedRules = append(pt.AppliedRules, rule.Name)
	}

	if !pt.HasSeason() {
		if m := reCNSeason.FindStringSubmatch(subtitle); m != nil {
			if n, ok := stringutils.ChineseToInt(m[1]); ok {
				pt.setSeason(n, unset)
				if pt.Type == TypeUnknown || pt.Type == TypeMovie {
					pt.Type = TypeTV
				}
			}
		}
	}
	if !pt.HasEpisode() {
		if m := reCNEpisode.FindStringSubmatch(subtitle); m != nil {
			if n, ok := stringutils.ChineseToInt(m[1]); ok {
				pt.setEpisode(n, unset)
				if pt.Type == TypeUnknown || pt.Type == TypeMovie {
					pt.Type = TypeTV
				}
			}
		}
	}
}

func (p *Parser) applyOffsets(pt *ParsedTitle, fired []AppliedRule) {
	for _, rule := range fired {
		if rule.EpisodeOffset == 0 || !pt.HasEpisode() {
			continue
		}
		pt.BeginEpisode += rule.EpisodeOffset
		if pt.EndEpisode != unset {
			pt.EndEpisode += rule.EpisodeOffset
		}
		if pt.BeginEpisode < 1 {
			pt.BeginEpisode = 1
		}
	}
}

func (p *Parser) applyHint(pt *ParsedTitle, hint *Hint) {
	if hint == nil {
		return
	}
	if pt.Type == TypeUnknown && hint.Type != TypeUnknown {
		pt.Type = hint.Type
	}
	if pt.Year == "" && hint.Year != "" {
		pt.Year = hint.Year
	}
	if !pt.HasSeason() && hint.BeginSeason > 0 {
		pt.setSeason(hint.BeginSeason, unset)
	}
}
