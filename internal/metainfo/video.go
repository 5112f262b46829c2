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

// Standard sub-parser: order-insensitive token scan over a scene-style
// release name. Each recognized token class is extracted independently;
// everything before the first recognized token is the name.

var (
	reYearToken      = regexp.MustCompile(`^(19\d{2}|20\d{2})$`)
	reSeasonEpToken  = regexp.MustCompile(`(?i)^S(\d{1,2})E(\d{1,4})(?:-?E(\d{1,4}))?$`)
	reSeasonToken    = regexp.MustCompile(`(?i)^S(\d{1,2})(?:-?S(\d{1,2}))?$`)
	reEpisodeToken   = regexp.MustCompile(`(?i)^EP?(\d{1,4})(?:-?EP?(\d{1,4}))?$`)
	rePixToken       = regexp.MustCompile(`(?i)^(\d{3,4})[pi]$`)
	reDimensionToken = regexp.MustCompile(`(?i)^(\d{3,4})x(\d{3,4})$`)
	reVideoToken     = regexp.MustCompile(`(?i)^(x264|x265|x266|h264|h265|h266|hevc|avc|av1|vc1|xvid|divx|mpeg2)$`)
	reAudioToken     = regexp.MustCompile(`(?i)^(aac|ac3|eac3|dts|dtshd|dts-hd|truehd|flac|dd|ddp|atmos|opus|mp3|lpcm|2audio|ma)$`)
	rePartToken      = regexp.MustCompile(`(?i)^(part\d{0,2}|cd\d{1,2}|dvd\d{1,2}|disc\d{1,2})$`)
	reSourceToken    = regexp.MustCompile(`(?i)^(bluray|blu-ray|bdrip|brrip|web-dl|webdl|webrip|web|hdtv|dvdrip|dvd|remux|uhd|hdr|hdr10|hdr10\+|dv|dovi|sdr|hq|repack|proper|complete)$`)
	reTeamSuffix     = regexp.MustCompile(`-([A-Za-z0-9@&]+)$`)
	reTrailingTag    = regexp.MustCompile(`\[[^\[\]]*\]\s*$`)

	// CJK season/episode phrases, extracted before tokenization.
	reCNSeason  = regexp.MustCompile(`第\s*([0-9一二三四五六七八九十百零两]+)\s*季`)
	reCNEpisode = regexp.MustCompile(`第\s*([0-9一二三四五六七八九十百零两]+)\s*[集话話期]`)

	reTokenSplit = regexp.MustCompile(`[\[\]()\s._]+`)
)

func parseStandard(pt *ParsedTitle, text string) {
	text = stringutils.FoldWidth(text)
	text = strings.NewReplacer("【", "[", "】", "]", "（", "(", "）", ")").Replace(text)

	// CJK phrases first: they contain characters the token split would
	// otherwise glue to the name.
	if m := reCNSeason.FindStringSubmatch(text); m != nil {
		if n, ok := stringutils.ChineseToInt(m[1]); ok {
			pt.setSeason(n, unset)
		}
		text = strings.Replace(text, m[0], " ", 1)
	}
	if m := reCNEpisode.FindStringSubmatch(text); m != nil {
		if n, ok := stringutils.ChineseToInt(m[1]); ok {
			pt.setEpisode(n, unset)
		}
		text = strings.Replace(text, m[0], " ", 1)
	}

	// Release group: trailing -TEAM, after dropping decoration like [rartv].
	stripped := strings.TrimSpace(reTrailingTag.ReplaceAllString(text, ""))
	if m := reTeamSuffix.FindStringSubmatch(stripped); m != nil {
		// WEB-DL and friends end with a dash component too; those are not groups.
		if !reSourceToken.MatchString(m[1]) && !reVideoToken.MatchString(m[1]) {
			pt.ResourceTeam = m[1]
			text = strings.TrimSuffix(stripped, m[0])
		}
	}

	var cnWords, enWords []string
	nameDone := false

	for _, token := range reTokenSplit.Split(text, -1) {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		switch {
		case reSeasonEpToken.MatchString(token):
			m := reSeasonEpToken.FindStringSubmatch(token)
			season, _ := strconv.Atoi(m[1])
			begin, _ := strconv.Atoi(m[2])
			end := unset
			if m[3] != "" {
				end, _ = strconv.Atoi(m[3])
			}
			pt.setSeason(season, unset)
			pt.setEpisode(begin, end)
			nameDone = true

		case reSeasonToken.MatchString(token):
			m := reSeasonToken.FindStringSubmatch(token)
			begin, _ := strconv.Atoi(m[1])
			end := unset
			if m[2] != "" {
				end, _ = strconv.Atoi(m[2])
			}
			pt.setSeason(begin, end)
			nameDone = true

		case reEpisodeToken.MatchString(token):
			m := reEpisodeToken.FindStringSubmatch(token)
			begin, _ := strconv.Atoi(m[1])
			end := unset
			if m[2] != "" {
				end, _ = strconv.Atoi(m[2])
			}
			pt.setEpisode(begin, end)
			nameDone = true

		case reYearToken.MatchString(token):
			// Keep the last year token: a leading 4-digit number is more
			// likely part of the name than a release year.
			pt.Year = token
			nameDone = true

		case reDimensionToken.MatchString(token):
			m := reDimensionToken.FindStringSubmatch(token)
			if pt.ResourcePix == "" {
				pt.ResourcePix = m[2] + "p"
			}
			nameDone = true

		case rePixToken.MatchString(token):
			m := rePixToken.FindStringSubmatch(token)
			if pt.ResourcePix == "" {
				pt.ResourcePix = strings.ToLower(m[1] + "p")
			}
			nameDone = true

		case strings.EqualFold(token, "4k"):
			if pt.ResourcePix == "" {
				pt.ResourcePix = "2160p"
			}
			nameDone = true

		case reVideoToken.MatchString(token):
			if pt.VideoEncode == "" {
				pt.VideoEncode = strings.ToLower(token)
			}
			nameDone = true

		case reAudioToken.MatchString(token):
			if pt.AudioEncode == "" {
				pt.AudioEncode = strings.ToUpper(token)
			} else if strings.EqualFold(token, "ma") {
				pt.AudioEncode += " MA"
			}
			nameDone = true

		case rePartToken.MatchString(token):
			if pt.Part == "" {
				pt.Part = strings.ToUpper(token)
			}
			nameDone = true

		case reSourceToken.MatchString(token):
			nameDone = true

		default:
			if nameDone || !containsAlnum(token) {
				continue
			}
			if stringutils.ContainsChinese(token) {
				cnWords = append(cnWords, stringutils.Simplified(token))
			} else {
				enWords = append(enWords, token)
			}
		}
	}

	if pt.CNName == "" {
		pt.CNName = strings.Join(cnWords, "")
	}
	if pt.ENName == "" {
		pt.ENName = strings.Join(enWords, " ")
	}

	if pt.HasSeason() || pt.HasEpisode() {
		pt.Type = TypeTV
	} else if !pt.IsUnparsed() {
		pt.Type = TypeMovie
	}

	enrichFromRelease(pt)
}

// enrichFromRelease backfills fields the token scan missed from a second
// opinion by the rls tokenizer, which understands scene conventions such
// as H.264 and DTS-HD.MA.5.1 that dot-splitting destroys.
func enrichFromRelease(pt *ParsedTitle) {
	r := rls.ParseString(pt.Original)

	if pt.ResourcePix == "" && r.Resolution != "" {
		pt.ResourcePix = normalizePix(r.Resolution)
	}
	if pt.ResourceTeam == "" && r.Group != "" {
		pt.ResourceTeam = r.Group
	}
	if pt.VideoEncode == "" && len(r.Codec) > 0 {
		pt.VideoEncode = strings.ToLower(strings.Join(r.Codec, " "))
	}
	if pt.AudioEncode == "" && len(r.Audio) > 0 {
		pt.AudioEncode = strings.Join(r.Audio, " ")
	}
	if pt.Year == "" && r.Year > 0 {
		pt.Year = strconv.Itoa(r.Year)
	}
}

func containsAlnum(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r > 127 {
			return true
		}
	}
	return false
}

// normalizePix maps a resolution token to the canonical "<n>p" form.
func normalizePix(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "4k", "uhd", "2160i":
		return "2160p"
	case "8k":
		return "4320p"
	}
	if m := reDimensionToken.FindStringSubmatch(s); m != nil {
		return m[2] + "p"
	}
	if m := rePixToken.FindStringSubmatch(s); m != nil {
		return m[1] + "p"
	}
	return s
}
