// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metainfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_StandardSeasonEpisode(t *testing.T) {
	p := NewParser()

	pt := p.Parse("Example.Show.S02E05.1080p.WEB-DL.x264-GROUP", "")

	assert.Equal(t, "Example Show", pt.ENName)
	assert.Equal(t, TypeTV, pt.Type)
	assert.Equal(t, 2, pt.BeginSeason)
	assert.Equal(t, 5, pt.BeginEpisode)
	assert.Equal(t, "1080p", pt.ResourcePix)
	assert.Equal(t, "x264", pt.VideoEncode)
	assert.Equal(t, "GROUP", pt.ResourceTeam)
	assert.Equal(t, "S02", pt.SeasonString())
	assert.Equal(t, "E05", pt.EpisodeString())
}

func TestParse_SeasonEpisodeTokens(t *testing.T) {
	p := NewParser()

	tests := []struct {
		name        string
		title       string
		wantSeason  int
		wantBeginEp int
		wantEndEp   int
		wantTotal   int
	}{
		{
			name:        "single episode",
			title:       "Some.Show.S01E03.720p.HDTV.x264-TEAM",
			wantSeason:  1,
			wantBeginEp: 3,
			wantEndEp:   unset,
			wantTotal:   1,
		},
		{
			name:        "episode range",
			title:       "Some.Show.S01.E01-E12.1080p.WEB-DL.x265-TEAM",
			wantSeason:  1,
			wantBeginEp: 1,
			wantEndEp:   12,
			wantTotal:   12,
		},
		{
			name:        "combined range",
			title:       "Some.Show.S02E05-E08.2160p.WEB-DL-TEAM",
			wantSeason:  2,
			wantBeginEp: 5,
			wantEndEp:   8,
			wantTotal:   4,
		},
		{
			name:        "chinese season phrase",
			title:       "示例剧集 第二季 E07 1080p",
			wantSeason:  2,
			wantBeginEp: 7,
			wantEndEp:   unset,
			wantTotal:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pt := p.Parse(tt.title, "")
			require.Equal(t, TypeTV, pt.Type)
			assert.Equal(t, tt.wantSeason, pt.BeginSeason)
			assert.Equal(t, tt.wantBeginEp, pt.BeginEpisode)
			assert.Equal(t, tt.wantEndEp, pt.EndEpisode)
			assert.Equal(t, tt.wantTotal, pt.TotalEpisodes)
			assert.GreaterOrEqual(t, pt.TotalEpisodes, 1)
		})
	}
}

func TestParse_YearMaskedEpisode(t *testing.T) {
	p := NewParser()

	// The glued 2020E05 token is invisible to the first scan; the episode
	// only surfaces once the year is removed and the parse retried.
	pt := p.Parse("Example Show S02 2020E05 2020 1080p WEB-DL-TEAM", "")

	require.Equal(t, TypeTV, pt.Type)
	assert.Equal(t, "Example Show", pt.ENName)
	assert.Equal(t, 2, pt.BeginSeason)
	assert.Equal(t, 5, pt.BeginEpisode)
	assert.Equal(t, "2020", pt.Year)
	assert.Equal(t, "Example Show S02 2020E05 2020 1080p WEB-DL-TEAM", pt.Original)
}

func TestParse_BareYearIsMovie(t *testing.T) {
	p := NewParser()

	pt := p.Parse("Some.Movie.2019.1080p.BluRay.x264-TEAM", "")

	assert.Equal(t, TypeMovie, pt.Type)
	assert.Equal(t, "2019", pt.Year)
	assert.Equal(t, "Some Movie", pt.ENName)
	assert.False(t, pt.HasSeason())
	assert.False(t, pt.HasEpisode())
}

func TestParse_EmptyAndGarbage(t *testing.T) {
	p := NewParser()

	tests := []struct {
		name  string
		title string
	}{
		{name: "empty", title: ""},
		{name: "whitespace", title: "   "},
		{name: "punctuation only", title: "---...---"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pt := p.Parse(tt.title, "")
			require.NotNil(t, pt)
			assert.True(t, pt.IsUnparsed())
		})
	}
}

func TestParse_ResolutionNormalization(t *testing.T) {
	p := NewParser()

	tests := []struct {
		name  string
		title string
		want  string
	}{
		{name: "4k maps to 2160p", title: "Some.Movie.2020.4K.WEB-DL-TEAM", want: "2160p"},
		{name: "dimension takes height", title: "Some.Movie.2020.1920x1080.WEB-DL-TEAM", want: "1080p"},
		{name: "plain token", title: "Some.Movie.2020.720p.BluRay-TEAM", want: "720p"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pt := p.Parse(tt.title, "")
			assert.Equal(t, tt.want, pt.ResourcePix)
		})
	}
}

func TestParse_SubtitleSeasonEpisode(t *testing.T) {
	p := NewParser()

	pt := p.Parse("示例剧集 1080p WEB-DL", "示例剧集 第二季 第5集 中字")

	assert.Equal(t, TypeTV, pt.Type)
	assert.Equal(t, 2, pt.BeginSeason)
	assert.Equal(t, 5, pt.BeginEpisode)
}

func TestParse_SubtitleLexicalRules(t *testing.T) {
	table, err := NewWordTable([]WordRule{
		{Name: "subtitle-season", Match: "Season Two", Replace: "第二季"},
	})
	require.NoError(t, err)

	p := NewParser(WithLexicalRules(table))
	pt := p.Parse("示例剧集 1080p WEB-DL", "示例剧集 Season Two 第5集 中字")

	assert.Equal(t, TypeTV, pt.Type)
	assert.Equal(t, 2, pt.BeginSeason)
	assert.Equal(t, 5, pt.BeginEpisode)
	assert.Contains(t, pt.AppliedRules, "subtitle-season")
}

func TestParse_HintNeverOverwrites(t *testing.T) {
	p := NewParser()

	pt := p.ParseWithHint("Some.Show.S03E01.1080p.WEB-DL-TEAM", "", &Hint{
		Type:        TypeMovie,
		Year:        "2018",
		BeginSeason: 1,
	})

	// Hint fills only absent fields.
	assert.Equal(t, TypeTV, pt.Type)
	assert.Equal(t, 3, pt.BeginSeason)
	assert.Equal(t, "2018", pt.Year)
}

func TestClassifyAnime(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  bool
	}{
		{name: "cn fansub header", title: "【X-II】 【title】 more", want: true},
		{name: "isolated episode marker", title: "[Sub] Title - 12 [720p]", want: true},
		{name: "standard sxxexx wins", title: "Example.Show.S02E05.1080p.WEB-DL.x264-GROUP", want: false},
		{name: "plain movie", title: "Some.Movie.2019.1080p.BluRay.x264-TEAM", want: false},
		{name: "empty", title: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyAnime(tt.title))
		})
	}
}

func TestWordTable(t *testing.T) {
	t.Run("builtin denylist fires", func(t *testing.T) {
		table, err := NewWordTable(nil)
		require.NoError(t, err)

		out, fired := table.Apply("www.example.com Some.Movie.2019.1080p")
		assert.NotContains(t, out, "www.example.com")
		assert.NotEmpty(t, fired)
	})

	t.Run("replace rule", func(t *testing.T) {
		table, err := NewWordTable([]WordRule{
			{Name: "alias", Match: "Show Alias", Replace: "Real Show"},
		})
		require.NoError(t, err)

		out, fired := table.Apply("Show Alias S01E01")
		assert.Contains(t, out, "Real Show")
		require.Len(t, fired, 1)
		assert.Equal(t, "alias", fired[0].Name)
	})

	t.Run("offset shifts parsed episodes", func(t *testing.T) {
		table, err := NewWordTable([]WordRule{
			{Name: "renumber", Match: "Offset Show", Offset: -24},
		})
		require.NoError(t, err)

		p := NewParser(WithLexicalRules(table))
		pt := p.Parse("Offset Show S02E30 1080p WEB-DL-TEAM", "")
		assert.Equal(t, 6, pt.BeginEpisode)
	})

	t.Run("invalid regex rejected", func(t *testing.T) {
		_, err := NewWordTable([]WordRule{{Name: "bad", Match: "(", Regex: true}})
		assert.Error(t, err)
	})
}

func TestParsedTitle_DedupKey(t *testing.T) {
	p := NewParser()

	a := p.Parse("Example.Show.S02E05.1080p.WEB-DL.x264-GROUP", "")
	b := p.Parse("Example Show S02E05 720p HDTV-OTHER", "")
	c := p.Parse("Example.Show.S02E06.1080p.WEB-DL.x264-GROUP", "")

	assert.Equal(t, a.DedupKey(), b.DedupKey())
	assert.NotEqual(t, a.DedupKey(), c.DedupKey())
}
