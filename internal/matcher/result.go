// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package matcher

import (
	"time"

	"github.com/aggregarr/aggregarr/internal/metainfo"
	"github.com/aggregarr/aggregarr/internal/models"
)

// MatchResult is one accepted listing with its parsed metadata and the
// listing fields downstream selection ranks on.
type MatchResult struct {
	metainfo.ParsedTitle

	SourceID   int    `json:"sourceId"`
	SourceName string `json:"sourceName"`
	// SiteOrder is the dispatch order, 100 minus the source priority;
	// lower sorts first.
	SiteOrder int `json:"siteOrder"`

	Enclosure   string `json:"enclosure"`
	PageURL     string `json:"pageUrl,omitempty"`
	Description string `json:"description,omitempty"`

	// RulePriority is the quality-rule priority, lower is better.
	RulePriority int    `json:"rulePriority"`
	RuleName     string `json:"ruleName,omitempty"`

	Size           int64     `json:"size"`
	Seeders        int       `json:"seeders"`
	Peers          int       `json:"peers"`
	Grabs          int       `json:"grabs"`
	UploadFactor   float64   `json:"uploadFactor"`
	DownloadFactor float64   `json:"downloadFactor"`
	PublishDate    time.Time `json:"publishDate"`

	// MediaID is the matched canonical id, 0 in discovery mode.
	MediaID int64 `json:"mediaId,omitempty"`
}

func newMatchResult(source *models.Source, raw *models.RawListing, parsed *metainfo.ParsedTitle, rulePriority int, ruleName string) *MatchResult {
	return &MatchResult{
		ParsedTitle:    *parsed,
		SourceID:       source.ID,
		SourceName:     source.Name,
		SiteOrder:      100 - source.Priority,
		Enclosure:      raw.Enclosure,
		PageURL:        raw.PageURL,
		Description:    raw.Description,
		RulePriority:   rulePriority,
		RuleName:       ruleName,
		Size:           raw.Size,
		Seeders:        raw.Seeders,
		Peers:          raw.Peers,
		Grabs:          raw.Grabs,
		UploadFactor:   raw.UploadFactor,
		DownloadFactor: raw.DownloadFactor,
		PublishDate:    raw.PublishDate,
	}
}
