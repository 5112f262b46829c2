// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import "time"

// RawListing is one scraped candidate record as produced by a source's
// scraping adapter, before parsing. Immutable once produced.
type RawListing struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Enclosure   string    `json:"enclosure"`
	PageURL     string    `json:"pageUrl"`
	Size        int64     `json:"size"`
	Seeders     int       `json:"seeders"`
	Peers       int       `json:"peers"`
	Grabs       int       `json:"grabs"`
	PublishDate time.Time `json:"publishDate"`
	Labels      []string  `json:"labels,omitempty"`
	IMDBID      string    `json:"imdbId,omitempty"`

	// Promotion multipliers; 1.0 means no promotion.
	UploadFactor   float64 `json:"uploadFactor"`
	DownloadFactor float64 `json:"downloadFactor"`

	SourceID int `json:"sourceId"`
}
