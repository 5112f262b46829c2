// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package scraper fetches raw listings from configured sources over
// their Torznab-compatible endpoints.
package scraper

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/aggregarr/aggregarr/internal/models"
)

const maxResponseBytes int64 = 32 << 20

// TorznabScraper queries a source's Torznab api endpoint and converts
// the RSS feed into raw listings.
type TorznabScraper struct {
	httpClient *http.Client
	userAgent  string
	log        zerolog.Logger
}

type Option func(*TorznabScraper)

func WithHTTPClient(client *http.Client) Option {
	return func(s *TorznabScraper) {
		s.httpClient = client
	}
}

func WithUserAgent(ua string) Option {
	return func(s *TorznabScraper) {
		s.userAgent = ua
	}
}

func NewTorznabScraper(opts ...Option) *TorznabScraper {
	s := &TorznabScraper{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		userAgent:  "aggregarr",
		log:        log.Logger.With().Str("module", "scraper").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search runs one query variant against a source. The source's Domain
// holds the endpoint; an apikey query parameter embedded there is
// preserved on every request.
func (s *TorznabScraper) Search(ctx context.Context, source *models.Source, query, mode string) ([]*models.RawListing, error) {
	endpoint, err := s.buildURL(source, query, mode)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Accept", "application/rss+xml, application/xml, text/xml")
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", source.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("search %s returned status %d", source.Name, resp.StatusCode)
	}

	var feed rssFeed
	decoder := xml.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes))
	if err := decoder.Decode(&feed); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", source.Name, err)
	}

	listings := convertFeed(source, &feed)
	s.log.Debug().
		Str("source", source.Name).
		Str("mode", mode).
		Int("listings", len(listings)).
		Msg("Fetched listings")

	return listings, nil
}

func (s *TorznabScraper) buildURL(source *models.Source, query, mode string) (string, error) {
	raw := strings.TrimSpace(source.Domain)
	if raw == "" {
		return "", fmt.Errorf("source %s has no endpoint configured", source.Name)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse endpoint for %s: %w", source.Name, err)
	}
	if parsed.Path == "" || parsed.Path == "/" {
		parsed.Path = "/api"
	}

	values := parsed.Query()
	values.Set("t", "search")
	switch mode {
	case models.SearchModeIMDB:
		values.Set("imdbid", strings.TrimPrefix(query, "tt"))
	default:
		values.Set("q", query)
	}
	parsed.RawQuery = values.Encode()

	return parsed.String(), nil
}

type rssFeed struct {
	Channel struct {
		Title string    `xml:"title"`
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	GUID        string `xml:"guid"`
	Comments    string `xml:"comments"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	Size        string `xml:"size"`
	Enclosure   struct {
		URL string `xml:"url,attr"`
	} `xml:"enclosure"`
	Attrs []struct {
		Name  string `xml:"name,attr"`
		Value string `xml:"value,attr"`
	} `xml:"attr"`
}

func convertFeed(source *models.Source, feed *rssFeed) []*models.RawListing {
	listings := make([]*models.RawListing, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		listing := &models.RawListing{
			Title:          item.Title,
			Description:    item.Description,
			Enclosure:      item.Enclosure.URL,
			PageURL:        item.Comments,
			SourceID:       source.ID,
			UploadFactor:   1.0,
			DownloadFactor: 1.0,
		}
		if listing.PageURL == "" {
			listing.PageURL = item.GUID
		}

		if size, err := strconv.ParseInt(item.Size, 10, 64); err == nil {
			listing.Size = size
		}

		if item.PubDate != "" {
			if t, err := time.Parse(time.RFC1123Z, item.PubDate); err == nil {
				listing.PublishDate = t
			} else if t, err := time.Parse(time.RFC1123, item.PubDate); err == nil {
				listing.PublishDate = t
			}
		}

		for _, attr := range item.Attrs {
			name := strings.ToLower(strings.TrimSpace(attr.Name))
			switch name {
			case "seeders":
				if v, err := strconv.Atoi(attr.Value); err == nil {
					listing.Seeders = v
				}
			case "peers":
				if v, err := strconv.Atoi(attr.Value); err == nil {
					listing.Peers = v
				}
			case "grabs":
				if v, err := strconv.Atoi(attr.Value); err == nil {
					listing.Grabs = v
				}
			case "size":
				if v, err := strconv.ParseInt(attr.Value, 10, 64); err == nil && listing.Size == 0 {
					listing.Size = v
				}
			case "uploadvolumefactor":
				if v, err := strconv.ParseFloat(attr.Value, 64); err == nil {
					listing.UploadFactor = v
				}
			case "downloadvolumefactor":
				if v, err := strconv.ParseFloat(attr.Value, 64); err == nil {
					listing.DownloadFactor = v
				}
			case "imdb", "imdbid":
				id := attr.Value
				if id != "" && !strings.HasPrefix(id, "tt") {
					id = "tt" + id
				}
				listing.IMDBID = id
			case "category", "genre":
				if attr.Value != "" {
					listing.Labels = append(listing.Labels, attr.Value)
				}
			}
		}

		listings = append(listings, listing)
	}
	return listings
}
