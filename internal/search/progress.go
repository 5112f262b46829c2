// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package search

import (
	"math"
	"sync"
)

// ProgressFunc receives completion updates as units finish.
type ProgressFunc func(completed, total int, message string)

// Progress is the shared completion counter for one search round.
// Completed only moves forward; units update it concurrently.
type Progress struct {
	mu        sync.Mutex
	completed int
	total     int
	message   string
	notify    ProgressFunc
}

func NewProgress(total int, notify ProgressFunc) *Progress {
	return &Progress{total: total, notify: notify}
}

// Done marks one unit finished and pushes the update to the observer.
func (p *Progress) Done(message string) {
	p.mu.Lock()
	p.completed++
	p.message = message
	completed, total, notify := p.completed, p.total, p.notify
	p.mu.Unlock()

	if notify != nil {
		notify(completed, total, message)
	}
}

// Snapshot returns the current counts and last message.
func (p *Progress) Snapshot() (completed, total int, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completed, p.total, p.message
}

// Percent returns the rounded completion percentage.
func (p *Progress) Percent() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.total == 0 {
		return 0
	}
	return int(math.Round(float64(p.completed) / float64(p.total) * 100))
}
