// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package search fans a query out across configured sources, gating
// each source behind its rate limits and folding unit results together.
package search

import (
	"fmt"
	"sync"
	"time"

	"github.com/aggregarr/aggregarr/internal/models"
)

// Limits is the per-source rate configuration: an optional sliding
// window (WindowCount requests per WindowSeconds) and an optional fixed
// cooldown since the last allowed request. Zero values disable a gate.
type Limits struct {
	WindowCount     int
	WindowSeconds   int
	CooldownSeconds int
}

// LimitsFor reads a source's configured limits.
func LimitsFor(source *models.Source) Limits {
	return Limits{
		WindowCount:     source.LimitCount,
		WindowSeconds:   source.LimitIntervalSeconds,
		CooldownSeconds: source.LimitCooldownSeconds,
	}
}

type sourceRateState struct {
	// allowed holds the timestamps of requests admitted inside the
	// current window, oldest first.
	allowed []time.Time
	last    time.Time
}

// RateLimiter tracks per-source request admission. CheckAndRecord never
// blocks; a limited source is skipped for the round, not queued.
type RateLimiter struct {
	mu     sync.Mutex
	states map[int]*sourceRateState
	now    func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		states: make(map[int]*sourceRateState),
		now:    time.Now,
	}
}

// CheckAndRecord admits or rejects one request for sourceID under
// limits. An admitted request is recorded immediately; concurrent
// callers for the same source serialize on the limiter lock.
func (l *RateLimiter) CheckAndRecord(sourceID int, limits Limits) (limited bool, message string) {
	windowed := limits.WindowCount > 0 && limits.WindowSeconds > 0
	cooled := limits.CooldownSeconds > 0
	if !windowed && !cooled {
		return false, ""
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.states[sourceID]
	if !ok {
		state = &sourceRateState{}
		l.states[sourceID] = state
	}
	now := l.now()

	if cooled && !state.last.IsZero() {
		cooldown := time.Duration(limits.CooldownSeconds) * time.Second
		if elapsed := now.Sub(state.last); elapsed < cooldown {
			return true, fmt.Sprintf("cooldown: %.0fs of %ds elapsed", elapsed.Seconds(), limits.CooldownSeconds)
		}
	}

	if windowed {
		cutoff := now.Add(-time.Duration(limits.WindowSeconds) * time.Second)
		keep := state.allowed[:0]
		for _, t := range state.allowed {
			if t.After(cutoff) {
				keep = append(keep, t)
			}
		}
		state.allowed = keep

		if len(state.allowed) >= limits.WindowCount {
			return true, fmt.Sprintf("window: %d requests in %ds", len(state.allowed), limits.WindowSeconds)
		}
		state.allowed = append(state.allowed, now)
	}

	state.last = now
	return false, ""
}

// Reset clears the recorded state for a source, used when its limit
// configuration changes.
func (l *RateLimiter) Reset(sourceID int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.states, sourceID)
}
