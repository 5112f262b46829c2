// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package search

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_SlidingWindow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := NewRateLimiter()
	limiter.now = func() time.Time { return now }

	limits := Limits{WindowCount: 3, WindowSeconds: 60}

	for i := 0; i < 3; i++ {
		limited, _ := limiter.CheckAndRecord(1, limits)
		assert.False(t, limited, "call %d inside the window must pass", i+1)
		now = now.Add(time.Second)
	}

	limited, msg := limiter.CheckAndRecord(1, limits)
	assert.True(t, limited, "call N+1 within the window must be limited")
	assert.NotEmpty(t, msg)

	// Once the window start slides past the first call, capacity frees up.
	now = now.Add(61 * time.Second)
	limited, _ = limiter.CheckAndRecord(1, limits)
	assert.False(t, limited)
}

func TestRateLimiter_Cooldown(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := NewRateLimiter()
	limiter.now = func() time.Time { return now }

	limits := Limits{CooldownSeconds: 30}

	limited, _ := limiter.CheckAndRecord(1, limits)
	assert.False(t, limited)

	now = now.Add(10 * time.Second)
	limited, _ = limiter.CheckAndRecord(1, limits)
	assert.True(t, limited)

	now = now.Add(30 * time.Second)
	limited, _ = limiter.CheckAndRecord(1, limits)
	assert.False(t, limited)
}

func TestRateLimiter_SourcesIndependent(t *testing.T) {
	limiter := NewRateLimiter()
	limits := Limits{WindowCount: 1, WindowSeconds: 60}

	limited, _ := limiter.CheckAndRecord(1, limits)
	assert.False(t, limited)
	limited, _ = limiter.CheckAndRecord(2, limits)
	assert.False(t, limited, "a second source has its own window")
	limited, _ = limiter.CheckAndRecord(1, limits)
	assert.True(t, limited)

	limiter.Reset(1)
	limited, _ = limiter.CheckAndRecord(1, limits)
	assert.False(t, limited)
}

func TestRateLimiter_NoLimitsConfigured(t *testing.T) {
	limiter := NewRateLimiter()
	for i := 0; i < 100; i++ {
		limited, _ := limiter.CheckAndRecord(1, Limits{})
		assert.False(t, limited)
	}
}

func TestRateLimiter_ConcurrentAccess(t *testing.T) {
	limiter := NewRateLimiter()
	limits := Limits{WindowCount: 10, WindowSeconds: 60}

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limited, _ := limiter.CheckAndRecord(1, limits); !limited {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, admitted, "exactly the window capacity is admitted")
}

func TestProgress(t *testing.T) {
	var mu sync.Mutex
	var updates [][2]int

	progress := NewProgress(3, func(completed, total int, _ string) {
		mu.Lock()
		updates = append(updates, [2]int{completed, total})
		mu.Unlock()
	})

	assert.Equal(t, 0, progress.Percent())
	progress.Done("one")
	assert.Equal(t, 33, progress.Percent())
	progress.Done("two")
	assert.Equal(t, 67, progress.Percent())
	progress.Done("three")
	assert.Equal(t, 100, progress.Percent())

	completed, total, message := progress.Snapshot()
	assert.Equal(t, 3, completed)
	assert.Equal(t, 3, total)
	assert.Equal(t, "three", message)
	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, updates)
}

func TestExtractKeyword(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		clean   string
		season  int
		episode int
	}{
		{name: "plain", in: "example show", clean: "example show"},
		{name: "season phrase", in: "莲花楼 第2季", clean: "莲花楼", season: 2},
		{name: "chinese numeral season", in: "奔跑吧 第十二季", clean: "奔跑吧", season: 12},
		{name: "episode phrase", in: "莲花楼 第5集", clean: "莲花楼", episode: 5},
		{name: "both", in: "莲花楼 第2季 第5集", clean: "莲花楼", season: 2, episode: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clean, season, episode := ExtractKeyword(tt.in)
			assert.Equal(t, tt.clean, clean)
			assert.Equal(t, tt.season, season)
			assert.Equal(t, tt.episode, episode)
		})
	}
}
