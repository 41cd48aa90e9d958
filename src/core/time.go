// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"time"

	"github.com/loov/hrtime"
)

// Clock measures time elapsed since the renderer started.
type Clock interface {
	Elapsed() time.Duration
}

// NewHRClock returns a Clock starting now.
func NewHRClock() *HRClock {
	return &HRClock{start: hrtime.Now()}
}

// HRClock is a high resolution Clock.
type HRClock struct {
	start time.Duration
}

// Elapsed implements Clock.
func (c *HRClock) Elapsed() time.Duration {
	return hrtime.Since(c.start)
}

// NewTime creates a new time service
func NewTime(cfg TimeConfiguration) *Time {
	var interval time.Duration
	if cfg.FramesPerSecond == 0 {
		interval = time.Nanosecond
	} else {
		interval = time.Second / time.Duration(cfg.FramesPerSecond)
	}

	pollDelay := time.Duration(cfg.EventPollDelay) * time.Millisecond
	if pollDelay <= 0 {
		pollDelay = time.Millisecond
	}

	return &Time{
		fps:         cfg.FramesPerSecond,
		fpsTicker:   time.NewTicker(interval),
		eventTicker: time.NewTicker(pollDelay),
	}
}

// Time contains all the time services and tickers
type Time struct {
	fps       int
	fpsTicker *time.Ticker

	eventTicker *time.Ticker
}

// Fps gets the set frames per second
func (t *Time) Fps() int {
	return t.fps
}

// FpsTicker gets the initialized fps ticker
func (t *Time) FpsTicker() *time.Ticker {
	return t.fpsTicker
}

// EventTicker gets the initialized event ticker for the event loop
func (t *Time) EventTicker() *time.Ticker {
	return t.eventTicker
}

// Stop stops both tickers.
func (t *Time) Stop() {
	t.fpsTicker.Stop()
	t.eventTicker.Stop()
}
