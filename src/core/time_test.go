// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/vkmol/src/core"
)

func TestTimeTickers(t *testing.T) {
	c := qt.New(t)

	tm := core.NewTime(core.TimeConfiguration{FramesPerSecond: 1000, EventPollDelay: 1})
	defer tm.Stop()
	c.Assert(tm.Fps(), qt.Equals, 1000)

	for _, ticker := range []*time.Ticker{tm.FpsTicker(), tm.EventTicker()} {
		select {
		case <-ticker.C:
		case <-time.After(5 * time.Second):
			c.Fatal("ticker did not tick")
		}
	}
}

func TestTimeUnlimited(t *testing.T) {
	c := qt.New(t)

	tm := core.NewTime(core.TimeConfiguration{FramesPerSecond: 0, EventPollDelay: 0})
	c.Assert(tm.Fps(), qt.Equals, 0)
	select {
	case <-tm.FpsTicker().C:
	case <-time.After(5 * time.Second):
		c.Fatal("unlimited ticker did not tick")
	}
	tm.Stop()
}

func TestHRClock(t *testing.T) {
	c := qt.New(t)

	clock := core.NewHRClock()
	first := clock.Elapsed()
	time.Sleep(time.Millisecond)
	second := clock.Elapsed()
	c.Assert(first >= 0, qt.IsTrue)
	c.Assert(second > first, qt.IsTrue, qt.Commentf("%v then %v", first, second))
}
