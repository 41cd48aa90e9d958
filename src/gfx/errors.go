// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import "github.com/cockroachdb/errors"

// Results that are not failures by themselves, backends return
// them as is so callers can compare with errors.Is.
var (
	// ErrOutOfDate means the surface changed and the swapchain
	// can no longer be presented to.
	ErrOutOfDate = errors.New("swapchain out of date")

	// ErrSuboptimal means the swapchain still works but no longer
	// matches the surface exactly.
	ErrSuboptimal = errors.New("swapchain suboptimal")

	// ErrTimeout means a wait did not complete in time.
	ErrTimeout = errors.New("wait timed out")
)
