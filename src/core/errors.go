// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import "github.com/cockroachdb/errors"

var (
	// ErrNoViableDevice is returned when no enumerated GPU can
	// drive the surface with the required extensions and features.
	ErrNoViableDevice = errors.New("no viable physical device")

	// ErrNoDevices is returned when the instance enumerates no GPU at all.
	// It is marked as ErrNoViableDevice.
	ErrNoDevices = errors.Mark(errors.New("no physical devices"), ErrNoViableDevice)

	// ErrNoMemoryType means no memory type satisfies a resource.
	ErrNoMemoryType = errors.New("suitable memory type not found")

	// ErrHandleOutOfRange is returned for handles past the end of a container.
	ErrHandleOutOfRange = errors.New("handle out of range")

	// ErrStaleHandle is returned for handles to removed resources.
	ErrStaleHandle = errors.New("stale handle")

	// ErrEmptyBuffer rejects zero-sized buffers.
	ErrEmptyBuffer = errors.New("buffer has no contents")

	// ErrNotInitialised is returned by renderer calls made before
	// Initialise or after Destroy.
	ErrNotInitialised = errors.New("renderer not initialised")

	// ErrInvalidConfiguration is returned by Configuration.Validate.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)
