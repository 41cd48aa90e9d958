// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/devblok/vkmol/src/gfx"
	"github.com/google/uuid"
)

// Device class scores, the largest limits break ties within a class.
// The limits bonus stays below the smallest gap between classes.
const (
	scoreDiscrete   = 1000
	scoreIntegrated = 100
	scoreVirtual    = 10

	maxLimitsBonus = scoreVirtual - 1
)

// Requirements are what a physical device must offer to be used.
type Requirements struct {
	Extensions []string
	Features   gfx.Features
}

// Candidate is the verdict of probing a single physical device.
type Candidate struct {
	Device gfx.PhysicalDevice `json:"-"`

	// Index is the position of the device in enumeration order.
	Index             int
	Properties        gfx.DeviceProperties
	PipelineCacheUUID uuid.UUID

	Graphics uint32
	Present  uint32

	Formats      []gfx.SurfaceFormat
	PresentModes []gfx.PresentMode
	Capabilities gfx.SurfaceCapabilities

	Score  int
	Viable bool

	// Reason explains why a device is not viable.
	Reason string `json:",omitempty"`
}

// Name is the device name.
func (c Candidate) Name() string {
	return c.Properties.Name
}

// Probe examines every device against the surface and requirements,
// returning candidates in enumeration order. Any failing query aborts
// the whole probe.
func Probe(devices []gfx.PhysicalDevice, surface gfx.Surface, req Requirements) ([]Candidate, error) {
	candidates := make([]Candidate, 0, len(devices))
	for idx, device := range devices {
		c, err := probeDevice(idx, device, surface, req)
		if err != nil {
			return nil, errors.Wrapf(err, "probe device %d", idx)
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// Select picks the highest scoring viable candidate, the earliest
// enumerated one among equals.
func Select(candidates []Candidate) (Candidate, error) {
	if len(candidates) == 0 {
		return Candidate{}, ErrNoDevices
	}

	best := -1
	var reasons []string
	for idx, c := range candidates {
		if !c.Viable {
			reasons = append(reasons, fmt.Sprintf("%s: %s", c.Name(), c.Reason))
			continue
		}
		if best < 0 || c.Score > candidates[best].Score {
			best = idx
		}
	}
	if best < 0 {
		return Candidate{}, errors.Wrapf(ErrNoViableDevice, "%s", strings.Join(reasons, "; "))
	}
	return candidates[best], nil
}

// SelectDevice probes devices and selects the best one.
func SelectDevice(devices []gfx.PhysicalDevice, surface gfx.Surface, req Requirements) (Candidate, error) {
	candidates, err := Probe(devices, surface, req)
	if err != nil {
		return Candidate{}, err
	}
	return Select(candidates)
}

func probeDevice(idx int, device gfx.PhysicalDevice, surface gfx.Surface, req Requirements) (Candidate, error) {
	props := device.Properties()
	c := Candidate{
		Device:            device,
		Index:             idx,
		Properties:        props,
		PipelineCacheUUID: uuid.UUID(props.PipelineCacheUUID),
	}

	graphics, present, err := findQueueFamilies(device, surface)
	if err != nil {
		return c, err
	}
	if graphics < 0 {
		return c.reject("no graphics queue family"), nil
	}
	if present < 0 {
		return c.reject("no queue family can present to the surface"), nil
	}
	c.Graphics, c.Present = uint32(graphics), uint32(present)

	extensions, err := device.Extensions()
	if err != nil {
		return c, errors.Wrap(err, "query device extensions")
	}
	if missing := missingExtensions(extensions, req.Extensions); len(missing) > 0 {
		return c.reject("missing extensions " + strings.Join(missing, ", ")), nil
	}

	if c.Formats, err = device.SurfaceFormats(surface); err != nil {
		return c, errors.Wrap(err, "query surface formats")
	}
	if c.PresentModes, err = device.PresentModes(surface); err != nil {
		return c, errors.Wrap(err, "query present modes")
	}
	if c.Capabilities, err = device.SurfaceCapabilities(surface); err != nil {
		return c, errors.Wrap(err, "query surface capabilities")
	}
	if len(c.Formats) == 0 {
		return c.reject("no surface formats"), nil
	}
	if len(c.PresentModes) == 0 {
		return c.reject("no present modes"), nil
	}

	if missing := device.Features().Missing(req.Features); len(missing) > 0 {
		return c.reject("missing features " + strings.Join(missing, ", ")), nil
	}

	c.Viable = true
	c.Score = score(props)
	return c, nil
}

func (c Candidate) reject(reason string) Candidate {
	c.Viable = false
	c.Score = 0
	c.Reason = reason
	return c
}

func score(props gfx.DeviceProperties) int {
	var s int
	switch props.Type {
	case gfx.DeviceTypeDiscreteGPU:
		s = scoreDiscrete
	case gfx.DeviceTypeIntegratedGPU:
		s = scoreIntegrated
	case gfx.DeviceTypeVirtualGPU:
		s = scoreVirtual
	}
	bonus := props.Limits.MaxImageDimension2D / 1024
	if bonus > maxLimitsBonus {
		bonus = maxLimitsBonus
	}
	return s + int(bonus)
}

// findQueueFamilies returns the first graphics family and the first family
// presenting to surface, -1 for those not found.
func findQueueFamilies(device gfx.PhysicalDevice, surface gfx.Surface) (graphics, present int, err error) {
	graphics, present = -1, -1
	for idx, family := range device.QueueFamilies() {
		if graphics < 0 && family.Flags&gfx.QueueGraphics != 0 {
			graphics = idx
		}
		if present < 0 {
			supported, err := device.SurfaceSupport(uint32(idx), surface)
			if err != nil {
				return -1, -1, errors.Wrapf(err, "query surface support of family %d", idx)
			}
			if supported {
				present = idx
			}
		}
		if graphics >= 0 && present >= 0 {
			break
		}
	}
	return graphics, present, nil
}

func missingExtensions(available, required []string) []string {
	set := make(map[string]struct{}, len(available))
	for _, ext := range available {
		set[ext] = struct{}{}
	}
	var missing []string
	for _, ext := range required {
		if _, ok := set[ext]; !ok {
			missing = append(missing, ext)
		}
	}
	return missing
}
