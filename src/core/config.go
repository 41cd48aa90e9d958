// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gobuffalo/envy"
	"github.com/joho/godotenv"
)

// Configuration defines a global engine configuration setting
type Configuration struct {
	Time     TimeConfiguration
	Renderer RendererConfiguration
}

// TimeConfiguration is used to configure time services
type TimeConfiguration struct {
	// FramesPerSecond caps frames per second that is put out
	// To unlimit, set to 0
	FramesPerSecond int

	// EventPollDelay is the delay between window event polls, in milliseconds
	EventPollDelay int
}

// RendererConfiguration is used to configure the renderer
type RendererConfiguration struct {
	AppName    string
	AppVersion [3]uint32

	// Debug enables validation layers and the debug report callback,
	// Trace additionally logs every frame.
	Debug bool
	Trace bool

	// FramesInFlight is the depth of the frame ring.
	FramesInFlight int

	DeviceExtensions []string
	Layers           []string

	ScreenWidth  uint32
	ScreenHeight uint32

	VertexShader   string
	FragmentShader string
}

// DefaultConfiguration returns the settings used when nothing is overridden.
func DefaultConfiguration() Configuration {
	return Configuration{
		Time: TimeConfiguration{
			FramesPerSecond: 60,
			EventPollDelay:  50,
		},
		Renderer: RendererConfiguration{
			AppName:          "vkmol",
			AppVersion:       [3]uint32{0, 1, 0},
			FramesInFlight:   2,
			DeviceExtensions: []string{"VK_KHR_swapchain"},
			ScreenWidth:      800,
			ScreenHeight:     600,
			VertexShader:     "triangle.vert.spv",
			FragmentShader:   "triangle.frag.spv",
		},
	}
}

// LoadConfiguration reads the given dotenv files into the environment and
// builds a Configuration from VKMOL_* variables over the defaults.
// Variables already set in the environment take precedence over the files.
func LoadConfiguration(files ...string) (Configuration, error) {
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return Configuration{}, errors.Wrap(err, "godotenv.Load()")
		}
	}
	envy.Reload()

	cfg := DefaultConfiguration()
	var err error
	cfg.Renderer.AppName = envy.Get("VKMOL_APP_NAME", cfg.Renderer.AppName)
	if cfg.Renderer.Debug, err = envBool("VKMOL_DEBUG", cfg.Renderer.Debug); err != nil {
		return Configuration{}, err
	}
	if cfg.Renderer.Trace, err = envBool("VKMOL_TRACE", cfg.Renderer.Trace); err != nil {
		return Configuration{}, err
	}
	if cfg.Renderer.FramesInFlight, err = envInt("VKMOL_FRAMES_IN_FLIGHT", cfg.Renderer.FramesInFlight); err != nil {
		return Configuration{}, err
	}
	if cfg.Time.FramesPerSecond, err = envInt("VKMOL_FPS", cfg.Time.FramesPerSecond); err != nil {
		return Configuration{}, err
	}
	if cfg.Time.EventPollDelay, err = envInt("VKMOL_EVENT_POLL_DELAY", cfg.Time.EventPollDelay); err != nil {
		return Configuration{}, err
	}

	width, err := envInt("VKMOL_SCREEN_WIDTH", int(cfg.Renderer.ScreenWidth))
	if err != nil {
		return Configuration{}, err
	}
	height, err := envInt("VKMOL_SCREEN_HEIGHT", int(cfg.Renderer.ScreenHeight))
	if err != nil {
		return Configuration{}, err
	}
	cfg.Renderer.ScreenWidth, cfg.Renderer.ScreenHeight = uint32(width), uint32(height)

	cfg.Renderer.DeviceExtensions = envList("VKMOL_DEVICE_EXTENSIONS", cfg.Renderer.DeviceExtensions)
	cfg.Renderer.Layers = envList("VKMOL_LAYERS", cfg.Renderer.Layers)
	cfg.Renderer.VertexShader = envy.Get("VKMOL_VERTEX_SHADER", cfg.Renderer.VertexShader)
	cfg.Renderer.FragmentShader = envy.Get("VKMOL_FRAGMENT_SHADER", cfg.Renderer.FragmentShader)

	return cfg, cfg.Validate()
}

// Validate checks the configuration for values the engine cannot run with.
func (c Configuration) Validate() error {
	switch {
	case c.Renderer.FramesInFlight < 1:
		return errors.Wrapf(ErrInvalidConfiguration, "frames in flight must be positive, got %d", c.Renderer.FramesInFlight)
	case c.Renderer.VertexShader == "" || c.Renderer.FragmentShader == "":
		return errors.Wrap(ErrInvalidConfiguration, "shader names must be set")
	case c.Time.FramesPerSecond < 0:
		return errors.Wrapf(ErrInvalidConfiguration, "frames per second cannot be negative, got %d", c.Time.FramesPerSecond)
	case c.Time.EventPollDelay < 0:
		return errors.Wrapf(ErrInvalidConfiguration, "event poll delay cannot be negative, got %d", c.Time.EventPollDelay)
	}
	return nil
}

func envInt(key string, fallback int) (int, error) {
	raw := envy.Get(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Mark(errors.Wrapf(err, "%s", key), ErrInvalidConfiguration)
	}
	return v, nil
}

func envBool(key string, fallback bool) (bool, error) {
	raw := envy.Get(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.Mark(errors.Wrapf(err, "%s", key), ErrInvalidConfiguration)
	}
	return v, nil
}

// envList splits a comma separated variable, skipping empty entries.
func envList(key string, fallback []string) []string {
	raw := envy.Get(key, "")
	if raw == "" {
		return fallback
	}
	var list []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}
