// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/devblok/vulkan"
	"github.com/sirupsen/logrus"

	"github.com/devblok/vkmol/src/gfx"
)

const debugReportExtension = "VK_EXT_debug_report"

// NewBackend returns a Backend loading vulkan through procAddr, the
// vkGetInstanceProcAddr of a window system. A nil procAddr loads the
// system vulkan library.
func NewBackend(procAddr unsafe.Pointer, log *logrus.Entry) *Backend {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Backend{
		procAddr: procAddr,
		log:      log,
	}
}

// Backend implements gfx.Backend.
type Backend struct {
	procAddr unsafe.Pointer
	log      *logrus.Entry
}

// CreateInstance implements gfx.Backend.
func (b *Backend) CreateInstance(info gfx.InstanceInfo) (gfx.Instance, error) {
	if b.procAddr == nil {
		if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			return nil, errors.Wrap(err, "vk.SetDefaultGetInstanceProcAddr()")
		}
	} else {
		vk.SetGetInstanceProcAddr(b.procAddr)
	}
	if err := vk.Init(); err != nil {
		return nil, errors.Wrap(err, "vk.Init()")
	}

	extensions := info.Extensions
	if info.Debug {
		extensions = append(extensions[:len(extensions):len(extensions)], debugReportExtension)
	}

	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         vk.MakeVersion(1, 0, 0),
		ApplicationVersion: makeVersion(info.AppVersion),
		PApplicationName:   safeString(info.AppName),
		PEngineName:        safeString(info.EngineName),
	}
	ici := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
		EnabledLayerCount:       uint32(len(info.Layers)),
		PpEnabledLayerNames:     safeStrings(info.Layers),
	}

	var instance vk.Instance
	if err := check(vk.CreateInstance(&ici, nil, &instance), "CreateInstance"); err != nil {
		return nil, err
	}
	if err := vk.InitInstance(instance); err != nil {
		vk.DestroyInstance(instance, nil)
		return nil, errors.Wrap(err, "vk.InitInstance()")
	}

	in := &Instance{
		instance: instance,
		log:      b.log,
	}
	if info.Debug {
		if err := in.installDebugReport(); err != nil {
			vk.DestroyInstance(instance, nil)
			return nil, err
		}
	}
	return in, nil
}

func makeVersion(v gfx.Version) uint32 {
	return vk.MakeVersion(int(v.Major), int(v.Minor), int(v.Patch))
}

// Instance implements gfx.Instance.
type Instance struct {
	instance vk.Instance
	debug    vk.DebugReportCallback
	log      *logrus.Entry
}

// Handle returns the vulkan instance, window systems need it to create surfaces.
func (i *Instance) Handle() vk.Instance {
	return i.instance
}

func (i *Instance) installDebugReport() error {
	dci := vk.DebugReportCallbackCreateInfo{
		SType: vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags: vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit |
			vk.DebugReportPerformanceWarningBit | vk.DebugReportInformationBit),
		PfnCallback: i.debugReport,
	}
	if err := check(vk.CreateDebugReportCallback(i.instance, &dci, nil, &i.debug), "CreateDebugReportCallback"); err != nil {
		return err
	}
	return nil
}

func (i *Instance) debugReport(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint, location uint, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {

	entry := i.log.WithFields(logrus.Fields{
		"layer": pLayerPrefix,
		"code":  messageCode,
	})
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		entry.Error(pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit|vk.DebugReportPerformanceWarningBit) != 0:
		entry.Warn(pMessage)
	default:
		entry.Debug(pMessage)
	}
	return vk.False
}

// PhysicalDevices implements gfx.Instance.
func (i *Instance) PhysicalDevices() ([]gfx.PhysicalDevice, error) {
	var count uint32
	if err := check(vk.EnumeratePhysicalDevices(i.instance, &count, nil), "EnumeratePhysicalDevices"); err != nil {
		return nil, err
	}
	handles := make([]vk.PhysicalDevice, count)
	if err := check(vk.EnumeratePhysicalDevices(i.instance, &count, handles), "EnumeratePhysicalDevices"); err != nil {
		return nil, err
	}

	devices := make([]gfx.PhysicalDevice, 0, count)
	for _, h := range handles[:count] {
		devices = append(devices, newPhysicalDevice(h))
	}
	return devices, nil
}

// Release implements gfx.Releasable.
func (i *Instance) Release() {
	if i.debug != nil {
		vk.DestroyDebugReportCallback(i.instance, i.debug, nil)
	}
	vk.DestroyInstance(i.instance, nil)
}

// NewSurface wraps a surface created by the window system for the instance.
func NewSurface(instance *Instance, surface unsafe.Pointer) *Surface {
	return &Surface{
		instance: instance.instance,
		surface:  vk.SurfaceFromPointer(uintptr(surface)),
	}
}

// Surface implements gfx.Surface.
type Surface struct {
	instance vk.Instance
	surface  vk.Surface
}

// Release implements gfx.Releasable.
func (s *Surface) Release() {
	vk.DestroySurface(s.instance, s.surface, nil)
}

func surfaceOf(s gfx.Surface) vk.Surface {
	return s.(*Surface).surface
}
