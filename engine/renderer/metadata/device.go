package metadata

import (
	"fmt"

	"github.com/google/uuid"
)

// DeviceType mirrors VkPhysicalDeviceType.
type DeviceType int32

const (
	DeviceTypeOther DeviceType = iota
	DeviceTypeIntegratedGPU
	DeviceTypeDiscreteGPU
	DeviceTypeVirtualGPU
	DeviceTypeCPU
)

func (t DeviceType) String() string {
	switch t {
	case DeviceTypeIntegratedGPU:
		return "Integrated GPU"
	case DeviceTypeDiscreteGPU:
		return "Discrete GPU"
	case DeviceTypeVirtualGPU:
		return "Virtual GPU"
	case DeviceTypeCPU:
		return "CPU"
	default:
		return "Other"
	}
}

type DeviceFeatures struct {
	GeometryShader    bool
	SamplerAnisotropy bool
}

type MemoryHeap struct {
	Size        uint64
	DeviceLocal bool
}

// QueueFamily describes what one queue family of a device can do.
type QueueFamily struct {
	Graphics bool
	// Present reports whether the family can present to the window surface.
	Present bool
}

// QueueFamilyIndices holds the chosen family indices; -1 means absent.
type QueueFamilyIndices struct {
	Graphics int32
	Present  int32
}

func NoQueueFamilies() QueueFamilyIndices {
	return QueueFamilyIndices{Graphics: -1, Present: -1}
}

// IsComplete is true when both a graphics and a present family were found.
func (q QueueFamilyIndices) IsComplete() bool {
	return q.Graphics >= 0 && q.Present >= 0
}

// Shared reports whether graphics and present use the same family.
func (q QueueFamilyIndices) Shared() bool {
	return q.Graphics == q.Present
}

// Unique returns the distinct family indices, graphics first.
func (q QueueFamilyIndices) Unique() []uint32 {
	if q.Shared() {
		return []uint32{uint32(q.Graphics)}
	}
	return []uint32{uint32(q.Graphics), uint32(q.Present)}
}

// PhysicalDeviceCandidate is everything the selector needs to know about one
// enumerated device, already queried against the window surface.
type PhysicalDeviceCandidate struct {
	// Index is the enumeration position and breaks score ties.
	Index               int
	Name                string
	Type                DeviceType
	CacheID             uuid.UUID
	APIVersion          uint32
	DriverVersion       uint32
	Features            DeviceFeatures
	MaxImageDimension2D uint32
	MemoryHeaps         []MemoryHeap
	QueueFamilies       []QueueFamily
	Extensions          []string
	Surface             SurfaceCapabilities
}

// VersionString decodes a packed Vulkan version.
func VersionString(v uint32) string {
	return fmt.Sprintf("%d.%d.%d", v>>22, (v>>12)&0x3ff, v&0xfff)
}
