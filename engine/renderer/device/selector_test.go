package device

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

func suitable(index int, name string, t metadata.DeviceType, maxDim uint32) *metadata.PhysicalDeviceCandidate {
	return &metadata.PhysicalDeviceCandidate{
		Index:               index,
		Name:                name,
		Type:                t,
		Features:            metadata.DeviceFeatures{GeometryShader: true},
		MaxImageDimension2D: maxDim,
		QueueFamilies:       []metadata.QueueFamily{{Graphics: true, Present: true}},
		Extensions:          []string{"VK_KHR_maintenance1", SwapchainExtensionName},
		Surface: metadata.SurfaceCapabilities{
			MinImageCount: 2,
			Formats:       []metadata.SurfaceFormat{{Format: metadata.FormatB8G8R8A8Srgb}},
			PresentModes:  []metadata.PresentMode{metadata.PresentModeFifo},
		},
	}
}

func TestSelectPrefersDiscrete(t *testing.T) {
	integrated := suitable(0, "integrated", metadata.DeviceTypeIntegratedGPU, 4096)
	discrete := suitable(1, "discrete", metadata.DeviceTypeDiscreteGPU, 8192)

	req := DefaultRequirements()
	if got := Score(integrated, req); got != 4096 {
		t.Fatalf("integrated score = %d, want 4096", got)
	}
	if got := Score(discrete, req); got != DiscreteGPUBonus+8192 {
		t.Fatalf("discrete score = %d, want %d", got, DiscreteGPUBonus+8192)
	}

	best, err := Select([]*metadata.PhysicalDeviceCandidate{integrated, discrete}, req)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if best != discrete {
		t.Fatalf("selected %q, want discrete", best.Name)
	}
}

func TestSelectTiesFirstWins(t *testing.T) {
	a := suitable(0, "a", metadata.DeviceTypeDiscreteGPU, 16384)
	b := suitable(1, "b", metadata.DeviceTypeDiscreteGPU, 16384)
	for i := 0; i < 5; i++ {
		best, err := Select([]*metadata.PhysicalDeviceCandidate{a, b}, DefaultRequirements())
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if best != a {
			t.Fatalf("tie resolved to %q, want a", best.Name)
		}
	}
}

func TestScoreZeroOnHardRequirement(t *testing.T) {
	req := DefaultRequirements()
	tests := []struct {
		name   string
		mutate func(c *metadata.PhysicalDeviceCandidate)
	}{
		{"no geometry shader", func(c *metadata.PhysicalDeviceCandidate) { c.Features.GeometryShader = false }},
		{"no present family", func(c *metadata.PhysicalDeviceCandidate) {
			c.QueueFamilies = []metadata.QueueFamily{{Graphics: true}}
		}},
		{"no graphics family", func(c *metadata.PhysicalDeviceCandidate) {
			c.QueueFamilies = []metadata.QueueFamily{{Present: true}}
		}},
		{"missing swapchain extension", func(c *metadata.PhysicalDeviceCandidate) { c.Extensions = nil }},
		{"no formats", func(c *metadata.PhysicalDeviceCandidate) { c.Surface.Formats = nil }},
		{"no present modes", func(c *metadata.PhysicalDeviceCandidate) { c.Surface.PresentModes = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := suitable(0, tt.name, metadata.DeviceTypeDiscreteGPU, 8192)
			tt.mutate(c)
			if got := Score(c, req); got != 0 {
				t.Fatalf("score = %d, want 0", got)
			}
		})
	}
}

func TestGeometryShaderCanBeRelaxed(t *testing.T) {
	c := suitable(0, "no-geom", metadata.DeviceTypeIntegratedGPU, 2048)
	c.Features.GeometryShader = false
	req := DefaultRequirements()
	req.GeometryShader = false
	if got := Score(c, req); got != 2048 {
		t.Fatalf("score = %d, want 2048", got)
	}
}

func TestSelectErrors(t *testing.T) {
	_, err := Select(nil, DefaultRequirements())
	if !errors.Is(err, core.ErrNoDeviceFound) {
		t.Fatalf("empty list: got %v, want ErrNoDeviceFound", err)
	}

	bad := suitable(0, "bad", metadata.DeviceTypeDiscreteGPU, 8192)
	bad.Features.GeometryShader = false
	_, err = Select([]*metadata.PhysicalDeviceCandidate{bad}, DefaultRequirements())
	if !errors.Is(err, core.ErrNoSuitableDevice) {
		t.Fatalf("all zero: got %v, want ErrNoSuitableDevice", err)
	}
}

func TestFindQueueFamilies(t *testing.T) {
	tests := []struct {
		name     string
		families []metadata.QueueFamily
		want     metadata.QueueFamilyIndices
	}{
		{"shared", []metadata.QueueFamily{{Graphics: true, Present: true}}, metadata.QueueFamilyIndices{Graphics: 0, Present: 0}},
		{"split", []metadata.QueueFamily{{Graphics: true}, {}, {Present: true}}, metadata.QueueFamilyIndices{Graphics: 0, Present: 2}},
		{"stops when complete", []metadata.QueueFamily{{Present: true}, {Graphics: true}, {Graphics: true, Present: true}}, metadata.QueueFamilyIndices{Graphics: 1, Present: 0}},
		{"none", []metadata.QueueFamily{{}, {}}, metadata.QueueFamilyIndices{Graphics: -1, Present: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindQueueFamilies(tt.families)
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
			if got.IsComplete() != (tt.want.Graphics >= 0 && tt.want.Present >= 0) {
				t.Fatalf("IsComplete mismatch for %+v", got)
			}
		})
	}

	split := metadata.QueueFamilyIndices{Graphics: 0, Present: 2}
	if u := split.Unique(); len(u) != 2 || u[0] != 0 || u[1] != 2 {
		t.Fatalf("Unique = %v", u)
	}
	shared := metadata.QueueFamilyIndices{Graphics: 1, Present: 1}
	if u := shared.Unique(); len(u) != 1 || u[0] != 1 {
		t.Fatalf("Unique = %v", u)
	}
}
