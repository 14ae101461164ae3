// Package device picks the physical device the renderer runs on. It works on
// candidates that were already queried from the driver, so selection itself
// never touches device state.
package device

import (
	"strings"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// DiscreteGPUBonus is added to the score of dedicated GPUs.
const DiscreteGPUBonus = 1000

const SwapchainExtensionName = "VK_KHR_swapchain"

type Requirements struct {
	GeometryShader       bool
	DeviceExtensionNames []string
}

func DefaultRequirements() Requirements {
	return Requirements{
		GeometryShader:       true,
		DeviceExtensionNames: []string{SwapchainExtensionName},
	}
}

// FindQueueFamilies scans families in order and stops as soon as both a
// graphics and a present family are known. Both may be the same family.
func FindQueueFamilies(families []metadata.QueueFamily) metadata.QueueFamilyIndices {
	indices := metadata.NoQueueFamilies()
	for i, f := range families {
		if f.Graphics {
			indices.Graphics = int32(i)
		}
		if f.Present {
			indices.Present = int32(i)
		}
		if indices.IsComplete() {
			break
		}
	}
	return indices
}

// MissingExtensions lists the required names the candidate does not expose.
func MissingExtensions(candidate *metadata.PhysicalDeviceCandidate, required []string) []string {
	available := make(map[string]struct{}, len(candidate.Extensions))
	for _, name := range candidate.Extensions {
		available[name] = struct{}{}
	}
	var missing []string
	for _, name := range required {
		if _, ok := available[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// IsSuitable reports whether the candidate meets every hard requirement
// except the feature checks, and why not when it does not.
func IsSuitable(candidate *metadata.PhysicalDeviceCandidate, req Requirements) (bool, string) {
	if !FindQueueFamilies(candidate.QueueFamilies).IsComplete() {
		return false, "incomplete queue families"
	}
	if missing := MissingExtensions(candidate, req.DeviceExtensionNames); len(missing) > 0 {
		return false, "missing extensions " + strings.Join(missing, ", ")
	}
	if len(candidate.Surface.Formats) == 0 || len(candidate.Surface.PresentModes) == 0 {
		return false, "no surface formats or present modes"
	}
	return true, ""
}

// Score rates a candidate. Zero means unusable.
func Score(candidate *metadata.PhysicalDeviceCandidate, req Requirements) uint64 {
	score, _ := score(candidate, req)
	return score
}

func score(candidate *metadata.PhysicalDeviceCandidate, req Requirements) (uint64, string) {
	if req.GeometryShader && !candidate.Features.GeometryShader {
		return 0, "no geometry shader support"
	}
	if ok, reason := IsSuitable(candidate, req); !ok {
		return 0, reason
	}
	var s uint64
	if candidate.Type == metadata.DeviceTypeDiscreteGPU {
		s += DiscreteGPUBonus
	}
	s += uint64(candidate.MaxImageDimension2D)
	return s, ""
}

// Select returns the highest scoring candidate. On equal scores the one
// enumerated first wins.
func Select(candidates []*metadata.PhysicalDeviceCandidate, req Requirements) (*metadata.PhysicalDeviceCandidate, error) {
	if len(candidates) == 0 {
		return nil, core.Fail(core.ErrNoDeviceFound, "enumerate physical devices", nil)
	}

	var best *metadata.PhysicalDeviceCandidate
	var bestScore uint64
	for _, c := range candidates {
		s, reason := score(c, req)
		if s == 0 {
			core.LogInfo("Device '%s' (%s) skipped: %s.", c.Name, c.Type, reason)
			continue
		}
		core.LogInfo("Device '%s' (%s) scored %d.", c.Name, c.Type, s)
		if best == nil || s > bestScore || (s == bestScore && c.Index < best.Index) {
			best = c
			bestScore = s
		}
	}

	if best == nil {
		return nil, core.Fail(core.ErrNoSuitableDevice, "pick physical device", nil)
	}
	return best, nil
}
