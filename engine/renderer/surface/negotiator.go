// Package surface derives the swapchain configuration from what a device and
// window surface support together.
package surface

import (
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

var PreferredFormat = metadata.SurfaceFormat{
	Format:     metadata.FormatB8G8R8A8Srgb,
	ColorSpace: metadata.ColorSpaceSrgbNonlinear,
}

// ChooseFormat returns the preferred format when offered, else the first one.
func ChooseFormat(formats []metadata.SurfaceFormat) metadata.SurfaceFormat {
	for _, f := range formats {
		if f == PreferredFormat {
			return f
		}
	}
	return formats[0]
}

// ChoosePresentMode prefers mailbox. FIFO is always available.
func ChoosePresentMode(modes []metadata.PresentMode) metadata.PresentMode {
	for _, m := range modes {
		if m == metadata.PresentModeMailbox {
			return m
		}
	}
	return metadata.PresentModeFifo
}

// ChooseExtent uses the surface's current extent unless it is undefined, in
// which case the window size is clamped into the supported range.
func ChooseExtent(caps *metadata.SurfaceCapabilities, window metadata.Extent2D) metadata.Extent2D {
	if caps.CurrentExtent.Width != metadata.UndefinedExtent {
		return caps.CurrentExtent
	}
	return metadata.Extent2D{
		Width:  math.Clamp(window.Width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: math.Clamp(window.Height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// ChooseImageCount asks for one image more than the minimum. A maximum of
// zero means there is no limit.
func ChooseImageCount(caps *metadata.SurfaceCapabilities) uint32 {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

// Negotiate picks format, present mode, extent and image count. The device
// selector already rejects surfaces without formats, so the error return is
// a guard only.
func Negotiate(caps *metadata.SurfaceCapabilities, window metadata.Extent2D) (metadata.PresentConfiguration, error) {
	if len(caps.Formats) == 0 {
		return metadata.PresentConfiguration{}, core.Fail(core.ErrSurfaceNegotiation, "choose surface format", nil)
	}
	return metadata.PresentConfiguration{
		Format:      ChooseFormat(caps.Formats),
		PresentMode: ChoosePresentMode(caps.PresentModes),
		Extent:      ChooseExtent(caps, window),
		ImageCount:  ChooseImageCount(caps),
	}, nil
}
