package core

import (
	"github.com/cockroachdb/errors"
)

// Failure kinds. Every error leaving the renderer is marked with exactly one
// of them, so callers can branch with errors.Is.
var (
	ErrNoDeviceFound      = errors.New("no Vulkan-capable physical device")
	ErrNoSuitableDevice   = errors.New("no suitable physical device")
	ErrSurfaceNegotiation = errors.New("surface negotiation failed")
	ErrResourceCreation   = errors.New("resource creation failed")
	ErrSwapchainOutOfDate = errors.New("swapchain out of date")
	ErrSurfaceLost        = errors.New("surface lost")
	ErrSubmission         = errors.New("queue submission failed")
	ErrRecording          = errors.New("command recording failed")
	ErrDeviceLost         = errors.New("device lost")
	ErrFenceTimeout       = errors.New("fence wait timed out")
	ErrConfig             = errors.New("invalid configuration")
)

var kindNames = []struct {
	kind error
	name string
}{
	{ErrNoDeviceFound, "NoDeviceFound"},
	{ErrNoSuitableDevice, "NoSuitableDevice"},
	{ErrSurfaceNegotiation, "SurfaceNegotiation"},
	{ErrResourceCreation, "ResourceCreation"},
	{ErrSwapchainOutOfDate, "SwapchainOutOfDate"},
	{ErrSurfaceLost, "SurfaceLost"},
	{ErrSubmission, "Submission"},
	{ErrRecording, "Recording"},
	{ErrDeviceLost, "DeviceLost"},
	{ErrFenceTimeout, "FenceTimeout"},
	{ErrConfig, "Config"},
}

// Fail wraps cause with the name of the failing step and marks it with kind.
// A nil cause produces a fresh error carrying only the step and kind.
func Fail(kind error, step string, cause error) error {
	if cause == nil {
		return errors.Mark(errors.Wrap(kind, step), kind)
	}
	return errors.Mark(errors.Wrap(cause, step), kind)
}

// ErrorKind names the failure kind err is marked with, or "Unknown".
func ErrorKind(err error) string {
	for _, k := range kindNames {
		if errors.Is(err, k.kind) {
			return k.name
		}
	}
	return "Unknown"
}
