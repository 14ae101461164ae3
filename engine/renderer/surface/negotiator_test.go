package surface

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

var window = metadata.Extent2D{Width: 800, Height: 600}

func TestNegotiateUnboundedImageCount(t *testing.T) {
	caps := &metadata.SurfaceCapabilities{
		MinImageCount: 2,
		MaxImageCount: 0,
		CurrentExtent: metadata.Extent2D{Width: 800, Height: 600},
		Formats:       []metadata.SurfaceFormat{PreferredFormat},
		PresentModes:  []metadata.PresentMode{metadata.PresentModeFifo},
	}
	cfg, err := Negotiate(caps, window)
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	want := metadata.PresentConfiguration{
		Format:      PreferredFormat,
		PresentMode: metadata.PresentModeFifo,
		Extent:      metadata.Extent2D{Width: 800, Height: 600},
		ImageCount:  3,
	}
	if cfg != want {
		t.Fatalf("got %+v, want %+v", cfg, want)
	}
}

func TestChooseFormat(t *testing.T) {
	unorm := metadata.SurfaceFormat{Format: metadata.FormatB8G8R8A8Unorm, ColorSpace: metadata.ColorSpaceSrgbNonlinear}
	rgba := metadata.SurfaceFormat{Format: metadata.FormatR8G8B8A8Srgb, ColorSpace: metadata.ColorSpaceSrgbNonlinear}
	tests := []struct {
		name    string
		formats []metadata.SurfaceFormat
		want    metadata.SurfaceFormat
	}{
		{"preferred later in list", []metadata.SurfaceFormat{unorm, rgba, PreferredFormat}, PreferredFormat},
		{"fallback to first", []metadata.SurfaceFormat{rgba, unorm}, rgba},
		{"right format wrong color space", []metadata.SurfaceFormat{unorm, {Format: metadata.FormatB8G8R8A8Srgb, ColorSpace: 1000104001}}, unorm},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChooseFormat(tt.formats); got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestChoosePresentMode(t *testing.T) {
	tests := []struct {
		modes []metadata.PresentMode
		want  metadata.PresentMode
	}{
		{[]metadata.PresentMode{metadata.PresentModeFifo, metadata.PresentModeMailbox}, metadata.PresentModeMailbox},
		{[]metadata.PresentMode{metadata.PresentModeImmediate, metadata.PresentModeFifo}, metadata.PresentModeFifo},
		{[]metadata.PresentMode{metadata.PresentModeImmediate}, metadata.PresentModeFifo},
	}
	for _, tt := range tests {
		if got := ChoosePresentMode(tt.modes); got != tt.want {
			t.Errorf("ChoosePresentMode(%v) = %s, want %s", tt.modes, got, tt.want)
		}
	}
}

func TestChooseExtentWithinBounds(t *testing.T) {
	undefined := metadata.Extent2D{Width: metadata.UndefinedExtent, Height: metadata.UndefinedExtent}
	tests := []struct {
		name   string
		caps   metadata.SurfaceCapabilities
		window metadata.Extent2D
		want   metadata.Extent2D
	}{
		{
			name:   "current extent used verbatim",
			caps:   metadata.SurfaceCapabilities{CurrentExtent: metadata.Extent2D{Width: 1024, Height: 768}, MinImageExtent: metadata.Extent2D{Width: 1, Height: 1}, MaxImageExtent: metadata.Extent2D{Width: 4096, Height: 4096}},
			window: window,
			want:   metadata.Extent2D{Width: 1024, Height: 768},
		},
		{
			name:   "undefined uses window",
			caps:   metadata.SurfaceCapabilities{CurrentExtent: undefined, MinImageExtent: metadata.Extent2D{Width: 1, Height: 1}, MaxImageExtent: metadata.Extent2D{Width: 4096, Height: 4096}},
			window: window,
			want:   window,
		},
		{
			name:   "undefined clamps down",
			caps:   metadata.SurfaceCapabilities{CurrentExtent: undefined, MinImageExtent: metadata.Extent2D{Width: 1, Height: 1}, MaxImageExtent: metadata.Extent2D{Width: 640, Height: 480}},
			window: window,
			want:   metadata.Extent2D{Width: 640, Height: 480},
		},
		{
			name:   "undefined clamps up",
			caps:   metadata.SurfaceCapabilities{CurrentExtent: undefined, MinImageExtent: metadata.Extent2D{Width: 1000, Height: 700}, MaxImageExtent: metadata.Extent2D{Width: 2000, Height: 2000}},
			window: window,
			want:   metadata.Extent2D{Width: 1000, Height: 700},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChooseExtent(&tt.caps, tt.window)
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
			if got.Width < tt.caps.MinImageExtent.Width || got.Width > tt.caps.MaxImageExtent.Width ||
				got.Height < tt.caps.MinImageExtent.Height || got.Height > tt.caps.MaxImageExtent.Height {
				t.Fatalf("extent %+v outside [%+v, %+v]", got, tt.caps.MinImageExtent, tt.caps.MaxImageExtent)
			}
		})
	}
}

func TestChooseImageCount(t *testing.T) {
	tests := []struct {
		min, max, want uint32
	}{
		{2, 0, 3},
		{2, 8, 3},
		{3, 3, 3},
		{1, 2, 2},
	}
	for _, tt := range tests {
		caps := &metadata.SurfaceCapabilities{MinImageCount: tt.min, MaxImageCount: tt.max}
		got := ChooseImageCount(caps)
		if got != tt.want {
			t.Errorf("min=%d max=%d: got %d, want %d", tt.min, tt.max, got, tt.want)
		}
		if tt.max > 0 && (got < tt.min || got > tt.max) {
			t.Errorf("min=%d max=%d: %d out of range", tt.min, tt.max, got)
		}
		if tt.max == 0 && got != tt.min+1 {
			t.Errorf("unbounded: got %d, want %d", got, tt.min+1)
		}
	}
}

func TestNegotiateDeterministic(t *testing.T) {
	caps := &metadata.SurfaceCapabilities{
		MinImageCount:  2,
		MaxImageCount:  4,
		CurrentExtent:  metadata.Extent2D{Width: metadata.UndefinedExtent, Height: metadata.UndefinedExtent},
		MinImageExtent: metadata.Extent2D{Width: 1, Height: 1},
		MaxImageExtent: metadata.Extent2D{Width: 4096, Height: 4096},
		Formats: []metadata.SurfaceFormat{
			{Format: metadata.FormatB8G8R8A8Unorm},
			PreferredFormat,
		},
		PresentModes: []metadata.PresentMode{metadata.PresentModeFifo, metadata.PresentModeMailbox},
	}
	first, err := Negotiate(caps, window)
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, _ := Negotiate(caps, window)
		if again != first {
			t.Fatalf("run %d: %+v != %+v", i, again, first)
		}
	}
	if first.PresentMode != metadata.PresentModeMailbox || first.Format != PreferredFormat {
		t.Fatalf("unexpected configuration %+v", first)
	}
}

func TestNegotiateNoFormats(t *testing.T) {
	_, err := Negotiate(&metadata.SurfaceCapabilities{PresentModes: []metadata.PresentMode{metadata.PresentModeFifo}}, window)
	if !errors.Is(err, core.ErrSurfaceNegotiation) {
		t.Fatalf("got %v, want ErrSurfaceNegotiation", err)
	}
}
