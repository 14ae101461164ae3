package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/prism/engine/core"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.StartWidth != 800 || cfg.StartHeight != 600 {
		t.Fatalf("window = %dx%d, want 800x600", cfg.StartWidth, cfg.StartHeight)
	}
	if !cfg.RequireGeometryShader || !cfg.WatchAssets {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Path != "" {
		t.Fatalf("Path = %q for defaults", cfg.Path)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
name = "Triangle"
start_width = 1024
start_height = 768
log_level = "DEBUG"
enable_validation = true
shader_dir = "shaders"
clear_color = [0.1, 0.2, 0.3, 1.0]
require_geometry_shader = false
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Name != "Triangle" || cfg.StartWidth != 1024 || cfg.StartHeight != 768 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.LogLevel != core.LogLevelDebug {
		t.Fatalf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.RequireGeometryShader {
		t.Fatalf("require_geometry_shader not applied")
	}
	// Untouched keys keep their defaults.
	if cfg.StartPosX != 100 || !cfg.WatchAssets {
		t.Fatalf("defaults lost: %+v", cfg)
	}

	rc := cfg.RendererConfig()
	if rc.ClearColor != (mgl32.Vec4{0.1, 0.2, 0.3, 1.0}) {
		t.Fatalf("ClearColor = %v", rc.ClearColor)
	}
	if !rc.EnableValidation || rc.ShaderDir != "shaders" || rc.ApplicationName != "Triangle" {
		t.Fatalf("unexpected renderer config %+v", rc)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `start_width = `},
		{"unknown key", `frames_in_flight = 3`},
		{"zero width", `start_width = 0`},
		{"clear color range", `clear_color = [0.0, 1.5, 0.0, 1.0]`},
		{"bad log level", `log_level = "loud"`},
		{"empty shader dir", `shader_dir = ""`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			if !errors.Is(err, core.ErrConfig) {
				t.Fatalf("got %v, want ErrConfig", err)
			}
			if core.ErrorKind(err) != "Config" {
				t.Fatalf("ErrorKind = %s", core.ErrorKind(err))
			}
		})
	}
}

func TestConfigPathFromEnvironment(t *testing.T) {
	t.Setenv(ConfigPathEnv, "")
	if p := ConfigPath(); p != DefaultConfigPath {
		t.Fatalf("ConfigPath = %q", p)
	}
	t.Setenv(ConfigPathEnv, "/etc/prism.toml")
	if p := ConfigPath(); p != "/etc/prism.toml" {
		t.Fatalf("ConfigPath = %q", p)
	}
}
