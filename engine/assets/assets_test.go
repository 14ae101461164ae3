package assets

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

var spirvHeader = []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00}

func newManager(t *testing.T) *AssetManager {
	t.Helper()
	am, err := NewAssetManager()
	if err != nil {
		t.Fatalf("NewAssetManager: %v", err)
	}
	t.Cleanup(func() { am.Close() })
	return am
}

func TestInitializeIndexesByExtension(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "shaders")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]metadata.ResourceType{
		filepath.Join(sub, "vert.spv"):    metadata.ResourceTypeShader,
		filepath.Join(sub, "shader.vert"): metadata.ResourceTypeShaderSource,
		filepath.Join(dir, "config.toml"): metadata.ResourceTypeConfig,
	}
	for path := range files {
		if err := os.WriteFile(path, spirvHeader, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	am := newManager(t)
	if err := am.Initialize(dir); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	for path, want := range files {
		info, ok := am.Lookup(path)
		if !ok {
			t.Fatalf("%s not indexed", path)
		}
		if info.Type != want {
			t.Fatalf("%s indexed as %s, want %s", path, info.Type, want)
		}
	}
	if _, ok := am.Lookup(filepath.Join(dir, "README.md")); ok {
		t.Fatalf("unknown extension indexed")
	}
}

func TestLoadAsset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frag.spv")
	if err := os.WriteFile(path, spirvHeader, 0o644); err != nil {
		t.Fatal(err)
	}
	am := newManager(t)
	if err := am.Initialize(dir); err != nil {
		t.Fatal(err)
	}

	res, err := am.LoadAsset(path, nil)
	if err != nil {
		t.Fatalf("LoadAsset: %v", err)
	}
	if code := res.Data.([]uint32); len(code) != 2 {
		t.Fatalf("code = %v", code)
	}
	if info, _ := am.Lookup(path); info.LastLoaded.IsZero() {
		t.Fatalf("LastLoaded not updated")
	}
	if err := am.UnloadAsset(res); err != nil || res.Data != nil {
		t.Fatalf("UnloadAsset: %v", err)
	}

	_, err = am.LoadAsset(filepath.Join(dir, "missing.spv"), nil)
	if !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("got %v, want ErrAssetNotFound", err)
	}
}

func TestRunReportsChanges(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(cfg, []byte("log_level = \"info\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	am := newManager(t)
	if err := am.WatchFile(cfg); err != nil {
		t.Fatalf("WatchFile: %v", err)
	}
	changed := make(chan AssetInfo, 16)
	am.OnChange(func(info AssetInfo, op fsnotify.Op) {
		if op&fsnotify.Write != 0 {
			changed <- info
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- am.Run(ctx) }()

	if err := os.WriteFile(cfg, []byte("log_level = \"debug\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case info := <-changed:
		if info.Path != filepath.Clean(cfg) || info.Type != metadata.ResourceTypeConfig {
			t.Fatalf("unexpected change %+v", info)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no change reported")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not stop")
	}
	if err := am.WatchFile(cfg); !errors.Is(err, ErrClosed) {
		t.Fatalf("got %v, want ErrClosed", err)
	}
}
