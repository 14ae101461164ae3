package engine

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/prism/engine/assets"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/platform"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"golang.org/x/sync/errgroup"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently booting up
	EngineStageBooting
	// Engine completed boot process and is ready to be initialized
	EngineStageBootComplete
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

func (s Stage) String() string {
	switch s {
	case EngineStageBooting:
		return "booting"
	case EngineStageBootComplete:
		return "boot complete"
	case EngineStageInitializing:
		return "initializing"
	case EngineStageInitialized:
		return "initialized"
	case EngineStageRunning:
		return "running"
	case EngineStageShuttingDown:
		return "shutting down"
	default:
		return "uninitialized"
	}
}

// statsInterval is how often frame statistics are logged.
const statsInterval = time.Second

type Engine struct {
	currentStage Stage
	config       *ApplicationConfig
	isRunning    atomic.Bool

	platform     *platform.Platform
	assetManager *assets.AssetManager
	renderer     *renderer.Renderer

	clock *core.Clock
	stats *core.FrameStats
}

func New(config *ApplicationConfig) (*Engine, error) {
	p := platform.New()

	am, err := assets.NewAssetManager()
	if err != nil {
		return nil, core.Fail(core.ErrResourceCreation, "create asset manager", err)
	}

	return &Engine{
		currentStage: EngineStageUninitialized,
		config:       config,
		platform:     p,
		assetManager: am,
		renderer:     renderer.New(p, am),
		clock:        core.NewClock(),
		stats:        core.NewFrameStats(),
	}, nil
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

// Initialize opens the window, indexes the shaders and builds the renderer.
// After a failure Shutdown still releases whatever was created.
func (e *Engine) Initialize() error {
	e.currentStage = EngineStageBooting
	cfg := e.config
	core.SetLogLevel(cfg.LogLevel)

	core.EventRegister(core.EventCodeApplicationQuit, e, e.onEvent)
	core.EventRegister(core.EventCodeKeyPressed, e, e.onKey)
	core.EventRegister(core.EventCodeKeyReleased, e, e.onKey)

	if err := e.platform.Startup(cfg.Name, cfg.StartPosX, cfg.StartPosY, cfg.StartWidth, cfg.StartHeight); err != nil {
		return err
	}
	e.currentStage = EngineStageBootComplete

	e.currentStage = EngineStageInitializing
	if err := e.assetManager.Initialize(cfg.ShaderDir); err != nil {
		return core.Fail(core.ErrResourceCreation, "index shaders", err)
	}
	if cfg.WatchAssets {
		if cfg.Path != "" {
			if err := e.assetManager.WatchFile(cfg.Path); err != nil {
				core.LogWarn("Configuration will not be reloaded: %s", err)
			}
		}
		e.assetManager.OnChange(e.onAssetChanged)
	}

	if err := e.renderer.Initialize(cfg.RendererConfig()); err != nil {
		return err
	}

	e.currentStage = EngineStageInitialized
	core.LogInfo("Engine initialized.")
	return nil
}

// Run drives the frame loop until the window closes, a quit event fires, ctx
// is canceled or an interrupt signal arrives. It must be called from the
// thread that initialized the platform.
func (e *Engine) Run(ctx context.Context) error {
	if e.currentStage != EngineStageInitialized {
		return errors.AssertionFailedf("engine cannot run in stage %s", e.currentStage)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	if e.config.WatchAssets {
		g.Go(func() error {
			return e.assetManager.Run(gctx)
		})
	}

	loopErr := e.loop(gctx)
	stop()
	if err := g.Wait(); err != nil && loopErr == nil {
		loopErr = err
	}
	return loopErr
}

func (e *Engine) loop(ctx context.Context) error {
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)
	e.clock.Start()

	var last, lastReport time.Duration
	for e.isRunning.Load() {
		select {
		case <-ctx.Done():
			core.LogInfo("Stop requested, shutting down.")
			return nil
		default:
		}

		e.platform.PumpMessages()
		if e.platform.ShouldClose() {
			core.LogInfo("Window closed, shutting down.")
			break
		}

		if err := e.renderer.DrawFrame(); err != nil {
			return err
		}

		e.clock.Update()
		now := e.clock.Elapsed()
		e.stats.Update(now - last)
		last = now

		if now-lastReport >= statsInterval {
			core.LogDebug("Frame %d: %.1f FPS, %s avg frame time.",
				e.renderer.FrameNumber(), e.stats.FPS(), e.stats.FrameTime())
			lastReport = now
		}
	}
	e.clock.Stop()
	return nil
}

// Shutdown tears down the renderer, the asset watcher and the window, in that
// order, and reports the first error.
func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	e.isRunning.Store(false)

	var err error
	if rerr := e.renderer.Shutdown(); rerr != nil {
		err = errors.CombineErrors(err, rerr)
	}
	if aerr := e.assetManager.Close(); aerr != nil {
		err = errors.CombineErrors(err, aerr)
	}
	if perr := e.platform.Shutdown(); perr != nil {
		err = errors.CombineErrors(err, perr)
	}

	core.EventUnregister(core.EventCodeApplicationQuit, e)
	core.EventUnregister(core.EventCodeKeyPressed, e)
	core.EventUnregister(core.EventCodeKeyReleased, e)

	core.LogInfo("Engine shut down after %d frames.", e.stats.Frames())
	return err
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	if code == core.EventCodeApplicationQuit {
		core.LogInfo("EventCodeApplicationQuit received, shutting down.")
		e.isRunning.Store(false)
		return true
	}
	return false
}

func (e *Engine) onKey(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	switch code {
	case core.EventCodeKeyPressed:
		core.LogDebug("Key %d pressed.", data.Data.U16[0])
	case core.EventCodeKeyReleased:
		core.LogDebug("Key %d released.", data.Data.U16[0])
	}
	return false
}

func (e *Engine) onAssetChanged(info assets.AssetInfo, op fsnotify.Op) {
	if op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}
	switch info.Type {
	case metadata.ResourceTypeConfig:
		if !samePath(info.Path, e.config.Path) {
			return
		}
		next, changed, err := reloadConfig(e.config, info.Path)
		if err != nil {
			core.LogWarn("Ignoring configuration change: %s", err)
			return
		}
		core.SetLogLevel(next.LogLevel)
		core.LogInfo("Configuration reloaded, log level %s.", next.LogLevel)
		if len(changed) > 0 {
			core.LogWarn("Restart to apply changes to %v.", changed)
		}
	case metadata.ResourceTypeShader, metadata.ResourceTypeShaderSource:
		core.LogWarn("Shader '%s' changed; restart to apply.", filepath.Base(info.Path))
	}
}

// reloadConfig reads path and applies its log level to a copy of current.
// changed lists the keys that differ but only take effect after a restart.
func reloadConfig(current *ApplicationConfig, path string) (*ApplicationConfig, []string, error) {
	loaded, err := LoadConfig(path)
	if err != nil {
		return nil, nil, err
	}
	next := *current
	next.LogLevel = loaded.LogLevel

	var changed []string
	if loaded.Name != current.Name {
		changed = append(changed, "name")
	}
	if loaded.StartPosX != current.StartPosX || loaded.StartPosY != current.StartPosY {
		changed = append(changed, "start_pos")
	}
	if loaded.StartWidth != current.StartWidth || loaded.StartHeight != current.StartHeight {
		changed = append(changed, "start_size")
	}
	if loaded.EnableValidation != current.EnableValidation {
		changed = append(changed, "enable_validation")
	}
	if loaded.ShaderDir != current.ShaderDir {
		changed = append(changed, "shader_dir")
	}
	if loaded.ClearColor != current.ClearColor {
		changed = append(changed, "clear_color")
	}
	if loaded.RequireGeometryShader != current.RequireGeometryShader {
		changed = append(changed, "require_geometry_shader")
	}
	if loaded.WatchAssets != current.WatchAssets {
		changed = append(changed, "watch_assets")
	}
	return &next, changed, nil
}

func samePath(a, b string) bool {
	if b == "" {
		return false
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
