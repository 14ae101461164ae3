package engine

import (
	"bytes"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

const (
	DefaultConfigPath = "config.toml"
	// ConfigPathEnv overrides DefaultConfigPath.
	ConfigPathEnv = "PRISM_CONFIG"
)

type ApplicationConfig struct {
	// The application name used in windowing, if applicable.
	Name string `toml:"name"`
	// Window starting position x axis, if applicable.
	StartPosX uint32 `toml:"start_pos_x"`
	// Window starting position y axis, if applicable.
	StartPosY uint32 `toml:"start_pos_y"`
	// Window starting width, if applicable.
	StartWidth uint32 `toml:"start_width"`
	// Window starting height, if applicable.
	StartHeight uint32        `toml:"start_height"`
	LogLevel    core.LogLevel `toml:"log_level"`
	// Enables the Khronos validation layer and routes its messages to the log.
	EnableValidation bool `toml:"enable_validation"`
	// Directory holding vert.spv and frag.spv.
	ShaderDir             string     `toml:"shader_dir"`
	ClearColor            [4]float32 `toml:"clear_color"`
	RequireGeometryShader bool       `toml:"require_geometry_shader"`
	// Watch the configuration and shader files for changes.
	WatchAssets bool `toml:"watch_assets"`

	// Path the configuration was read from; empty for defaults.
	Path string `toml:"-"`
}

func DefaultConfig() *ApplicationConfig {
	return &ApplicationConfig{
		Name:                  "Prism",
		StartPosX:             100,
		StartPosY:             100,
		StartWidth:            800,
		StartHeight:           600,
		LogLevel:              core.LogLevelInfo,
		EnableValidation:      false,
		ShaderDir:             "assets/shaders",
		ClearColor:            [4]float32{0, 0, 0, 1},
		RequireGeometryShader: true,
		WatchAssets:           true,
	}
}

// ConfigPath returns the configuration path from the environment, or the
// default one.
func ConfigPath() string {
	if p := os.Getenv(ConfigPathEnv); p != "" {
		return p
	}
	return DefaultConfigPath
}

// LoadConfig reads path over the defaults. A missing file yields the
// defaults; a malformed or invalid one is an ErrConfig.
func LoadConfig(path string) (*ApplicationConfig, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		core.LogInfo("No configuration at '%s', using defaults.", path)
		return cfg, nil
	}
	if err != nil {
		return nil, core.Fail(core.ErrConfig, "read configuration", err)
	}
	if err := cfg.decode(data); err != nil {
		return nil, core.Fail(core.ErrConfig, "parse configuration "+path, err)
	}
	cfg.Path = path
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ApplicationConfig) decode(data []byte) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(c)
}

// Validate rejects configurations the renderer cannot start with.
func (c *ApplicationConfig) Validate() error {
	if c.StartWidth == 0 || c.StartHeight == 0 {
		return core.Fail(core.ErrConfig, "validate configuration",
			errors.Newf("window size %dx%d must be non-zero", c.StartWidth, c.StartHeight))
	}
	for i, v := range c.ClearColor {
		if v < 0 || v > 1 {
			return core.Fail(core.ErrConfig, "validate configuration",
				errors.Newf("clear_color[%d] = %g is outside [0,1]", i, v))
		}
	}
	lvl, err := core.ParseLogLevel(string(c.LogLevel))
	if err != nil {
		return core.Fail(core.ErrConfig, "validate configuration", err)
	}
	c.LogLevel = lvl
	if c.ShaderDir == "" {
		return core.Fail(core.ErrConfig, "validate configuration", errors.New("shader_dir is empty"))
	}
	return nil
}

func (c *ApplicationConfig) ClearColorVec() mgl32.Vec4 {
	return mgl32.Vec4(c.ClearColor)
}

// RendererConfig is the part of the configuration the renderer backend uses.
func (c *ApplicationConfig) RendererConfig() metadata.RendererBackendConfig {
	return metadata.RendererBackendConfig{
		ApplicationName:       c.Name,
		Width:                 c.StartWidth,
		Height:                c.StartHeight,
		EnableValidation:      c.EnableValidation,
		ShaderDir:             c.ShaderDir,
		ClearColor:            c.ClearColorVec(),
		RequireGeometryShader: c.RequireGeometryShader,
	}
}
