package metadata

import "github.com/go-gl/mathgl/mgl32"

type RendererBackendConfig struct {
	// The name of the application
	ApplicationName  string
	Width            uint32
	Height           uint32
	EnableValidation bool
	ShaderDir        string
	ClearColor       mgl32.Vec4
	// RequireGeometryShader rejects devices without geometry shader support.
	RequireGeometryShader bool
}
