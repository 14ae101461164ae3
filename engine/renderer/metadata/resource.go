package metadata

type ResourceType int

const (
	ResourceTypeNone ResourceType = iota
	// Compiled SPIR-V shader stage
	ResourceTypeShader
	// GLSL shader source, compiled offline
	ResourceTypeShaderSource
	// Application configuration
	ResourceTypeConfig
	ResourceTypeBinary
)

func (t ResourceType) String() string {
	switch t {
	case ResourceTypeShader:
		return "shader"
	case ResourceTypeShaderSource:
		return "shader source"
	case ResourceTypeConfig:
		return "config"
	case ResourceTypeBinary:
		return "binary"
	default:
		return "none"
	}
}

type Resource struct {
	Name     string
	FullPath string
	DataSize uint64
	Data     interface{}
}
