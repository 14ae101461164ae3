package vulkan

import (
	"path/filepath"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// ShaderSource resolves compiled shader stages by file name.
type ShaderSource interface {
	LoadAsset(path string, params interface{}) (*metadata.Resource, error)
	UnloadAsset(*metadata.Resource) error
}

// VulkanShaderStage is a shader module with its pipeline stage description.
type VulkanShaderStage struct {
	Handle                vk.ShaderModule
	ShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
}

// NewShaderStage loads fileName from dir and creates its module. The module
// is only needed until the pipeline exists, so Destroy is left to the caller.
func NewShaderStage(context *VulkanContext, source ShaderSource, dir, fileName string, stage vk.ShaderStageFlagBits) (*VulkanShaderStage, error) {
	path := filepath.Join(dir, fileName)
	resource, err := source.LoadAsset(path, nil)
	if err != nil {
		return nil, core.Fail(core.ErrResourceCreation, "load shader "+fileName, err)
	}
	defer source.UnloadAsset(resource)

	code, ok := resource.Data.([]uint32)
	if !ok {
		return nil, core.Fail(core.ErrResourceCreation, "load shader "+fileName,
			errors.Newf("%s is not a compiled shader", path))
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(resource.DataSize),
		PCode:    code,
	}

	outStage := &VulkanShaderStage{}
	if res := vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &outStage.Handle); res != vk.Success {
		return nil, ResultError(res, core.ErrResourceCreation, "create shader module "+fileName)
	}

	outStage.ShaderStageCreateInfo = vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stage,
		Module: outStage.Handle,
		PName:  VulkanSafeString("main"),
	}
	core.LogDebug("Shader module '%s' created (%d bytes).", fileName, resource.DataSize)
	return outStage, nil
}

func (s *VulkanShaderStage) Destroy(context *VulkanContext) {
	if s.Handle != nil {
		vk.DestroyShaderModule(context.Device.LogicalDevice, s.Handle, context.Allocator)
		s.Handle = nil
	}
}
