package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/platform"
	"github.com/spaghettifunk/prism/engine/renderer/device"
	"github.com/spaghettifunk/prism/engine/renderer/frame"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/renderer/surface"
)

const (
	VertexShaderFile   = "vert.spv"
	FragmentShaderFile = "frag.spv"
)

type VulkanRenderer struct {
	platform *platform.Platform
	shaders  ShaderSource
	config   metadata.RendererBackendConfig

	context      *VulkanContext
	synchronizer *frame.Synchronizer
}

func New(p *platform.Platform, shaders ShaderSource) *VulkanRenderer {
	return &VulkanRenderer{
		platform: p,
		shaders:  shaders,
		context:  NewVulkanContext(),
	}
}

// Initialize builds the whole object graph. On error the objects created so
// far stay registered and are released by Shutdown.
func (vr *VulkanRenderer) Initialize(config metadata.RendererBackendConfig) error {
	vr.config = config
	ctx := vr.context

	procAddr := platform.GetVulkanProcAddress()
	if procAddr == nil {
		return core.Fail(core.ErrNoDeviceFound, "load Vulkan", errors.New("GetInstanceProcAddress is nil"))
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		return core.Fail(core.ErrNoDeviceFound, "load Vulkan", err)
	}

	if err := InstanceCreate(ctx, config.ApplicationName, vr.platform.RequiredExtensionNames(), config.EnableValidation); err != nil {
		return err
	}

	core.LogDebug("Creating Vulkan surface...")
	vkSurface, err := vr.platform.CreateSurface(ctx.Instance)
	if err != nil {
		return core.Fail(core.ErrResourceCreation, "create surface", err)
	}
	SurfaceAttach(ctx, vkSurface)

	if config.EnableValidation {
		if err := DebugCallbackCreate(ctx); err != nil {
			return err
		}
	}

	requirements := device.DefaultRequirements()
	requirements.GeometryShader = config.RequireGeometryShader
	if err := DeviceCreate(ctx, requirements); err != nil {
		return err
	}

	width, height := vr.platform.FramebufferSize()
	ctx.WindowExtent = metadata.Extent2D{Width: width, Height: height}
	presentConfig, err := surface.Negotiate(&ctx.Device.Candidate.Surface, ctx.WindowExtent)
	if err != nil {
		return err
	}

	if ctx.ImageSet, err = ImageSetCreate(ctx, presentConfig); err != nil {
		return err
	}

	if ctx.MainRenderpass, err = RenderpassCreate(ctx, vk.Format(presentConfig.Format.Format), config.ClearColor); err != nil {
		return err
	}

	if err := vr.createPipeline(); err != nil {
		return err
	}

	if err := ctx.ImageSet.FramebuffersCreate(ctx.MainRenderpass); err != nil {
		return err
	}

	if err := CommandPoolCreate(ctx); err != nil {
		return err
	}
	if ctx.Recorder, err = NewCommandRecorder(ctx); err != nil {
		return err
	}

	queue := NewGraphicsQueue(ctx, ctx.Recorder)
	vr.synchronizer, err = frame.New(NewSyncObjects(ctx), ctx.ImageSet, queue, ctx.Recorder)
	if err != nil {
		return err
	}
	ctx.Own("synchronization objects", vr.synchronizer.Destroy)

	core.LogInfo("Vulkan renderer initialized successfully.")
	return nil
}

func (vr *VulkanRenderer) createPipeline() error {
	ctx := vr.context

	vert, err := NewShaderStage(ctx, vr.shaders, vr.config.ShaderDir, VertexShaderFile, vk.ShaderStageVertexBit)
	if err != nil {
		return err
	}
	defer vert.Destroy(ctx)

	frag, err := NewShaderStage(ctx, vr.shaders, vr.config.ShaderDir, FragmentShaderFile, vk.ShaderStageFragmentBit)
	if err != nil {
		return err
	}
	defer frag.Destroy(ctx)

	extent := ctx.ImageSet.Extent()
	ctx.Pipeline, err = NewGraphicsPipeline(ctx, &VulkanPipelineConfig{
		Renderpass: ctx.MainRenderpass,
		Stages: []vk.PipelineShaderStageCreateInfo{
			vert.ShaderStageCreateInfo,
			frag.ShaderStageCreateInfo,
		},
		Viewport: vk.Viewport{
			X:        0.0,
			Y:        0.0,
			Width:    float32(extent.Width),
			Height:   float32(extent.Height),
			MinDepth: 0.0,
			MaxDepth: 1.0,
		},
		Scissor: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: extent,
		},
	})
	return err
}

// DrawFrame renders and presents one frame.
func (vr *VulkanRenderer) DrawFrame() error {
	if vr.synchronizer == nil {
		return errors.AssertionFailedf("renderer not initialized")
	}
	return vr.synchronizer.DrawFrame()
}

func (vr *VulkanRenderer) FrameNumber() uint64 {
	if vr.synchronizer == nil {
		return 0
	}
	return vr.synchronizer.FrameNumber()
}

// Resized only records the new size. The image set keeps its extent.
func (vr *VulkanRenderer) Resized(width, height uint32) {
	core.LogWarn("Window resized to %dx%d; swapchain keeps %dx%d.",
		width, height, vr.context.WindowExtent.Width, vr.context.WindowExtent.Height)
}

// Shutdown waits for the device to go idle and destroys every object in
// reverse creation order. It is safe after a failed Initialize.
func (vr *VulkanRenderer) Shutdown() error {
	waitErr := DeviceWaitIdle(vr.context)
	if waitErr != nil {
		core.LogError("Device did not go idle before teardown: %s", waitErr)
	}
	vr.context.Release(func(name string) {
		core.LogDebug("Destroying %s...", name)
	})
	vr.synchronizer = nil
	core.LogInfo("Vulkan renderer shut down.")
	return waitErr
}
