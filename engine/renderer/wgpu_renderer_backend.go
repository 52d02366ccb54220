package renderer

import (
	"image"
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/pkg/errors"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/model"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/shader"
)

// wgpuStage is a compiled shader module and the layout reflected from its source.
type wgpuStage struct {
	module     *wgpu.ShaderModule
	reflection stageReflection
}

// wgpuProgram holds the opaque and blended render pipelines built from one pair of stages.
type wgpuProgram struct {
	label          string
	layout         *wgpu.BindGroupLayout
	pipelineLayout *wgpu.PipelineLayout
	pipelines      map[pipeline.Variant]pipeline.Pipeline
}

type wgpuMesh struct {
	vertexBuffer *wgpu.Buffer
	indexBuffer  *wgpu.Buffer
	vertexCount  int
	indexCount   uint32
}

type wgpuTexture struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

// bindGroupKey identifies a bind group by the program layout and the texture it binds.
type bindGroupKey struct {
	layout  *wgpu.BindGroupLayout
	texture *wgpuTexture
}

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat        *wgpu.TextureFormat
	msaaTexture          *wgpu.Texture
	msaaTextureView      *wgpu.TextureView
	depthTexture         *wgpu.Texture
	depthTextureView     *wgpu.TextureView
	renderPassDescriptor *wgpu.RenderPassDescriptor
	clearColor           wgpu.Color

	presentMode wgpu.PresentMode
	sampleCount MSAASampleCount

	// per-draw uniform slots, indexed with a dynamic offset
	uniformBuffer *wgpu.Buffer
	uniformSlots  int
	drawIndex     int

	sampler      *wgpu.Sampler
	whiteTexture *wgpuTexture
	bindGroups   map[bindGroupKey]*wgpu.BindGroup

	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

// newWGPURendererBackend creates the instance, adapter and device for a window surface.
// The calling goroutine is locked to its OS thread and must drive every later call.
func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool, sampleCount MSAASampleCount) (*wgpuRendererBackendImpl, error) {
	runtime.LockOSThread()
	b := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeFifo,
		sampleCount: sampleCount,
		clearColor:  wgpu.Color{R: 0.1, G: 0.1, B: 0.1, A: 1.0},
		bindGroups:  make(map[bindGroupKey]*wgpu.BindGroup),
	}
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		b.Release()
		return nil, errors.Wrap(err, "request adapter")
	}
	b.adapter = a

	limits := wgpu.DefaultLimits()
	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "oxy-view device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		b.Release()
		return nil, errors.Wrap(err, "request device")
	}
	b.device = d
	b.queue = d.GetQueue()

	b.sampler, err = d.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "color map sampler",
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		b.Release()
		return nil, errors.Wrap(err, "create sampler")
	}

	white := image.NewRGBA(image.Rect(0, 0, 1, 1))
	copy(white.Pix, []byte{0xff, 0xff, 0xff, 0xff})
	tex, err := b.uploadTexture("white", []*image.RGBA{white})
	if err != nil {
		b.Release()
		return nil, errors.Wrap(err, "create default texture")
	}
	b.whiteTexture = tex
	return b, nil
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if width <= 0 || height <= 0 {
		return errors.Errorf("surface size %dx%d", width, height)
	}
	capabilities := b.surface.GetCapabilities(b.adapter)
	if len(capabilities.Formats) == 0 {
		return errors.New("surface reports no formats")
	}
	if b.surfaceFormat == nil {
		b.surfaceFormat = &capabilities.Formats[0]
	}

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	b.releaseAttachments()
	count := uint32(b.sampleCount)
	size := wgpu.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1}

	if count > 1 {
		// the pass draws into the MSAA texture and resolves into the swapchain view
		tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label:         "MSAA Texture",
			Size:          size,
			MipLevelCount: 1,
			SampleCount:   count,
			Dimension:     wgpu.TextureDimension2D,
			Format:        *b.surfaceFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			return errors.Wrap(err, "create msaa texture")
		}
		b.msaaTexture = tex
		if b.msaaTextureView, err = tex.CreateView(nil); err != nil {
			return errors.Wrap(err, "create msaa view")
		}
	}

	depth, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Depth Texture",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   count,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return errors.Wrap(err, "create depth texture")
	}
	b.depthTexture = depth
	if b.depthTextureView, err = depth.CreateView(nil); err != nil {
		return errors.Wrap(err, "create depth view")
	}

	storeOp := wgpu.StoreOpStore
	if count > 1 {
		storeOp = wgpu.StoreOpDiscard
	}
	b.renderPassDescriptor = &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       b.msaaTextureView, // nil without MSAA; set in BeginFrame
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    storeOp,
				ClearValue: b.clearColor,
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.depthTextureView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	}
	return nil
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeUncapped:
		b.presentMode = wgpu.PresentModeImmediate
	default:
		b.presentMode = wgpu.PresentModeFifo
	}
}

func (b *wgpuRendererBackendImpl) SetClearColor(rgba [4]float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.clearColor = wgpu.Color{R: rgba[0], G: rgba[1], B: rgba[2], A: rgba[3]}
	if b.renderPassDescriptor != nil {
		b.renderPassDescriptor.ColorAttachments[0].ClearValue = b.clearColor
	}
}

// CompileStage resolves the #ifdef blocks, reflects the layout and creates the shader module.
// WGSL has no preprocessor, so the module is created from the resolved text.
func (b *wgpuRendererBackendImpl) CompileStage(stage shader.Stage, label, source string) (shader.StageHandle, error) {
	resolved, err := shader.Preprocess(source)
	if err != nil {
		return nil, err
	}
	reflection, err := reflectStage(stage, resolved)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: label + " " + stage.String(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: resolved,
		},
	})
	if err != nil {
		return nil, err
	}
	return &wgpuStage{module: module, reflection: reflection}, nil
}

// LinkProgram builds the opaque and the blended render pipeline from two compiled stages.
// Both share one bind group layout: group 0 only.
func (b *wgpuRendererBackendImpl) LinkProgram(label string, vertex, fragment shader.StageHandle) (shader.ProgramHandle, error) {
	vs, ok := vertex.(*wgpuStage)
	if !ok {
		return nil, errors.Errorf("vertex stage %T was not compiled by this backend", vertex)
	}
	fs, ok := fragment.(*wgpuStage)
	if !ok {
		return nil, errors.Errorf("fragment stage %T was not compiled by this backend", fragment)
	}
	merged := mergeBindGroupLayouts(vs.reflection.bindGroups, fs.reflection.bindGroups)
	if len(merged) != 1 {
		return nil, errors.Errorf("stages declare %d bind groups, want exactly group 0", len(merged))
	}
	desc, ok := merged[0]
	if !ok {
		return nil, errors.New("stages do not declare bind group 0")
	}
	if len(vs.reflection.vertexLayouts) != 1 || vs.reflection.vertexLayouts[0].ArrayStride != uint64(model.GPUVertexSize) {
		return nil, errors.Errorf("vertex input does not match the %d byte vertex layout", model.GPUVertexSize)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.surfaceFormat == nil {
		return nil, errors.New("surface is not configured")
	}

	desc.Label = label + " layout"
	layout, err := b.device.CreateBindGroupLayout(&desc)
	if err != nil {
		return nil, errors.Wrap(err, "create bind group layout")
	}
	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: []*wgpu.BindGroupLayout{layout},
	})
	if err != nil {
		layout.Release()
		return nil, errors.Wrap(err, "create pipeline layout")
	}

	prog := &wgpuProgram{
		label:          label,
		layout:         layout,
		pipelineLayout: pipelineLayout,
		pipelines:      make(map[pipeline.Variant]pipeline.Pipeline, 2),
	}
	for _, variant := range []pipeline.Variant{pipeline.VariantOpaque, pipeline.VariantBlended} {
		p := pipeline.NewPipeline(label, variant)
		if err := b.createRenderPipeline(p, pipelineLayout, vs, fs); err != nil {
			b.releaseProgram(prog)
			return nil, errors.Wrapf(err, "%s pipeline", variant)
		}
		prog.pipelines[variant] = p
	}
	return prog, nil
}

// createRenderPipeline creates the GPU pipeline described by p. Caller must hold the mutex.
func (b *wgpuRendererBackendImpl) createRenderPipeline(p pipeline.Pipeline, layout *wgpu.PipelineLayout, vs, fs *wgpuStage) error {
	target := wgpu.ColorTargetState{
		Format:    *b.surfaceFormat,
		WriteMask: p.WriteMask(),
	}
	if p.BlendEnabled() {
		target.Blend = p.BlendState()
	}
	depthCompare := wgpu.CompareFunctionLess
	if !p.DepthTestEnabled() {
		depthCompare = wgpu.CompareFunctionAlways
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.Key() + " " + p.Variant().String(),
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     vs.module,
			EntryPoint: vs.reflection.entryPoint,
			Buffers:    vs.reflection.vertexLayouts,
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs.module,
			EntryPoint: fs.reflection.entryPoint,
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.Topology(),
			FrontFace: p.FrontFace(),
			CullMode:  p.CullMode(),
		},
		Multisample: wgpu.MultisampleState{
			Count: uint32(b.sampleCount),
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth24Plus,
			DepthWriteEnabled: p.DepthWriteEnabled(),
			DepthCompare:      depthCompare,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	})
	if err != nil {
		return err
	}
	p.SetRenderPipeline(created)
	return nil
}

func (b *wgpuRendererBackendImpl) ReleaseStage(h shader.StageHandle) {
	if s, ok := h.(*wgpuStage); ok && s.module != nil {
		s.module.Release()
		s.module = nil
	}
}

func (b *wgpuRendererBackendImpl) ReleaseProgram(h shader.ProgramHandle) {
	prog, ok := h.(*wgpuProgram)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.releaseProgram(prog)
}

// releaseProgram frees the pipelines, layouts and bind groups of a program. Caller must hold the mutex.
func (b *wgpuRendererBackendImpl) releaseProgram(prog *wgpuProgram) {
	for key, bg := range b.bindGroups {
		if key.layout == prog.layout {
			bg.Release()
			delete(b.bindGroups, key)
		}
	}
	for _, p := range prog.pipelines {
		p.Release()
	}
	prog.pipelines = nil
	if prog.pipelineLayout != nil {
		prog.pipelineLayout.Release()
		prog.pipelineLayout = nil
	}
	if prog.layout != nil {
		prog.layout.Release()
		prog.layout = nil
	}
}

func (b *wgpuRendererBackendImpl) UploadTexture(label string, levels []*image.RGBA) (material.TextureHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.uploadTexture(label, levels)
}

// uploadTexture creates an sRGB texture and writes every mip level. Caller must hold the mutex.
func (b *wgpuRendererBackendImpl) uploadTexture(label string, levels []*image.RGBA) (*wgpuTexture, error) {
	if len(levels) == 0 {
		return nil, errors.Errorf("texture %q has no levels", label)
	}
	base := levels[0].Bounds()
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     label,
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              uint32(base.Dx()),
			Height:             uint32(base.Dy()),
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		MipLevelCount: uint32(len(levels)),
		SampleCount:   1,
	})
	if err != nil {
		return nil, err
	}

	for i, level := range levels {
		w, h := uint32(level.Bounds().Dx()), uint32(level.Bounds().Dy())
		b.queue.WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture:  tex,
				MipLevel: uint32(i),
				Origin:   wgpu.Origin3D{},
				Aspect:   wgpu.TextureAspectAll,
			},
			level.Pix,
			&wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  uint32(level.Stride),
				RowsPerImage: h,
			},
			&wgpu.Extent3D{
				Width:              w,
				Height:             h,
				DepthOrArrayLayers: 1,
			},
		)
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}
	return &wgpuTexture{texture: tex, view: view}, nil
}

func (b *wgpuRendererBackendImpl) ReleaseTexture(handle material.TextureHandle) {
	tex, ok := handle.(*wgpuTexture)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.releaseTexture(tex)
}

// releaseTexture frees a texture and the bind groups that reference it. Caller must hold the mutex.
func (b *wgpuRendererBackendImpl) releaseTexture(tex *wgpuTexture) {
	for key, bg := range b.bindGroups {
		if key.texture == tex {
			bg.Release()
			delete(b.bindGroups, key)
		}
	}
	if tex.view != nil {
		tex.view.Release()
		tex.view = nil
	}
	if tex.texture != nil {
		tex.texture.Release()
		tex.texture = nil
	}
}

func (b *wgpuRendererBackendImpl) UploadMesh(label string, vertices []model.GPUVertex, indices []uint32) (MeshHandle, error) {
	if len(vertices) == 0 || len(indices) == 0 {
		return nil, errors.Errorf("mesh %q is empty", label)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	vertexData := common.SliceToBytes(vertices)
	vb, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label + " Vertex Buffer",
		Size:  uint64(len(vertexData)),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	b.queue.WriteBuffer(vb, 0, vertexData)

	indexData := common.SliceToBytes(indices)
	ib, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label + " Index Buffer",
		Size:  uint64(len(indexData)),
		Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		vb.Release()
		return nil, err
	}
	b.queue.WriteBuffer(ib, 0, indexData)

	return &wgpuMesh{
		vertexBuffer: vb,
		indexBuffer:  ib,
		vertexCount:  len(vertices),
		indexCount:   uint32(len(indices)),
	}, nil
}

func (b *wgpuRendererBackendImpl) UpdateMesh(handle MeshHandle, vertices []model.GPUVertex) error {
	m, ok := handle.(*wgpuMesh)
	if !ok || m.vertexBuffer == nil {
		return errors.New("mesh was not uploaded by this backend")
	}
	if len(vertices) != m.vertexCount {
		return errors.Errorf("update has %d vertices, buffer holds %d", len(vertices), m.vertexCount)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue.WriteBuffer(m.vertexBuffer, 0, common.SliceToBytes(vertices))
	return nil
}

func (b *wgpuRendererBackendImpl) ReleaseMesh(handle MeshHandle) {
	m, ok := handle.(*wgpuMesh)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if m.vertexBuffer != nil {
		m.vertexBuffer.Release()
		m.vertexBuffer = nil
	}
	if m.indexBuffer != nil {
		m.indexBuffer.Release()
		m.indexBuffer = nil
	}
}

// ensureUniformSlots grows the uniform buffer to hold n slots. Bind groups reference the
// buffer, so growing drops all of them. Caller must hold the mutex.
func (b *wgpuRendererBackendImpl) ensureUniformSlots(n int) error {
	if n <= b.uniformSlots && b.uniformBuffer != nil {
		return nil
	}
	slots := max(n, 64, b.uniformSlots*2)
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Draw Uniforms",
		Size:  uint64(slots * GPUDrawUniformsSize),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return errors.Wrapf(err, "create uniform buffer with %d slots", slots)
	}
	for key, bg := range b.bindGroups {
		bg.Release()
		delete(b.bindGroups, key)
	}
	if b.uniformBuffer != nil {
		b.uniformBuffer.Release()
	}
	b.uniformBuffer = buf
	b.uniformSlots = slots
	return nil
}

// bindGroup returns the cached bind group for a program layout and texture. Caller must hold the mutex.
func (b *wgpuRendererBackendImpl) bindGroup(layout *wgpu.BindGroupLayout, tex *wgpuTexture) (*wgpu.BindGroup, error) {
	key := bindGroupKey{layout: layout, texture: tex}
	if bg, ok := b.bindGroups[key]; ok {
		return bg, nil
	}
	bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Draw Bind Group",
		Layout: layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: b.uniformBuffer, Offset: 0, Size: uint64(GPUDrawUniformsSize)},
			{Binding: 1, TextureView: tex.view},
			{Binding: 2, Sampler: b.sampler},
		},
	})
	if err != nil {
		return nil, err
	}
	b.bindGroups[key] = bg
	return bg, nil
}

func (b *wgpuRendererBackendImpl) BeginFrame(drawCount int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.renderPassDescriptor == nil {
		return errors.New("surface is not configured")
	}
	if b.frameSurface != nil {
		return errors.New("previous frame surface not yet presented")
	}
	if err := b.ensureUniformSlots(drawCount); err != nil {
		return err
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return errors.Wrap(err, "acquire surface texture")
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	if b.sampleCount > 1 {
		b.renderPassDescriptor.ColorAttachments[0].ResolveTarget = view
	} else {
		b.renderPassDescriptor.ColorAttachments[0].View = view
	}
	b.framePass = encoder.BeginRenderPass(b.renderPassDescriptor)
	b.frameEncoder = encoder
	b.frameSurface = surfaceTexture
	b.frameView = view
	b.drawIndex = 0
	return nil
}

func (b *wgpuRendererBackendImpl) Draw(cmd DrawCommand) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return errors.New("draw outside of a frame")
	}
	if b.drawIndex >= b.uniformSlots {
		return errors.Errorf("draw %d exceeds the %d draws announced to BeginFrame", b.drawIndex, b.uniformSlots)
	}
	if cmd.Program == nil {
		return errors.New("draw without a program")
	}
	prog, ok := cmd.Program.Linked.(*wgpuProgram)
	if !ok || prog.pipelines == nil {
		return errors.Errorf("program %s was not linked by this backend", cmd.Program.Label)
	}
	p, ok := prog.pipelines[cmd.Variant]
	if !ok {
		return errors.Errorf("program %s has no %s pipeline", cmd.Program.Label, cmd.Variant)
	}
	mesh, ok := cmd.Mesh.(*wgpuMesh)
	if !ok || mesh.vertexBuffer == nil {
		return errors.New("mesh was not uploaded by this backend")
	}
	tex := b.whiteTexture
	if cmd.Texture != nil {
		if t, ok := cmd.Texture.(*wgpuTexture); ok && t.view != nil {
			tex = t
		}
	}
	bg, err := b.bindGroup(prog.layout, tex)
	if err != nil {
		return errors.Wrap(err, "create bind group")
	}

	offset := uint32(b.drawIndex * GPUDrawUniformsSize)
	b.drawIndex++
	b.queue.WriteBuffer(b.uniformBuffer, uint64(offset), common.StructToBytes(&cmd.Uniforms))

	b.framePass.SetPipeline(p.RenderPipeline())
	b.framePass.SetBindGroup(0, bg, []uint32{offset})
	b.framePass.SetVertexBuffer(0, mesh.vertexBuffer, 0, wgpu.WholeSize)
	b.framePass.SetIndexBuffer(mesh.indexBuffer, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	b.framePass.DrawIndexed(mesh.indexCount, 1, 0, 0, 0)
	return nil
}

func (b *wgpuRendererBackendImpl) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return errors.New("no frame in progress")
	}
	b.framePass.End()
	b.framePass.Release()
	b.framePass = nil

	commandBuffer, err := b.frameEncoder.Finish(nil)
	b.frameEncoder.Release()
	b.frameEncoder = nil
	if err != nil {
		b.frameView.Release()
		b.frameSurface.Release()
		b.frameView = nil
		b.frameSurface = nil
		return errors.Wrap(err, "finish command encoder")
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (b *wgpuRendererBackendImpl) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return
	}
	b.surface.Present()
	b.frameView.Release()
	b.frameView = nil
	b.frameSurface.Release()
	b.frameSurface = nil
}

// releaseAttachments frees the size dependent render targets. Caller must hold the mutex.
func (b *wgpuRendererBackendImpl) releaseAttachments() {
	for _, v := range []*wgpu.TextureView{b.msaaTextureView, b.depthTextureView} {
		if v != nil {
			v.Release()
		}
	}
	for _, t := range []*wgpu.Texture{b.msaaTexture, b.depthTexture} {
		if t != nil {
			t.Release()
		}
	}
	b.msaaTextureView, b.depthTextureView = nil, nil
	b.msaaTexture, b.depthTexture = nil, nil
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for key, bg := range b.bindGroups {
		bg.Release()
		delete(b.bindGroups, key)
	}
	if b.whiteTexture != nil {
		b.releaseTexture(b.whiteTexture)
		b.whiteTexture = nil
	}
	if b.uniformBuffer != nil {
		b.uniformBuffer.Release()
		b.uniformBuffer = nil
	}
	if b.sampler != nil {
		b.sampler.Release()
		b.sampler = nil
	}
	b.releaseAttachments()
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}
