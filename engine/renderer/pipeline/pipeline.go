package pipeline

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// Variant identifies the pass a pipeline is drawn in.
type Variant int

const (
	// VariantOpaque writes depth and does not blend. Unclassified materials use it too.
	VariantOpaque Variant = iota

	// VariantBlended blends with source alpha and tests depth without writing it.
	VariantBlended
)

func (v Variant) String() string {
	if v == VariantBlended {
		return "blended"
	}
	return "opaque"
}

// pipeline is the implementation of the Pipeline interface.
// It holds the render state of one program variant and the GPU pipeline built from it.
type pipeline struct {
	key     string
	variant Variant

	renderPipeline *wgpu.RenderPipeline

	depthTestEnabled  bool
	depthWriteEnabled bool
	blendEnabled      bool
	cullMode          wgpu.CullMode
	topology          wgpu.PrimitiveTopology
	frontFace         wgpu.FrontFace
	writeMask         wgpu.ColorWriteMask
	blendState        *wgpu.BlendState
}

// Pipeline describes the fixed-function state of a render pipeline and owns the GPU object once it is created.
type Pipeline interface {
	// Key returns the debug label of the pipeline.
	//
	// Returns:
	//   - string: the key
	Key() string

	// Variant returns the pass this pipeline belongs to.
	//
	// Returns:
	//   - Variant: opaque or blended
	Variant() Variant

	// RenderPipeline returns the GPU pipeline, or nil before SetRenderPipeline.
	//
	// Returns:
	//   - *wgpu.RenderPipeline: the GPU pipeline
	RenderPipeline() *wgpu.RenderPipeline

	// SetRenderPipeline stores the GPU pipeline built from this state.
	//
	// Parameters:
	//   - rp: the GPU pipeline
	SetRenderPipeline(rp *wgpu.RenderPipeline)

	// DepthTestEnabled returns whether fragments are depth tested.
	//
	// Returns:
	//   - bool: true if depth testing is enabled
	DepthTestEnabled() bool

	// DepthWriteEnabled returns whether fragments write depth.
	//
	// Returns:
	//   - bool: true if depth writes are enabled
	DepthWriteEnabled() bool

	// BlendEnabled returns whether the color target blends.
	//
	// Returns:
	//   - bool: true if blending is enabled
	BlendEnabled() bool

	// CullMode returns the face culling mode.
	//
	// Returns:
	//   - wgpu.CullMode: the cull mode
	CullMode() wgpu.CullMode

	// Topology returns the primitive topology.
	//
	// Returns:
	//   - wgpu.PrimitiveTopology: the topology
	Topology() wgpu.PrimitiveTopology

	// FrontFace returns the front face winding order.
	//
	// Returns:
	//   - wgpu.FrontFace: the winding order
	FrontFace() wgpu.FrontFace

	// WriteMask returns the color write mask.
	//
	// Returns:
	//   - wgpu.ColorWriteMask: the write mask
	WriteMask() wgpu.ColorWriteMask

	// BlendState returns the blend state, or nil when blending is disabled.
	//
	// Returns:
	//   - *wgpu.BlendState: the blend state
	BlendState() *wgpu.BlendState

	// Release frees the GPU pipeline. Further calls do nothing.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline creates the render state for one variant. Blended pipelines default to
// straight alpha blending without depth writes; opaque pipelines write depth.
// Both cull nothing, as imported meshes often carry inconsistent winding.
//
// Parameters:
//   - key: the debug label
//   - variant: the pass the pipeline is drawn in
//   - opts: functional options overriding the variant defaults
//
// Returns:
//   - Pipeline: the new pipeline state
func NewPipeline(key string, variant Variant, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		key:               key,
		variant:           variant,
		depthTestEnabled:  true,
		depthWriteEnabled: variant == VariantOpaque,
		blendEnabled:      variant == VariantBlended,
		cullMode:          wgpu.CullModeNone,
		topology:          wgpu.PrimitiveTopologyTriangleList,
		frontFace:         wgpu.FrontFaceCCW,
		writeMask:         wgpu.ColorWriteMaskAll,
		blendState: &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) Key() string {
	return p.key
}

func (p *pipeline) Variant() Variant {
	return p.variant
}

func (p *pipeline) RenderPipeline() *wgpu.RenderPipeline {
	return p.renderPipeline
}

func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline) {
	p.renderPipeline = rp
}

func (p *pipeline) DepthTestEnabled() bool {
	return p.depthTestEnabled
}

func (p *pipeline) DepthWriteEnabled() bool {
	return p.depthWriteEnabled
}

func (p *pipeline) BlendEnabled() bool {
	return p.blendEnabled
}

func (p *pipeline) CullMode() wgpu.CullMode {
	return p.cullMode
}

func (p *pipeline) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) FrontFace() wgpu.FrontFace {
	return p.frontFace
}

func (p *pipeline) WriteMask() wgpu.ColorWriteMask {
	return p.writeMask
}

func (p *pipeline) BlendState() *wgpu.BlendState {
	if !p.blendEnabled {
		return nil
	}
	return p.blendState
}

func (p *pipeline) Release() {
	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
}
