package pipeline

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

func TestVariantDefaults(t *testing.T) {
	tests := []struct {
		variant    Variant
		depthWrite bool
		blend      bool
	}{
		{VariantOpaque, true, false},
		{VariantBlended, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.variant.String(), func(t *testing.T) {
			p := NewPipeline("uber", tt.variant)
			if !p.DepthTestEnabled() {
				t.Fatal("depth test disabled")
			}
			if p.DepthWriteEnabled() != tt.depthWrite {
				t.Fatalf("depth write = %v, want %v", p.DepthWriteEnabled(), tt.depthWrite)
			}
			if p.BlendEnabled() != tt.blend {
				t.Fatalf("blend = %v, want %v", p.BlendEnabled(), tt.blend)
			}
			if (p.BlendState() != nil) != tt.blend {
				t.Fatalf("blend state present = %v, want %v", p.BlendState() != nil, tt.blend)
			}
		})
	}
}

func TestOptionsOverrideDefaults(t *testing.T) {
	p := NewPipeline("uber", VariantBlended,
		WithDepthWriteEnabled(true),
		WithCullMode(wgpu.CullModeBack),
		WithFrontFace(wgpu.FrontFaceCW),
	)
	if !p.DepthWriteEnabled() || p.CullMode() != wgpu.CullModeBack || p.FrontFace() != wgpu.FrontFaceCW {
		t.Fatal("options not applied")
	}
	p.Release()
	if p.RenderPipeline() != nil {
		t.Fatal("released pipeline still holds a GPU object")
	}
}
