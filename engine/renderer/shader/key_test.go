package shader

import (
	"strings"
	"testing"
)

func TestPrologue(t *testing.T) {
	tests := []struct {
		key  PermutationKey
		want string
	}{
		{0, ""},
		{FlagTexturing, "#define HAS_COLOR_MAP\n"},
		{FlagLighting | FlagSpecular, "#define HAS_PHONG_SPECULAR_SHADING\n#define HAS_LIGHTING\n"},
		{PermutationCount - 1, "#define HAS_COLOR_MAP\n#define HAS_VERTEX_COLOR\n#define HAS_PHONG_SPECULAR_SHADING\n#define HAS_SKINNING\n#define HAS_LIGHTING\n"},
	}
	for _, tt := range tests {
		if got := tt.key.Prologue(); got != tt.want {
			t.Fatalf("Prologue(%v) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestKeyString(t *testing.T) {
	if got := PermutationKey(0).String(); got != "base" {
		t.Fatalf("String = %q", got)
	}
	if got := (FlagTexturing | FlagLighting).String(); got != "texturing+lighting" {
		t.Fatalf("String = %q", got)
	}
}

func TestTemplatesPreprocessForEveryKey(t *testing.T) {
	for k := PermutationKey(0); k < PermutationCount; k++ {
		for _, stage := range []Stage{StageVertex, StageFragment} {
			src, err := Preprocess(Source(stage, k))
			if err != nil {
				t.Fatalf("%s/%s: %v", k, stage, err)
			}
			if stage == StageFragment {
				if sampled := strings.Contains(src, "textureSample("); sampled != k.Has(FlagTexturing) {
					t.Fatalf("%s: textureSample present = %v", k, sampled)
				}
				lit := k.Has(FlagLighting)
				if got := strings.Contains(src, "n_dot_l"); got != lit {
					t.Fatalf("%s: lighting block present = %v", k, got)
				}
				if got := strings.Contains(src, "reflect("); got != (lit && k.Has(FlagSpecular)) {
					t.Fatalf("%s: specular block present = %v", k, got)
				}
			}
		}
	}
}
