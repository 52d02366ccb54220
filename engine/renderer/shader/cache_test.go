package shader

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
)

type fakeStage struct {
	id     int
	stage  Stage
	source string
}

type fakeProgram struct {
	id int
}

// fakeCompiler records every compile and release so tests can check handle ownership.
type fakeCompiler struct {
	nextID          int
	compiles        int
	links           int
	failStage       map[Stage]bool
	failLink        bool
	liveStages      map[int]bool
	liveProgs       map[int]bool
	releasedStages  int
	releasedProgram int
}

func newFakeCompiler() *fakeCompiler {
	return &fakeCompiler{
		failStage:  map[Stage]bool{},
		liveStages: map[int]bool{},
		liveProgs:  map[int]bool{},
	}
}

func (f *fakeCompiler) CompileStage(stage Stage, label, source string) (StageHandle, error) {
	f.compiles++
	if f.failStage[stage] {
		return nil, errors.Errorf("%s: 12:3 error: unknown identifier", label)
	}
	if _, err := Preprocess(source); err != nil {
		return nil, err
	}
	f.nextID++
	f.liveStages[f.nextID] = true
	return &fakeStage{id: f.nextID, stage: stage, source: source}, nil
}

func (f *fakeCompiler) LinkProgram(label string, vertex, fragment StageHandle) (ProgramHandle, error) {
	f.links++
	if f.failLink {
		return nil, errors.New("entry point mismatch")
	}
	f.nextID++
	f.liveProgs[f.nextID] = true
	return &fakeProgram{id: f.nextID}, nil
}

func (f *fakeCompiler) ReleaseStage(h StageHandle) {
	f.releasedStages++
	delete(f.liveStages, h.(*fakeStage).id)
}

func (f *fakeCompiler) ReleaseProgram(h ProgramHandle) {
	f.releasedProgram++
	delete(f.liveProgs, h.(*fakeProgram).id)
}

func TestGenerateOrGetReturnsSameProgram(t *testing.T) {
	fc := newFakeCompiler()
	c := NewCache(fc)
	key := FlagTexturing | FlagLighting

	first, err := c.GenerateOrGet(key)
	if err != nil {
		t.Fatalf("GenerateOrGet: %v", err)
	}
	second, err := c.GenerateOrGet(key)
	if err != nil {
		t.Fatalf("GenerateOrGet: %v", err)
	}
	if first != second {
		t.Fatal("equal keys returned different programs")
	}
	if fc.compiles != 2 || fc.links != 1 {
		t.Fatalf("compiles = %d, links = %d; want 2, 1", fc.compiles, fc.links)
	}
	if first.Key != key {
		t.Fatalf("program key = %v, want %v", first.Key, key)
	}
}

func TestGenerateOrGetPrependsPrologue(t *testing.T) {
	fc := newFakeCompiler()
	c := NewCache(fc)
	p, err := c.GenerateOrGet(FlagVertexColor | FlagSkinning)
	if err != nil {
		t.Fatalf("GenerateOrGet: %v", err)
	}
	for _, h := range []StageHandle{p.Vertex, p.Fragment} {
		src := h.(*fakeStage).source
		want := "#define HAS_VERTEX_COLOR\n#define HAS_SKINNING\n"
		if !strings.HasPrefix(src, want) {
			t.Fatalf("%s source starts with %q, want %q", h.(*fakeStage).stage, src[:min(len(src), len(want))], want)
		}
	}
}

func TestDistinctKeysCompileSeparately(t *testing.T) {
	fc := newFakeCompiler()
	c := NewCache(fc)
	a, _ := c.GenerateOrGet(FlagLighting)
	b, _ := c.GenerateOrGet(FlagLighting | FlagSpecular)
	if a == b {
		t.Fatal("distinct keys share a program")
	}
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
}

func TestFragmentCompileErrorReleasesVertexStage(t *testing.T) {
	fc := newFakeCompiler()
	fc.failStage[StageFragment] = true
	c := NewCache(fc)

	_, err := c.GenerateOrGet(FlagTexturing)
	var ce *ShaderCompileError
	if !errors.As(err, &ce) {
		t.Fatalf("error = %v, want *ShaderCompileError", err)
	}
	if ce.Stage != StageFragment || ce.Key != FlagTexturing {
		t.Fatalf("compile error for %s/%s, want fragment/texturing", ce.Stage, ce.Key)
	}
	if !strings.Contains(ce.Log, "unknown identifier") {
		t.Fatalf("log %q lost the compiler diagnostic", ce.Log)
	}
	if len(fc.liveStages) != 0 {
		t.Fatalf("%d stages leaked", len(fc.liveStages))
	}
	if c.Len() != 0 {
		t.Fatal("failed permutation was cached")
	}

	// the failure is not sticky
	fc.failStage[StageFragment] = false
	if _, err := c.GenerateOrGet(FlagTexturing); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

func TestVertexCompileError(t *testing.T) {
	fc := newFakeCompiler()
	fc.failStage[StageVertex] = true
	c := NewCache(fc)
	_, err := c.GenerateOrGet(0)
	var ce *ShaderCompileError
	if !errors.As(err, &ce) || ce.Stage != StageVertex {
		t.Fatalf("error = %v, want vertex *ShaderCompileError", err)
	}
	if fc.compiles != 1 {
		t.Fatalf("compiles = %d, want 1", fc.compiles)
	}
}

func TestLinkErrorReleasesBothStages(t *testing.T) {
	fc := newFakeCompiler()
	fc.failLink = true
	c := NewCache(fc)

	_, err := c.GenerateOrGet(FlagLighting)
	var le *ShaderLinkError
	if !errors.As(err, &le) {
		t.Fatalf("error = %v, want *ShaderLinkError", err)
	}
	if le.Key != FlagLighting || le.Log != "entry point mismatch" {
		t.Fatalf("link error = %+v", le)
	}
	if fc.releasedStages != 2 || len(fc.liveStages) != 0 {
		t.Fatalf("released %d stages with %d live, want 2 and 0", fc.releasedStages, len(fc.liveStages))
	}
	if c.Len() != 0 {
		t.Fatal("failed permutation was cached")
	}
}

func TestDisposeIsIdempotent(t *testing.T) {
	fc := newFakeCompiler()
	c := NewCache(fc)
	for _, k := range []PermutationKey{0, FlagTexturing, FlagLighting | FlagSpecular} {
		if _, err := c.GenerateOrGet(k); err != nil {
			t.Fatalf("GenerateOrGet(%v): %v", k, err)
		}
	}

	c.Dispose()
	c.Dispose()
	if fc.releasedProgram != 3 || fc.releasedStages != 6 {
		t.Fatalf("released %d programs and %d stages, want 3 and 6", fc.releasedProgram, fc.releasedStages)
	}
	if len(fc.liveProgs) != 0 || len(fc.liveStages) != 0 {
		t.Fatal("handles leaked after Dispose")
	}
	if _, err := c.GenerateOrGet(0); !errors.Is(err, ErrCacheDisposed) {
		t.Fatalf("GenerateOrGet after Dispose = %v, want ErrCacheDisposed", err)
	}
}

func TestWithTemplates(t *testing.T) {
	fc := newFakeCompiler()
	c := NewCache(fc, WithTemplates("vs body", "fs body"), WithLabel("test"))
	p, err := c.GenerateOrGet(FlagSpecular)
	if err != nil {
		t.Fatalf("GenerateOrGet: %v", err)
	}
	if got := p.Vertex.(*fakeStage).source; got != "#define HAS_PHONG_SPECULAR_SHADING\nvs body" {
		t.Fatalf("vertex source = %q", got)
	}
	if p.Label != "test[specular]" {
		t.Fatalf("label = %q", p.Label)
	}
}
