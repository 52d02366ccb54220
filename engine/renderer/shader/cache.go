package shader

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-view/common"
)

// StageHandle is a compiled stage owned by a Compiler.
type StageHandle any

// ProgramHandle is a linked program owned by a Compiler.
type ProgramHandle any

// Compiler is the GPU side of the cache. Every handle it returns is released exactly once
// through the matching Release call.
type Compiler interface {
	// CompileStage compiles one stage from the prologue and template text.
	//
	// Parameters:
	//   - stage: the stage being compiled
	//   - label: a debug label for the GPU object
	//   - source: prologue followed by the template
	//
	// Returns:
	//   - StageHandle: the compiled stage
	//   - error: error whose message is the compiler log
	CompileStage(stage Stage, label, source string) (StageHandle, error)

	// LinkProgram combines a vertex and a fragment stage into a drawable program.
	//
	// Parameters:
	//   - label: a debug label for the GPU object
	//   - vertex: the compiled vertex stage
	//   - fragment: the compiled fragment stage
	//
	// Returns:
	//   - ProgramHandle: the linked program
	//   - error: error whose message is the link log
	LinkProgram(label string, vertex, fragment StageHandle) (ProgramHandle, error)

	// ReleaseStage frees a compiled stage.
	//
	// Parameters:
	//   - h: the stage to free
	ReleaseStage(h StageHandle)

	// ReleaseProgram frees a linked program.
	//
	// Parameters:
	//   - h: the program to free
	ReleaseProgram(h ProgramHandle)
}

// Program is a compiled and linked permutation. The cache owns it; callers must not release it.
type Program struct {
	// Key is the permutation this program implements.
	Key PermutationKey

	// Label is the debug label given to the GPU objects.
	Label string

	// Vertex is the compiled vertex stage.
	Vertex StageHandle

	// Fragment is the compiled fragment stage.
	Fragment StageHandle

	// Linked is the drawable program.
	Linked ProgramHandle
}

type cache struct {
	mu               *sync.Mutex
	compiler         Compiler
	label            string
	vertexTemplate   string
	fragmentTemplate string
	programs         map[PermutationKey]*Program
	disposed         bool
}

// Cache compiles uber shader permutations on first use and keeps them until Dispose.
type Cache interface {
	// GenerateOrGet returns the program for key, compiling and linking it on a miss.
	// A failed compile or link caches nothing, so a later call retries.
	//
	// Parameters:
	//   - key: the permutation
	//
	// Returns:
	//   - *Program: the cached program; equal keys return the same pointer
	//   - error: *ShaderCompileError, *ShaderLinkError or ErrCacheDisposed
	GenerateOrGet(key PermutationKey) (*Program, error)

	// Len returns the number of cached programs.
	//
	// Returns:
	//   - int: the program count
	Len() int

	// Dispose releases every cached program. Further calls do nothing.
	Dispose()
}

var _ Cache = &cache{}

// NewCache creates an empty Cache that compiles through the given Compiler.
//
// Parameters:
//   - compiler: the GPU compiler
//   - options: functional options to configure the cache
//
// Returns:
//   - Cache: the new cache
func NewCache(compiler Compiler, options ...CacheBuilderOption) Cache {
	c := &cache{
		mu:               &sync.Mutex{},
		compiler:         compiler,
		label:            "uber",
		vertexTemplate:   VertexTemplate,
		fragmentTemplate: FragmentTemplate,
		programs:         make(map[PermutationKey]*Program),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *cache) GenerateOrGet(key PermutationKey) (*Program, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return nil, ErrCacheDisposed
	}
	if p, ok := c.programs[key]; ok {
		return p, nil
	}

	label := fmt.Sprintf("%s[%s]", c.label, key)
	prologue := key.Prologue()

	vs, err := c.compiler.CompileStage(StageVertex, label+" vertex", prologue+c.vertexTemplate)
	if err != nil {
		return nil, &ShaderCompileError{Key: key, Stage: StageVertex, Log: err.Error()}
	}
	fs, err := c.compiler.CompileStage(StageFragment, label+" fragment", prologue+c.fragmentTemplate)
	if err != nil {
		c.compiler.ReleaseStage(vs)
		return nil, &ShaderCompileError{Key: key, Stage: StageFragment, Log: err.Error()}
	}
	linked, err := c.compiler.LinkProgram(label, vs, fs)
	if err != nil {
		c.compiler.ReleaseStage(vs)
		c.compiler.ReleaseStage(fs)
		return nil, &ShaderLinkError{Key: key, Log: err.Error()}
	}

	p := &Program{Key: key, Label: label, Vertex: vs, Fragment: fs, Linked: linked}
	c.programs[key] = p
	common.Logger().Debug("shader permutation built", "key", key.String(), "cached", len(c.programs))
	return p, nil
}

func (c *cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.programs)
}

func (c *cache) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return
	}
	c.disposed = true
	for key, p := range c.programs {
		c.compiler.ReleaseProgram(p.Linked)
		c.compiler.ReleaseStage(p.Vertex)
		c.compiler.ReleaseStage(p.Fragment)
		delete(c.programs, key)
	}
}
