package shader

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrCacheDisposed is returned by GenerateOrGet after Dispose.
var ErrCacheDisposed = errors.New("shader cache disposed")

// ShaderCompileError reports a stage of a permutation that failed to compile.
type ShaderCompileError struct {
	Key   PermutationKey
	Stage Stage
	Log   string
}

func (e *ShaderCompileError) Error() string {
	return fmt.Sprintf("compile %s stage of permutation %s: %s", e.Stage, e.Key, e.Log)
}

// ShaderLinkError reports a permutation whose compiled stages failed to link.
type ShaderLinkError struct {
	Key PermutationKey
	Log string
}

func (e *ShaderLinkError) Error() string {
	return fmt.Sprintf("link permutation %s: %s", e.Key, e.Log)
}
