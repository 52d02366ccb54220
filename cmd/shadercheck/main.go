// Command shadercheck preprocesses every uber shader permutation and validates it with naga,
// optionally writing the SPIR-V of each stage to a directory.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gogpu/naga"
	"github.com/pkg/errors"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer/shader"
)

// compileFunc translates WGSL source to SPIR-V.
type compileFunc func(source string) ([]byte, error)

// result is the outcome of one stage of one permutation.
type result struct {
	key   shader.PermutationKey
	stage shader.Stage
	size  int
	err   error
}

func main() {
	dump := flag.String("dump", "", "directory to write the SPIR-V of every stage to")
	verbose := flag.Bool("v", false, "log every stage, not only failures")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	common.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if *dump != "" {
		if err := os.MkdirAll(*dump, 0o755); err != nil {
			common.Logger().Error("create dump directory", "error", err)
			os.Exit(1)
		}
	}

	failed := 0
	for _, r := range checkAll(naga.Compile, *dump) {
		if r.err != nil {
			failed++
			common.Logger().Error("permutation failed", "key", r.key, "stage", r.stage, "error", r.err)
			continue
		}
		common.Logger().Debug("permutation ok", "key", r.key, "stage", r.stage, "bytes", r.size)
	}
	if failed > 0 {
		common.Logger().Error("shader check failed", "failed", failed, "total", 2*shader.PermutationCount)
		os.Exit(1)
	}
	common.Logger().Info("shader check passed", "permutations", shader.PermutationCount)
}

// checkAll preprocesses and compiles both stages of every permutation key.
//
// Parameters:
//   - compile: the WGSL compiler
//   - dumpDir: directory to write each stage's output to, or empty to skip writing
//
// Returns:
//   - []result: one result per key and stage, in key order
func checkAll(compile compileFunc, dumpDir string) []result {
	results := make([]result, 0, 2*shader.PermutationCount)
	for k := range shader.PermutationCount {
		key := shader.PermutationKey(k)
		for _, stage := range []shader.Stage{shader.StageVertex, shader.StageFragment} {
			r := result{key: key, stage: stage}
			var out []byte
			out, r.err = checkStage(compile, key, stage)
			r.size = len(out)
			if r.err == nil && dumpDir != "" {
				name := filepath.Join(dumpDir, fmt.Sprintf("%02d_%s.%s.spv", k, key, stage))
				if err := os.WriteFile(name, out, 0o644); err != nil {
					r.err = errors.Wrapf(err, "write %s", name)
				}
			}
			results = append(results, r)
		}
	}
	return results
}

func checkStage(compile compileFunc, key shader.PermutationKey, stage shader.Stage) ([]byte, error) {
	src, err := shader.Preprocess(shader.Source(stage, key))
	if err != nil {
		return nil, &shader.ShaderCompileError{Key: key, Stage: stage, Log: err.Error()}
	}
	out, err := compile(src)
	if err != nil {
		return nil, &shader.ShaderCompileError{Key: key, Stage: stage, Log: err.Error()}
	}
	return out, nil
}
