// pre_processor.go resolves the conditional blocks of the uber shader templates.
// WGSL has no preprocessor, so permutations are expressed with a small C-like subset:
//
//	#define NAME
//	#ifdef NAME / #ifndef NAME
//	#else
//	#endif
//
// Blocks nest. Directive lines and lines in disabled blocks are emitted as empty lines so
// compiler diagnostics keep the line numbers of the template.
package shader

import (
	"strings"

	"github.com/pkg/errors"
)

type preProcessor struct {
	defines map[string]bool
}

// PreProcessor turns a template with #ifdef blocks into plain WGSL.
type PreProcessor interface {
	// Process resolves all directives of source. Symbols defined in source stay defined for
	// later calls on the same PreProcessor.
	//
	// Parameters:
	//   - source: the template text, usually a prologue followed by a template
	//
	// Returns:
	//   - string: WGSL with every directive removed
	//   - error: error naming the line of a malformed or unbalanced directive
	Process(source string) (string, error)

	// Defined reports whether a symbol is currently defined.
	//
	// Parameters:
	//   - name: the symbol
	//
	// Returns:
	//   - bool: true if defined
	Defined(name string) bool
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor with the given symbols already defined.
//
// Parameters:
//   - defines: symbols to define up front
//
// Returns:
//   - PreProcessor: the new pre-processor
func NewPreProcessor(defines ...string) PreProcessor {
	p := &preProcessor{defines: make(map[string]bool, len(defines))}
	for _, d := range defines {
		p.defines[d] = true
	}
	return p
}

// Preprocess resolves a source in one call with a fresh PreProcessor.
//
// Parameters:
//   - source: the template text
//
// Returns:
//   - string: plain WGSL
//   - error: error if a directive is malformed
func Preprocess(source string) (string, error) {
	return NewPreProcessor().Process(source)
}

// condFrame is one open #ifdef block.
type condFrame struct {
	line       int
	parentLive bool
	taken      bool
	seenElse   bool
}

func (p *preProcessor) Process(source string) (string, error) {
	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	var stack []condFrame
	live := true

	for i, line := range lines {
		n := i + 1
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#") {
			if live {
				out = append(out, line)
			} else {
				out = append(out, "")
			}
			continue
		}

		fields := strings.Fields(trimmed)
		directive := fields[0]
		switch directive {
		case "#define":
			if len(fields) != 2 {
				return "", errors.Errorf("line %d: #define takes exactly one symbol", n)
			}
			if live {
				p.defines[fields[1]] = true
			}
		case "#ifdef", "#ifndef":
			if len(fields) != 2 {
				return "", errors.Errorf("line %d: %s takes exactly one symbol", n, directive)
			}
			cond := p.defines[fields[1]]
			if directive == "#ifndef" {
				cond = !cond
			}
			stack = append(stack, condFrame{line: n, parentLive: live, taken: cond})
			live = live && cond
		case "#else":
			if len(stack) == 0 {
				return "", errors.Errorf("line %d: #else without #ifdef", n)
			}
			top := &stack[len(stack)-1]
			if top.seenElse {
				return "", errors.Errorf("line %d: second #else for the block opened on line %d", n, top.line)
			}
			top.seenElse = true
			live = top.parentLive && !top.taken
		case "#endif":
			if len(stack) == 0 {
				return "", errors.Errorf("line %d: #endif without #ifdef", n)
			}
			live = stack[len(stack)-1].parentLive
			stack = stack[:len(stack)-1]
		default:
			return "", errors.Errorf("line %d: unknown directive %q", n, directive)
		}
		out = append(out, "")
	}

	if len(stack) > 0 {
		return "", errors.Errorf("line %d: unterminated %s block", stack[len(stack)-1].line, "#ifdef")
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Defined(name string) bool {
	return p.defines[name]
}
