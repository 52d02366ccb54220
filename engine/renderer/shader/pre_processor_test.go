package shader

import (
	"strings"
	"testing"
)

func TestProcessConditionals(t *testing.T) {
	src := strings.Join([]string{
		"#define A",
		"a",
		"#ifdef A",
		"in-a",
		"#ifdef B",
		"in-b",
		"#else",
		"not-b",
		"#endif",
		"#else",
		"not-a",
		"#endif",
		"#ifndef B",
		"no-b",
		"#endif",
		"tail",
	}, "\n")

	got, err := Preprocess(src)
	if err != nil {
		t.Fatalf("Preprocess: %v", err)
	}
	lines := strings.Split(got, "\n")
	if len(lines) != 16 {
		t.Fatalf("got %d lines, want 16 to keep line numbers", len(lines))
	}
	var kept []string
	for _, l := range lines {
		if l != "" {
			kept = append(kept, l)
		}
	}
	want := []string{"a", "in-a", "not-b", "no-b", "tail"}
	if strings.Join(kept, ",") != strings.Join(want, ",") {
		t.Fatalf("kept %v, want %v", kept, want)
	}
}

func TestDefineInsideDisabledBlockIsIgnored(t *testing.T) {
	p := NewPreProcessor()
	if _, err := p.Process("#ifdef NOPE\n#define LATER\n#endif\n"); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if p.Defined("LATER") {
		t.Fatal("#define in a disabled block took effect")
	}
}

func TestNewPreProcessorDefines(t *testing.T) {
	p := NewPreProcessor("HAS_LIGHTING")
	got, err := p.Process("#ifdef HAS_LIGHTING\nlit\n#endif")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !strings.Contains(got, "lit") {
		t.Fatalf("got %q, want the lit block", got)
	}
}

func TestProcessErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unterminated", "#ifdef A\nx", "line 1"},
		{"stray endif", "x\n#endif", "line 2"},
		{"stray else", "#else", "line 1"},
		{"double else", "#ifdef A\n#else\n#else\n#endif", "line 3"},
		{"unknown directive", "#include \"x\"", "unknown directive"},
		{"define value", "#define A 1", "exactly one symbol"},
		{"ifdef arity", "#ifdef\n#endif", "exactly one symbol"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Preprocess(tt.src)
			if err == nil {
				t.Fatal("Preprocess accepted malformed source")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}
