package renderer

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/pkg/errors"

	"github.com/Carmen-Shannon/oxy-view/engine/renderer/shader"
)

// vertexFormatInfo holds the wgpu vertex format and its byte size for offset calculation.
type vertexFormatInfo struct {
	format wgpu.VertexFormat
	size   uint64
}

// wgslTypeLayout holds the byte size and alignment of a WGSL type.
type wgslTypeLayout struct {
	size  uint64
	align uint64
}

type parsedField struct {
	name      string
	typeName  string
	location  int
	isBuiltin bool
}

type parsedStruct struct {
	name   string
	fields []parsedField
}

// stageReflection is what the backend needs from a preprocessed WGSL stage to build pipelines.
type stageReflection struct {
	entryPoint    string
	vertexLayouts []wgpu.VertexBufferLayout
	bindGroups    map[int]wgpu.BindGroupLayoutDescriptor
}

var wgslVertexFormatMap = map[string]vertexFormatInfo{
	"f32":       {wgpu.VertexFormatFloat32, 4},
	"vec2<f32>": {wgpu.VertexFormatFloat32x2, 8},
	"vec2f":     {wgpu.VertexFormatFloat32x2, 8},
	"vec3<f32>": {wgpu.VertexFormatFloat32x3, 12},
	"vec3f":     {wgpu.VertexFormatFloat32x3, 12},
	"vec4<f32>": {wgpu.VertexFormatFloat32x4, 16},
	"vec4f":     {wgpu.VertexFormatFloat32x4, 16},
	"u32":       {wgpu.VertexFormatUint32, 4},
	"vec4<u32>": {wgpu.VertexFormatUint32x4, 16},
}

// Sizes and alignments of the host-shareable types the uber shaders use.
var wgslPrimitiveLayoutMap = map[string]wgslTypeLayout{
	"f32":         {4, 4},
	"u32":         {4, 4},
	"i32":         {4, 4},
	"vec2<f32>":   {8, 8},
	"vec3<f32>":   {12, 16},
	"vec4<f32>":   {16, 16},
	"mat3x3<f32>": {48, 16},
	"mat4x4<f32>": {64, 16},
}

var (
	structBlockRegex   = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)
	locationRegex      = regexp.MustCompile(`@location\((\d+)\)`)
	builtinRegex       = regexp.MustCompile(`@builtin\(\w+\)`)
	fieldRegex         = regexp.MustCompile(`(?:@\w+\([^)]*\)\s*)*(\w+)\s*:\s*(.+)`)
	vertexEntryRegex   = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`)
	fragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// reflectStage extracts the entry point, the vertex buffer layout and the bind group layouts
// from a preprocessed WGSL stage. Uniform buffers get a dynamic offset because every draw
// writes its uniforms into its own slot of a shared buffer.
//
// Parameters:
//   - stage: the stage the source belongs to
//   - source: WGSL with every preprocessor directive resolved
//
// Returns:
//   - stageReflection: the reflected layout
//   - error: error if the stage has no entry point or declares a resource the backend cannot bind
func reflectStage(stage shader.Stage, source string) (stageReflection, error) {
	cleaned := stripLineComments(source)
	structs := parseStructBlocks(cleaned)

	var r stageReflection
	var entryRe *regexp.Regexp
	visibility := wgpu.ShaderStageVertex
	if stage == shader.StageFragment {
		entryRe = fragmentEntryRegex
		visibility = wgpu.ShaderStageFragment
	} else {
		entryRe = vertexEntryRegex
	}
	match := entryRe.FindStringSubmatch(cleaned)
	if match == nil {
		return r, errors.Errorf("%s stage has no entry point", stage)
	}
	r.entryPoint = match[1]

	if stage == shader.StageVertex {
		for _, ps := range structs {
			if !isVertexInputStruct(ps) {
				continue
			}
			layout, ok := buildVertexBufferLayout(ps)
			if !ok {
				return r, errors.Errorf("vertex input %s has an attribute of unsupported type", ps.name)
			}
			r.vertexLayouts = append(r.vertexLayouts, layout)
		}
	}

	sizes := computeStructSizes(structs)
	groups := make(map[int][]wgpu.BindGroupLayoutEntry)
	for _, m := range bindGroupDeclRegex.FindAllStringSubmatch(cleaned, -1) {
		group, _ := strconv.Atoi(m[1])
		binding, _ := strconv.Atoi(m[2])
		addressSpace := strings.TrimSpace(m[3])
		typeName := strings.TrimSpace(m[5])

		entry, err := classifyResource(uint32(binding), visibility, addressSpace, typeName)
		if err != nil {
			return r, errors.Wrapf(err, "binding %s", m[4])
		}
		if entry.Buffer.Type != wgpu.BufferBindingTypeUndefined {
			layout, ok := sizes[typeName]
			if !ok {
				layout, ok = wgslPrimitiveLayoutMap[typeName]
			}
			if ok {
				entry.Buffer.MinBindingSize = layout.size
			}
		}
		groups[group] = append(groups[group], entry)
	}

	r.bindGroups = make(map[int]wgpu.BindGroupLayoutDescriptor, len(groups))
	for g, entries := range groups {
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Binding < entries[j].Binding
		})
		r.bindGroups[g] = wgpu.BindGroupLayoutDescriptor{Entries: entries}
	}
	return r, nil
}

// classifyResource creates the layout entry of a resource declaration.
func classifyResource(binding uint32, visibility wgpu.ShaderStage, addressSpace, typeName string) (wgpu.BindGroupLayoutEntry, error) {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: visibility,
	}
	switch {
	case addressSpace == "uniform":
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		entry.Buffer.HasDynamicOffset = true
	case addressSpace != "":
		return entry, errors.Errorf("address space %q is not supported", addressSpace)
	case typeName == "sampler":
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case typeName == "texture_2d<f32>":
		entry.Texture.SampleType = wgpu.TextureSampleTypeFloat
		entry.Texture.ViewDimension = wgpu.TextureViewDimension2D
	default:
		return entry, errors.Errorf("resource type %q is not supported", typeName)
	}
	return entry, nil
}

// mergeBindGroupLayouts combines the vertex and fragment bind group layouts into one set.
// Bindings declared by both stages are merged by OR-ing their visibility.
//
// Parameters:
//   - vertexLayouts: bind group layout descriptors from the vertex shader
//   - fragmentLayouts: bind group layout descriptors from the fragment shader
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: the merged descriptors keyed by group index
func mergeBindGroupLayouts(vertexLayouts, fragmentLayouts map[int]wgpu.BindGroupLayoutDescriptor) map[int]wgpu.BindGroupLayoutDescriptor {
	merged := make(map[int]wgpu.BindGroupLayoutDescriptor)
	for _, layouts := range []map[int]wgpu.BindGroupLayoutDescriptor{vertexLayouts, fragmentLayouts} {
		for g, desc := range layouts {
			existing := merged[g]
			for _, e := range desc.Entries {
				found := false
				for i := range existing.Entries {
					if existing.Entries[i].Binding == e.Binding {
						existing.Entries[i].Visibility |= e.Visibility
						found = true
						break
					}
				}
				if !found {
					existing.Entries = append(existing.Entries, e)
				}
			}
			merged[g] = existing
		}
	}
	for g, desc := range merged {
		sort.Slice(desc.Entries, func(i, j int) bool {
			return desc.Entries[i].Binding < desc.Entries[j].Binding
		})
		merged[g] = desc
	}
	return merged
}

func roundUpAlign(alignment, value uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

// computeStructSizes lays out every struct whose fields are all known primitives or
// previously resolved structs. Builtin fields are not part of a buffer and are skipped.
func computeStructSizes(structs []parsedStruct) map[string]wgslTypeLayout {
	resolved := make(map[string]wgslTypeLayout, len(structs))
	for progress := true; progress; {
		progress = false
	next:
		for _, ps := range structs {
			if _, done := resolved[ps.name]; done {
				continue
			}
			var offset uint64
			maxAlign := uint64(1)
			for _, f := range ps.fields {
				if f.isBuiltin {
					continue
				}
				l, ok := wgslPrimitiveLayoutMap[f.typeName]
				if !ok {
					if l, ok = resolved[f.typeName]; !ok {
						continue next
					}
				}
				offset = roundUpAlign(l.align, offset) + l.size
				maxAlign = max(maxAlign, l.align)
			}
			resolved[ps.name] = wgslTypeLayout{roundUpAlign(maxAlign, offset), maxAlign}
			progress = true
		}
	}
	return resolved
}

// isVertexInputStruct reports whether every field carries a @location and none is a builtin,
// which separates vertex inputs from inter-stage structs.
func isVertexInputStruct(ps parsedStruct) bool {
	if len(ps.fields) == 0 {
		return false
	}
	for _, f := range ps.fields {
		if f.isBuiltin || f.location < 0 {
			return false
		}
	}
	return true
}

func buildVertexBufferLayout(ps parsedStruct) (wgpu.VertexBufferLayout, bool) {
	attrs := make([]wgpu.VertexAttribute, 0, len(ps.fields))
	var offset uint64
	for _, f := range ps.fields {
		info, ok := wgslVertexFormatMap[f.typeName]
		if !ok {
			return wgpu.VertexBufferLayout{}, false
		}
		attrs = append(attrs, wgpu.VertexAttribute{
			Format:         info.format,
			Offset:         offset,
			ShaderLocation: uint32(f.location),
		})
		offset += info.size
	}
	return wgpu.VertexBufferLayout{
		ArrayStride: offset,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  attrs,
	}, true
}

func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))
	for _, m := range matches {
		structs = append(structs, parsedStruct{name: m[1], fields: parseStructFields(m[2])})
	}
	return structs
}

func parseStructFields(body string) []parsedField {
	var fields []parsedField
	for _, line := range splitAtTopLevelCommas(body) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		field := parsedField{location: -1, isBuiltin: builtinRegex.MatchString(line)}
		if lm := locationRegex.FindStringSubmatch(line); lm != nil {
			field.location, _ = strconv.Atoi(lm[1])
		}
		fm := fieldRegex.FindStringSubmatch(line)
		if fm == nil {
			continue
		}
		field.name = fm[1]
		field.typeName = strings.TrimSpace(fm[2])
		fields = append(fields, field)
	}
	return fields
}

// splitAtTopLevelCommas splits at commas outside angle brackets, so array<T, N> stays whole.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

func stripLineComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	for line := range strings.SplitSeq(source, "\n") {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}
