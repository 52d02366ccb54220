package model

import (
	"fmt"
)

// IntegrityKind classifies an AssetIntegrityError.
type IntegrityKind int

const (
	// IntegrityBadHierarchy covers missing roots, bad parent links and cycles.
	IntegrityBadHierarchy IntegrityKind = iota
	// IntegrityBadNodeIndex is a bone, channel or child referencing a node that does not exist.
	IntegrityBadNodeIndex
	// IntegrityBadBoneIndex is a vertex weight referencing a bone outside the mesh's bone list.
	IntegrityBadBoneIndex
	// IntegrityBadMeshIndex is a node referencing a mesh that does not exist.
	IntegrityBadMeshIndex
	// IntegrityNonMonotonicKeys is a keyframe track whose times decrease.
	IntegrityNonMonotonicKeys
	// IntegrityShapeMismatch is a per-vertex array whose length does not match the vertex count.
	IntegrityShapeMismatch
	// IntegrityBadValue is a NaN, infinite or negative value where none is allowed.
	IntegrityBadValue
)

func (k IntegrityKind) String() string {
	switch k {
	case IntegrityBadHierarchy:
		return "bad hierarchy"
	case IntegrityBadNodeIndex:
		return "bad node index"
	case IntegrityBadBoneIndex:
		return "bad bone index"
	case IntegrityBadMeshIndex:
		return "bad mesh index"
	case IntegrityNonMonotonicKeys:
		return "non-monotonic keyframes"
	case IntegrityShapeMismatch:
		return "shape mismatch"
	case IntegrityBadValue:
		return "bad value"
	default:
		return fmt.Sprintf("integrity kind %d", int(k))
	}
}

// AssetIntegrityError reports a structural defect found while validating an asset.
// An asset that fails validation is never activated.
type AssetIntegrityError struct {
	// Kind classifies the defect.
	Kind IntegrityKind
	// Subject names the offending element, for example `mesh "body" vertex 12`.
	Subject string
	// Detail describes the defect.
	Detail string
}

func (e *AssetIntegrityError) Error() string {
	return fmt.Sprintf("asset integrity: %s: %s: %s", e.Kind, e.Subject, e.Detail)
}

func integrityErrorf(kind IntegrityKind, subject, format string, args ...any) *AssetIntegrityError {
	return &AssetIntegrityError{Kind: kind, Subject: subject, Detail: fmt.Sprintf(format, args...)}
}
