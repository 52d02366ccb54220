package renderer

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-view/common"
)

// VisibleNodes returns the nodes with at least one mesh whose bounding sphere intersects the view frustum.
// Skinned meshes move away from their bind pose bounds, so nodes holding one are always kept.
//
// Parameters:
//   - frame: the evaluated scene
//   - viewProj: the view projection matrix of the camera
//   - out: destination slice, reused when it has enough capacity
//
// Returns:
//   - []int: the visible node indices in graph order
func VisibleNodes(frame FrameSource, viewProj mgl32.Mat4, out []int) []int {
	out = out[:0]
	asset := frame.Asset()
	if asset == nil || asset.Graph == nil {
		return out
	}
	frustum := common.ExtractFrustum(viewProj)
	for _, node := range asset.Graph.Order() {
		for _, mi := range asset.Graph.Nodes[node].Meshes {
			mesh := asset.Meshes[mi]
			if mesh.Skinned() {
				out = append(out, node)
				break
			}
			world := frame.WorldTransform(node)
			center, radius := mesh.Bounds()
			c := mgl32.TransformCoordinate(center, world)
			if frustum.ContainsSphere(c, radius*maxScale(world)) {
				out = append(out, node)
				break
			}
		}
	}
	return out
}

// maxScale returns the largest axis scale of an affine transform.
func maxScale(m mgl32.Mat4) float32 {
	return max(m.Col(0).Vec3().Len(), m.Col(1).Vec3().Len(), m.Col(2).Vec3().Len())
}
