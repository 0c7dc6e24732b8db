package input

import (
	"github.com/achilleasa/qbvh/types"
)

// A triangle primitive
type Primitive struct {
	Vertices [3]types.Vec3

	aabb types.Aabb
}

// Create a triangle primitive and calculate its bounding box.
func NewPrimitive(v0, v1, v2 types.Vec3) *Primitive {
	return &Primitive{
		Vertices: [3]types.Vec3{v0, v1, v2},
		aabb:     types.AabbFromPoints(v0, v1, v2),
	}
}

// Get the primitive AABB.
func (prim *Primitive) Aabb() types.Aabb {
	return prim.aabb
}

// Get primitive AABB center.
func (prim *Primitive) Center() types.Vec3 {
	return prim.aabb.Center()
}

// A mesh is constructed by a list of primitive.
type Mesh struct {
	Name       string
	Primitives []*Primitive

	aabb            types.Aabb
	aabbNeedsUpdate bool
}

// Create a new mesh.
func NewMesh(name string) *Mesh {
	return &Mesh{
		Name:            name,
		Primitives:      make([]*Primitive, 0),
		aabbNeedsUpdate: true,
	}
}

// Append a primitive and mark the mesh bounds as dirty.
func (m *Mesh) AddPrimitive(prim *Primitive) {
	m.Primitives = append(m.Primitives, prim)
	m.aabbNeedsUpdate = true
}

// Get mesh bounding box.
func (m *Mesh) Aabb() types.Aabb {
	if m.aabbNeedsUpdate {
		m.aabb = types.EmptyAabb()
		for _, prim := range m.Primitives {
			m.aabb.IncludeAabb(prim.Aabb())
		}
		m.aabbNeedsUpdate = false
	}

	return m.aabb
}

// A mesh instance applies a transformation to a particular Mesh.
type MeshInstance struct {
	MeshIndex uint32
	Transform types.Mat4
}

// The scene contains all elements that are processed by the scene compiler.
type Scene struct {
	Meshes        []*Mesh
	MeshInstances []*MeshInstance
}

// Create a new scene.
func NewScene() *Scene {
	return &Scene{
		Meshes:        make([]*Mesh, 0),
		MeshInstances: make([]*MeshInstance, 0),
	}
}
