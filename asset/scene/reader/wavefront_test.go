package reader

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/achilleasa/qbvh/asset"
	"github.com/achilleasa/qbvh/asset/compiler"
	"github.com/achilleasa/qbvh/types"
)

func mockResource(payload string) *asset.Resource {
	return asset.NewResourceFromStream("embedded", strings.NewReader(payload))
}

func testOptions() compiler.Options {
	opts := compiler.DefaultOptions()
	opts.CheckIntegrity = true
	return opts
}

func TestVec3Parser(t *testing.T) {
	expError := `unsupported syntax for "v"; expected 3 arguments; got 0`
	_, err := parseVec3([]string{"v"})
	if err == nil || err.Error() != expError {
		t.Fatalf("expected to get %s; got %v", expError, err)
	}

	_, err = parseVec3([]string{"v", "not-a-float", "2", "3"})
	if err == nil {
		t.Fatal("expected to get a parse error")
	}

	v, err := parseVec3([]string{"v", "3.14", "0", "0.4"})
	if err != nil {
		t.Fatal(err)
	}

	expVal := types.Vec3{3.14, 0, 0.4}
	if !reflect.DeepEqual(v, expVal) {
		t.Fatalf("expected parsed value to be %v; got %v", expVal, v)
	}
}

func TestSelectFaceCoordinate(t *testing.T) {
	expError := "index out of bounds"
	type spec struct {
		in        string
		listLen   int
		relOffset int
		out       int
		expError  string
	}
	specs := []spec{
		{"2", 1, 0, -1, expError},
		{"-2", 1, 0, -1, expError},
		{"1", 10, 0, 0, ""}, // indices are 1-based
		{"-1", 10, 0, 9, ""},
		{"1", 10, 4, 4, ""}, // included files use their own 1-based indices
	}

	for idx, s := range specs {
		v, err := selectFaceCoordIndex(s.in, s.listLen, s.relOffset)
		if s.expError != "" && (err == nil || err.Error() != s.expError) {
			t.Fatalf("[spec %d] expected error %s; got %v", idx, s.expError, err)
		} else if v != s.out {
			t.Fatalf("[spec %d] expected index to be %d; got %d", idx, s.out, v)
		}
	}
}

func TestDefaultMeshInstanceGeneration(t *testing.T) {
	payload := `
o testObj
v 0 0 0
v 1 0 0
v 0 1 0
vn 1 0 0
vt 0 0
# Comment
f 1/1/1 2/1/1 -1/1/1
`

	r := newWavefrontReader(testOptions())
	sc, err := r.Read(mockResource(payload))
	if err != nil {
		t.Fatal(err)
	}

	expMeshInstances := 1
	if len(r.rawScene.MeshInstances) != expMeshInstances {
		t.Fatalf("expected %d mesh instances to be generated; got %d", expMeshInstances, len(r.rawScene.MeshInstances))
	}
	inst0 := r.rawScene.MeshInstances[0]
	if inst0.MeshIndex != 0 {
		t.Fatalf("expected mesh instance to point to mesh at index 0; got %d", inst0.MeshIndex)
	}
	if !reflect.DeepEqual(inst0.Transform, types.Ident4()) {
		t.Fatalf("expected mesh instance transform matrix to be equal to a 4x4 identity matrix; got %v", inst0.Transform)
	}

	expDomain := types.NewAabb(types.XYZ(0, 0, 0), types.XYZ(1, 1, 0))
	if domain := sc.InstanceTree().Domain(); !types.ApproxEqual(domain.Min, expDomain.Min, 1e-3) || !types.ApproxEqual(domain.Max, expDomain.Max, 1e-3) {
		t.Fatalf("expected scene domain to be %v; got %v", expDomain, domain)
	}
}

func TestMeshInstancing(t *testing.T) {
	payload := `
o testObj
v 0 0 0
v 1 0 0
v 0 1 0
f 1 2 3
# Mesh instances
instance testObj 	1 0 1	0 0 0 	1 1 1
instance testObj 	0 0 0	0 90 0 	1 1 1
instance testObj 	0 1 0	90 0 0	10 10 10
`

	r := newWavefrontReader(testOptions())
	sc, err := r.Read(mockResource(payload))
	if err != nil {
		t.Fatal(err)
	}

	expMeshInstances := 3
	if len(r.rawScene.MeshInstances) != expMeshInstances {
		t.Fatalf("expected %d mesh instances to be generated; got %d", expMeshInstances, len(r.rawScene.MeshInstances))
	}

	type spec struct {
		instance   uint32
		in, expOut types.Vec3
	}
	specs := []spec{
		{0, types.Vec3{0, 0, 0}, types.Vec3{1, 0, 1}},
		{0, types.Vec3{-1, 0, -1}, types.Vec3{0, 0, 0}},
		{1, types.Vec3{1, 0, 0}, types.Vec3{0, 0, -1}},
		{1, types.Vec3{0, 0, -1}, types.Vec3{-1, 0, 0}},
		{2, types.Vec3{0, 1, 0}, types.Vec3{0, 0, 20}},
	}
	for idx, s := range specs {
		inst := r.rawScene.MeshInstances[s.instance]
		out := inst.Transform.TransformPoint(s.in)
		if !types.ApproxEqual(out, s.expOut, 1e-3) {
			t.Fatalf("[spec %d] expected transformed point with instance %d matrix to be %v; got %v", idx, s.instance, s.expOut, out)
		}

		// The compiled instance carries the inverse transform.
		back := sc.MeshInstanceList[s.instance].WorldToLocal.TransformPoint(out)
		if !types.ApproxEqual(back, s.in, 1e-3) {
			t.Fatalf("[spec %d] expected inverse transform to yield %v; got %v", idx, s.in, back)
		}
	}

	expAabb := types.NewAabb(types.Vec3{1, 0, 1}, types.Vec3{2, 1, 1})
	if domain := sc.InstanceTree().Domain(); !domain.Contains(expAabb) {
		t.Fatalf("expected scene domain %v to contain %v", domain, expAabb)
	}
}

func TestParseObjects(t *testing.T) {
	payload := `
# Ignored statements
mtllib materials.mtl
usemtl foo
vn 0 0 1
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
f 1 2 3
o quad
f 1//1 2//1 3//1 4//1
g empty
o negative
f -4 -3 -2
`

	r := newWavefrontReader(testOptions())
	if err := r.parse(mockResource(payload)); err != nil {
		t.Fatal(err)
	}

	type spec struct {
		name          string
		numPrimitives int
	}
	specs := []spec{
		{"default", 1},
		{"quad", 2},
		{"negative", 1},
	}
	if len(r.rawScene.Meshes) != len(specs) {
		t.Fatalf("expected %d meshes to be parsed; got %d", len(specs), len(r.rawScene.Meshes))
	}
	for idx, s := range specs {
		mesh := r.rawScene.Meshes[idx]
		if mesh.Name != s.name {
			t.Fatalf("[spec %d] expected mesh name to be %q; got %q", idx, s.name, mesh.Name)
		}
		if len(mesh.Primitives) != s.numPrimitives {
			t.Fatalf("[spec %d] expected mesh to contain %d primitives; got %d", idx, s.numPrimitives, len(mesh.Primitives))
		}
	}

	quad := r.rawScene.Meshes[1]
	expVertices := [3]types.Vec3{{0, 0, 0}, {1, 1, 0}, {0, 1, 0}}
	if quad.Primitives[1].Vertices != expVertices {
		t.Fatalf("expected second quad triangle to be %v; got %v", expVertices, quad.Primitives[1].Vertices)
	}
	expAabb := types.NewAabb(types.XYZ(0, 0, 0), types.XYZ(1, 1, 0))
	if quad.Aabb() != expAabb {
		t.Fatalf("expected quad bounds to be %v; got %v", expAabb, quad.Aabb())
	}
}

func TestParseErrors(t *testing.T) {
	type spec struct {
		payload  string
		expError string
	}
	specs := []spec{
		{"v 1 2", `[embedded: 1] error: unsupported syntax for "v"; expected 3 arguments; got 2`},
		{"v 0 0 0\nf 1 2", `[embedded: 2] error: unsupported syntax for "f"; expected 3 arguments for triangular face or 4 arguments for a quad face; got 2. Select the triangulation option in your exporter`},
		{"v 0 0 0\nf 1 1/1 1", `[embedded: 2] error: expected each face argument to contain 1 indices; arg 1 contains 2 indices`},
		{"v 0 0 0\nf 1 2 1", `[embedded: 2] error: could not parse vertex coord for face argument 1: index out of bounds`},
		{"o\n", `[embedded: 1] error: unsupported syntax for "o"; expected 1 argument for object name; got 0`},
		{"instance foo 0 0 0 0 0 0 1 1 1", `[embedded: 1] error: unknown mesh with name "foo"`},
		{"call", `[embedded: 1] error: unsupported syntax for "call"; expected 1 argument; got 0`},
	}

	for idx, s := range specs {
		r := newWavefrontReader(testOptions())
		err := r.parse(mockResource(s.payload))
		if err == nil || err.Error() != s.expError {
			t.Fatalf("[spec %d] expected error %q; got %v", idx, s.expError, err)
		}
	}
}

func TestCallInclude(t *testing.T) {
	serverFn := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/scene.obj":
			w.Write([]byte("v 9 9 9\ncall models/tri.obj\ninstance tri 0 0 0 0 0 0 1 1 1\ncall missing.obj\n"))
		case "/models/tri.obj":
			w.Write([]byte("o tri\nv 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"))
		default:
			http.NotFound(w, r)
		}
	})
	server := httptest.NewServer(serverFn)
	defer server.Close()

	res, err := asset.NewResource(server.URL+"/scene.obj", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()

	r := newWavefrontReader(testOptions())
	err = r.parse(res)
	if err == nil || !strings.Contains(err.Error(), "status 404") || !strings.Contains(err.Error(), "referenced from") {
		t.Fatalf("expected a 404 error with an include stack; got %v", err)
	}

	// The included file resolves its 1-based indices against its own vertices.
	if len(r.rawScene.Meshes) != 1 || len(r.rawScene.MeshInstances) != 1 {
		t.Fatalf("expected 1 mesh and 1 instance; got %d and %d", len(r.rawScene.Meshes), len(r.rawScene.MeshInstances))
	}
	expVertices := [3]types.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	if got := r.rawScene.Meshes[0].Primitives[0].Vertices; got != expVertices {
		t.Fatalf("expected included triangle to be %v; got %v", expVertices, got)
	}
}
