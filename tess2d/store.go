package tess2d

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/unixpickle/essentials"

	"github.com/meshprim/surftri/brep"
)

// VertexType classifies where a vertex came from.
type VertexType int

const (
	// VertexNode sits on a topological node of the face boundary.
	VertexNode VertexType = iota

	// VertexEdge lies on the interior of a bounding edge.
	VertexEdge

	// VertexFace lies in the interior of the face.
	VertexFace
)

// A Vertex couples a 3-space position with its parameter-space
// coordinate. UV and XYZ are consistent up to the evaluator's
// tolerance at insertion time and drift only across explicit
// re-evaluation.
//
// For a VertexEdge, Edge names the owning edge and Index the
// discretization ordinal on that edge. For a VertexNode, Edge names
// the node; a negative node index marks a degenerate node.
type Vertex struct {
	Type  VertexType
	Edge  int
	Index int
	XYZ   mgl64.Vec3
	UV    mgl64.Vec2
}

// A Triangle references its three vertices and three neighbors by
// 1-based index. Side i is opposite vertex i, with ordered endpoints
// Indices[(i+1)%3] and Indices[(i+2)%3]. A neighbor value <= 0 means
// side i lies on boundary segment -Neighbors[i].
//
// Mark bit i flags side i as a swap candidate. Hit, Count, Mid,
// Close and Area are transient scratch owned by the phase driver.
type Triangle struct {
	Indices   [3]int
	Neighbors [3]int

	Mark  uint8
	Hit   int
	Count int
	Mid   mgl64.Vec3
	Close bool
	Area  float64
}

// A Segment is one side of the face's bounding polygon: two endpoint
// vertex indices and the triangle that shares the side. A negative
// Neighbor is a boundary sentinel.
type Segment struct {
	Indices  [2]int
	Neighbor int
}

// Quadder turns the frame triangulation into a quad-dominant one.
// It receives the tessellation and returns replacement vertices and
// triangles, or an error to fall back to the triangle pipeline.
type Quadder func(ts *Tessellation) ([]Vertex, [][3]int, error)

// Stats counts the work performed by one Tessellate call.
type Stats struct {
	Swaps     int
	Splits    int
	Collapses int
	OrCnt     int
	EvalCalls int

	// Accum is the progress accumulator of the most recent swap
	// pass: the worst angle for angle-driven passes, the minimum
	// dihedral dot for diagonal passes.
	Accum float64
}

// A Tessellation is the mesh store and configuration for refining a
// single face. Fill in the configuration, add the frame vertices,
// triangles and segments, then call Tessellate.
//
// All vertex and triangle indices are 1-based.
type Tessellation struct {
	// Face supplies surface evaluation for the patch.
	Face *brep.Face

	// FIndex is the face's index in the owning body, used only in
	// diagnostics.
	FIndex int

	// Planar marks faces whose surface is flat; they take a reduced
	// refinement schedule.
	Planar bool

	// OrUV is the required sign (+1 or -1) of every triangle's
	// signed UV area.
	OrUV int

	// Dotnrm, when in (0, 1], is the minimum allowed dihedral dot
	// between neighboring facets; facets are split until the
	// criterion holds.
	Dotnrm float64

	// Maxlen > 0 caps the 3-space edge length.
	Maxlen float64

	// Minlen > 0 floors the 3-space edge length of side splits: no
	// side split may produce a shorter edge. Centroid insertions do
	// not check it.
	Minlen float64

	// Chord > 0 caps the distance between a triangle's centroid and
	// the surface point at its UV centroid.
	Chord float64

	// MaxPts caps growth: a positive value is an absolute vertex
	// cap, a negative value caps insertions beyond the frame.
	MaxPts int

	// Qparm passes hints to the quadder.
	Qparm [3]float64

	// UVs optionally provides a quad UV grid; together with a
	// non-nil Quadder it enables the quad path.
	UVs []mgl64.Vec2

	// Lens gives the quad grid's four side counts.
	Lens [4]int

	// Quadder, when non-nil and UVs is present, is offered the
	// frame before triangle refinement begins.
	Quadder Quadder

	Verts []Vertex
	Tris  []Triangle
	Segs  []Segment

	// Frame is the read-only snapshot of the initial triangulation,
	// captured after the zero-area sweep. FrameUV holds the frame
	// vertices' parameter coordinates at capture time.
	Frame       [][3]int
	FrameUV     []mgl64.Vec2
	NFrame      int
	NFrameVerts int

	// Bary maps every vertex to a frame triangle and barycentric
	// weights after BaryFrame runs.
	Bary []BaryVertex

	// BadStart records that a frame triangle had the wrong UV area
	// sign when refinement started.
	BadStart bool

	Stats Stats

	// Derived metrics, set by Tessellate.
	vOverU float64
	devia2 float64
	eps2   float64
	edist2 float64

	outLevel int
	tID      int

	midcache *midHash
	normals  []mgl64.Vec3
}

// NewTessellation returns an empty store for the given face with the
// default positive orientation.
func NewTessellation(face *brep.Face) *Tessellation {
	return &Tessellation{
		Face:   face,
		OrUV:   1,
		Verts:  make([]Vertex, 0, vertChunk),
		Tris:   make([]Triangle, 0, triChunk),
		vOverU: 1,
	}
}

const (
	vertChunk = 256
	triChunk  = 512
)

// AddVert appends a vertex and returns its 1-based index.
func (ts *Tessellation) AddVert(typ VertexType, edge, index int, xyz mgl64.Vec3, uv mgl64.Vec2) int {
	if len(ts.Verts) == cap(ts.Verts) {
		grown := make([]Vertex, len(ts.Verts),
			essentials.MaxInt(cap(ts.Verts)*2, vertChunk))
		copy(grown, ts.Verts)
		ts.Verts = grown
	}
	ts.Verts = append(ts.Verts, Vertex{
		Type: typ, Edge: edge, Index: index, XYZ: xyz, UV: uv,
	})
	return len(ts.Verts)
}

// AddTri appends a triangle with no neighbor links and returns its
// 1-based index. Links are established by Tessellate via the segment
// stream.
func (ts *Tessellation) AddTri(i0, i1, i2 int) int {
	return ts.addTri(Triangle{Indices: [3]int{i0, i1, i2}})
}

func (ts *Tessellation) addTri(t Triangle) int {
	if len(ts.Tris) == cap(ts.Tris) {
		grown := make([]Triangle, len(ts.Tris),
			essentials.MaxInt(cap(ts.Tris)*2, triChunk))
		copy(grown, ts.Tris)
		ts.Tris = grown
	}
	ts.Tris = append(ts.Tris, t)
	return len(ts.Tris)
}

// AddSeg appends a bounding segment and returns its 1-based index.
func (ts *Tessellation) AddSeg(i0, i1 int) int {
	ts.Segs = append(ts.Segs, Segment{Indices: [2]int{i0, i1}, Neighbor: -1})
	return len(ts.Segs)
}

func (ts *Tessellation) vert(i int) *Vertex   { return &ts.Verts[i-1] }
func (ts *Tessellation) tri(i int) *Triangle  { return &ts.Tris[i-1] }
func (ts *Tessellation) seg(i int) *Segment   { return &ts.Segs[i-1] }
func (ts *Tessellation) uv(i int) mgl64.Vec2  { return ts.Verts[i-1].UV }
func (ts *Tessellation) xyz(i int) mgl64.Vec3 { return ts.Verts[i-1].XYZ }

// sideKey is an unordered vertex index pair.
type sideKey [2]int

func newSideKey(a, b int) sideKey {
	if a > b {
		a, b = b, a
	}
	return sideKey{a, b}
}

type sideRef struct {
	tri  int
	side int
}

// makeNeighbors rebuilds every triangle's neighbor links from the
// side stream, then attaches boundary segments. Each unordered side
// may appear in at most two triangles; any segment must match an
// unpaired side.
func (ts *Tessellation) makeNeighbors() error {
	open := make(map[sideKey]sideRef, len(ts.Tris)*3/2)
	for ti := 1; ti <= len(ts.Tris); ti++ {
		t := ts.tri(ti)
		for s := 0; s < 3; s++ {
			t.Neighbors[s] = 0
		}
	}
	for ti := 1; ti <= len(ts.Tris); ti++ {
		t := ts.tri(ti)
		for s := 0; s < 3; s++ {
			key := newSideKey(t.Indices[(s+1)%3], t.Indices[(s+2)%3])
			if ref, ok := open[key]; ok {
				other := ts.tri(ref.tri)
				if other.Neighbors[ref.side] != 0 {
					return fmt.Errorf("%w: side %v used three times",
						ErrDegenerate, key)
				}
				t.Neighbors[s] = ref.tri
				other.Neighbors[ref.side] = ti
				delete(open, key)
			} else {
				open[key] = sideRef{tri: ti, side: s}
			}
		}
	}
	for si := 1; si <= len(ts.Segs); si++ {
		sg := ts.seg(si)
		key := newSideKey(sg.Indices[0], sg.Indices[1])
		ref, ok := open[key]
		if !ok {
			return fmt.Errorf("%w: segment %v matches no open side",
				ErrDegenerate, key)
		}
		ts.tri(ref.tri).Neighbors[ref.side] = -si
		sg.Neighbor = ref.tri
		delete(open, key)
	}
	if len(open) != 0 {
		return fmt.Errorf("%w: %d sides open without a segment",
			ErrDegenerate, len(open))
	}
	return nil
}

// captureFrame snapshots the current triangulation as the read-only
// frame used by barycentric mapping.
func (ts *Tessellation) captureFrame() {
	ts.NFrame = len(ts.Tris)
	ts.NFrameVerts = len(ts.Verts)
	ts.Frame = make([][3]int, ts.NFrame)
	for i := range ts.Tris {
		ts.Frame[i] = ts.Tris[i].Indices
	}
	ts.FrameUV = make([]mgl64.Vec2, ts.NFrameVerts)
	for i := range ts.FrameUV {
		ts.FrameUV[i] = ts.Verts[i].UV
	}
}

// sideLen2 is the squared 3-space length of side s of triangle t.
func (ts *Tessellation) sideLen2(t, s int) float64 {
	tr := ts.tri(t)
	a := ts.xyz(tr.Indices[(s+1)%3])
	b := ts.xyz(tr.Indices[(s+2)%3])
	d := b.Sub(a)
	return d.Dot(d)
}

// uvArea is the signed UV area of triangle t.
func (ts *Tessellation) uvArea(t int) float64 {
	tr := ts.tri(t)
	return area2d(ts.uv(tr.Indices[0]), ts.uv(tr.Indices[1]), ts.uv(tr.Indices[2]))
}

// triNormal is the unnormalized facet normal of triangle t.
func (ts *Tessellation) triNormal(t int) mgl64.Vec3 {
	tr := ts.tri(t)
	p0 := ts.xyz(tr.Indices[0])
	p1 := ts.xyz(tr.Indices[1])
	p2 := ts.xyz(tr.Indices[2])
	return p1.Sub(p0).Cross(p2.Sub(p0))
}

// sideFor locates the side of t whose unordered endpoints are
// {a, b}, or -1.
func (ts *Tessellation) sideFor(t, a, b int) int {
	tr := ts.tri(t)
	for s := 0; s < 3; s++ {
		i1 := tr.Indices[(s+1)%3]
		i2 := tr.Indices[(s+2)%3]
		if (i1 == a && i2 == b) || (i1 == b && i2 == a) {
			return s
		}
	}
	return -1
}

// relink makes every reference to triangle old in t's neighborhood
// point at t instead: neighbor back-links and segment owners.
func (ts *Tessellation) relink(t int) {
	tr := ts.tri(t)
	for s := 0; s < 3; s++ {
		n := tr.Neighbors[s]
		if n > 0 {
			nt := ts.tri(n)
			a := tr.Indices[(s+1)%3]
			b := tr.Indices[(s+2)%3]
			if ns := ts.sideFor(n, a, b); ns >= 0 {
				nt.Neighbors[ns] = t
			}
		} else if n < 0 {
			ts.seg(-n).Neighbor = t
		}
	}
}

// Check validates the mesh invariants: reciprocal neighbor links over
// identical unordered endpoint pairs, consistent UV orientation,
// index bounds, and frame preservation. Topology-op tests run it
// after every mutation.
func (ts *Tessellation) Check() error {
	nv, nt := len(ts.Verts), len(ts.Tris)
	for ti := 1; ti <= nt; ti++ {
		t := ts.tri(ti)
		for s := 0; s < 3; s++ {
			if t.Indices[s] < 1 || t.Indices[s] > nv {
				return fmt.Errorf("tess2d: triangle %d vertex %d out of range", ti, t.Indices[s])
			}
		}
		for s := 0; s < 3; s++ {
			n := t.Neighbors[s]
			if n > nt {
				return fmt.Errorf("tess2d: triangle %d neighbor %d out of range", ti, n)
			}
			if n <= 0 {
				if -n > len(ts.Segs) {
					return fmt.Errorf("tess2d: triangle %d segment %d out of range", ti, -n)
				}
				continue
			}
			a := t.Indices[(s+1)%3]
			b := t.Indices[(s+2)%3]
			back := ts.sideFor(n, a, b)
			if back < 0 || ts.tri(n).Neighbors[back] != ti {
				return fmt.Errorf("tess2d: triangle %d side %d has no back-link from %d", ti, s, n)
			}
		}
		if ts.OrUV != 0 {
			if a := ts.uvArea(ti); float64(ts.OrUV)*a <= 0 {
				return fmt.Errorf("tess2d: triangle %d area %g against orientation %d", ti, a, ts.OrUV)
			}
		}
	}
	if ts.NFrame > 0 && len(ts.Frame) != ts.NFrame {
		return fmt.Errorf("tess2d: frame snapshot resized to %d", len(ts.Frame))
	}
	return nil
}
