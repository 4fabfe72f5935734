package renderer

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"
	"sort"

	"github.com/fogleman/gg"
	lru "github.com/hashicorp/golang-lru/v2"
	log "github.com/sirupsen/logrus"
	"golang.org/x/image/draw"

	"mito-gallery-service/internal/core/domain"
	ports "mito-gallery-service/internal/core/ports/output"
)

type Config struct {
	// ImageSize is the edge length of the square PNG in pixels.
	ImageSize int
	// Supersample renders at ImageSize*Supersample and scales down.
	Supersample int
	// VertexScale multiplies mesh vertices per axis (voxel size in nm for
	// meshes stored in voxel units).
	VertexScale [3]float64
	// MeshCacheSize is how many prepared meshes are kept between calls.
	MeshCacheSize int
}

// MeshRenderer draws an orthographic, flat-shaded view of a mitochondrion
// mesh. The camera looks down -z with +y up and orbits around the mesh
// centroid by the view azimuth, so every angle of one mesh shares the same
// scale.
type MeshRenderer struct {
	meshes ports.MeshSource
	cfg    Config
	cache  *lru.Cache[int64, *preparedMesh]
}

type preparedMesh struct {
	vertices [][3]float64
	faces    [][3]uint32
	radius   float64
}

func New(meshes ports.MeshSource, cfg Config) (*MeshRenderer, error) {
	if cfg.ImageSize <= 0 {
		cfg.ImageSize = 1024
	}
	if cfg.Supersample <= 0 {
		cfg.Supersample = 1
	}
	for i, s := range cfg.VertexScale {
		if s <= 0 {
			cfg.VertexScale[i] = 1
		}
	}
	if cfg.MeshCacheSize <= 0 {
		cfg.MeshCacheSize = 32
	}
	cache, err := lru.New[int64, *preparedMesh](cfg.MeshCacheSize)
	if err != nil {
		return nil, fmt.Errorf("mesh cache: %w", err)
	}
	return &MeshRenderer{meshes: meshes, cfg: cfg, cache: cache}, nil
}

var _ ports.Renderer = (*MeshRenderer)(nil)

func (r *MeshRenderer) Render(ctx context.Context, entity domain.Entity, angle domain.ViewAngle) ([]byte, error) {
	pm, err := r.prepared(ctx, entity.ID)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	size := r.cfg.ImageSize * r.cfg.Supersample
	img, err := drawMesh(ctx, pm, angle.Degrees, size)
	if err != nil {
		return nil, err
	}

	var out image.Image = img
	if r.cfg.Supersample > 1 {
		dst := image.NewRGBA(image.Rect(0, 0, r.cfg.ImageSize, r.cfg.ImageSize))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
		out = dst
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *MeshRenderer) prepared(ctx context.Context, id int64) (*preparedMesh, error) {
	if pm, ok := r.cache.Get(id); ok {
		return pm, nil
	}
	mesh, err := r.meshes.Mesh(ctx, id)
	if err != nil {
		return nil, err
	}
	pm, err := prepare(mesh, r.cfg.VertexScale)
	if err != nil {
		return nil, fmt.Errorf("mito %d: %w", id, err)
	}
	r.cache.Add(id, pm)
	log.WithFields(log.Fields{
		"mito_id":  id,
		"vertices": len(pm.vertices),
		"faces":    len(pm.faces),
	}).Debug("mesh prepared")
	return pm, nil
}

// prepare scales the mesh and moves its centroid to the origin.
func prepare(m *domain.Mesh, scale [3]float64) (*preparedMesh, error) {
	if m.Empty() {
		return nil, domain.ErrEmptyMesh
	}

	pm := &preparedMesh{
		vertices: make([][3]float64, len(m.Vertices)),
		faces:    m.Faces,
	}
	var c [3]float64
	for i, v := range m.Vertices {
		for k := 0; k < 3; k++ {
			pm.vertices[i][k] = float64(v[k]) * scale[k]
			c[k] += pm.vertices[i][k]
		}
	}
	n := float64(len(pm.vertices))
	for k := range c {
		c[k] /= n
	}
	for i := range pm.vertices {
		var d2 float64
		for k := 0; k < 3; k++ {
			pm.vertices[i][k] -= c[k]
			d2 += pm.vertices[i][k] * pm.vertices[i][k]
		}
		if d := math.Sqrt(d2); d > pm.radius {
			pm.radius = d
		}
	}
	if pm.radius == 0 {
		pm.radius = 1
	}
	return pm, nil
}

const cancelCheckEvery = 256

type triangle struct {
	pts   [3][2]float64
	depth float64
	shade float64
}

// drawMesh uses the painter's algorithm: triangles are filled back to front
// after rotating the mesh by -azimuth around the y axis. ctx is checked
// every cancelCheckEvery triangles.
func drawMesh(ctx context.Context, pm *preparedMesh, azimuthDeg, size int) (image.Image, error) {
	theta := float64(azimuthDeg) * math.Pi / 180
	sin, cos := math.Sincos(theta)

	half := float64(size) / 2
	scale := half * 0.85 / pm.radius

	rotated := make([][3]float64, len(pm.vertices))
	for i, v := range pm.vertices {
		rotated[i] = [3]float64{
			v[0]*cos + v[2]*sin,
			v[1],
			-v[0]*sin + v[2]*cos,
		}
	}

	tris := make([]triangle, 0, len(pm.faces))
	for i, f := range pm.faces {
		if i%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		a, b, c := rotated[f[0]], rotated[f[1]], rotated[f[2]]
		normalZ, ok := unitNormalZ(a, b, c)
		if !ok {
			continue
		}
		var t triangle
		for k, p := range [3][3]float64{a, b, c} {
			t.pts[k] = [2]float64{half + p[0]*scale, half - p[1]*scale}
		}
		t.depth = (a[2] + b[2] + c[2]) / 3
		// Two-sided headlight with an ambient floor.
		t.shade = 0.25 + 0.75*math.Abs(normalZ)
		tris = append(tris, t)
	}
	sort.Slice(tris, func(i, j int) bool { return tris[i].depth < tris[j].depth })

	dc := gg.NewContext(size, size)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	for i, t := range tris {
		if i%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		dc.MoveTo(t.pts[0][0], t.pts[0][1])
		dc.LineTo(t.pts[1][0], t.pts[1][1])
		dc.LineTo(t.pts[2][0], t.pts[2][1])
		dc.ClosePath()
		dc.SetRGB(0.86*t.shade, 0.08*t.shade, 0.08*t.shade)
		dc.Fill()
	}
	return dc.Image(), nil
}

func unitNormalZ(a, b, c [3]float64) (float64, bool) {
	u := [3]float64{b[0] - a[0], b[1] - a[1], b[2] - a[2]}
	v := [3]float64{c[0] - a[0], c[1] - a[1], c[2] - a[2]}
	n := [3]float64{
		u[1]*v[2] - u[2]*v[1],
		u[2]*v[0] - u[0]*v[2],
		u[0]*v[1] - u[1]*v[0],
	}
	l := math.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])
	if l == 0 {
		return 0, false
	}
	return n[2] / l, true
}
