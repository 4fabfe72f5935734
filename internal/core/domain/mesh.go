package domain

// Mesh is a triangle mesh in physical coordinates.
type Mesh struct {
	Vertices [][3]float32
	// Faces index into Vertices, three per triangle.
	Faces [][3]uint32
}

func (m *Mesh) Empty() bool {
	return m == nil || len(m.Vertices) == 0 || len(m.Faces) == 0
}

// Append merges another fragment, offsetting its face indices.
func (m *Mesh) Append(other *Mesh) {
	offset := uint32(len(m.Vertices))
	m.Vertices = append(m.Vertices, other.Vertices...)
	for _, f := range other.Faces {
		m.Faces = append(m.Faces, [3]uint32{f[0] + offset, f[1] + offset, f[2] + offset})
	}
}
