package precomputed

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"mito-gallery-service/internal/core/domain"
)

var errMalformedFragment = errors.New("malformed mesh fragment")

// DecodeFragment parses a legacy precomputed mesh fragment:
// uint32le vertex count, count*3 float32le positions, then uint32le
// triangle indices to the end of the buffer.
func DecodeFragment(b []byte) (*domain.Mesh, error) {
	if len(b) < 4 {
		return nil, fmt.Errorf("%w: %d bytes", errMalformedFragment, len(b))
	}
	n := int(binary.LittleEndian.Uint32(b))
	vertexEnd := 4 + n*12
	if n < 0 || vertexEnd > len(b) {
		return nil, fmt.Errorf("%w: %d vertices do not fit in %d bytes", errMalformedFragment, n, len(b))
	}
	rest := len(b) - vertexEnd
	if rest%12 != 0 {
		return nil, fmt.Errorf("%w: index block of %d bytes", errMalformedFragment, rest)
	}

	mesh := &domain.Mesh{
		Vertices: make([][3]float32, n),
		Faces:    make([][3]uint32, rest/12),
	}
	off := 4
	for i := range mesh.Vertices {
		for k := 0; k < 3; k++ {
			mesh.Vertices[i][k] = math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
			off += 4
		}
	}
	for i := range mesh.Faces {
		for k := 0; k < 3; k++ {
			idx := binary.LittleEndian.Uint32(b[off:])
			if int(idx) >= n {
				return nil, fmt.Errorf("%w: index %d out of %d vertices", errMalformedFragment, idx, n)
			}
			mesh.Faces[i][k] = idx
			off += 4
		}
	}
	return mesh, nil
}
