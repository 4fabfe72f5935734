package precomputed

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeFragment(vertices [][3]float32, faces [][3]uint32) []byte {
	b := make([]byte, 4, 4+len(vertices)*12+len(faces)*12)
	binary.LittleEndian.PutUint32(b, uint32(len(vertices)))
	for _, v := range vertices {
		for _, c := range v {
			b = binary.LittleEndian.AppendUint32(b, math.Float32bits(c))
		}
	}
	for _, f := range faces {
		for _, i := range f {
			b = binary.LittleEndian.AppendUint32(b, i)
		}
	}
	return b
}

func TestDecodeFragment(t *testing.T) {
	vertices := [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1.5}}
	faces := [][3]uint32{{0, 1, 2}, {0, 2, 3}}

	mesh, err := DecodeFragment(encodeFragment(vertices, faces))

	require.NoError(t, err)
	assert.Equal(t, vertices, mesh.Vertices)
	assert.Equal(t, faces, mesh.Faces)
}

func TestDecodeFragment_Malformed(t *testing.T) {
	valid := encodeFragment([][3]float32{{0, 0, 0}, {1, 1, 1}, {2, 2, 2}}, [][3]uint32{{0, 1, 2}})

	tests := []struct {
		name string
		data []byte
	}{
		{name: "too short", data: []byte{1, 0}},
		{name: "vertex count overflows buffer", data: []byte{0xe8, 0x03, 0, 0, 0, 0, 0, 0}},
		{name: "truncated vertices", data: valid[:20]},
		{name: "partial triangle", data: valid[:len(valid)-4]},
		{name: "index out of range", data: encodeFragment([][3]float32{{0, 0, 0}}, [][3]uint32{{0, 0, 1}})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeFragment(tt.data)
			assert.ErrorIs(t, err, errMalformedFragment)
		})
	}
}

func TestDecodeFragment_NoTriangles(t *testing.T) {
	mesh, err := DecodeFragment(encodeFragment([][3]float32{{1, 2, 3}}, nil))

	require.NoError(t, err)
	assert.Len(t, mesh.Vertices, 1)
	assert.Empty(t, mesh.Faces)
}
