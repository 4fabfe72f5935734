package domain

// Position is a point in the dataset's physical coordinate space (nm).
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Bounds is the axis-aligned bounding box of a segment, when the metadata
// source provides one.
type Bounds struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MinZ float64 `json:"min_z"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
	MaxZ float64 `json:"max_z"`
}

func (b Bounds) Center() Position {
	return Position{
		X: (b.MinX + b.MaxX) / 2,
		Y: (b.MinY + b.MaxY) / 2,
		Z: (b.MinZ + b.MaxZ) / 2,
	}
}

// Entity is one mitochondrion row of the materialization table.
// Entities are immutable once loaded; identity is ID.
type Entity struct {
	ID            int64    `json:"id"`
	ParentGroupID int64    `json:"parent_group_id"`
	Position      Position `json:"position"`
	Bounds        *Bounds  `json:"bounds,omitempty"`
}

// GroupSummary is a parent group (neuron) and how many entities it owns.
type GroupSummary struct {
	ParentGroupID int64 `json:"neuron_id"`
	EntityCount   int   `json:"mito_count"`
}
