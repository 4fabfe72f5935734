package domain

// ViewState is what the client needs to open an entity in the external 3D
// viewer. Position is in voxel coordinates.
type ViewState struct {
	NeuronID     int64      `json:"neuron_id"`
	MitoID       int64      `json:"mito_id"`
	Position     [3]float64 `json:"position"`
	MitoSource   string     `json:"mito_source"`
	NeuronSource string     `json:"neuron_source"`
}
