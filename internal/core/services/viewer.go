package services

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"mito-gallery-service/internal/core/domain"
)

const precomputedScheme = "precomputed://"

type ViewerConfig struct {
	// BaseURL is the Neuroglancer deployment, e.g. https://neuroglancer-demo.appspot.com/
	BaseURL      string
	MitoSource   string
	NeuronSource string
	// VoxelSize in nm, used to turn physical positions into voxel coordinates.
	VoxelSize [3]float64
}

// ViewerLinker builds Neuroglancer links for entities.
type ViewerLinker struct {
	cfg ViewerConfig
}

func NewViewerLinker(cfg ViewerConfig) *ViewerLinker {
	cfg.MitoSource = withPrecomputedScheme(cfg.MitoSource)
	cfg.NeuronSource = withPrecomputedScheme(cfg.NeuronSource)
	for i, v := range cfg.VoxelSize {
		if v <= 0 {
			cfg.VoxelSize[i] = 1
		}
	}
	return &ViewerLinker{cfg: cfg}
}

func withPrecomputedScheme(src string) string {
	if src == "" || strings.HasPrefix(src, precomputedScheme) {
		return src
	}
	return precomputedScheme + src
}

func (l *ViewerLinker) ViewState(e domain.Entity) domain.ViewState {
	return domain.ViewState{
		NeuronID: e.ParentGroupID,
		MitoID:   e.ID,
		Position: [3]float64{
			e.Position.X / l.cfg.VoxelSize[0],
			e.Position.Y / l.cfg.VoxelSize[1],
			e.Position.Z / l.cfg.VoxelSize[2],
		},
		MitoSource:   l.cfg.MitoSource,
		NeuronSource: l.cfg.NeuronSource,
	}
}

type ngLayer struct {
	Type     string   `json:"type"`
	Source   string   `json:"source"`
	Name     string   `json:"name"`
	Segments []string `json:"segments"`
}

type ngState struct {
	Dimensions      map[string][2]interface{} `json:"dimensions"`
	Position        [3]float64                `json:"position"`
	ProjectionScale float64                   `json:"projectionScale"`
	Layers          []ngLayer                 `json:"layers"`
	SelectedLayer   map[string]string         `json:"selectedLayer"`
	Layout          string                    `json:"layout"`
}

// URL returns a Neuroglancer link with both the neuron and the
// mitochondrion selected and the camera centred on the mitochondrion.
func (l *ViewerLinker) URL(vs domain.ViewState) (string, error) {
	state := ngState{
		Dimensions: map[string][2]interface{}{
			"x": {l.cfg.VoxelSize[0] * 1e-9, "m"},
			"y": {l.cfg.VoxelSize[1] * 1e-9, "m"},
			"z": {l.cfg.VoxelSize[2] * 1e-9, "m"},
		},
		Position:        vs.Position,
		ProjectionScale: 4096,
		Layers: []ngLayer{
			{
				Type:     "segmentation",
				Source:   vs.NeuronSource,
				Name:     "neuron",
				Segments: []string{strconv.FormatInt(vs.NeuronID, 10)},
			},
			{
				Type:     "segmentation",
				Source:   vs.MitoSource,
				Name:     "mitochondria",
				Segments: []string{strconv.FormatInt(vs.MitoID, 10)},
			},
		},
		SelectedLayer: map[string]string{"layer": "mitochondria"},
		Layout:        "3d",
	}

	raw, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("marshal viewer state: %w", err)
	}
	base := l.cfg.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + "#!" + url.PathEscape(string(raw)), nil
}
