package domain

// ViewAngle is one fixed camera azimuth used to render an entity.
// Index is the position of the angle in the configured, ordered set.
type ViewAngle struct {
	Index   int
	Degrees int
}

// ViewAngles returns the azimuths 0, step, 2*step, ... below 360.
// A step outside (0, 360] falls back to 45 degrees.
func ViewAngles(stepDeg int) []ViewAngle {
	if stepDeg <= 0 || stepDeg > 360 {
		stepDeg = 45
	}
	angles := make([]ViewAngle, 0, 360/stepDeg)
	for deg := 0; deg < 360; deg += stepDeg {
		angles = append(angles, ViewAngle{Index: len(angles), Degrees: deg})
	}
	return angles
}

// ArtifactKey addresses one persisted screenshot.
type ArtifactKey struct {
	EntityID int64
	Degrees  int
}

type ArtifactStatus string

const (
	ArtifactStatusComplete ArtifactStatus = "complete"
	ArtifactStatusPartial  ArtifactStatus = "partial"
	ArtifactStatusMissing  ArtifactStatus = "missing"
)

// ArtifactRef is the screenshot of one view angle. URL is empty when the
// screenshot does not exist.
type ArtifactRef struct {
	Angle   ViewAngle
	Present bool
	URL     string
}

// ArtifactSet is the full, ordered set of screenshots for one entity.
type ArtifactSet struct {
	EntityID int64
	Refs     []ArtifactRef
	Status   ArtifactStatus
}

// NewArtifactSet derives the aggregate status from refs.
func NewArtifactSet(entityID int64, refs []ArtifactRef) ArtifactSet {
	present := 0
	for _, r := range refs {
		if r.Present {
			present++
		}
	}
	status := ArtifactStatusPartial
	switch {
	case present == 0:
		status = ArtifactStatusMissing
	case present == len(refs):
		status = ArtifactStatusComplete
	}
	return ArtifactSet{EntityID: entityID, Refs: refs, Status: status}
}

func (s ArtifactSet) Missing() []ViewAngle {
	var out []ViewAngle
	for _, r := range s.Refs {
		if !r.Present {
			out = append(out, r.Angle)
		}
	}
	return out
}
