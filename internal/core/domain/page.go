package domain

// PageBounds is the result of paginating a sequence of TotalCount items.
// Start and End are slice indices into the ordered sequence.
type PageBounds struct {
	Page       int
	PageSize   int
	TotalPages int
	TotalCount int
	Start      int
	End        int
}

// PageLink is one slot of the pagination widget: either a page number or a
// collapsed gap.
type PageLink struct {
	Page     int  `json:"page,omitempty"`
	Ellipsis bool `json:"ellipsis,omitempty"`
	Current  bool `json:"current,omitempty"`
}

// PageEntity is an entity together with its current screenshot state.
type PageEntity struct {
	Entity    Entity
	Artifacts ArtifactSet
}

// CatalogPage is a derived, non-persisted view of one page of a group.
type CatalogPage struct {
	ParentGroupID int64
	Bounds        PageBounds
	Links         []PageLink
	Entities      []PageEntity
}

// GenerationFailure records why one entity of a batch did not complete.
type GenerationFailure struct {
	EntityID int64  `json:"id"`
	Reason   string `json:"reason"`
}

// GenerationReport summarises a screenshot generation batch.
type GenerationReport struct {
	ParentGroupID int64
	Page          int
	Succeeded     []int64
	Failed        []GenerationFailure
}

func (r *GenerationReport) FailedIDs() []int64 {
	ids := make([]int64, 0, len(r.Failed))
	for _, f := range r.Failed {
		ids = append(ids, f.EntityID)
	}
	return ids
}
