package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"mito-gallery-service/internal/core/domain"
	"mito-gallery-service/internal/core/ports/output"
)

// MetadataCatalog is the in-memory materialization table. It is read-only
// after construction and safe for concurrent use.
type MetadataCatalog struct {
	byID    map[int64]domain.Entity
	byGroup map[int64][]domain.Entity
	groups  []domain.GroupSummary
}

// LoadCatalog reads every record from source and indexes it.
func LoadCatalog(ctx context.Context, source ports.MetadataSource) (*MetadataCatalog, error) {
	records, err := source.Load(ctx)
	if err != nil {
		return nil, err
	}
	catalog, err := NewMetadataCatalog(records)
	if err != nil {
		var dl *domain.DataLoadError
		if errors.As(err, &dl) && dl.Source == "" {
			dl.Source = source.Name()
		}
		return nil, err
	}
	return catalog, nil
}

// NewMetadataCatalog indexes records by id and by parent group. Duplicate
// ids are rejected.
func NewMetadataCatalog(records []domain.Entity) (*MetadataCatalog, error) {
	c := &MetadataCatalog{
		byID:    make(map[int64]domain.Entity, len(records)),
		byGroup: make(map[int64][]domain.Entity),
	}

	for i, e := range records {
		if _, dup := c.byID[e.ID]; dup {
			return nil, &domain.DataLoadError{
				Row:    i + 1,
				Column: "id",
				Err:    fmt.Errorf("duplicate id %d", e.ID),
			}
		}
		c.byID[e.ID] = e
		c.byGroup[e.ParentGroupID] = append(c.byGroup[e.ParentGroupID], e)
	}

	c.groups = make([]domain.GroupSummary, 0, len(c.byGroup))
	for gid, members := range c.byGroup {
		sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
		c.groups = append(c.groups, domain.GroupSummary{ParentGroupID: gid, EntityCount: len(members)})
	}
	sort.Slice(c.groups, func(i, j int) bool { return c.groups[i].ParentGroupID < c.groups[j].ParentGroupID })

	return c, nil
}

// EntitiesFor returns the entities of a parent group ordered by id. An
// unknown group yields an empty slice. The result is a copy.
func (c *MetadataCatalog) EntitiesFor(groupID int64) []domain.Entity {
	members := c.byGroup[groupID]
	out := make([]domain.Entity, len(members))
	copy(out, members)
	return out
}

func (c *MetadataCatalog) Entity(id int64) (domain.Entity, error) {
	e, ok := c.byID[id]
	if !ok {
		return domain.Entity{}, domain.ErrEntityNotFound
	}
	return e, nil
}

func (c *MetadataCatalog) Groups() []domain.GroupSummary {
	out := make([]domain.GroupSummary, len(c.groups))
	copy(out, c.groups)
	return out
}

func (c *MetadataCatalog) Len() int {
	return len(c.byID)
}
