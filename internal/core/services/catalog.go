package services

import (
	"context"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"mito-gallery-service/internal/core/domain"
)

type CatalogServiceConfig struct {
	// DefaultPageSize applies when a caller passes a page size <= 0.
	DefaultPageSize int
	// Workers bounds how many entities of one batch are generated at once.
	Workers int
}

// CatalogService pages the entities of a parent group and triggers
// screenshot generation for a page.
type CatalogService struct {
	catalog  *MetadataCatalog
	cache    *ArtifactCache
	viewer   *ViewerLinker
	pageSize int
	workers  int
}

func NewCatalogService(catalog *MetadataCatalog, cache *ArtifactCache, viewer *ViewerLinker, cfg CatalogServiceConfig) *CatalogService {
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 8
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &CatalogService{
		catalog:  catalog,
		cache:    cache,
		viewer:   viewer,
		pageSize: cfg.DefaultPageSize,
		workers:  cfg.Workers,
	}
}

func (s *CatalogService) slice(groupID int64, page, pageSize int) (domain.PageBounds, []domain.Entity) {
	if pageSize <= 0 {
		pageSize = s.pageSize
	}
	entities := s.catalog.EntitiesFor(groupID)
	bounds := Paginate(len(entities), pageSize, page)
	return bounds, entities[bounds.Start:bounds.End]
}

// GetPage returns one page of a group with the current screenshot state of
// each entity. It only inspects the cache and never renders. An unknown
// group yields an empty first page.
func (s *CatalogService) GetPage(ctx context.Context, groupID int64, page, pageSize int) (*domain.CatalogPage, error) {
	bounds, entities := s.slice(groupID, page, pageSize)

	items := make([]domain.PageEntity, 0, len(entities))
	for _, e := range entities {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		items = append(items, domain.PageEntity{
			Entity:    e,
			Artifacts: s.cache.Status(ctx, e.ID),
		})
	}

	return &domain.CatalogPage{
		ParentGroupID: groupID,
		Bounds:        bounds,
		Links:         PageLinks(bounds.Page, bounds.TotalPages),
		Entities:      items,
	}, nil
}

// GenerateForPage ensures screenshots for every entity of the page. Entities
// are dispatched in catalog order; a failure is recorded and the batch goes
// on.
func (s *CatalogService) GenerateForPage(ctx context.Context, groupID int64, page, pageSize int) (*domain.GenerationReport, error) {
	bounds, entities := s.slice(groupID, page, pageSize)

	results := make([]error, len(entities))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, e := range entities {
		i, e := i, e
		g.Go(func() error {
			_, err := s.cache.Ensure(ctx, e)
			results[i] = err
			return nil
		})
	}
	_ = g.Wait()

	report := &domain.GenerationReport{
		ParentGroupID: groupID,
		Page:          bounds.Page,
		Succeeded:     make([]int64, 0, len(entities)),
		Failed:        make([]domain.GenerationFailure, 0),
	}
	for i, e := range entities {
		if err := results[i]; err != nil {
			report.Failed = append(report.Failed, domain.GenerationFailure{EntityID: e.ID, Reason: err.Error()})
			continue
		}
		report.Succeeded = append(report.Succeeded, e.ID)
	}

	log.WithFields(log.Fields{
		"neuron_id": groupID,
		"page":      bounds.Page,
		"succeeded": len(report.Succeeded),
		"failed":    len(report.Failed),
	}).Info("screenshot batch finished")

	return report, nil
}

// ClearArtifacts drops every cached screenshot.
func (s *CatalogService) ClearArtifacts(ctx context.Context) (int, error) {
	return s.cache.ClearAll(ctx)
}

func (s *CatalogService) Groups() []domain.GroupSummary {
	return s.catalog.Groups()
}

func (s *CatalogService) Angles() []domain.ViewAngle {
	return s.cache.Angles()
}

func (s *CatalogService) ViewState(e domain.Entity) domain.ViewState {
	return s.viewer.ViewState(e)
}

// ViewerURL builds the external viewer link for a mitochondrion. The neuron
// id comes from the caller so that links can be built for any neuron layer
// selection, but the mitochondrion must exist in the catalog.
func (s *CatalogService) ViewerURL(entityID, groupID int64) (string, error) {
	e, err := s.catalog.Entity(entityID)
	if err != nil {
		return "", err
	}
	vs := s.viewer.ViewState(e)
	vs.NeuronID = groupID
	return s.viewer.URL(vs)
}
