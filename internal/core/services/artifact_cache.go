package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"mito-gallery-service/internal/core/domain"
	"mito-gallery-service/internal/core/ports/output"
)

type ArtifactCacheConfig struct {
	Angles []domain.ViewAngle
	// RenderTimeout bounds a single render call. Zero disables the deadline.
	RenderTimeout time.Duration
	// MaxConcurrentRenders bounds render calls across all requests.
	// Defaults to 1 if <= 0.
	MaxConcurrentRenders int64
}

// ArtifactCache owns the screenshots of every entity.
//
// Ensure calls for the same entity are collapsed into one fill. Ensure holds
// the gate shared and ClearAll holds it exclusively, so a clear waits for
// in-flight fills to finish and then removes their output as well.
type ArtifactCache struct {
	store    ports.ArtifactStore
	renderer ports.Renderer
	angles   []domain.ViewAngle
	timeout  time.Duration

	renders *semaphore.Weighted
	flight  singleflight.Group
	gate    sync.RWMutex
}

func NewArtifactCache(store ports.ArtifactStore, renderer ports.Renderer, cfg ArtifactCacheConfig) *ArtifactCache {
	maxRenders := cfg.MaxConcurrentRenders
	if maxRenders <= 0 {
		maxRenders = 1
	}
	angles := cfg.Angles
	if len(angles) == 0 {
		angles = domain.ViewAngles(45)
	}
	return &ArtifactCache{
		store:    store,
		renderer: renderer,
		angles:   angles,
		timeout:  cfg.RenderTimeout,
		renders:  semaphore.NewWeighted(maxRenders),
	}
}

func (c *ArtifactCache) Angles() []domain.ViewAngle {
	out := make([]domain.ViewAngle, len(c.angles))
	copy(out, c.angles)
	return out
}

// Status reports which screenshots of entityID exist. It never renders.
// Store errors are logged and reported as absent screenshots.
func (c *ArtifactCache) Status(ctx context.Context, entityID int64) domain.ArtifactSet {
	refs := make([]domain.ArtifactRef, 0, len(c.angles))
	for _, angle := range c.angles {
		key := domain.ArtifactKey{EntityID: entityID, Degrees: angle.Degrees}
		ok, err := c.store.Exists(ctx, key)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"mito_id": entityID,
				"angle":   angle.Degrees,
			}).Warn("screenshot status check failed")
			ok = false
		}
		ref := domain.ArtifactRef{Angle: angle, Present: ok}
		if ok {
			ref.URL = c.store.URL(key)
		}
		refs = append(refs, ref)
	}
	return domain.NewArtifactSet(entityID, refs)
}

// Ensure renders and stores every missing screenshot of entity. A complete
// entity costs no render call. A failing angle does not stop the others;
// the returned set then carries the angles that did succeed, together with
// a *domain.RenderError.
func (c *ArtifactCache) Ensure(ctx context.Context, entity domain.Entity) (domain.ArtifactSet, error) {
	if set := c.Status(ctx, entity.ID); set.Status == domain.ArtifactStatusComplete {
		return set, nil
	}

	// The fill is shared by every caller waiting on this id, so it must not
	// be cancelled by whichever caller happened to start it.
	fillCtx := context.WithoutCancel(ctx)
	v, err, _ := c.flight.Do(strconv.FormatInt(entity.ID, 10), func() (interface{}, error) {
		return c.fill(fillCtx, entity)
	})
	set, _ := v.(domain.ArtifactSet)
	return set, err
}

func (c *ArtifactCache) fill(ctx context.Context, entity domain.Entity) (domain.ArtifactSet, error) {
	c.gate.RLock()
	defer c.gate.RUnlock()

	missing := c.Status(ctx, entity.ID).Missing()
	if len(missing) == 0 {
		return c.Status(ctx, entity.ID), nil
	}

	var (
		failedAngles []int
		errs         []error
		timedOut     bool
	)
	for _, angle := range missing {
		if err := c.renderOne(ctx, entity, angle); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"mito_id":   entity.ID,
				"neuron_id": entity.ParentGroupID,
				"angle":     angle.Degrees,
			}).Warn("screenshot generation failed")
			failedAngles = append(failedAngles, angle.Degrees)
			errs = append(errs, err)
			if errors.Is(err, domain.ErrRenderTimeout) {
				timedOut = true
			}
		}
	}

	set := c.Status(ctx, entity.ID)
	if len(errs) == 0 {
		log.WithFields(log.Fields{
			"mito_id":  entity.ID,
			"rendered": len(missing),
		}).Debug("screenshots generated")
		return set, nil
	}
	return set, &domain.RenderError{
		EntityID: entity.ID,
		Angles:   failedAngles,
		Timeout:  timedOut,
		Err:      errors.Join(errs...),
	}
}

type renderResult struct {
	data []byte
	err  error
}

// renderOne holds a render slot until the renderer returns, even when the
// caller has already given up on it after the timeout. Waiting for a slot
// counts against the same timeout.
func (c *ArtifactCache) renderOne(ctx context.Context, entity domain.Entity, angle domain.ViewAngle) error {
	rctx, cancel := ctx, context.CancelFunc(func() {})
	if c.timeout > 0 {
		rctx, cancel = context.WithTimeout(ctx, c.timeout)
	}
	defer cancel()

	if err := c.renders.Acquire(rctx, 1); err != nil {
		return c.deadlineError(angle, err)
	}

	done := make(chan renderResult, 1)
	go func() {
		defer c.renders.Release(1)
		data, err := c.renderer.Render(rctx, entity, angle)
		done <- renderResult{data: data, err: err}
	}()

	var res renderResult
	select {
	case res = <-done:
	case <-rctx.Done():
		return c.deadlineError(angle, rctx.Err())
	}

	if res.err != nil {
		if errors.Is(res.err, context.DeadlineExceeded) {
			return fmt.Errorf("angle %d: %w: %v", angle.Degrees, domain.ErrRenderTimeout, res.err)
		}
		return fmt.Errorf("angle %d: %w", angle.Degrees, res.err)
	}

	key := domain.ArtifactKey{EntityID: entity.ID, Degrees: angle.Degrees}
	if err := c.store.Put(ctx, key, res.data); err != nil {
		return fmt.Errorf("angle %d: %w", angle.Degrees, err)
	}
	return nil
}

func (c *ArtifactCache) deadlineError(angle domain.ViewAngle, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("angle %d after %s: %w", angle.Degrees, c.timeout, domain.ErrRenderTimeout)
	}
	return fmt.Errorf("angle %d: %w", angle.Degrees, err)
}

// ClearAll removes every stored screenshot and returns how many were
// removed. It waits for in-flight Ensure calls to finish first.
func (c *ArtifactCache) ClearAll(ctx context.Context) (int, error) {
	c.gate.Lock()
	defer c.gate.Unlock()

	n, err := c.store.Clear(ctx)
	if err != nil {
		return n, err
	}
	log.WithField("removed", n).Info("screenshot cache cleared")
	return n, nil
}
