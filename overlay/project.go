// Package overlay ties the orchestrator and the entity store together into a single project: one image,
// its current transform and the entities drawn over it.
//
// Every operation that changes the placement runs the resync before returning, under one lock, so a
// newer transform is never installed while entities are still being moved for an older one.
package overlay

import (
	"sync"

	"github.com/ONSdigital/dp-map-georeferencer/entities"
	"github.com/ONSdigital/dp-map-georeferencer/georef"
	"github.com/ONSdigital/dp-map-georeferencer/models"
	"github.com/ONSdigital/go-ns/log"
	"github.com/paulmach/go.geojson"
)

// Project owns the georeferencing state and the tracked entities of one image
type Project struct {
	mu           sync.Mutex
	orchestrator *georef.Orchestrator
	store        *entities.Store
	synchronizer *entities.Synchronizer
}

// GeoreferenceResult is the outcome of a georeferencing run and the resync it triggered
type GeoreferenceResult struct {
	*georef.Result
	Sync *entities.Report `json:"sync"`
}

// ChangeResult is a placement change and the resync it triggered
type ChangeResult struct {
	Change *georef.PlacementChange `json:"change"`
	Sync   *entities.Report        `json:"sync"`
}

// RegisterResult lists the ids of newly registered entities and composites
type RegisterResult struct {
	EntityIDs    []string         `json:"entity_ids"`
	CompositeIDs []string         `json:"composite_ids"`
	Sync         *entities.Report `json:"sync,omitempty"`
}

// New creates an empty project
func New(defaultZoom int, defaultScale float64) *Project {
	store := entities.NewStore()
	return &Project{
		orchestrator: georef.New(defaultZoom, defaultScale),
		store:        store,
		synchronizer: entities.NewSynchronizer(store),
	}
}

// Georeference derives a new transform from the request's control points and repositions every image
// pixel entity. On failure the previous transform and entity positions are kept.
func (p *Project) Georeference(request *models.GeoreferenceRequest) (*GeoreferenceResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	result, err := p.orchestrator.Run(request.ControlPoints, request.GeoPoints, *request.Image, request.View)
	if err != nil {
		return nil, err
	}
	return &GeoreferenceResult{Result: result, Sync: p.synchronizer.Resync(result.Change)}, nil
}

// ChangeView recomputes the image placement for a new basemap view
func (p *Project) ChangeView(view models.View) (*ChangeResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	change, err := p.orchestrator.Reapply(view)
	if err != nil {
		return nil, err
	}
	return &ChangeResult{Change: change, Sync: p.synchronizer.Resync(change)}, nil
}

// MoveImage manually moves the image to new bounds, carrying its image pixel entities with it
func (p *Project) MoveImage(bounds models.Bounds) (*ChangeResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	change, err := p.orchestrator.Move(bounds.Bound())
	if err != nil {
		return nil, err
	}
	return &ChangeResult{Change: change, Sync: p.synchronizer.Resync(change)}, nil
}

// Register adds entities and composites to the project. Registration stops at the first invalid entity;
// the ones before it stay registered. If the image is already placed, every entity registered by the
// call is positioned straight away, including when a later one failed.
func (p *Project) Register(request *models.EntitiesRequest) (*RegisterResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	result, err := p.register(request)
	if state := p.orchestrator.Current(); state != nil {
		report := p.synchronizer.Resync(state.Change())
		if err == nil {
			result.Sync = report
		}
	}
	return result, err
}

func (p *Project) register(request *models.EntitiesRequest) (*RegisterResult, error) {
	result := &RegisterResult{EntityIDs: []string{}, CompositeIDs: []string{}}
	for _, r := range request.Entities {
		id, err := p.store.Add(r.TrackedEntity())
		if err != nil {
			log.Error(err, log.Data{"entity_id": r.EntityID})
			return nil, err
		}
		result.EntityIDs = append(result.EntityIDs, id)
	}

	for _, c := range request.Composites {
		vertices := make([]models.TrackedEntity, len(c.Vertices))
		for i, v := range c.Vertices {
			vertices[i] = v.TrackedEntity()
		}
		id, err := p.store.AddComposite(c.ID, c.Kind, vertices)
		if err != nil {
			log.Error(err, log.Data{"composite_id": c.ID})
			return nil, err
		}
		result.CompositeIDs = append(result.CompositeIDs, id)
	}
	return result, nil
}

// State returns the current georeferencing state, or nil if the image has not been placed
func (p *Project) State() *georef.State {
	return p.orchestrator.Current()
}

// Strategy returns the strategy currently in use
func (p *Project) Strategy() georef.Strategy {
	return p.orchestrator.Strategy()
}

// Entity returns a single tracked entity
func (p *Project) Entity(id string) (models.TrackedEntity, bool) {
	return p.store.Get(id)
}

// Composite returns a single route or area
func (p *Project) Composite(id string) (models.Composite, bool) {
	return p.store.Composite(id)
}

// FeatureCollection returns every entity at its current position. It waits for any change in progress
// so all positions come from the same placement.
func (p *Project) FeatureCollection() *geojson.FeatureCollection {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.store.FeatureCollection()
}

// Clear destroys every entity and returns the orchestrator to the unset state
func (p *Project) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.store.Clear()
	p.orchestrator.Reset()
	log.Info("project cleared", nil)
}
