// Package entities keeps the tracked entities that are drawn over the image and re-derives their
// geographic positions whenever the image placement changes.
package entities

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ONSdigital/dp-map-georeferencer/models"
	"github.com/google/uuid"
)

// A list of errors returned from package
var (
	ErrInvalidEntity   = errors.New("Bad request - invalid entity")
	ErrDuplicateEntity = errors.New("Bad request - duplicate entity id")
)

// record is an arena slot. generation is the transform generation the cached position was computed
// for; zero means it still holds the registered position.
type record struct {
	entity     models.TrackedEntity
	generation uint64
}

type composite struct {
	id       string
	kind     models.CompositeKind
	vertices []int
}

// Store holds TrackedEntities in an arena indexed by entity id. Composite entities reference one record
// per vertex, in vertex order.
type Store struct {
	mu             sync.RWMutex
	records        []*record
	index          map[string]int
	standalone     []int
	composites     map[string]*composite
	compositeOrder []string
}

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{index: make(map[string]int), composites: make(map[string]*composite)}
}

// Add registers a single entity and returns its id. An id is generated if the entity has none.
func (s *Store) Add(e models.TrackedEntity) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(e.EntityID) == 0 {
		e.EntityID = uuid.New().String()
	}
	if err := s.check(e); err != nil {
		return "", err
	}
	s.standalone = append(s.standalone, s.insert(e))
	return e.EntityID, nil
}

// AddComposite registers a route or area. Vertices without an id are named "<id>/<index>".
// Either every vertex is stored or none is.
func (s *Store) AddComposite(id string, kind models.CompositeKind, vertices []models.TrackedEntity) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(id) == 0 {
		id = uuid.New().String()
	}
	if s.taken(id) {
		return "", fmt.Errorf("%w: %q", ErrDuplicateEntity, id)
	}
	if kind != models.CompositeRoute && kind != models.CompositeArea {
		return "", fmt.Errorf("%w: unknown composite kind %q", ErrInvalidEntity, kind)
	}
	if len(vertices) == 0 {
		return "", fmt.Errorf("%w: %s %q has no vertices", ErrInvalidEntity, kind, id)
	}

	vertices = append([]models.TrackedEntity(nil), vertices...)
	seen := make(map[string]bool, len(vertices))
	for i := range vertices {
		v := &vertices[i]
		if len(v.EntityID) == 0 {
			v.EntityID = fmt.Sprintf("%s/%d", id, i)
		}
		if len(v.Kind) == 0 {
			v.Kind = kind.VertexKind()
		}
		if err := s.check(*v); err != nil {
			return "", err
		}
		if seen[v.EntityID] || v.EntityID == id {
			return "", fmt.Errorf("%w: %q", ErrDuplicateEntity, v.EntityID)
		}
		seen[v.EntityID] = true
	}

	c := &composite{id: id, kind: kind}
	for _, v := range vertices {
		c.vertices = append(c.vertices, s.insert(v))
	}
	s.composites[id] = c
	s.compositeOrder = append(s.compositeOrder, id)
	return id, nil
}

// Get returns the entity with the given id, which may be a composite vertex
func (s *Store) Get(id string) (models.TrackedEntity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, found := s.index[id]
	if !found {
		return models.TrackedEntity{}, false
	}
	return clone(s.records[i].entity), true
}

// Composite returns the route or area with the given id
func (s *Store) Composite(id string) (models.Composite, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, found := s.composites[id]
	if !found {
		return models.Composite{}, false
	}
	return s.snapshot(c), true
}

// Entities returns every entity that is not part of a composite, in registration order
func (s *Store) Entities() []models.TrackedEntity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listEntities()
}

func (s *Store) listEntities() []models.TrackedEntity {
	out := make([]models.TrackedEntity, len(s.standalone))
	for j, i := range s.standalone {
		out[j] = clone(s.records[i].entity)
	}
	return out
}

// Composites returns every route and area, in registration order
func (s *Store) Composites() []models.Composite {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listComposites()
}

func (s *Store) listComposites() []models.Composite {
	out := make([]models.Composite, len(s.compositeOrder))
	for j, id := range s.compositeOrder {
		out[j] = s.snapshot(s.composites[id])
	}
	return out
}

// Len returns the number of records, counting each composite vertex
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Clear destroys every entity
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	s.index = make(map[string]int)
	s.standalone = nil
	s.composites = make(map[string]*composite)
	s.compositeOrder = nil
}

func (s *Store) snapshot(c *composite) models.Composite {
	out := models.Composite{ID: c.id, Kind: c.kind, Vertices: make([]models.TrackedEntity, len(c.vertices))}
	for j, i := range c.vertices {
		out.Vertices[j] = clone(s.records[i].entity)
	}
	return out
}

func (s *Store) check(e models.TrackedEntity) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidEntity, e.EntityID, err)
	}
	if s.taken(e.EntityID) {
		return fmt.Errorf("%w: %q", ErrDuplicateEntity, e.EntityID)
	}
	return nil
}

// taken reports whether id names an entity, a composite vertex or a composite. They share one namespace
// so every id can be looked up on its own.
func (s *Store) taken(id string) bool {
	_, isEntity := s.index[id]
	_, isComposite := s.composites[id]
	return isEntity || isComposite
}

// insert stores e, which must have passed check, and returns its record index
func (s *Store) insert(e models.TrackedEntity) int {
	s.records = append(s.records, &record{entity: clone(e)})
	i := len(s.records) - 1
	s.index[e.EntityID] = i
	return i
}

// clone copies e so the caller cannot reach the stored pixel
func clone(e models.TrackedEntity) models.TrackedEntity {
	if e.Pixel != nil {
		p := *e.Pixel
		e.Pixel = &p
	}
	return e
}
