package models

import (
	"errors"
	"fmt"
)

// Kind is the type of item a TrackedEntity represents on the map
type Kind string

// possible entity kinds
const (
	KindPoint       Kind = "point"
	KindRouteVertex Kind = "route_vertex"
	KindSpot        Kind = "spot"
	KindAreaVertex  Kind = "area_vertex"
)

// Origin records where an entity's coordinates come from.
type Origin string

// possible origins.
//   - OriginImagePixel: the pixel coordinate is the source of truth and lat/lon is recomputed on every
//     transform change.
//   - OriginGeographic: lat/lon is authoritative (e.g. GPS) and is never rewritten.
const (
	OriginImagePixel Origin = "image_pixel"
	OriginGeographic Origin = "geographic"
)

// CompositeKind is the type of a multi-vertex entity
type CompositeKind string

// possible composite kinds
const (
	CompositeRoute CompositeKind = "route"
	CompositeArea  CompositeKind = "area"
)

// VertexKind returns the Kind of each vertex of a composite of kind k
func (k CompositeKind) VertexKind() Kind {
	if k == CompositeArea {
		return KindAreaVertex
	}
	return KindRouteVertex
}

// Pixel is a position in image pixel space, origin top left, y down
type Pixel struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TrackedEntity is any displayed item whose geographic position may need recomputation.
type TrackedEntity struct {
	EntityID   string  `json:"entity_id"`
	Kind       Kind    `json:"kind"`
	Origin     Origin  `json:"origin"`
	Pixel      *Pixel  `json:"pixel,omitempty"`
	CurrentLat float64 `json:"lat"`
	CurrentLon float64 `json:"lon"`
}

// Composite is a route polyline or area polygon: one TrackedEntity per vertex, in vertex order.
type Composite struct {
	ID       string          `json:"id"`
	Kind     CompositeKind   `json:"kind"`
	Vertices []TrackedEntity `json:"vertices"`
}

// IsAuthoritative reports whether the entity's lat/lon must never be rewritten
func (e *TrackedEntity) IsAuthoritative() bool {
	return e.Origin == OriginGeographic
}

// Validate checks the origin invariant: geographic entities carry no pixel, image pixel entities must.
func (e *TrackedEntity) Validate() error {
	switch e.Kind {
	case KindPoint, KindRouteVertex, KindSpot, KindAreaVertex:
	default:
		return fmt.Errorf("unknown kind %q", e.Kind)
	}

	switch e.Origin {
	case OriginGeographic:
		if e.Pixel != nil {
			return errors.New("a geographic entity cannot have a pixel coordinate")
		}
	case OriginImagePixel:
		if e.Pixel == nil {
			return errors.New("an image_pixel entity requires a pixel coordinate")
		}
	default:
		return fmt.Errorf("unknown origin %q", e.Origin)
	}
	return nil
}
