package models

import (
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"math"

	"github.com/ONSdigital/go-ns/log"
	"github.com/json-iterator/go"
	"github.com/paulmach/orb"
)

// A list of errors returned from package
var (
	ErrorReadingBody = errors.New("Failed to read message body")
	ErrorNoData      = errors.New("Bad request - Missing data in body")
)

// ControlPoint is a feature whose position is known in image pixel space
type ControlPoint struct {
	ID     string  `json:"id"`
	PixelX float64 `json:"pixel_x"`
	PixelY float64 `json:"pixel_y"`
}

// GeoPoint is a feature whose geographic position is known. Its coordinates are never moved.
type GeoPoint struct {
	ID        string   `json:"id"`
	Lat       float64  `json:"lat"`
	Lon       float64  `json:"lon"`
	Elevation *float64 `json:"elevation,omitempty"`
}

// MatchedPair joins a ControlPoint to the GeoPoint sharing its ID
type MatchedPair struct {
	ID           string       `json:"id"`
	ControlPoint ControlPoint `json:"control_point"`
	GeoPoint     GeoPoint     `json:"geo_point"`
}

// Message represents a message with a level type
type Message struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// Message levels
const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Bounds is the wire form of a geographic bounding box, in degrees
type Bounds struct {
	West  float64 `json:"west"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	North float64 `json:"north"`
}

// Bound converts b to an orb.Bound, with X as longitude and Y as latitude
func (b Bounds) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{b.West, b.South}, Max: orb.Point{b.East, b.North}}
}

// BoundsFrom converts an orb.Bound to its wire form
func BoundsFrom(b orb.Bound) *Bounds {
	return &Bounds{West: b.Min.X(), South: b.Min.Y(), East: b.Max.X(), North: b.Max.Y()}
}

// Valid reports whether the bounds are finite and enclose a non-empty area
func (b Bounds) Valid() bool {
	for _, v := range []float64{b.West, b.South, b.East, b.North} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.East > b.West && b.North > b.South
}

// Image describes the raster being placed: its natural pixel size and, optionally, the geographic
// bounds it was last manually placed at.
type Image struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Bounds *Bounds `json:"bounds,omitempty"`
}

// LatLon is a geographic position in degrees
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// View is the basemap's current zoom level and centre
type View struct {
	Zoom   int     `json:"zoom"`
	Center *LatLon `json:"center,omitempty"`
}

// GeoreferenceRequest represents a request to derive a transform for an image from control points
type GeoreferenceRequest struct {
	ControlPoints []ControlPoint `json:"control_points,omitempty"`
	GeoPoints     []GeoPoint     `json:"geo_points,omitempty"`
	Image         *Image         `json:"image,omitempty"`
	View          *View          `json:"view,omitempty"` // optional - the configured default zoom is used if missing
}

// ViewRequest represents a change of the basemap view
type ViewRequest struct {
	View *View `json:"view,omitempty"`
}

// MoveRequest represents a manual move of the image to new geographic bounds
type MoveRequest struct {
	Bounds *Bounds `json:"bounds,omitempty"`
}

// EntitiesRequest registers tracked entities. Composites are routes or areas made of vertices.
type EntitiesRequest struct {
	Entities   []*EntityRegistration    `json:"entities,omitempty"`
	Composites []*CompositeRegistration `json:"composites,omitempty"`
}

// EntityRegistration is the input contract for a single tracked entity
type EntityRegistration struct {
	EntityID   string   `json:"entity_id,omitempty"`
	Kind       Kind     `json:"kind"`
	Origin     Origin   `json:"origin"`
	PixelX     *float64 `json:"pixel_x,omitempty"`
	PixelY     *float64 `json:"pixel_y,omitempty"`
	InitialLat float64  `json:"initial_lat"`
	InitialLon float64  `json:"initial_lon"`
}

// CompositeRegistration is the input contract for a route or area
type CompositeRegistration struct {
	ID       string                `json:"id,omitempty"`
	Kind     CompositeKind         `json:"kind"`
	Vertices []*EntityRegistration `json:"vertices"`
}

// TrackedEntity converts the registration into a TrackedEntity record
func (r *EntityRegistration) TrackedEntity() TrackedEntity {
	e := TrackedEntity{
		EntityID:   r.EntityID,
		Kind:       r.Kind,
		Origin:     r.Origin,
		CurrentLat: r.InitialLat,
		CurrentLon: r.InitialLon,
	}
	if r.PixelX != nil || r.PixelY != nil {
		e.Pixel = &Pixel{}
		if r.PixelX != nil {
			e.Pixel.X = *r.PixelX
		}
		if r.PixelY != nil {
			e.Pixel.Y = *r.PixelY
		}
	}
	return e
}

// CreateGeoreferenceRequest manages the creation of a GeoreferenceRequest from a reader
func CreateGeoreferenceRequest(reader io.Reader) (*GeoreferenceRequest, error) {
	var request GeoreferenceRequest
	err := decode(reader, &request)
	if err != nil && err != ErrorNoData {
		return nil, err
	}
	return &request, err
}

// ValidateGeoreferenceRequest checks the content of the request structure
func (r *GeoreferenceRequest) ValidateGeoreferenceRequest() error {

	var missingFields []string

	if r.Image == nil {
		missingFields = append(missingFields, "image")
	}

	if missingFields != nil {
		return fmt.Errorf("Missing mandatory field(s): %v", missingFields)
	}

	if r.Image.Bounds != nil && !r.Image.Bounds.Valid() {
		return fmt.Errorf("image.bounds must enclose a non-empty area: %+v", *r.Image.Bounds)
	}
	if r.View != nil {
		return r.View.validate("view")
	}
	return nil
}

// CreateViewRequest manages the creation of a ViewRequest from a reader
func CreateViewRequest(reader io.Reader) (*ViewRequest, error) {
	var request ViewRequest
	err := decode(reader, &request)
	if err != nil && err != ErrorNoData {
		return nil, err
	}
	return &request, err
}

// ValidateViewRequest checks the content of the request structure
func (r *ViewRequest) ValidateViewRequest() error {
	if r.View == nil {
		return fmt.Errorf("Missing mandatory field(s): %v", []string{"view"})
	}
	return r.View.validate("view")
}

func (v *View) validate(field string) error {
	if v.Zoom < 0 || v.Zoom > 30 {
		return fmt.Errorf("%s.zoom must be between 0 and 30: zoom=%v", field, v.Zoom)
	}
	return nil
}

// CreateMoveRequest manages the creation of a MoveRequest from a reader
func CreateMoveRequest(reader io.Reader) (*MoveRequest, error) {
	var request MoveRequest
	err := decode(reader, &request)
	if err != nil && err != ErrorNoData {
		return nil, err
	}
	return &request, err
}

// ValidateMoveRequest checks the content of the request structure
func (r *MoveRequest) ValidateMoveRequest() error {
	if r.Bounds == nil {
		return fmt.Errorf("Missing mandatory field(s): %v", []string{"bounds"})
	}
	if !r.Bounds.Valid() {
		return fmt.Errorf("bounds must enclose a non-empty area: %+v", *r.Bounds)
	}
	return nil
}

// CreateEntitiesRequest manages the creation of an EntitiesRequest from a reader
func CreateEntitiesRequest(reader io.Reader) (*EntitiesRequest, error) {
	var request EntitiesRequest
	err := decode(reader, &request)
	if err != nil && err != ErrorNoData {
		return nil, err
	}
	return &request, err
}

// ValidateEntitiesRequest checks the content of the request structure
func (r *EntitiesRequest) ValidateEntitiesRequest() error {
	if len(r.Entities) == 0 && len(r.Composites) == 0 {
		return fmt.Errorf("Missing mandatory field(s): %v", []string{"entities", "composites"})
	}
	for i, e := range r.Entities {
		if e == nil {
			return fmt.Errorf("entities[%d] is null", i)
		}
		if err := e.validate(); err != nil {
			return fmt.Errorf("entities[%d]: %v", i, err)
		}
	}
	for i, c := range r.Composites {
		if c == nil {
			return fmt.Errorf("composites[%d] is null", i)
		}
		if c.Kind != CompositeRoute && c.Kind != CompositeArea {
			return fmt.Errorf("composites[%d]: unknown kind %q", i, c.Kind)
		}
		if len(c.Vertices) == 0 {
			return fmt.Errorf("composites[%d]: %s has no vertices", i, c.Kind)
		}
		for j, v := range c.Vertices {
			if v == nil {
				return fmt.Errorf("composites[%d].vertices[%d] is null", i, j)
			}
			if v.Kind == "" {
				v.Kind = c.Kind.VertexKind()
			}
			if err := v.validate(); err != nil {
				return fmt.Errorf("composites[%d].vertices[%d]: %v", i, j, err)
			}
		}
	}
	return nil
}

func (r *EntityRegistration) validate() error {
	if (r.PixelX == nil) != (r.PixelY == nil) {
		return errors.New("pixel_x and pixel_y must be supplied together")
	}
	e := r.TrackedEntity()
	return e.Validate()
}

// decode reads the whole body and unmarshals it into v
func decode(reader io.Reader, v interface{}) error {
	bytes, err := ioutil.ReadAll(reader)
	if err != nil {
		log.Error(err, log.Data{"request_body": string(bytes)})
		return ErrorReadingBody
	}

	err = jsoniter.Unmarshal(bytes, v)
	if err != nil {
		log.Error(err, log.Data{"request_body": string(bytes)})
		return err
	}

	// This should be the last check before returning
	if len(bytes) == 2 {
		return ErrorNoData
	}

	return nil
}
