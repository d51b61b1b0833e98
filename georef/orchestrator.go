// Package georef selects and installs the transform that places an image on the basemap.
//
// An Orchestrator holds exactly one State at a time. Every change builds a new State and publishes it
// with an atomic swap, so readers never observe a partially updated transform. A failed run leaves the
// previous State in place.
package georef

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ONSdigital/dp-map-georeferencer/affine"
	"github.com/ONSdigital/dp-map-georeferencer/health"
	"github.com/ONSdigital/dp-map-georeferencer/matcher"
	"github.com/ONSdigital/dp-map-georeferencer/models"
	"github.com/ONSdigital/dp-map-georeferencer/projection"
	"github.com/ONSdigital/go-ns/log"
	"github.com/paulmach/orb"
)

// A list of errors returned from package
var (
	ErrInvalidImageDimensions = errors.New("image width and height must be positive and finite")
	ErrInvalidImageBounds     = errors.New("no control points matched and the image has no bounds to fall back on")
	ErrNonFinitePlacement     = errors.New("the image placement does not project to finite coordinates")
	ErrNoImage                = errors.New("no image has been placed")
)

// State is an installed georeferencing result. A State is never modified once published.
type State struct {
	Generation uint64            `json:"generation"`
	Strategy   Strategy          `json:"strategy"`
	Transform  *affine.Transform `json:"transform,omitempty"` // nil for image_bounds_only
	Accuracy   *affine.Accuracy  `json:"accuracy,omitempty"`  // only for a solved affine transform
	Image      models.Image      `json:"image"`
	View       models.View       `json:"view"`
	Placement  Placement         `json:"placement"`
}

// Change returns the placement-changed event for this state
func (s *State) Change() *PlacementChange {
	return &PlacementChange{
		Generation:  s.Generation,
		Strategy:    s.Strategy,
		Transform:   s.Transform,
		Placement:   s.Placement,
		ImageWidth:  s.Image.Width,
		ImageHeight: s.Image.Height,
	}
}

// Result is the outcome of a georeferencing run
type Result struct {
	Match    *matcher.Result  `json:"match"`
	Excluded []string         `json:"excluded,omitempty"` // matched ids dropped as non-finite
	Accuracy *affine.Accuracy `json:"accuracy,omitempty"`
	Change   *PlacementChange `json:"change"`
}

// Orchestrator owns the current georeferencing State
type Orchestrator struct {
	state        atomic.Pointer[State]
	writeMu      sync.Mutex
	generation   uint64
	defaultZoom  int
	defaultScale float64
}

// New creates an Orchestrator in the unset state. defaultZoom is used when a run supplies no view and
// defaultScale is the image scale used by the center-only strategy before any placement exists.
func New(defaultZoom int, defaultScale float64) *Orchestrator {
	return &Orchestrator{defaultZoom: defaultZoom, defaultScale: defaultScale}
}

// Current returns the installed State, or nil when unset
func (o *Orchestrator) Current() *State {
	return o.state.Load()
}

// Strategy returns the strategy of the installed State
func (o *Orchestrator) Strategy() Strategy {
	if s := o.Current(); s != nil {
		return s.Strategy
	}
	return StrategyUnset
}

// Run matches the control points to the geographic points, picks a strategy for the number of usable
// pairs, and installs the resulting placement. Each run starts from scratch; nothing is merged with the
// previous transform.
func (o *Orchestrator) Run(controlPoints []models.ControlPoint, geoPoints []models.GeoPoint, image models.Image, view *models.View) (*Result, error) {
	defer health.TrackTime(time.Now(), "georef.Run")

	if !validDimensions(image.Width, image.Height) {
		log.Debug("skipping placement", log.Data{"width": image.Width, "height": image.Height})
		return nil, ErrInvalidImageDimensions
	}

	match, err := matcher.Match(controlPoints, geoPoints)
	if err != nil {
		return nil, err
	}
	usable, excluded := affine.FilterFinite(match.Matched)
	if len(excluded) > 0 {
		match.Messages = append(match.Messages, &models.Message{Level: models.LevelWarn, Text: "Control points excluded as their positions do not project: [" + strings.Join(excluded, ", ") + "]"})
	}

	o.writeMu.Lock()
	defer o.writeMu.Unlock()

	v := o.viewOrDefault(view)
	prev := o.Current()
	next := &State{Strategy: SelectStrategy(len(usable)), Image: image, View: v}
	result := &Result{Match: match, Excluded: excluded}

	switch next.Strategy {
	case StrategyAffine:
		solution, err := affine.Solve(usable)
		if err != nil {
			log.ErrorC("affine solve failed, keeping previous state", err, log.Data{"pairs": len(usable), "strategy": o.Strategy()})
			return nil, err
		}
		next.Transform = &solution.Transform
		next.Accuracy = &solution.Accuracy
		result.Accuracy = next.Accuracy

	case StrategyTwoPoint:
		t, ok := twoPoint(usable[0], usable[1])
		if ok {
			next.Transform = &t
			break
		}
		log.Debug("two point strategy is degenerate, falling back to center only", log.Data{"ids": []string{usable[0].ID, usable[1].ID}})
		next.Strategy = StrategyCenterOnly
		fallthrough

	case StrategyCenterOnly:
		t := centerOnly(usable[0], o.lastMetersPerPixel(prev, v.Zoom))
		next.Transform = &t

	case StrategyImageBoundsOnly:
		bounds, ok := fallbackBounds(image, prev)
		if !ok {
			return nil, ErrInvalidImageBounds
		}
		next.Image.Bounds = models.BoundsFrom(bounds)
	}

	if err := o.install(next); err != nil {
		return nil, err
	}
	result.Change = next.Change()

	log.Info("georeferencing run complete", log.Data{
		"strategy":   next.Strategy,
		"matched":    len(match.Matched),
		"unmatched":  len(match.UnmatchedControlPointIDs),
		"excluded":   len(excluded),
		"generation": next.Generation,
	})
	return result, nil
}

// Reapply recomputes the placement for a new basemap view without re-solving. The transform, and so
// the generation, are unchanged.
func (o *Orchestrator) Reapply(view models.View) (*PlacementChange, error) {
	o.writeMu.Lock()
	defer o.writeMu.Unlock()

	cur := o.Current()
	if cur == nil {
		return nil, ErrNoImage
	}

	next := *cur
	next.View = view
	placement, err := place(&next)
	if err != nil {
		return nil, err
	}
	next.Placement = placement
	o.state.Store(&next)

	log.Debug("placement reapplied", log.Data{"zoom": view.Zoom, "scale": placement.Scale})
	return next.Change(), nil
}

// Move handles a manual move of the image to new bounds. Without a transform the bounds are replaced.
// With a transform, the transform is translated so the image centre lands on the centre of bounds and
// every image pixel entity moves with the image. The move invalidates any residuals.
func (o *Orchestrator) Move(bounds orb.Bound) (*PlacementChange, error) {
	o.writeMu.Lock()
	defer o.writeMu.Unlock()

	cur := o.Current()
	if cur == nil {
		return nil, ErrNoImage
	}

	next := *cur
	if cur.Transform == nil {
		next.Image.Bounds = models.BoundsFrom(bounds)
	} else {
		oldX, oldY := cur.Transform.Apply(cur.Image.Width/2, cur.Image.Height/2)
		center := bounds.Center()
		newX, newY := projection.Project(center.Y(), center.X())
		t := cur.Transform.Translate(newX-oldX, newY-oldY)
		next.Transform = &t
		next.Accuracy = nil
	}

	if err := o.install(&next); err != nil {
		return nil, err
	}
	log.Debug("image moved", log.Data{"strategy": next.Strategy, "generation": next.Generation})
	return next.Change(), nil
}

// Reset returns the orchestrator to the unset state
func (o *Orchestrator) Reset() {
	o.writeMu.Lock()
	defer o.writeMu.Unlock()
	o.state.Store(nil)
}

// install computes the placement of next, gives it a new generation and publishes it.
// The caller must hold writeMu.
func (o *Orchestrator) install(next *State) error {
	placement, err := place(next)
	if err != nil {
		log.ErrorC("placement failed, keeping previous state", err, log.Data{"strategy": next.Strategy})
		return err
	}
	next.Placement = placement
	o.generation++
	next.Generation = o.generation
	o.state.Store(next)
	return nil
}

func place(s *State) (Placement, error) {
	if s.Transform != nil {
		return placeWithTransform(*s.Transform, s.Image.Width, s.Image.Height, s.View.Zoom)
	}
	if s.Image.Bounds == nil {
		return Placement{}, ErrInvalidImageBounds
	}
	return placeWithBounds(s.Image.Bounds.Bound(), s.Image.Width, s.View.Zoom)
}

func (o *Orchestrator) viewOrDefault(view *models.View) models.View {
	if view == nil {
		return models.View{Zoom: o.defaultZoom}
	}
	return *view
}

// lastMetersPerPixel is the ground size of an image pixel in the previous placement, in Mercator
// meters. The previous scale is relative to the previous zoom, so it is converted with that zoom.
// Without a previous placement the default scale applies at zoom.
func (o *Orchestrator) lastMetersPerPixel(prev *State, zoom int) float64 {
	if prev != nil {
		if prev.Transform != nil {
			if mpp := prev.Transform.MetersPerPixel(); mpp > 0 && projection.IsFinite(mpp) {
				return mpp
			}
		}
		if mpp := prev.Placement.Scale * projection.MercatorMetersPerPixel(prev.View.Zoom); mpp > 0 && projection.IsFinite(mpp) {
			return mpp
		}
	}
	return o.defaultScale * projection.MercatorMetersPerPixel(zoom)
}

// fallbackBounds returns the image's supplied bounds, or the bounds of the previous placement
func fallbackBounds(image models.Image, prev *State) (orb.Bound, bool) {
	if image.Bounds != nil && image.Bounds.Valid() {
		return image.Bounds.Bound(), true
	}
	if prev != nil {
		return prev.Placement.Bounds, true
	}
	return orb.Bound{}, false
}
