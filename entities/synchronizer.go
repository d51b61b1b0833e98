package entities

import (
	"time"

	"github.com/ONSdigital/dp-map-georeferencer/georef"
	"github.com/ONSdigital/dp-map-georeferencer/health"
	"github.com/ONSdigital/dp-map-georeferencer/models"
	"github.com/ONSdigital/dp-map-georeferencer/projection"
	"github.com/ONSdigital/go-ns/log"
)

// Update is the new position of one entity, for the rendering surface to redraw
type Update struct {
	EntityID string  `json:"entity_id"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
}

// Report summarises one resync
type Report struct {
	Generation uint64          `json:"generation"`
	Strategy   georef.Strategy `json:"strategy"`
	Updated    []Update        `json:"updated"`
	Skipped    int             `json:"skipped"`           // geographic entities, never recomputed
	Unchanged  int             `json:"unchanged"`         // already computed for this generation
	Flagged    []string        `json:"flagged,omitempty"` // ids whose position did not project
}

// Synchronizer re-derives the positions of image pixel entities from a placement change
type Synchronizer struct {
	store *Store
}

// NewSynchronizer creates a Synchronizer over the given store
func NewSynchronizer(store *Store) *Synchronizer {
	return &Synchronizer{store: store}
}

// Resync recomputes every image pixel entity from its pixel coordinate under change. Geographic entities
// are left untouched. Each entity is recomputed at most once per generation, so replaying a change is a
// no-op. Entities whose new position is not finite keep their previous position and are flagged.
func (s *Synchronizer) Resync(change *georef.PlacementChange) *Report {
	defer health.RecordTime(time.Now(), "entities.Resync")

	report := &Report{Generation: change.Generation, Strategy: change.Strategy, Updated: []Update{}}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	for _, r := range s.store.records {
		e := &r.entity
		if e.IsAuthoritative() {
			report.Skipped++
			continue
		}
		if r.generation == change.Generation {
			report.Unchanged++
			continue
		}

		lat, lon := locate(change, e.Pixel)
		if !projection.IsFinite(lat, lon) {
			report.Flagged = append(report.Flagged, e.EntityID)
			continue
		}
		e.CurrentLat, e.CurrentLon = lat, lon
		r.generation = change.Generation
		report.Updated = append(report.Updated, Update{EntityID: e.EntityID, Lat: lat, Lon: lon})
	}

	if len(report.Flagged) > 0 {
		log.Debug("entities could not be repositioned", log.Data{"generation": change.Generation, "flagged": report.Flagged})
	}
	log.Debug("entities resynchronised", log.Data{
		"generation": change.Generation,
		"strategy":   change.Strategy,
		"updated":    len(report.Updated),
		"skipped":    report.Skipped,
		"unchanged":  report.Unchanged,
	})
	return report
}

// locate maps a pixel to a geographic position: through the transform when there is one, otherwise by
// linear interpolation of the pixel fraction inside the image bounds.
func locate(change *georef.PlacementChange, p *models.Pixel) (lat, lon float64) {
	if change.Transform != nil {
		return change.Transform.ToLatLon(p.X, p.Y)
	}

	b := change.Placement.Bounds
	fx := p.X / change.ImageWidth
	fy := p.Y / change.ImageHeight
	lon = b.Min.X() + fx*(b.Max.X()-b.Min.X())
	lat = b.Max.Y() - fy*(b.Max.Y()-b.Min.Y())
	return lat, lon
}
