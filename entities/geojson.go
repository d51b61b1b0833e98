package entities

import (
	"github.com/ONSdigital/dp-map-georeferencer/models"
	"github.com/paulmach/go.geojson"
)

// FeatureCollection returns the current position of every entity as GeoJSON. Single entities are Point
// features, routes are LineStrings and areas are closed Polygons.
func (s *Store) FeatureCollection() *geojson.FeatureCollection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fc := geojson.NewFeatureCollection()

	for _, e := range s.listEntities() {
		f := geojson.NewPointFeature(position(e))
		f.ID = e.EntityID
		f.SetProperty("entity_id", e.EntityID)
		f.SetProperty("kind", string(e.Kind))
		f.SetProperty("origin", string(e.Origin))
		fc.AddFeature(f)
	}

	for _, c := range s.listComposites() {
		coords := make([][]float64, len(c.Vertices))
		origins := make([]string, len(c.Vertices))
		for i, v := range c.Vertices {
			coords[i] = position(v)
			origins[i] = string(v.Origin)
		}

		var f *geojson.Feature
		if c.Kind == models.CompositeArea {
			f = geojson.NewPolygonFeature([][][]float64{closeRing(coords)})
		} else {
			f = geojson.NewLineStringFeature(coords)
		}
		f.ID = c.ID
		f.SetProperty("entity_id", c.ID)
		f.SetProperty("kind", string(c.Kind))
		f.SetProperty("vertex_origins", origins)
		fc.AddFeature(f)
	}

	return fc
}

func position(e models.TrackedEntity) []float64 {
	return []float64{e.CurrentLon, e.CurrentLat}
}

func closeRing(coords [][]float64) [][]float64 {
	if len(coords) == 0 {
		return coords
	}
	first, last := coords[0], coords[len(coords)-1]
	if first[0] == last[0] && first[1] == last[1] {
		return coords
	}
	return append(coords, []float64{first[0], first[1]})
}
