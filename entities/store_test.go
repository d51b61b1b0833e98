package entities

import (
	"errors"
	"testing"

	"github.com/ONSdigital/dp-map-georeferencer/models"
	. "github.com/smartystreets/goconvey/convey"
)

func pixelEntity(id string, kind models.Kind, x, y float64) models.TrackedEntity {
	return models.TrackedEntity{EntityID: id, Kind: kind, Origin: models.OriginImagePixel, Pixel: &models.Pixel{X: x, Y: y}}
}

func geoEntity(id string, kind models.Kind, lat, lon float64) models.TrackedEntity {
	return models.TrackedEntity{EntityID: id, Kind: kind, Origin: models.OriginGeographic, CurrentLat: lat, CurrentLon: lon}
}

func TestStoreAdd(t *testing.T) {
	Convey("Given an empty store", t, func() {
		store := NewStore()

		Convey("Entities can be added and retrieved by id", func() {
			id, err := store.Add(pixelEntity("p1", models.KindPoint, 10, 20))
			So(err, ShouldBeNil)
			So(id, ShouldEqual, "p1")

			e, found := store.Get("p1")
			So(found, ShouldBeTrue)
			So(e.Pixel.X, ShouldEqual, 10)
			So(store.Len(), ShouldEqual, 1)
		})

		Convey("An entity without an id is given one", func() {
			id, err := store.Add(geoEntity("", models.KindSpot, 1, 1))
			So(err, ShouldBeNil)
			So(id, ShouldNotBeEmpty)
			_, found := store.Get(id)
			So(found, ShouldBeTrue)
		})

		Convey("Duplicate ids are rejected", func() {
			_, err := store.Add(pixelEntity("p1", models.KindPoint, 1, 1))
			So(err, ShouldBeNil)
			_, err = store.Add(pixelEntity("p1", models.KindPoint, 2, 2))
			So(errors.Is(err, ErrDuplicateEntity), ShouldBeTrue)
			So(store.Len(), ShouldEqual, 1)
		})

		Convey("A geographic entity with a pixel is rejected", func() {
			e := geoEntity("g1", models.KindPoint, 1, 1)
			e.Pixel = &models.Pixel{X: 1, Y: 1}
			_, err := store.Add(e)
			So(errors.Is(err, ErrInvalidEntity), ShouldBeTrue)
		})

		Convey("An image pixel entity without a pixel is rejected", func() {
			e := pixelEntity("p1", models.KindPoint, 0, 0)
			e.Pixel = nil
			_, err := store.Add(e)
			So(errors.Is(err, ErrInvalidEntity), ShouldBeTrue)
		})

		Convey("Stored pixels cannot be changed through returned values", func() {
			store.Add(pixelEntity("p1", models.KindPoint, 10, 20))
			e, _ := store.Get("p1")
			e.Pixel.X = 99
			again, _ := store.Get("p1")
			So(again.Pixel.X, ShouldEqual, 10)
		})
	})
}

func TestStoreComposites(t *testing.T) {
	Convey("Given an empty store", t, func() {
		store := NewStore()

		Convey("A route stores one record per vertex in order", func() {
			id, err := store.AddComposite("r1", models.CompositeRoute, []models.TrackedEntity{
				{Origin: models.OriginImagePixel, Pixel: &models.Pixel{X: 10, Y: 10}},
				{Origin: models.OriginGeographic, CurrentLat: 1, CurrentLon: 1},
			})
			So(err, ShouldBeNil)
			So(id, ShouldEqual, "r1")
			So(store.Len(), ShouldEqual, 2)

			route, found := store.Composite("r1")
			So(found, ShouldBeTrue)
			So(route.Vertices, ShouldHaveLength, 2)
			So(route.Vertices[0].EntityID, ShouldEqual, "r1/0")
			So(route.Vertices[0].Kind, ShouldEqual, models.KindRouteVertex)
			So(route.Vertices[1].Origin, ShouldEqual, models.OriginGeographic)

			So(store.Entities(), ShouldBeEmpty)
			So(store.Composites(), ShouldHaveLength, 1)
		})

		Convey("An area with an invalid vertex stores nothing", func() {
			_, err := store.AddComposite("a1", models.CompositeArea, []models.TrackedEntity{
				{Origin: models.OriginImagePixel, Pixel: &models.Pixel{X: 10, Y: 10}},
				{Origin: models.OriginImagePixel},
			})
			So(errors.Is(err, ErrInvalidEntity), ShouldBeTrue)
			So(store.Len(), ShouldEqual, 0)
			_, found := store.Composite("a1")
			So(found, ShouldBeFalse)
		})

		Convey("A composite without vertices is rejected", func() {
			_, err := store.AddComposite("a1", models.CompositeArea, nil)
			So(errors.Is(err, ErrInvalidEntity), ShouldBeTrue)
		})

		Convey("Entities and composites share one id namespace", func() {
			_, err := store.Add(geoEntity("shared", models.KindPoint, 1, 1))
			So(err, ShouldBeNil)
			_, err = store.AddComposite("shared", models.CompositeRoute, []models.TrackedEntity{geoEntity("", "", 1, 1)})
			So(errors.Is(err, ErrDuplicateEntity), ShouldBeTrue)

			_, err = store.AddComposite("r1", models.CompositeRoute, []models.TrackedEntity{geoEntity("", "", 1, 1)})
			So(err, ShouldBeNil)
			_, err = store.Add(geoEntity("r1", models.KindPoint, 2, 2))
			So(errors.Is(err, ErrDuplicateEntity), ShouldBeTrue)

			_, err = store.AddComposite("r2", models.CompositeRoute, []models.TrackedEntity{geoEntity("r2", "", 1, 1)})
			So(errors.Is(err, ErrDuplicateEntity), ShouldBeTrue)
			So(store.Len(), ShouldEqual, 2)
		})

		Convey("Clear destroys everything", func() {
			store.Add(pixelEntity("p1", models.KindPoint, 1, 1))
			store.AddComposite("r1", models.CompositeRoute, []models.TrackedEntity{geoEntity("", "", 1, 1)})
			store.Clear()
			So(store.Len(), ShouldEqual, 0)
			So(store.Composites(), ShouldBeEmpty)
			_, found := store.Get("p1")
			So(found, ShouldBeFalse)
		})
	})
}

func TestFeatureCollection(t *testing.T) {
	Convey("Entities are exported as GeoJSON features", t, func() {
		store := NewStore()
		store.Add(geoEntity("spot", models.KindSpot, 51.5, -0.1))
		store.AddComposite("route", models.CompositeRoute, []models.TrackedEntity{
			geoEntity("", "", 51.5, -0.1), geoEntity("", "", 51.6, -0.2),
		})
		store.AddComposite("area", models.CompositeArea, []models.TrackedEntity{
			geoEntity("", "", 0, 0), geoEntity("", "", 0, 1), geoEntity("", "", 1, 1),
		})

		fc := store.FeatureCollection()
		So(fc.Features, ShouldHaveLength, 3)

		So(fc.Features[0].Geometry.IsPoint(), ShouldBeTrue)
		So(fc.Features[0].Geometry.Point, ShouldResemble, []float64{-0.1, 51.5})
		So(fc.Features[0].Properties["kind"], ShouldEqual, "spot")

		So(fc.Features[1].Geometry.IsLineString(), ShouldBeTrue)
		So(fc.Features[1].Geometry.LineString, ShouldHaveLength, 2)

		So(fc.Features[2].Geometry.IsPolygon(), ShouldBeTrue)
		ring := fc.Features[2].Geometry.Polygon[0]
		So(ring, ShouldHaveLength, 4)
		So(ring[3], ShouldResemble, ring[0])
	})
}
