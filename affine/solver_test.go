package affine

import (
	"math"
	"testing"

	"github.com/ONSdigital/dp-map-georeferencer/models"
	"github.com/ONSdigital/dp-map-georeferencer/projection"
	. "github.com/smartystreets/goconvey/convey"
	"gonum.org/v1/gonum/mat"
)

func pair(id string, px, py, lat, lon float64) models.MatchedPair {
	return models.MatchedPair{
		ID:           id,
		ControlPoint: models.ControlPoint{ID: id, PixelX: px, PixelY: py},
		GeoPoint:     models.GeoPoint{ID: id, Lat: lat, Lon: lon},
	}
}

// pairFromMercator builds a pair whose geographic position is the unprojection of x, y
func pairFromMercator(id string, px, py, x, y float64) models.MatchedPair {
	lat, lon := projection.Unproject(x, y)
	return pair(id, px, py, lat, lon)
}

var london = Transform{A: 0.52, B: 0.08, C: -15200, D: 0.06, E: -0.49, F: 6711800}

func TestSolveExactFit(t *testing.T) {
	Convey("Given three non-collinear control points", t, func() {
		pairs := []models.MatchedPair{}
		for i, p := range [][2]float64{{12, 40}, {1900, 220}, {640, 1450}} {
			x, y := london.Apply(p[0], p[1])
			pairs = append(pairs, pairFromMercator(string(rune('A'+i)), p[0], p[1], x, y))
		}

		Convey("The solved transform reproduces every geographic position", func() {
			s, err := Solve(pairs)
			So(err, ShouldBeNil)
			for _, p := range pairs {
				x, y := s.Transform.Apply(p.ControlPoint.PixelX, p.ControlPoint.PixelY)
				gx, gy := projection.Project(p.GeoPoint.Lat, p.GeoPoint.Lon)
				So(math.Abs(x-gx), ShouldBeLessThanOrEqualTo, 1e-6)
				So(math.Abs(y-gy), ShouldBeLessThanOrEqualTo, 1e-6)
			}
			So(s.Accuracy.MaxErrorMeters, ShouldBeLessThanOrEqualTo, 1e-6)
			So(s.Accuracy.PerPointErrors, ShouldHaveLength, 3)
			So(s.Excluded, ShouldBeEmpty)
		})

		Convey("The original coefficients are recovered", func() {
			s, err := Solve(pairs)
			So(err, ShouldBeNil)
			So(s.Transform.A, ShouldAlmostEqual, london.A, 1e-9)
			So(s.Transform.B, ShouldAlmostEqual, london.B, 1e-9)
			So(s.Transform.D, ShouldAlmostEqual, london.D, 1e-9)
			So(s.Transform.E, ShouldAlmostEqual, london.E, 1e-9)
			So(s.Transform.C, ShouldAlmostEqual, london.C, 1e-5)
			So(s.Transform.F, ShouldAlmostEqual, london.F, 1e-5)
		})
	})
}

func TestSolveSmallScenario(t *testing.T) {
	Convey("Control points around the origin solve to sub-centimetre accuracy", t, func() {
		pairs := []models.MatchedPair{
			pair("A", 0, 0, 0, 0),
			pair("B", 100, 0, 0, 0.001),
			pair("C", 0, 100, 0.001, 0),
		}
		s, err := Solve(pairs)
		So(err, ShouldBeNil)
		So(s.Accuracy.MaxErrorMeters, ShouldBeLessThan, 0.01)
		So(s.Accuracy.MinErrorMeters, ShouldBeLessThanOrEqualTo, s.Accuracy.MeanErrorMeters)

		lat, lon := s.Transform.ToLatLon(100, 0)
		So(lat, ShouldAlmostEqual, 0, 1e-9)
		So(lon, ShouldAlmostEqual, 0.001, 1e-9)
	})
}

func TestSolveLeastSquares(t *testing.T) {
	Convey("Given more than three noisy control points", t, func() {
		noise := [][2]float64{{0.3, -0.2}, {-0.4, 0.1}, {0.2, 0.3}, {-0.1, -0.3}, {0.25, 0.05}, {-0.2, 0.15}}
		grid := [][2]float64{{0, 0}, {1000, 0}, {0, 800}, {1000, 800}, {500, 400}, {250, 650}}
		pairs := []models.MatchedPair{}
		for i, p := range grid {
			x, y := london.Apply(p[0], p[1])
			pairs = append(pairs, pairFromMercator(string(rune('A'+i)), p[0], p[1], x+noise[i][0], y+noise[i][1]))
		}

		s, err := Solve(pairs)
		So(err, ShouldBeNil)

		Convey("The residuals are non-zero but bounded by the noise", func() {
			So(s.Accuracy.MaxErrorMeters, ShouldBeGreaterThan, 0)
			So(s.Accuracy.MaxErrorMeters, ShouldBeLessThan, 1)
			So(s.Accuracy.MinErrorMeters, ShouldBeLessThanOrEqualTo, s.Accuracy.MaxErrorMeters)
		})

		Convey("The fit matches an independent QR least-squares solution", func() {
			ref := qrReference(pairs)
			for _, p := range grid {
				x, y := s.Transform.Apply(p[0], p[1])
				rx, ry := ref.Apply(p[0], p[1])
				So(x, ShouldAlmostEqual, rx, 1e-3)
				So(y, ShouldAlmostEqual, ry, 1e-3)
			}
		})
	})
}

// qrReference solves the same over-determined system with a QR factorisation
func qrReference(pairs []models.MatchedPair) Transform {
	n := len(pairs)
	a := mat.NewDense(2*n, 6, nil)
	b := mat.NewVecDense(2*n, nil)
	for i, p := range pairs {
		x, y := projection.Project(p.GeoPoint.Lat, p.GeoPoint.Lon)
		px, py := p.ControlPoint.PixelX, p.ControlPoint.PixelY

		a.Set(2*i, 0, px)
		a.Set(2*i, 1, py)
		a.Set(2*i, 2, 1)
		b.SetVec(2*i, x)

		a.Set(2*i+1, 3, px)
		a.Set(2*i+1, 4, py)
		a.Set(2*i+1, 5, 1)
		b.SetVec(2*i+1, y)
	}

	var qr mat.QR
	qr.Factorize(a)

	var params mat.VecDense
	if err := qr.SolveVecTo(&params, false, b); err != nil {
		panic(err)
	}
	return Transform{
		A: params.AtVec(0), B: params.AtVec(1), C: params.AtVec(2),
		D: params.AtVec(3), E: params.AtVec(4), F: params.AtVec(5),
	}
}

func TestSolveRejectsDegenerateInput(t *testing.T) {
	Convey("Collinear control points produce ErrSingularSystem", t, func() {
		pairs := []models.MatchedPair{
			pair("A", 0, 0, 51.5, -0.1),
			pair("B", 100, 0, 51.501, -0.1),
			pair("C", 200, 0, 51.502, -0.1),
		}
		s, err := Solve(pairs)
		So(err, ShouldEqual, ErrSingularSystem)
		So(s, ShouldBeNil)
	})

	Convey("Duplicated control points produce ErrSingularSystem", t, func() {
		pairs := []models.MatchedPair{
			pair("A", 10, 10, 51.5, -0.1),
			pair("B", 10, 10, 51.5, -0.1),
			pair("C", 10, 10, 51.5, -0.1),
		}
		_, err := Solve(pairs)
		So(err, ShouldEqual, ErrSingularSystem)
	})

	Convey("Fewer than three pairs produce ErrInsufficientControlPoints", t, func() {
		_, err := Solve([]models.MatchedPair{pair("A", 0, 0, 0, 0), pair("B", 1, 1, 1, 1)})
		So(err, ShouldEqual, ErrInsufficientControlPoints)
	})

	Convey("A pole latitude is excluded rather than corrupting the fit", t, func() {
		pairs := []models.MatchedPair{
			pair("A", 0, 0, 0, 0),
			pair("B", 100, 0, 0, 0.001),
			pair("C", 0, 100, 0.001, 0),
			pair("P", 50, 50, 90, 0),
		}
		s, err := Solve(pairs)
		So(err, ShouldBeNil)
		So(s.Excluded, ShouldResemble, []string{"P"})
		So(s.Accuracy.PerPointErrors, ShouldHaveLength, 3)
		So(s.Transform.IsFinite(), ShouldBeTrue)
	})

	Convey("Excluding a non-finite pair can leave too few to solve", t, func() {
		pairs := []models.MatchedPair{
			pair("A", 0, 0, 0, 0),
			pair("B", 100, 0, 0, 0.001),
			pair("P", 50, 50, -90, 0),
		}
		_, err := Solve(pairs)
		So(err, ShouldEqual, ErrInsufficientControlPoints)
	})
}

func TestGaussJordanPivoting(t *testing.T) {
	Convey("A zero leading entry is handled by swapping rows", t, func() {
		m := [][]float64{
			{0, 1, 2},
			{1, 0, 3},
		}
		x, err := gaussJordan(m)
		So(err, ShouldBeNil)
		So(x[0], ShouldAlmostEqual, 3, 1e-12)
		So(x[1], ShouldAlmostEqual, 2, 1e-12)
	})
}

func TestTransformHelpers(t *testing.T) {
	Convey("Similarity maps the anchor pixel exactly onto its position", t, func() {
		tr := Similarity(2.5, 100, 200, 51.5, -0.12)
		lat, lon := tr.ToLatLon(100, 200)
		So(lat, ShouldAlmostEqual, 51.5, 1e-9)
		So(lon, ShouldAlmostEqual, -0.12, 1e-9)
		So(tr.MetersPerPixel(), ShouldAlmostEqual, 2.5, 1e-12)

		Convey("And pixel y grows southwards", func() {
			below, _ := tr.ToLatLon(100, 300)
			So(below, ShouldBeLessThan, 51.5)
		})
	})

	Convey("Translate moves only the offsets", t, func() {
		moved := london.Translate(10, -5)
		So(moved.A, ShouldEqual, london.A)
		So(moved.C, ShouldEqual, london.C+10)
		So(moved.F, ShouldEqual, london.F-5)
	})
}
