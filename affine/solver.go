package affine

import (
	"errors"
	"math"

	"github.com/ONSdigital/dp-map-georeferencer/models"
	"github.com/ONSdigital/dp-map-georeferencer/projection"
	"github.com/ONSdigital/go-ns/log"
)

// A list of errors returned from package
var (
	ErrInsufficientControlPoints = errors.New("at least 3 matched control points are required for an affine transform")
	ErrSingularSystem            = errors.New("control points are collinear or duplicated - the affine system is singular")
)

// MinimumPairs is the number of pairs needed to determine all six parameters
const MinimumPairs = 3

// pivotEpsilon is the smallest absolute pivot accepted during elimination
const pivotEpsilon = 1e-10

// Solution is a solved transform along with its residuals
type Solution struct {
	Transform Transform `json:"transform"`
	Accuracy  Accuracy  `json:"accuracy"`
	Excluded  []string  `json:"excluded,omitempty"` // ids of pairs dropped because they did not project to finite coordinates
}

// FilterFinite splits pairs into those whose pixel and projected geographic coordinates are finite,
// and the ids of those that are not.
func FilterFinite(pairs []models.MatchedPair) (usable []models.MatchedPair, excluded []string) {
	for _, p := range pairs {
		x, y := projection.Project(p.GeoPoint.Lat, p.GeoPoint.Lon)
		if projection.IsFinite(x, y, p.ControlPoint.PixelX, p.ControlPoint.PixelY) {
			usable = append(usable, p)
		} else {
			excluded = append(excluded, p.ID)
		}
	}
	return usable, excluded
}

// Solve computes the least-squares affine transform for the given pairs. With exactly 3 pairs the fit
// is exact. Pairs that do not project to finite coordinates are excluded and listed in the Solution.
func Solve(pairs []models.MatchedPair) (*Solution, error) {
	usable, excluded := FilterFinite(pairs)
	if len(excluded) > 0 {
		log.Debug("excluding non-finite control points", log.Data{"ids": excluded})
	}
	if len(usable) < MinimumPairs {
		return nil, ErrInsufficientControlPoints
	}

	n := len(usable)
	px := make([]float64, n)
	py := make([]float64, n)
	tx := make([]float64, n)
	ty := make([]float64, n)
	for i, p := range usable {
		px[i], py[i] = p.ControlPoint.PixelX, p.ControlPoint.PixelY
		tx[i], ty[i] = projection.Project(p.GeoPoint.Lat, p.GeoPoint.Lon)
	}

	// Work relative to the centroids: Mercator values are ~1e7 and would swamp the pixel terms
	// in the normal equations.
	mpx, mpy, mtx, mty := mean(px), mean(py), mean(tx), mean(ty)

	a, b := designSystem(n, func(i int) (float64, float64, float64, float64) {
		return px[i] - mpx, py[i] - mpy, tx[i] - mtx, ty[i] - mty
	})

	params, err := solveNormalEquations(a, b)
	if err != nil {
		log.Debug("affine solve failed", log.Data{"pairs": n, "error": err.Error()})
		return nil, err
	}

	t := Transform{
		A: params[0], B: params[1], C: mtx + params[2] - params[0]*mpx - params[1]*mpy,
		D: params[3], E: params[4], F: mty + params[5] - params[3]*mpx - params[4]*mpy,
	}
	if !t.IsFinite() {
		return nil, ErrSingularSystem
	}

	return &Solution{Transform: t, Accuracy: ComputeAccuracy(t, usable), Excluded: excluded}, nil
}

// designSystem builds the 2N×6 design matrix and 2N target vector. Row 2i encodes the x equation and
// row 2i+1 the y equation of pair i.
func designSystem(n int, pair func(i int) (px, py, x, y float64)) ([][6]float64, []float64) {
	a := make([][6]float64, 2*n)
	b := make([]float64, 2*n)
	for i := 0; i < n; i++ {
		px, py, x, y := pair(i)
		a[2*i] = [6]float64{px, py, 1, 0, 0, 0}
		b[2*i] = x
		a[2*i+1] = [6]float64{0, 0, 0, px, py, 1}
		b[2*i+1] = y
	}
	return a, b
}

// solveNormalEquations solves (AᵗA)x = AᵗB
func solveNormalEquations(a [][6]float64, b []float64) ([]float64, error) {
	m := make([][]float64, 6)
	for i := range m {
		m[i] = make([]float64, 7)
		for j := 0; j < 6; j++ {
			for r := range a {
				m[i][j] += a[r][i] * a[r][j]
			}
		}
		for r := range a {
			m[i][6] += a[r][i] * b[r]
		}
	}
	return gaussJordan(m)
}

// gaussJordan reduces the n×(n+1) augmented matrix m in place and returns the solution column.
// Each step selects the row with the largest absolute value in the pivot column.
func gaussJordan(m [][]float64) ([]float64, error) {
	n := len(m)
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(m[r][col]) > math.Abs(m[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(m[pivot][col]) < pivotEpsilon {
			return nil, ErrSingularSystem
		}
		m[col], m[pivot] = m[pivot], m[col]

		p := m[col][col]
		for k := col; k <= n; k++ {
			m[col][k] /= p
		}
		for r := 0; r < n; r++ {
			if r == col || m[r][col] == 0 {
				continue
			}
			f := m[r][col]
			for k := col; k <= n; k++ {
				m[r][k] -= f * m[col][k]
			}
		}
	}

	x := make([]float64, n)
	for i := range x {
		x[i] = m[i][n]
	}
	return x, nil
}

// ComputeAccuracy re-projects every pair's pixel through t and measures the distance, in projected
// meters, to the pair's actual projected geographic position.
func ComputeAccuracy(t Transform, pairs []models.MatchedPair) Accuracy {
	acc := Accuracy{PerPointErrors: make([]float64, len(pairs))}
	if len(pairs) == 0 {
		return acc
	}

	acc.MinErrorMeters = math.Inf(1)
	sum := 0.0
	for i, p := range pairs {
		x, y := t.Apply(p.ControlPoint.PixelX, p.ControlPoint.PixelY)
		gx, gy := projection.Project(p.GeoPoint.Lat, p.GeoPoint.Lon)
		e := math.Hypot(x-gx, y-gy)
		acc.PerPointErrors[i] = e
		sum += e
		acc.MaxErrorMeters = math.Max(acc.MaxErrorMeters, e)
		acc.MinErrorMeters = math.Min(acc.MinErrorMeters, e)
	}
	acc.MeanErrorMeters = sum / float64(len(pairs))
	return acc
}

func mean(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}
