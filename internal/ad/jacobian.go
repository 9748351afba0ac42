package ad

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// ExtractJacobian writes d res[i] / d direction(dirOffset+j) into dst(i, j)
// for every column of dst.
func ExtractJacobian(res []Active, dirOffset int, dst *mat.Dense) {
	r, c := dst.Dims()
	for i := 0; i < r && i < len(res); i++ {
		for j := 0; j < c; j++ {
			dst.Set(i, j, res[i].Deriv(dirOffset+j))
		}
	}
}

// CompareJacobian returns the largest difference between the AD derivatives
// of res and the matrix m, each relative to max(1, |m(i, j)|).
func CompareJacobian(res []Active, dirOffset int, m mat.Matrix) float64 {
	r, c := m.Dims()
	maxDiff := 0.0
	for i := 0; i < r && i < len(res); i++ {
		for j := 0; j < c; j++ {
			want := m.At(i, j)
			diff := math.Abs(res[i].Deriv(dirOffset+j)-want) / math.Max(1, math.Abs(want))
			if diff > maxDiff || math.IsNaN(diff) {
				maxDiff = diff
			}
		}
	}
	return maxDiff
}
