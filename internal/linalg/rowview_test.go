package linalg_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/adsorb/internal/linalg"
)

// fill writes row i, offsets -1..1, with 10*i + off + 1 through it.
func fill(it linalg.RowIterator, rows int) {
	for i := 0; i < rows; i++ {
		for off := -1; off <= 1; off++ {
			it.Set(off, float64(10*it.Row()+off+1))
		}
		it.Next()
	}
}

func TestDenseAndBandAgree(t *testing.T) {
	dense := mat.NewDense(4, 6, nil)
	// shift of 1 keeps offset -1 of row 0 inside the matrix.
	fill(linalg.NewDenseRow(dense, 0, 1), 4)

	band := mat.NewBandDense(4, 6, 2, 2, nil)
	for i := 0; i < 4; i++ {
		for off := -1; off <= 1; off++ {
			band.SetBand(i, i+1+off, float64(10*i+off+1))
		}
	}

	require.True(t, mat.Equal(dense, band))
}

func TestBandRow(t *testing.T) {
	band := mat.NewBandDense(3, 3, 1, 1, nil)
	it := linalg.NewBandRow(band, 1)
	it.Set(-1, 2)
	it.Set(0, 3)
	it.Add(0, 1)
	it.Set(1, 5)

	require.Equal(t, 2.0, band.At(1, 0))
	require.Equal(t, 4.0, it.At(0))
	require.Equal(t, 5.0, band.At(1, 2))

	it.Next()
	require.Equal(t, 2, it.Row())
	require.Panics(t, func() { linalg.NewBandRow(band, 0).Set(2, 1) }, "outside the band")
}

func TestDenseRowClipping(t *testing.T) {
	m := mat.NewDense(2, 2, nil)
	it := linalg.NewDenseRow(m, 0, 0).Clipped()
	it.Set(-3, 99)
	it.Add(0, 1)
	it.Add(0, 1)
	it.Set(1, 7)
	require.Equal(t, 0.0, it.At(-3))
	require.Equal(t, 2.0, m.At(0, 0))
	require.Equal(t, 7.0, m.At(0, 1))

	require.Panics(t, func() { linalg.NewDenseRow(m, 0, 0).Set(-1, 1) })
}

func TestZeroRows(t *testing.T) {
	m := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	linalg.ZeroRows(m, 1, 2)
	require.True(t, mat.Equal(m, mat.NewDense(3, 2, []float64{1, 2, 0, 0, 0, 0})))
}
