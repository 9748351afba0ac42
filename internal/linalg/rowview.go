// Package linalg provides row views that address Jacobian entries by signed
// offset from the diagonal of the current equation.
package linalg

import (
	"gonum.org/v1/gonum/mat"
)

// RowIterator walks the rows of a Jacobian. Offsets are relative to the
// diagonal element of the current row: At(0) is the diagonal, At(-1) the
// element to its left.
type RowIterator interface {
	At(off int) float64
	Set(off int, v float64)
	Add(off int, v float64)
	// Next advances to the following row.
	Next()
	// Row returns the matrix row currently addressed.
	Row() int
}

// DenseRow is a RowIterator over a dense matrix.
//
// The diagonal of row i sits in column i+shift, which lets a local equation
// block live inside a larger matrix whose leading columns hold the liquid
// phase. Out-of-matrix columns panic unless clipping is enabled, in which
// case they read as zero and writes are dropped.
type DenseRow struct {
	m     *mat.Dense
	row   int
	shift int
	clip  bool
}

func NewDenseRow(m *mat.Dense, row, shift int) *DenseRow {
	return &DenseRow{m: m, row: row, shift: shift}
}

// Clipped enables dropping of entries outside the matrix.
func (d *DenseRow) Clipped() *DenseRow {
	d.clip = true
	return d
}

func (d *DenseRow) col(off int) (int, bool) {
	c := d.row + d.shift + off
	if d.clip {
		_, cols := d.m.Dims()
		if c < 0 || c >= cols {
			return 0, false
		}
	}
	return c, true
}

func (d *DenseRow) At(off int) float64 {
	c, ok := d.col(off)
	if !ok {
		return 0
	}
	return d.m.At(d.row, c)
}

func (d *DenseRow) Set(off int, v float64) {
	if c, ok := d.col(off); ok {
		d.m.Set(d.row, c, v)
	}
}

func (d *DenseRow) Add(off int, v float64) {
	if c, ok := d.col(off); ok {
		d.m.Set(d.row, c, d.m.At(d.row, c)+v)
	}
}

func (d *DenseRow) Next()    { d.row++ }
func (d *DenseRow) Row() int { return d.row }

// BandRow is a RowIterator over a banded matrix. Writes outside the band
// panic.
type BandRow struct {
	m   *mat.BandDense
	row int
}

func NewBandRow(m *mat.BandDense, row int) *BandRow {
	return &BandRow{m: m, row: row}
}

func (b *BandRow) At(off int) float64     { return b.m.At(b.row, b.row+off) }
func (b *BandRow) Set(off int, v float64) { b.m.SetBand(b.row, b.row+off, v) }
func (b *BandRow) Add(off int, v float64) { b.m.SetBand(b.row, b.row+off, b.m.At(b.row, b.row+off)+v) }
func (b *BandRow) Next()                  { b.row++ }
func (b *BandRow) Row() int               { return b.row }

// ZeroRows clears rows [start, start+n) of m.
func ZeroRows(m *mat.Dense, start, n int) {
	_, c := m.Dims()
	for i := start; i < start+n; i++ {
		for j := 0; j < c; j++ {
			m.Set(i, j, 0)
		}
	}
}
