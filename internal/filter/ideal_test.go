package filter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIdealBandpassPassesDC(t *testing.T) {
	n := 16
	row := make([]float64, n)
	for i := range row {
		row[i] = 5.0
	}
	out := idealBandpass1D(row, n, 30, 0, 15)
	for i, v := range out {
		require.InDelta(t, 5.0, v, 1e-6, "sample %d", i)
	}
}

func TestIdealBandpassZerosDCWhenLoNonzero(t *testing.T) {
	n := 16
	row := make([]float64, n)
	for i := range row {
		row[i] = 5.0
	}
	out := idealBandpass1D(row, n, 30, 1.0, 15)
	for i, v := range out {
		require.InDelta(t, 0.0, v, 1e-6, "sample %d", i)
	}
}

func TestIdealBandpassRecoversSinusoid(t *testing.T) {
	n := 32
	sampleHz := 30.0
	freq := 2.0
	row := make([]float64, n)
	for i := range row {
		row[i] = math.Sin(2 * math.Pi * freq * float64(i) / sampleHz)
	}
	out := idealBandpass1D(row, n, sampleHz, 1.0, 3.0)

	var maxAbs float64
	for _, v := range out {
		if a := math.Abs(v); a > maxAbs {
			maxAbs = a
		}
	}
	require.Greater(t, maxAbs, 0.5)
}

func TestIdealBandpassRowsShape(t *testing.T) {
	mat := [][]float64{
		{1, 2, 3, 4},
		{4, 3, 2, 1},
	}
	out := IdealBandpassRows(mat, 4, 4, 0, 2)
	require.Len(t, out, 2)
	require.Len(t, out[0], 4)
}
