package trajectory

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Sample is the estimated camera motion between two consecutive frames:
// translation in pixels and rotation in radians.
type Sample struct {
	DX float64
	DY float64
	DA float64
}

// Add returns the component-wise sum of two samples.
func (s Sample) Add(o Sample) Sample {
	return Sample{DX: s.DX + o.DX, DY: s.DY + o.DY, DA: s.DA + o.DA}
}

// Sub returns the component-wise difference of two samples.
func (s Sample) Sub(o Sample) Sample {
	return Sample{DX: s.DX - o.DX, DY: s.DY - o.DY, DA: s.DA - o.DA}
}

// Path is a cumulative camera trajectory. Row i holds the camera position at
// frame i+1, columns are x, y and angle.
type Path struct {
	m *mat.Dense
}

// Len returns the number of trajectory rows.
func (p Path) Len() int {
	if p.m == nil {
		return 0
	}
	r, _ := p.m.Dims()
	return r
}

// At returns row i of the trajectory.
func (p Path) At(i int) Sample {
	return Sample{DX: p.m.At(i, 0), DY: p.m.At(i, 1), DA: p.m.At(i, 2)}
}

// Channel returns a copy of one trajectory column (0=x, 1=y, 2=angle).
func (p Path) Channel(c int) []float64 {
	n := p.Len()
	out := make([]float64, n)
	if n > 0 {
		mat.Col(out, c, p.m)
	}
	return out
}

// Accumulate builds the cumulative trajectory from per-pair motion samples.
// Row i is the component-wise sum of samples[0..i], in presentation order.
func Accumulate(samples []Sample) Path {
	if len(samples) == 0 {
		return Path{}
	}
	m := mat.NewDense(len(samples), 3, nil)
	var run Sample
	for i, s := range samples {
		run = run.Add(s)
		m.SetRow(i, []float64{run.DX, run.DY, run.DA})
	}
	return Path{m: m}
}

// Smooth filters each trajectory channel independently with a centred boxcar
// of window 2*radius+1, replicating the edge values so the output keeps the
// input length. A radius of zero returns the trajectory unchanged; smoothing
// a constant channel is a no-op.
func Smooth(p Path, radius int) Path {
	n := p.Len()
	if n == 0 {
		return Path{}
	}
	m := mat.NewDense(n, 3, nil)
	col := make([]float64, n)
	for c := 0; c < 3; c++ {
		mat.Col(col, c, p.m)
		m.SetCol(c, movingAverage(col, radius))
	}
	return Path{m: m}
}

// movingAverage convolves curve with a uniform kernel of length 2*radius+1
// after padding both ends with the nearest edge value.
func movingAverage(curve []float64, radius int) []float64 {
	out := make([]float64, len(curve))
	if radius <= 0 {
		copy(out, curve)
		return out
	}
	window := 2*radius + 1
	padded := make([]float64, len(curve)+2*radius)
	copy(padded[radius:], curve)
	for i := 0; i < radius; i++ {
		padded[i] = curve[0]
		padded[len(padded)-1-i] = curve[len(curve)-1]
	}
	for i := range out {
		out[i] = floats.Sum(padded[i:i+window]) / float64(window)
	}
	return out
}

// Correct derives the per-frame motion that reproduces the smoothed camera
// path: raw[i] plus the offset between the smoothed and raw trajectories.
func Correct(raw []Sample, path, smoothed Path) []Sample {
	out := make([]Sample, len(raw))
	for i, s := range raw {
		offset := smoothed.At(i).Sub(path.At(i))
		out[i] = s.Add(offset)
	}
	return out
}
