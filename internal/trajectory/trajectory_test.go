package trajectory

import (
	"math"
	"testing"
)

const tol = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < tol
}

func TestAccumulatePrefixSum(t *testing.T) {
	samples := []Sample{
		{DX: 5, DY: -1, DA: 0.1},
		{DX: 5, DY: 2, DA: -0.1},
		{DX: -3, DY: 0, DA: 0.05},
	}
	p := Accumulate(samples)
	if p.Len() != len(samples) {
		t.Fatalf("expected %d rows, got %d", len(samples), p.Len())
	}

	var want Sample
	for i, s := range samples {
		want = want.Add(s)
		got := p.At(i)
		if !almostEqual(got.DX, want.DX) || !almostEqual(got.DY, want.DY) || !almostEqual(got.DA, want.DA) {
			t.Fatalf("row %d: got %+v, want %+v", i, got, want)
		}
	}
}

func TestAccumulateEmpty(t *testing.T) {
	p := Accumulate(nil)
	if p.Len() != 0 {
		t.Fatalf("expected empty path, got %d rows", p.Len())
	}
}

func TestSmoothConstantIsNoOp(t *testing.T) {
	samples := make([]Sample, 20)
	samples[0] = Sample{DX: 3, DY: -2, DA: 0.25}
	p := Accumulate(samples) // constant after the first row is all zeros added

	for _, radius := range []int{0, 1, 5, 50} {
		sm := Smooth(p, radius)
		if sm.Len() != p.Len() {
			t.Fatalf("radius %d: length changed from %d to %d", radius, p.Len(), sm.Len())
		}
		for i := 0; i < p.Len(); i++ {
			got, want := sm.At(i), p.At(i)
			if !almostEqual(got.DX, want.DX) || !almostEqual(got.DY, want.DY) || !almostEqual(got.DA, want.DA) {
				t.Fatalf("radius %d row %d: got %+v, want %+v", radius, i, got, want)
			}
		}
	}
}

func TestSmoothZeroRadiusIsIdentity(t *testing.T) {
	samples := []Sample{{DX: 1}, {DX: 4}, {DX: -2}, {DX: 7}}
	p := Accumulate(samples)
	sm := Smooth(p, 0)
	for i := 0; i < p.Len(); i++ {
		if !almostEqual(sm.At(i).DX, p.At(i).DX) {
			t.Fatalf("row %d: got %v, want %v", i, sm.At(i).DX, p.At(i).DX)
		}
	}
}

func TestSmoothInteriorBoxcarAverage(t *testing.T) {
	// Constant 5px/frame drift on x: trajectory is 5, 10, ..., 45.
	samples := make([]Sample, 9)
	for i := range samples {
		samples[i] = Sample{DX: 5}
	}
	p := Accumulate(samples)
	for i := 0; i < p.Len(); i++ {
		if !almostEqual(p.At(i).DX, float64(5*(i+1))) {
			t.Fatalf("trajectory row %d: got %v, want %v", i, p.At(i).DX, 5*(i+1))
		}
	}

	radius := 2
	sm := Smooth(p, radius)
	raw := p.Channel(0)
	// Interior points equal the plain average of the surrounding window.
	for i := radius; i < len(raw)-radius; i++ {
		var sum float64
		for j := i - radius; j <= i+radius; j++ {
			sum += raw[j]
		}
		want := sum / float64(2*radius+1)
		if !almostEqual(sm.At(i).DX, want) {
			t.Fatalf("row %d: got %v, want %v", i, sm.At(i).DX, want)
		}
	}
	// Edge padding replicates the boundary values.
	wantFirst := (raw[0] + raw[0] + raw[0] + raw[1] + raw[2]) / 5
	if !almostEqual(sm.At(0).DX, wantFirst) {
		t.Fatalf("row 0: got %v, want %v", sm.At(0).DX, wantFirst)
	}
}

func TestSmoothRadiusLargerThanInput(t *testing.T) {
	samples := []Sample{{DX: 2}, {DX: 2}}
	p := Accumulate(samples)
	sm := Smooth(p, 10)
	if sm.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", sm.Len())
	}
}

func TestCorrectAppliesSmoothedOffset(t *testing.T) {
	samples := []Sample{
		{DX: 5, DY: 1, DA: 0.02},
		{DX: 4, DY: -2, DA: -0.01},
		{DX: 6, DY: 0.5, DA: 0.03},
		{DX: 5, DY: 0, DA: 0},
		{DX: 3, DY: 2, DA: -0.02},
	}
	p := Accumulate(samples)
	sm := Smooth(p, 1)
	corrected := Correct(samples, p, sm)

	if len(corrected) != len(samples) {
		t.Fatalf("expected %d corrected samples, got %d", len(samples), len(corrected))
	}
	// Each corrected motion is the raw motion shifted by the per-frame gap
	// between the smoothed and raw trajectories.
	for i := range corrected {
		got := corrected[i].Sub(samples[i])
		want := sm.At(i).Sub(p.At(i))
		if !almostEqual(got.DX, want.DX) || !almostEqual(got.DY, want.DY) || !almostEqual(got.DA, want.DA) {
			t.Fatalf("row %d: offset %+v, want %+v", i, got, want)
		}
	}
	// Hand-checked row: trajectory x is 5, 9, 15; the radius-1 average at row 1
	// is 29/3, so corrected[1].DX = 4 + (29/3 - 9).
	if want := 4 + (29.0/3 - 9); !almostEqual(corrected[1].DX, want) {
		t.Fatalf("corrected[1].DX = %v, want %v", corrected[1].DX, want)
	}
}

func TestCorrectIdentityWhenSmoothedEqualsRaw(t *testing.T) {
	samples := []Sample{{DX: 1, DY: 2, DA: 0.1}, {DX: 1, DY: 2, DA: 0.1}}
	p := Accumulate(samples)
	corrected := Correct(samples, p, p)
	for i, c := range corrected {
		if !almostEqual(c.DX, samples[i].DX) || !almostEqual(c.DY, samples[i].DY) || !almostEqual(c.DA, samples[i].DA) {
			t.Fatalf("row %d: got %+v, want %+v", i, c, samples[i])
		}
	}
}
