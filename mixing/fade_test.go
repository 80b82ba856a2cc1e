package mixing

import (
	"math"
	"testing"
)

func TestShapesSatisfyEndpointLaw(t *testing.T) {
	// spec.md §8.1: g(0)=0, g(1)=1 for every curve shape (within the
	// documented short-circuit tolerance near the extremes).
	shapes := map[string]Shape{
		"Linear":          Linear,
		"ExpFade":         ExpFade,
		"LogFade":         LogFade,
		"RaisedSine":      RaisedSine,
		"QuarterSine":     QuarterSine,
		"Parabola":        Parabola,
		"InverseParabola": InverseParabola,
	}
	for name, g := range shapes {
		if v := g(0); v != 0 {
			t.Errorf("%s(0) = %v; want 0", name, v)
		}
		if v := g(1); v != 1 {
			t.Errorf("%s(1) = %v; want 1", name, v)
		}
	}
}

func TestShapesMonotonicNonDecreasing(t *testing.T) {
	shapes := []Shape{Linear, ExpFade, LogFade, RaisedSine, QuarterSine, Parabola, InverseParabola}
	for _, g := range shapes {
		prev := -1.0
		for i := 0; i <= 100; i++ {
			idx := float64(i) / 100
			v := g(idx)
			if v < prev-1e-9 {
				t.Errorf("shape not monotonic non-decreasing at index %v: %v < %v", idx, v, prev)
			}
			prev = v
		}
	}
}

func TestFadeVolumeAtFadeOut(t *testing.T) {
	f := Fade{
		Channel: -1, VolStart: 1.0, VolEnd: 0.0, Shape: CurveLinear,
		TimePre: -1, TimeStart: 1000, TimeEnd: 2000, TimePost: -1,
	}
	if v := f.VolumeAt(500); v != 1.0 {
		t.Errorf("before fade start: VolumeAt(500) = %v; want 1.0 (anchored, pre=-1)", v)
	}
	if v := f.VolumeAt(1500); math.Abs(v-0.5) > 1e-9 {
		t.Errorf("midpoint: VolumeAt(1500) = %v; want 0.5", v)
	}
	if v := f.VolumeAt(2500); v != 0.0 {
		t.Errorf("after fade end: VolumeAt(2500) = %v; want 0.0", v)
	}
}

func TestFadePreSegmentVolume(t *testing.T) {
	f := Fade{
		Channel: -1, VolStart: 0.2, VolEnd: 1.0, Shape: CurveLinear,
		TimePre: 100, TimeStart: 200, TimeEnd: 300, TimePost: -1,
	}
	if v := f.VolumeAt(150); v != 0.2 {
		t.Errorf("pre-segment VolumeAt(150) = %v; want 0.2", v)
	}
}

func TestFadeActiveWindow(t *testing.T) {
	f := Fade{TimePre: 100, TimeStart: 200, TimeEnd: 300, TimePost: 400}
	if f.Active(0, 50) {
		t.Error("should not be active before TimePre")
	}
	if !f.Active(250, 260) {
		t.Error("should be active inside the fade window")
	}
	if f.Active(500, 600) {
		t.Error("should not be active after TimePost")
	}
}

func TestFadeActiveUnboundedPost(t *testing.T) {
	f := Fade{TimePre: -1, TimeStart: 0, TimeEnd: 10, TimePost: -1}
	if !f.Active(1000, 2000) {
		t.Error("unbounded TimePost (-1) should remain active indefinitely")
	}
}
