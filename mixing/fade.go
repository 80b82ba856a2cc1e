package mixing

import "math"

// Shape is a fade curve function, pure in index (spec.md §4.5). All shapes
// satisfy g(0)=0, g(1)=1, monotonic non-decreasing on [0,1] (spec.md
// §8.1's fade envelope law), with the short-circuit at the extremes that
// avoids transcendental edge cases.
type Shape func(index float64) float64

const fadeLogBase = 5.75646273248511 // -100dB attenuation constant, spec.md §4.5

func clampIndex(index float64, g func(float64) float64) float64 {
	if index <= 0.0001 {
		return 0
	}
	if index >= 0.9999 {
		return 1
	}
	return g(index)
}

func Linear(index float64) float64 {
	return clampIndex(index, func(i float64) float64 { return i })
}

func ExpFade(index float64) float64 {
	return clampIndex(index, func(i float64) float64 {
		return math.Exp(-fadeLogBase * (1 - i))
	})
}

func LogFade(index float64) float64 {
	return clampIndex(index, func(i float64) float64 {
		return 1 - math.Exp(-fadeLogBase*i)
	})
}

func RaisedSine(index float64) float64 {
	return clampIndex(index, func(i float64) float64 {
		return (1 - math.Cos(i*math.Pi)) / 2
	})
}

func QuarterSine(index float64) float64 {
	return clampIndex(index, func(i float64) float64 {
		return math.Sin(i * math.Pi / 2)
	})
}

func Parabola(index float64) float64 {
	return clampIndex(index, func(i float64) float64 {
		return 1 - math.Sqrt(1-i)
	})
}

func InverseParabola(index float64) float64 {
	return clampIndex(index, func(i float64) float64 {
		return 1 - (1-i)*(1-i)
	})
}

// CurveShape names a fade shape by its spec.md §3.1 letter code.
type CurveShape byte

const (
	CurveLinear          CurveShape = 'T'
	CurveExpFade         CurveShape = 'E'
	CurveLogFade         CurveShape = 'L'
	CurveRaisedSine      CurveShape = 'H'
	CurveQuarterSine     CurveShape = 'Q'
	CurveParabola        CurveShape = 'p'
	CurveInverseParabola CurveShape = 'P'
)

var shapeTable = map[CurveShape]Shape{
	CurveLinear:          Linear,
	CurveExpFade:         ExpFade,
	CurveLogFade:         LogFade,
	CurveRaisedSine:      RaisedSine,
	CurveQuarterSine:     QuarterSine,
	CurveParabola:        Parabola,
	CurveInverseParabola: InverseParabola,
}

func (c CurveShape) Func() Shape {
	if f, ok := shapeTable[c]; ok {
		return f
	}
	return Linear
}

// Fade describes one fade command's timing and target volumes (spec.md
// §3.1 Mix command "Fade" variant). Times are absolute sample positions;
// TimePre == -1 means "from the beginning", TimePost == -1 means "until
// the end".
type Fade struct {
	Channel  int // -1 means all channels
	VolStart float64
	VolEnd   float64
	Shape    CurveShape
	TimePre  int64
	TimeStart int64
	TimeEnd   int64
	TimePost  int64
}

// VolumeAt computes the effective volume at absolute sample position p
// (spec.md §4.5).
func (f Fade) VolumeAt(p int64) float64 {
	anchoredAtStart := f.TimePre == -1 && f.VolStart == 1.0

	if !anchoredAtStart {
		preStart := f.TimePre
		if preStart < 0 {
			preStart = 0
		}
		if p >= preStart && p < f.TimeStart {
			return f.VolStart
		}
	}

	postEnd := f.TimePost
	inPost := postEnd == -1 || p < postEnd
	if p >= f.TimeEnd && inPost {
		return f.VolEnd
	}

	if p >= f.TimeStart && p < f.TimeEnd {
		span := float64(f.TimeEnd - f.TimeStart)
		if span <= 0 {
			return f.VolEnd
		}
		fadeIn := f.VolEnd >= f.VolStart
		var index float64
		if fadeIn {
			index = float64(p-f.TimeStart) / span
		} else {
			index = float64(f.TimeEnd-p) / span
		}
		g := f.Shape.Func()(index)
		if fadeIn {
			return f.VolStart + (f.VolEnd-f.VolStart)*g
		}
		return f.VolEnd - (f.VolEnd-f.VolStart)*g
	}

	return 1.0
}

// Active reports whether the fade affects any sample in [start, end)
// (spec.md §4.5 "Fade activation check per play call").
func (f Fade) Active(start, end int64) bool {
	effStart := f.TimePre
	if effStart < 0 {
		effStart = 0
	}
	if f.TimePost == -1 {
		return end > effStart
	}
	return start < f.TimePost && end > effStart
}
