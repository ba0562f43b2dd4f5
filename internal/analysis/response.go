package analysis

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var ErrShortSeries = errors.New("analysis: series too short")

// Response describes how a signal approaches a constant setpoint.
type Response struct {
	Initial float64
	Final   float64
	Target  float64

	// Overshoot is the largest excursion past the target in the direction
	// of travel, as a fraction of the initial error.
	Overshoot float64
	// SettlingTime is the first time after which the error stays within
	// the band. It is +Inf if the signal never settles.
	SettlingTime float64
	// SteadyState is the mean error over the last tenth of the series.
	SteadyState float64
	RMS         float64
	PeakError   float64
}

// Analyze computes the response of values (sampled at times) to target.
// band is the absolute settling tolerance.
func Analyze(times, values []float64, target, band float64) (Response, error) {
	n := len(values)
	if n < 2 || len(times) != n {
		return Response{}, errors.Wrapf(ErrShortSeries, "%d samples, %d times", n, len(times))
	}

	errs := make([]float64, n)
	copy(errs, values)
	floats.AddConst(-target, errs)

	r := Response{
		Initial:      values[0],
		Final:        values[n-1],
		Target:       target,
		SettlingTime: math.Inf(1),
	}

	sq := make([]float64, n)
	floats.MulTo(sq, errs, errs)
	r.RMS = math.Sqrt(stat.Mean(sq, nil))
	r.PeakError = math.Max(math.Abs(floats.Max(errs)), math.Abs(floats.Min(errs)))

	tail := n / 10
	if tail < 1 {
		tail = 1
	}
	r.SteadyState = stat.Mean(errs[n-tail:], nil)

	if e0 := errs[0]; e0 != 0 {
		// Past the target means the error has changed sign.
		worst := 0.0
		for _, e := range errs {
			if e*e0 < 0 {
				worst = math.Max(worst, math.Abs(e))
			}
		}
		r.Overshoot = worst / math.Abs(e0)
	}

	for i := n - 1; i >= 0; i-- {
		if math.Abs(errs[i]) > band {
			if i < n-1 {
				r.SettlingTime = times[i+1]
			}
			return r, nil
		}
	}
	r.SettlingTime = times[0]
	return r, nil
}

// Settled reports whether the signal ended within the band.
func (r Response) Settled() bool { return !math.IsInf(r.SettlingTime, 1) }
