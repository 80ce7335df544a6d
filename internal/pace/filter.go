package pace

const (
	// DefaultStopThreshold is the speed (m/s) below which the runner counts as stopped
	DefaultStopThreshold = 0.5
	// DefaultAccBadThreshold is the GPS accuracy (meters) above which a fix is dropped
	DefaultAccBadThreshold = 35.0

	metersPerKm = 1000.0
)

// AlphaFunc maps GPS accuracy to an EMA weight in (0,1]
type AlphaFunc func(accuracy float64) float64

// Filter turns raw speed samples into an exponentially smoothed pace (seconds per km).
// It is not safe for concurrent use.
type Filter struct {
	stopThreshold   float64
	accBadThreshold float64

	smoothed float64
	hasValue bool
}

// NewFilter creates a filter with the given stop speed (m/s) and accuracy cutoff (meters)
func NewFilter(stopThreshold, accBadThreshold float64) *Filter {
	if stopThreshold <= 0 || accBadThreshold <= 0 {
		panic("pace: thresholds must be positive")
	}
	return &Filter{
		stopThreshold:   stopThreshold,
		accBadThreshold: accBadThreshold,
	}
}

// Reset forgets the smoothed value so the next sample seeds it
func (f *Filter) Reset() {
	f.smoothed = 0
	f.hasValue = false
}

// Smoothed returns the stored average and whether one has been set since the last Reset
func (f *Filter) Smoothed() (float64, bool) {
	return f.smoothed, f.hasValue
}

// Apply feeds one sample through the filter. It returns the smoothed pace, or
// ok=false when the sample is discarded (poor accuracy or implausible speed).
// A stopped runner yields 0 without touching the stored average.
func (f *Filter) Apply(speed, accuracy, maxSpeed float64, alpha AlphaFunc) (float64, bool) {
	if alpha == nil {
		panic("pace: nil alpha func")
	}

	instant, ok := f.instantPace(speed, accuracy, maxSpeed)
	if !ok {
		return 0, false
	}
	if instant == 0 {
		return 0, true
	}

	if !f.hasValue {
		f.smoothed = instant
		f.hasValue = true
		return instant, true
	}

	a := alpha(accuracy)
	f.smoothed = a*instant + (1-a)*f.smoothed
	return f.smoothed, true
}

// instantPace applies the gates in order: accuracy, stopped, speed ceiling
func (f *Filter) instantPace(speed, accuracy, maxSpeed float64) (float64, bool) {
	switch {
	case accuracy > f.accBadThreshold:
		return 0, false
	case speed < f.stopThreshold:
		return 0, true
	case speed > maxSpeed:
		return 0, false
	default:
		return metersPerKm / speed, true
	}
}
