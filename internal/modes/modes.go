package modes

import (
	"fmt"
	"strings"
)

// Mode is a training mode. The set is closed: Running and Walking.
type Mode int

const (
	Running Mode = iota
	Walking
)

// Accuracy tiers (meters) used by every mode's smoothing coefficient
const (
	poorAccuracy = 25.0
	fairAccuracy = 10.0
)

type params struct {
	name     string
	label    string
	maxSpeed float64    // m/s
	alphas   [3]float64 // poor, fair, good
}

var table = map[Mode]params{
	Running: {name: "running", label: "RUNNING", maxSpeed: 8.5, alphas: [3]float64{0.10, 0.30, 0.65}},
	Walking: {name: "walking", label: "WALKING", maxSpeed: 3.5, alphas: [3]float64{0.05, 0.15, 0.40}},
}

// ordered is the cycle order used by Next
var ordered = []Mode{Running, Walking}

// All returns the modes in cycle order
func All() []Mode {
	out := make([]Mode, len(ordered))
	copy(out, ordered)
	return out
}

// Next returns the mode after current. Unknown values restart the cycle.
func Next(current Mode) Mode {
	idx := 0
	for i, m := range ordered {
		if m == current {
			idx = i
			break
		}
	}
	return ordered[(idx+1)%len(ordered)]
}

// Parse maps a config or CLI string ("running", "walk", ...) to a Mode
func Parse(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "running", "run":
		return Running, nil
	case "walking", "walk":
		return Walking, nil
	}
	return 0, fmt.Errorf("unknown activity mode %q", s)
}

// Valid reports whether m is one of the known modes
func (m Mode) Valid() bool {
	_, ok := table[m]
	return ok
}

// String returns the lowercase config name
func (m Mode) String() string {
	if p, ok := table[m]; ok {
		return p.name
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Label returns the display label
func (m Mode) Label() string {
	return m.params().label
}

// MaxSpeed is the highest plausible speed in m/s. Faster samples are GPS glitches.
func (m Mode) MaxSpeed() float64 {
	return m.params().maxSpeed
}

// Alpha maps GPS accuracy (meters, lower is better) to an EMA weight.
// Worse accuracy gives a lower weight, so the average is damped harder.
func (m Mode) Alpha(accuracy float64) float64 {
	a := m.params().alphas
	switch {
	case accuracy > poorAccuracy:
		return a[0]
	case accuracy > fairAccuracy:
		return a[1]
	default:
		return a[2]
	}
}

func (m Mode) params() params {
	p, ok := table[m]
	if !ok {
		panic(fmt.Sprintf("modes: unknown mode %d", int(m)))
	}
	return p
}
