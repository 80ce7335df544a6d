package pace

import (
	"fmt"
	"math"
)

// Placeholder is shown when there is no valid pace
const Placeholder = "0:00"

// Sample is one location fix
type Sample struct {
	Speed    float64 // m/s
	Accuracy float64 // meters, lower is better
}

// Update is the result of one accepted sample
type Update struct {
	Value float64 // seconds per km, 0 when stopped
	Text  string  // "M:SS"
}

// Calculator wraps a Filter and formats its output
type Calculator struct {
	filter *Filter
}

// NewCalculator creates a calculator with its own filter
func NewCalculator(stopThreshold, accBadThreshold float64) *Calculator {
	return &Calculator{filter: NewFilter(stopThreshold, accBadThreshold)}
}

// Calculate runs the sample through the filter. ok is false when the sample was discarded.
func (c *Calculator) Calculate(speed, accuracy, maxSpeed float64, alpha AlphaFunc) (Update, bool) {
	v, ok := c.filter.Apply(speed, accuracy, maxSpeed, alpha)
	if !ok {
		return Update{}, false
	}
	return Update{Value: v, Text: FormatPace(v)}, true
}

// Reset clears the smoothing state
func (c *Calculator) Reset() {
	c.filter.Reset()
}

// Smoothed exposes the filter's stored average
func (c *Calculator) Smoothed() (float64, bool) {
	return c.filter.Smoothed()
}

// FormatPace formats seconds per km as "M:SS". Non-positive values give Placeholder.
func FormatPace(secondsPerKm float64) string {
	if math.IsNaN(secondsPerKm) || math.IsInf(secondsPerKm, 0) || secondsPerKm <= 0 {
		return Placeholder
	}
	total := int(secondsPerKm)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
