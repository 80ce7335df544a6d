package pace

import (
	"math"
	"testing"

	"pacetracker/internal/modes"
)

func TestFormatPace(t *testing.T) {
	tests := []struct {
		input float64
		want  string
	}{
		{125.0, "2:05"},
		{59.999, "0:59"},
		{0.0, "0:00"},
		{-3.0, "0:00"},
		{250.0, "4:10"},
		{333.333, "5:33"},
		{600.9, "10:00"},
		{math.NaN(), "0:00"},
		{math.Inf(1), "0:00"},
	}

	for _, tt := range tests {
		if got := FormatPace(tt.input); got != tt.want {
			t.Errorf("FormatPace(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestCalculatorFirstSample(t *testing.T) {
	c := NewCalculator(DefaultStopThreshold, DefaultAccBadThreshold)

	u, ok := c.Calculate(4.0, 5, modes.Running.MaxSpeed(), modes.Running.Alpha)
	if !ok {
		t.Fatal("Calculate() discarded a valid sample")
	}
	if u.Value != 250.0 || u.Text != "4:10" {
		t.Errorf("Calculate() = %+v, want {250 4:10}", u)
	}
}

func TestCalculatorStopped(t *testing.T) {
	c := NewCalculator(DefaultStopThreshold, DefaultAccBadThreshold)
	c.Calculate(2.5, 5, 8.5, modes.Running.Alpha)

	u, ok := c.Calculate(0.1, 5, 8.5, modes.Running.Alpha)
	if !ok {
		t.Fatal("stopped sample discarded")
	}
	if u.Value != 0 || u.Text != Placeholder {
		t.Errorf("Calculate() = %+v, want {0 %s}", u, Placeholder)
	}
}

func TestCalculatorDiscard(t *testing.T) {
	c := NewCalculator(DefaultStopThreshold, DefaultAccBadThreshold)
	if u, ok := c.Calculate(3.0, 40, 8.5, modes.Running.Alpha); ok {
		t.Errorf("Calculate() = %+v, want discard", u)
	}
}

func TestCalculatorReset(t *testing.T) {
	c := NewCalculator(DefaultStopThreshold, DefaultAccBadThreshold)
	c.Calculate(2.0, 5, 8.5, modes.Running.Alpha)
	c.Reset()

	if _, has := c.Smoothed(); has {
		t.Error("Smoothed() has value after Reset")
	}

	u, _ := c.Calculate(4.0, 5, 8.5, modes.Running.Alpha)
	if u.Value != 250 {
		t.Errorf("after reset Value = %v, want 250", u.Value)
	}
}
