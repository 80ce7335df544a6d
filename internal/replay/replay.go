// Package replay feeds recorded location samples through a pace consumer,
// standing in for a live GPS provider.
package replay

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// DefaultInterval is the gap between samples when a file gives no delay
const DefaultInterval = time.Second

// StravaAccuracy is the accuracy assumed for Strava streams, which carry none
const StravaAccuracy = 5.0

// Sample is one location fix. Delay is the wait before it is delivered.
type Sample struct {
	Speed    float64 // m/s
	Accuracy float64 // meters
	Delay    time.Duration
}

// ReadCSV parses rows of speed,accuracy[,delay_ms]. A header row and lines
// starting with # are skipped.
func ReadCSV(r io.Reader) ([]Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var samples []Sample
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}
		if line == 1 && isHeader(rec) {
			continue
		}

		s, err := parseRecord(rec)
		if err != nil {
			row, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w", row, err)
		}
		samples = append(samples, s)
	}
	return samples, nil
}

func isHeader(rec []string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
	return err != nil
}

func parseRecord(rec []string) (Sample, error) {
	if len(rec) < 2 || len(rec) > 3 {
		return Sample{}, fmt.Errorf("want 2 or 3 fields, got %d", len(rec))
	}

	speed, err := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
	if err != nil {
		return Sample{}, fmt.Errorf("parsing speed: %w", err)
	}
	acc, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
	if err != nil {
		return Sample{}, fmt.Errorf("parsing accuracy: %w", err)
	}

	delay := DefaultInterval
	if len(rec) == 3 {
		ms, err := strconv.ParseInt(strings.TrimSpace(rec[2]), 10, 64)
		if err != nil {
			return Sample{}, fmt.Errorf("parsing delay_ms: %w", err)
		}
		if ms < 0 {
			return Sample{}, fmt.Errorf("negative delay_ms %d", ms)
		}
		delay = time.Duration(ms) * time.Millisecond
	}

	return Sample{Speed: speed, Accuracy: acc, Delay: delay}, nil
}

// FromVelocityStream converts a Strava time/velocity_smooth stream pair into
// samples at a fixed accuracy. The streams are truncated to the shorter one.
func FromVelocityStream(offsets []int, velocity []float64, accuracy float64) []Sample {
	n := min(len(offsets), len(velocity))
	samples := make([]Sample, 0, n)
	prev := 0
	for i := 0; i < n; i++ {
		delay := time.Duration(offsets[i]-prev) * time.Second
		if i == 0 || delay < 0 {
			delay = 0
		}
		prev = offsets[i]
		samples = append(samples, Sample{Speed: velocity[i], Accuracy: accuracy, Delay: delay})
	}
	return samples
}

// Play delivers samples to fn in order, honouring each Delay divided by
// speedup. speedup <= 0 delivers without waiting. It returns ctx.Err() when
// cancelled before the last sample.
func Play(ctx context.Context, samples []Sample, speedup float64, fn func(Sample)) error {
	var t *time.Timer
	defer func() {
		if t != nil {
			t.Stop()
		}
	}()

	for _, s := range samples {
		if err := ctx.Err(); err != nil {
			return err
		}

		if speedup > 0 && s.Delay > 0 {
			wait := time.Duration(float64(s.Delay) / speedup)
			if t == nil {
				t = time.NewTimer(wait)
			} else {
				t.Reset(wait)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
			}
		}

		fn(s)
	}
	return nil
}
