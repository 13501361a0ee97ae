// Package scanstat summarises sweeps for display.
//
// Values are in whatever units the driver reports; nothing is converted.
package scanstat

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/sweep/sweep"
)

// Summary describes one sweep.
type Summary struct {
	Samples int `json:"samples"`

	MinDistance    float64 `json:"min_distance"`
	MaxDistance    float64 `json:"max_distance"`
	MeanDistance   float64 `json:"mean_distance"`
	StdDevDistance float64 `json:"stddev_distance"`
	MedianDistance float64 `json:"median_distance"`

	MeanSignalStrength float64 `json:"mean_signal_strength"`

	// Zero counts samples with a distance of 0, which the Sweep reports
	// when nothing returned in range.
	Zero int `json:"zero"`
}

// Summarize computes a Summary. An empty sweep yields the zero Summary.
func Summarize(samples []sweep.Sample) Summary {
	if len(samples) == 0 {
		return Summary{}
	}

	dist := make([]float64, len(samples))
	signal := make([]float64, len(samples))
	zero := 0
	for i, s := range samples {
		dist[i] = float64(s.Distance)
		signal[i] = float64(s.SignalStrength)
		if s.Distance == 0 {
			zero++
		}
	}

	mean, std := stat.MeanStdDev(dist, nil)
	if len(dist) < 2 {
		std = 0
	}
	sorted := append([]float64(nil), dist...)
	floats.Argsort(sorted, make([]int, len(sorted)))

	return Summary{
		Samples:            len(samples),
		MinDistance:        floats.Min(dist),
		MaxDistance:        floats.Max(dist),
		MeanDistance:       mean,
		StdDevDistance:     std,
		MedianDistance:     stat.Quantile(0.5, stat.Empirical, sorted, nil),
		MeanSignalStrength: stat.Mean(signal, nil),
		Zero:               zero,
	}
}

func (s Summary) String() string {
	return fmt.Sprintf("samples=%d distance min=%.0f max=%.0f mean=%.1f sd=%.1f median=%.0f signal mean=%.1f zero=%d",
		s.Samples, s.MinDistance, s.MaxDistance, s.MeanDistance, s.StdDevDistance, s.MedianDistance, s.MeanSignalStrength, s.Zero)
}
