package compare

import (
	"math"
	"sort"

	"github.com/sourmash-bio/mgsearch/src/sketch"
)

// WeightedResult holds the abundance-weighted overlap metrics for a query/subject pair.
// The distributional statistics are NaN when the intersection is empty - there is no
// abundance multiset to summarise, which is distinct from a summary of zero.
type WeightedResult struct {
	SumWeightedFound    uint64  // total abundance at the intersecting hashes
	TotalWeightedHashes uint64  // total abundance across the whole subject sketch
	FMatchWeighted      float64 // abundance-weighted fraction of the subject found (coverage)
	AverageAbund        float64 // mean abundance at the intersecting hashes
	MedianAbund         float64 // median abundance at the intersecting hashes
	StdAbund            float64 // population standard deviation of the same multiset
}

// WeightedStats derives the abundance-weighted overlap metrics for the hashes shared with a subject sketch.
// It returns sketch.ErrNoAbundances when the subject was sketched without abundance tracking,
// so callers can report the weighted fields as not-computed rather than zero.
func WeightedStats(sharedHashes []uint64, subject *sketch.Sketch) (*WeightedResult, error) {
	if !subject.TrackAbundance() {
		return nil, sketch.ErrNoAbundances
	}

	// collect the abundance multiset for the intersection - a hash missing from a
	// well-formed abundance map shouldn't happen, but it counts as 0 rather than crashing
	abundances := make([]float64, len(sharedHashes))
	var overlapSum uint64
	for i, hash := range sharedHashes {
		count := subject.Abundances[hash]
		abundances[i] = float64(count)
		overlapSum += uint64(count)
	}

	result := &WeightedResult{
		SumWeightedFound:    overlapSum,
		TotalWeightedHashes: subject.SumAbundances(),
		AverageAbund:        math.NaN(),
		MedianAbund:         math.NaN(),
		StdAbund:            math.NaN(),
	}
	if result.TotalWeightedHashes > 0 {
		result.FMatchWeighted = float64(overlapSum) / float64(result.TotalWeightedHashes)
	}
	if len(abundances) == 0 {
		return result, nil
	}

	result.AverageAbund = mean(abundances)
	result.MedianAbund = median(abundances)
	result.StdAbund = populationStdDev(abundances, result.AverageAbund)
	return result, nil
}

// mean returns the arithmetic mean of a non-empty slice
func mean(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

// median returns the median of a non-empty slice, averaging the two central
// values after an ascending sort when the slice has even length
func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// populationStdDev returns the population standard deviation (divide by N) of a non-empty slice
func populationStdDev(values []float64, mean float64) float64 {
	var sumSquares float64
	for _, v := range values {
		sumSquares += (v - mean) * (v - mean)
	}
	return math.Sqrt(sumSquares / float64(len(values)))
}
