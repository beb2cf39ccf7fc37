package compare

import (
	"math"

	"github.com/sourmash-bio/mgsearch/src/sketch"
)

// falseNegativeProbThreshold is the cutoff on the probability that two sketches share
// no hashes at all by chance under FracMinHash subsampling. Above it, too few shared
// k-mers are expected for the ANI inversion to be statistically meaningful, so the
// estimates are withheld and the comparison is flagged as a potential false negative.
// The value follows the sourmash FracMinHash ANI confidence model.
const falseNegativeProbThreshold = 1e-3

// ANIResult holds the containment-based Average Nucleotide Identity estimates for a
// query/subject sketch pair. Estimates are NaN when they could not be computed: a
// containment of zero gives no basis for the inversion, and unreliable estimates are
// withheld rather than reported as misleading numbers.
type ANIResult struct {
	GenomeContainmentANI   float64 // from the query-in-subject containment fraction
	MatchContainmentANI    float64 // from the subject-in-query containment fraction
	AverageContainmentANI  float64 // from the arithmetic mean of the two containment fractions
	MaxContainmentANI      float64 // from the larger of the two containment fractions
	PotentialFalseNegative bool    // true when either sketch is too small for the model at the observed containment
}

// EstimateANI converts the containment fractions of an intersection into ANI point
// estimates using the FracMinHash mutation model: an observed containment c at k-mer
// size k implies a per-base identity of c^(1/k).
func EstimateANI(intersection *IntersectionResult, query, subject *sketch.Sketch) *ANIResult {
	ksize := float64(query.KmerSize)
	scaled := query.ScaledOrOne()

	result := &ANIResult{}
	result.GenomeContainmentANI = containmentToANI(intersection.FQuery, ksize, scaled, result, query.EffectiveTotalKmers())
	result.MatchContainmentANI = containmentToANI(intersection.FMatch, ksize, scaled, result, subject.EffectiveTotalKmers())

	avgContainment := (intersection.FQuery + intersection.FMatch) / 2
	maxContainment := math.Max(intersection.FQuery, intersection.FMatch)

	// the averaged and maximal estimates depend on both sketches, so both set sizes must pass the reliability check
	result.AverageContainmentANI = containmentToANI(avgContainment, ksize, scaled, result, query.EffectiveTotalKmers(), subject.EffectiveTotalKmers())
	result.MaxContainmentANI = containmentToANI(maxContainment, ksize, scaled, result, query.EffectiveTotalKmers(), subject.EffectiveTotalKmers())
	return result
}

// containmentToANI inverts a single containment fraction to an ANI point estimate,
// withholding the estimate (NaN) and flagging the result when the false negative
// probability for any of the supplied sketch set sizes exceeds the model threshold
func containmentToANI(containment, ksize float64, scaled uint64, result *ANIResult, totalKmers ...uint64) float64 {
	if containment <= 0 {
		return math.NaN()
	}
	ani := math.Pow(containment, 1/ksize)
	if ani > 1 {
		ani = 1
	}
	for _, nKmers := range totalKmers {
		if probNothingInCommon(ani, ksize, scaled, nKmers) >= falseNegativeProbThreshold {
			result.PotentialFalseNegative = true
			return math.NaN()
		}
	}
	return ani
}

// probNothingInCommon returns the expected probability that a dataset of nKmers distinct
// k-mers at the given identity shares no hashes with a FracMinHash sketch at the given
// scaled value. Each of the ~nKmers*ani^k unmutated k-mers independently misses the
// sketch with probability (1 - 1/scaled), so the log probability is their product.
func probNothingInCommon(ani, ksize float64, scaled uint64, nKmers uint64) float64 {
	if scaled <= 1 {
		// no subsampling means every shared k-mer is observed
		return 0
	}
	expectedUnmutated := float64(nKmers) * math.Pow(ani, ksize)
	return math.Exp(expectedUnmutated * math.Log1p(-1/float64(scaled)))
}
