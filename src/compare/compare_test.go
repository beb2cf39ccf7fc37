package compare

import (
	"errors"
	"math"
	"testing"

	"github.com/adam-hanna/arrayOperations"

	"github.com/sourmash-bio/mgsearch/src/sketch"
)

var (
	testKsize  = uint32(21)
	testScaled = uint64(1)

	// a hand-checkable pair: query {1,2,3,4} vs subject {2,3,4,5} with abundances {2:1,3:5,4:2,5:10}
	queryHashes     = []uint64{1, 2, 3, 4}
	subjectHashes   = []uint64{2, 3, 4, 5}
	subjectAbunds   = map[uint64]uint32{2: 1, 3: 5, 4: 2, 5: 10}
	floatTolerance  = 1e-9
)

// helper to build a test sketch
func newTestSketch(name string, hashes []uint64, abundances map[uint64]uint32) *sketch.Sketch {
	return sketch.NewSketch(name, testKsize, sketch.DNA, testScaled, hashes, abundances)
}

// helper to compare floats
func closeEnough(a, b float64) bool {
	return math.Abs(a-b) < floatTolerance
}

// helper to independently compute an intersection
func expectedIntersection(a, b []uint64) []uint64 {
	z, ok := arrayOperations.Intersect(a, b)
	if !ok {
		panic("cannot find intersect")
	}
	slice, ok := z.Interface().([]uint64)
	if !ok {
		panic("cannot convert to slice")
	}
	return slice
}

// every overlap metric for the hand-checkable pair
func TestOverlapMetrics(t *testing.T) {
	query := newTestSketch("query", queryHashes, nil)
	subject := newTestSketch("subject", subjectHashes, subjectAbunds)

	intersection, err := Intersect(query, subject)
	if err != nil {
		t.Fatal(err)
	}
	if intersection.Count != len(expectedIntersection(queryHashes, subjectHashes)) {
		t.Fatalf("expected intersection of 3, got %d", intersection.Count)
	}
	if !closeEnough(intersection.FQuery, 0.75) {
		t.Fatalf("expected f_query of 0.75, got %f", intersection.FQuery)
	}
	if !closeEnough(intersection.FMatch, 0.75) {
		t.Fatalf("expected f_match of 0.75, got %f", intersection.FMatch)
	}
	if !closeEnough(intersection.Jaccard, 0.6) {
		t.Fatalf("expected jaccard of 0.6, got %f", intersection.Jaccard)
	}
	if intersection.IntersectBP != 3 {
		t.Fatalf("expected intersect_bp of 3 at scaled=1, got %d", intersection.IntersectBP)
	}

	weighted, err := WeightedStats(intersection.SharedHashes, subject)
	if err != nil {
		t.Fatal(err)
	}
	if weighted.SumWeightedFound != 8 {
		t.Fatalf("expected sum_weighted_found of 8, got %d", weighted.SumWeightedFound)
	}
	if weighted.TotalWeightedHashes != 18 {
		t.Fatalf("expected total weighted hashes of 18, got %d", weighted.TotalWeightedHashes)
	}
	if !closeEnough(weighted.FMatchWeighted, 8.0/18.0) {
		t.Fatalf("expected f_match_weighted of %f, got %f", 8.0/18.0, weighted.FMatchWeighted)
	}
	if !closeEnough(weighted.AverageAbund, 8.0/3.0) {
		t.Fatalf("expected average abundance of %f, got %f", 8.0/3.0, weighted.AverageAbund)
	}
	if !closeEnough(weighted.MedianAbund, 2) {
		t.Fatalf("expected median abundance of 2, got %f", weighted.MedianAbund)
	}

	// population std dev of {1,5,2}
	expectedStd := math.Sqrt(((1-8.0/3.0)*(1-8.0/3.0) + (5-8.0/3.0)*(5-8.0/3.0) + (2-8.0/3.0)*(2-8.0/3.0)) / 3)
	if !closeEnough(weighted.StdAbund, expectedStd) {
		t.Fatalf("expected std abundance of %f, got %f", expectedStd, weighted.StdAbund)
	}
}

// intersection is symmetric
func TestSymmetry(t *testing.T) {
	sketchA := newTestSketch("A", []uint64{1, 2, 3, 4, 5, 6}, nil)
	sketchB := newTestSketch("B", []uint64{4, 5, 6, 7}, nil)

	forward, err := Intersect(sketchA, sketchB)
	if err != nil {
		t.Fatal(err)
	}
	reverse, err := Intersect(sketchB, sketchA)
	if err != nil {
		t.Fatal(err)
	}
	if forward.Count != reverse.Count {
		t.Fatalf("intersection count should be symmetric: %d vs. %d", forward.Count, reverse.Count)
	}
	if !closeEnough(forward.FQuery, reverse.FMatch) || !closeEnough(forward.FMatch, reverse.FQuery) {
		t.Fatal("containment fractions should swap when the sketches swap")
	}
	if !closeEnough(forward.Jaccard, reverse.Jaccard) {
		t.Fatal("jaccard should be symmetric")
	}
}

// a sketch compared to itself is fully contained
func TestSelfContainment(t *testing.T) {
	sketchA := newTestSketch("A", queryHashes, nil)
	self, err := Intersect(sketchA, sketchA)
	if err != nil {
		t.Fatal(err)
	}
	if self.Count != sketchA.Len() {
		t.Fatalf("self intersection should equal sketch size, got %d", self.Count)
	}
	if !closeEnough(self.FQuery, 1) || !closeEnough(self.FMatch, 1) || !closeEnough(self.Jaccard, 1) {
		t.Fatal("self comparison should give containment and jaccard of 1.0")
	}
}

// disjoint sketches give zero overlap and no ANI
func TestDisjointness(t *testing.T) {
	sketchA := newTestSketch("A", []uint64{1, 2, 3}, nil)
	sketchB := newTestSketch("B", []uint64{4, 5, 6}, nil)
	record, err := Compare(sketchA, sketchB)
	if err != nil {
		t.Fatal(err)
	}
	if record.IntersectHashes != 0 || record.Jaccard != 0 {
		t.Fatal("disjoint sketches should give an empty intersection")
	}
	for _, ani := range []float64{record.GenomeContainmentANI, record.MatchContainmentANI, record.AverageContainmentANI, record.MaxContainmentANI} {
		if !math.IsNaN(ani) {
			t.Fatalf("ANI should be undefined for disjoint sketches, got %f", ani)
		}
	}
}

// more shared hashes never lowers the overlap metrics
func TestMonotonicity(t *testing.T) {
	prevFQuery, prevFMatch, prevJaccard := -1.0, -1.0, -1.0
	for overlap := 1; overlap <= 4; overlap++ {

		// hold both sketch sizes at 6 and grow the shared prefix
		hashesA := []uint64{1, 2, 3, 4, 101, 102}
		hashesB := make([]uint64, 0, 6)
		for i := 0; i < overlap; i++ {
			hashesB = append(hashesB, uint64(i+1))
		}
		for i := overlap; i < 6; i++ {
			hashesB = append(hashesB, uint64(i+200))
		}
		intersection, err := Intersect(newTestSketch("A", hashesA, nil), newTestSketch("B", hashesB, nil))
		if err != nil {
			t.Fatal(err)
		}
		if intersection.Count != overlap {
			t.Fatalf("expected intersection of %d, got %d", overlap, intersection.Count)
		}
		if intersection.FQuery < prevFQuery || intersection.FMatch < prevFMatch || intersection.Jaccard < prevJaccard {
			t.Fatal("overlap metrics should not decrease as the shared hash count grows")
		}
		prevFQuery, prevFMatch, prevJaccard = intersection.FQuery, intersection.FMatch, intersection.Jaccard
	}
}

// empty sketches are degenerate inputs, not errors
func TestEmptySketches(t *testing.T) {
	empty := newTestSketch("empty", nil, nil)
	full := newTestSketch("full", queryHashes, nil)

	intersection, err := Intersect(empty, full)
	if err != nil {
		t.Fatal(err)
	}
	if intersection.Count != 0 || intersection.FQuery != 0 || intersection.FMatch != 0 {
		t.Fatal("empty query should give all-zero overlap metrics")
	}
	bothEmpty, err := Intersect(empty, empty)
	if err != nil {
		t.Fatal(err)
	}
	if bothEmpty.Jaccard != 0 {
		t.Fatal("jaccard of two empty sketches should be 0")
	}
}

// mismatched sketches fail before any hash-set work
func TestMismatchedComparison(t *testing.T) {
	query := newTestSketch("query", queryHashes, nil)
	subject := sketch.NewSketch("subject", 31, sketch.DNA, testScaled, subjectHashes, nil)
	if _, err := Intersect(query, subject); !errors.Is(err, sketch.ErrMismatchedSketches) {
		t.Fatalf("expected a mismatched sketch error, got: %v", err)
	}
}

// weighted stats need abundance data and say so
func TestWeightedStatsNoAbundance(t *testing.T) {
	query := newTestSketch("query", queryHashes, nil)
	subject := newTestSketch("subject", subjectHashes, nil)
	intersection, err := Intersect(query, subject)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := WeightedStats(intersection.SharedHashes, subject); !errors.Is(err, sketch.ErrNoAbundances) {
		t.Fatalf("expected ErrNoAbundances, got: %v", err)
	}

	// the record must report not-computed, which is distinct from zero
	record, err := Compare(query, subject)
	if err != nil {
		t.Fatal(err)
	}
	if record.HasAbundance {
		t.Fatal("record should not claim abundance data")
	}
	for _, value := range []float64{record.FMatchWeighted, record.SumWeightedFound, record.AverageAbund, record.MedianAbund, record.StdAbund, record.MatchNumWeightedHashes} {
		if !math.IsNaN(value) {
			t.Fatalf("weighted fields should be undefined without abundance data, got %f", value)
		}
	}
}

// a hash missing from the abundance map counts as zero rather than crashing
func TestWeightedStatsMissingHash(t *testing.T) {
	subject := newTestSketch("subject", subjectHashes, map[uint64]uint32{2: 1, 3: 5})
	weighted, err := WeightedStats([]uint64{2, 3, 4}, subject)
	if err != nil {
		t.Fatal(err)
	}
	if weighted.SumWeightedFound != 6 {
		t.Fatalf("expected sum of 6 with the missing hash counting 0, got %d", weighted.SumWeightedFound)
	}
}

// the weighted fraction is a proper fraction whenever it is computed
func TestWeightedBound(t *testing.T) {
	query := newTestSketch("query", queryHashes, nil)
	subject := newTestSketch("subject", subjectHashes, subjectAbunds)
	record, err := Compare(query, subject)
	if err != nil {
		t.Fatal(err)
	}
	if !record.HasAbundance {
		t.Fatal("record should carry abundance data")
	}
	if record.FMatchWeighted < 0 || record.FMatchWeighted > 1 {
		t.Fatalf("f_match_weighted out of bounds: %f", record.FMatchWeighted)
	}
}

// empty intersection with abundance data: sums are zero, distribution stats are undefined
func TestWeightedStatsEmptyIntersection(t *testing.T) {
	subject := newTestSketch("subject", subjectHashes, subjectAbunds)
	weighted, err := WeightedStats(nil, subject)
	if err != nil {
		t.Fatal(err)
	}
	if weighted.SumWeightedFound != 0 || weighted.FMatchWeighted != 0 {
		t.Fatal("empty intersection should give zero weighted sums")
	}
	if !math.IsNaN(weighted.AverageAbund) || !math.IsNaN(weighted.MedianAbund) || !math.IsNaN(weighted.StdAbund) {
		t.Fatal("distribution statistics should be undefined for an empty intersection")
	}
}

// even-sized abundance multisets use the average of the two central values
func TestMedianEvenSet(t *testing.T) {
	subject := newTestSketch("subject", []uint64{1, 2, 3, 4}, map[uint64]uint32{1: 1, 2: 9, 3: 3, 4: 7})
	weighted, err := WeightedStats([]uint64{1, 2, 3, 4}, subject)
	if err != nil {
		t.Fatal(err)
	}
	if !closeEnough(weighted.MedianAbund, 5) {
		t.Fatalf("expected median of 5 for {1,3,7,9}, got %f", weighted.MedianAbund)
	}
}

// benchmark the sorted-merge intersection
func BenchmarkIntersect(b *testing.B) {
	hashesA := make([]uint64, 10000)
	hashesB := make([]uint64, 10000)
	for i := range hashesA {
		hashesA[i] = uint64(i * 3)
		hashesB[i] = uint64(i * 5)
	}
	sketchA := newTestSketch("A", hashesA, nil)
	sketchB := newTestSketch("B", hashesB, nil)
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		if _, err := Intersect(sketchA, sketchB); err != nil {
			b.Fatal(err)
		}
	}
}
