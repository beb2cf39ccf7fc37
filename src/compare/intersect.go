// Package compare implements the sketch comparison engine: hash set intersection,
// abundance-weighted overlap statistics and containment-based ANI estimation.
package compare

import (
	"github.com/sourmash-bio/mgsearch/src/sketch"
)

// IntersectionResult holds the unweighted overlap metrics for a query/subject sketch pair
type IntersectionResult struct {
	Count        int      // size of the hash set intersection
	SharedHashes []uint64 // the intersecting hashes (sorted), needed downstream for abundance lookups
	FQuery       float64  // fraction of the query hashes found in the subject (detection)
	FMatch       float64  // fraction of the subject hashes found in the query
	Jaccard      float64  // intersection over union
	IntersectBP  uint64   // estimated shared base pairs (count * scaled)
}

// Intersect computes the set intersection of two sketches and the overlap fractions derived from it.
// The sketches must have matching k-mer size, molecule type and scaled values.
func Intersect(query, subject *sketch.Sketch) (*IntersectionResult, error) {
	if err := query.CheckCompatibility(subject); err != nil {
		return nil, err
	}

	// both hash sets are sorted, so a single merge pass finds the intersection
	shared := []uint64{}
	i, j := 0, 0
	for i < query.Len() && j < subject.Len() {
		switch {
		case query.Hashes[i] < subject.Hashes[j]:
			i++
		case query.Hashes[i] > subject.Hashes[j]:
			j++
		default:
			shared = append(shared, query.Hashes[i])
			i++
			j++
		}
	}

	result := &IntersectionResult{
		Count:        len(shared),
		SharedHashes: shared,
		IntersectBP:  uint64(len(shared)) * query.ScaledOrOne(),
	}
	if query.Len() > 0 {
		result.FQuery = float64(result.Count) / float64(query.Len())
	}
	if subject.Len() > 0 {
		result.FMatch = float64(result.Count) / float64(subject.Len())
	}
	if unionSize := query.Len() + subject.Len() - result.Count; unionSize > 0 {
		result.Jaccard = float64(result.Count) / float64(unionSize)
	}
	return result, nil
}
