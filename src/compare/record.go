package compare

import (
	"errors"
	"math"

	"github.com/sourmash-bio/mgsearch/src/sketch"
)

// Record is the immutable result of one query/subject comparison. Numeric fields that
// could not be computed (weighted metrics without abundance data, ANI without containment)
// hold NaN so that reporting layers can tell "not computed" apart from a true zero.
type Record struct {
	// passthrough sketch metadata
	MatchFilename string
	MatchName     string
	MatchMD5      string
	QueryFilename string
	QueryName     string
	QueryMD5      string
	KmerSize      uint32
	MolType       sketch.MolType
	Scaled        uint64

	// unweighted overlap
	IntersectHashes int
	IntersectBP     uint64
	FQuery          float64
	FMatch          float64
	Jaccard         float64
	QueryNumHashes  int
	MatchNumHashes  int

	// abundance-weighted overlap
	HasAbundance           bool
	FMatchWeighted         float64
	SumWeightedFound       float64
	AverageAbund           float64
	MedianAbund            float64
	StdAbund               float64
	MatchNumWeightedHashes float64

	// ANI estimates
	GenomeContainmentANI   float64
	MatchContainmentANI    float64
	AverageContainmentANI  float64
	MaxContainmentANI      float64
	PotentialFalseNegative bool
}

// NewRecord assembles a comparison record from the engine outputs.
// A nil WeightedResult marks the subject as lacking abundance tracking.
func NewRecord(query, subject *sketch.Sketch, intersection *IntersectionResult, weighted *WeightedResult, ani *ANIResult) *Record {
	record := &Record{
		MatchFilename: subject.Filename,
		MatchName:     subject.Name,
		MatchMD5:      subject.MD5,
		QueryFilename: query.Filename,
		QueryName:     query.Name,
		QueryMD5:      query.MD5,
		KmerSize:      subject.KmerSize,
		MolType:       subject.MolType,
		Scaled:        subject.ScaledOrOne(),

		IntersectHashes: intersection.Count,
		IntersectBP:     intersection.IntersectBP,
		FQuery:          intersection.FQuery,
		FMatch:          intersection.FMatch,
		Jaccard:         intersection.Jaccard,
		QueryNumHashes:  query.Len(),
		MatchNumHashes:  subject.Len(),

		FMatchWeighted:         math.NaN(),
		SumWeightedFound:       math.NaN(),
		AverageAbund:           math.NaN(),
		MedianAbund:            math.NaN(),
		StdAbund:               math.NaN(),
		MatchNumWeightedHashes: math.NaN(),

		GenomeContainmentANI:   ani.GenomeContainmentANI,
		MatchContainmentANI:    ani.MatchContainmentANI,
		AverageContainmentANI:  ani.AverageContainmentANI,
		MaxContainmentANI:      ani.MaxContainmentANI,
		PotentialFalseNegative: ani.PotentialFalseNegative,
	}
	if weighted != nil {
		record.HasAbundance = true
		record.FMatchWeighted = weighted.FMatchWeighted
		record.SumWeightedFound = float64(weighted.SumWeightedFound)
		record.AverageAbund = weighted.AverageAbund
		record.MedianAbund = weighted.MedianAbund
		record.StdAbund = weighted.StdAbund
		record.MatchNumWeightedHashes = float64(weighted.TotalWeightedHashes)
	}
	return record
}

// RankingKey returns the value the default result ranking sorts on: the
// abundance-weighted overlap when it was computed, the flat overlap otherwise
func (Record *Record) RankingKey() float64 {
	if Record.HasAbundance && !math.IsNaN(Record.FMatchWeighted) {
		return Record.FMatchWeighted
	}
	return Record.FMatch
}

// Compare runs the full comparison engine for one query/subject pair: intersection,
// abundance-weighted statistics (when the subject has them) and ANI estimation
func Compare(query, subject *sketch.Sketch) (*Record, error) {
	intersection, err := Intersect(query, subject)
	if err != nil {
		return nil, err
	}
	weighted, err := WeightedStats(intersection.SharedHashes, subject)
	if err != nil && !errors.Is(err, sketch.ErrNoAbundances) {
		return nil, err
	}
	ani := EstimateANI(intersection, query, subject)
	return NewRecord(query, subject, intersection, weighted, ani), nil
}
