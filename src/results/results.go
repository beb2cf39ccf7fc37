// Package results collects and ranks comparison records on a per-query basis.
package results

import (
	"fmt"
	"sort"

	"github.com/sourmash-bio/mgsearch/src/compare"
)

// Comparator reports whether record a should rank before record b
type Comparator func(a, b *compare.Record) bool

// DefaultRanking orders records by descending weighted overlap when abundance data
// was available, falling back on the flat overlap fraction, with ties broken by
// subject name so that runs are deterministic
func DefaultRanking(a, b *compare.Record) bool {
	keyA, keyB := a.RankingKey(), b.RankingKey()
	if keyA != keyB {
		return keyA > keyB
	}
	return a.MatchName < b.MatchName
}

// RankedResultSet accumulates the comparison records for one query as subjects
// stream through, then fixes their order once the subject stream is exhausted
type RankedResultSet struct {
	queryName string
	records   []*compare.Record
	finalized bool
}

// NewRankedResultSet creates an empty result set for a query
func NewRankedResultSet(queryName string) *RankedResultSet {
	return &RankedResultSet{queryName: queryName}
}

// QueryName returns the display name of the query this set belongs to
func (RankedResultSet *RankedResultSet) QueryName() string {
	return RankedResultSet.queryName
}

// Add appends a comparison record to the set
func (RankedResultSet *RankedResultSet) Add(record *compare.Record) error {
	if RankedResultSet.finalized {
		return fmt.Errorf("cannot add records to a finalized result set (query: %v)", RankedResultSet.queryName)
	}
	RankedResultSet.records = append(RankedResultSet.records, record)
	return nil
}

// Finalize sorts the set with the supplied comparator (DefaultRanking when nil)
// and closes it to further additions
func (RankedResultSet *RankedResultSet) Finalize(ranking Comparator) {
	if ranking == nil {
		ranking = DefaultRanking
	}
	sort.SliceStable(RankedResultSet.records, func(i, j int) bool {
		return ranking(RankedResultSet.records[i], RankedResultSet.records[j])
	})
	RankedResultSet.finalized = true
}

// Finalized reports whether the set has been sorted and closed
func (RankedResultSet *RankedResultSet) Finalized() bool {
	return RankedResultSet.finalized
}

// Len returns the number of records in the set
func (RankedResultSet *RankedResultSet) Len() int {
	return len(RankedResultSet.records)
}

// Records returns the collected records, in ranked order once the set is finalized
func (RankedResultSet *RankedResultSet) Records() []*compare.Record {
	return RankedResultSet.records
}
