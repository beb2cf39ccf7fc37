package pipeline

import (
	"github.com/sourmash-bio/mgsearch/src/results"
	"github.com/sourmash-bio/mgsearch/src/sketch"
)

// Info stores the runtime information for a search
type Info struct {
	Version          string         // mgsearch version that ran the search
	NumProc          int            // number of worker goroutines comparing queries against each subject
	Profiling        bool           // create profile for go pprof
	KmerSize         uint32         // k-mer size used to select sketches
	MolType          sketch.MolType // molecule type used to select sketches
	Scaled           uint64         // scaled value queries are downsampled to before searching
	RequireAbundance bool           // fail the run when a subject lacks abundance tracking
	OutCSV           string         // path for the CSV output ("" disables it)
	Plot             bool           // render a ranking plot per query
	PlotDir          string         // directory the ranking plots are written to

	// Ranking orders each query's results once the subject stream is exhausted.
	// It is not written to disk and defaults to results.DefaultRanking.
	Ranking results.Comparator
}
