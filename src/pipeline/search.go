package pipeline

/*
 this part of the pipeline streams subject sketches past the resident queries and ranks the results
*/

import (
	"context"
	"log"

	"github.com/sourmash-bio/mgsearch/src/results"
	"github.com/sourmash-bio/mgsearch/src/sketch"
)

// Searcher is a pipeline process that drives the streaming aggregation, sending each
// query's completed result set downstream once the subject stream is exhausted
type Searcher struct {
	info     *Info
	queries  []*sketch.Sketch
	supplier SubjectSupplier
	ctx      context.Context
	output   chan *results.RankedResultSet
	boss     *theBoss
	runErr   error
}

// NewSearcher is the constructor
func NewSearcher(info *Info) *Searcher {
	return &Searcher{
		info:   info,
		ctx:    context.Background(),
		output: make(chan *results.RankedResultSet, BUFFERSIZE),
	}
}

// Connect is the method to give the Searcher its resident queries and the subject supplier
func (proc *Searcher) Connect(queries []*sketch.Sketch, supplier SubjectSupplier) {
	proc.queries = queries
	proc.supplier = supplier
}

// ConnectContext attaches a context so the caller can cancel a run between subjects
func (proc *Searcher) ConnectContext(ctx context.Context) {
	proc.ctx = ctx
}

// Run is the method to run this process, which satisfies the pipeline interface.
// A mid-stream failure is held back until the results for completed subjects have
// been flushed downstream - collect it with Error once the pipeline finishes.
func (proc *Searcher) Run() {
	defer close(proc.output)
	proc.boss = newBoss(proc.info, proc.queries, proc.supplier)
	proc.runErr = proc.boss.mapQueries(proc.ctx)
	if proc.runErr == nil {
		log.Printf("\tsubjects compared: %d", proc.boss.subjectCount)
		if proc.boss.skippedSubjects != 0 {
			log.Printf("\tsubjects skipped (mismatched sketch parameters): %d", proc.boss.skippedSubjects)
		}
	}
	for _, resultSet := range proc.boss.resultSets {
		proc.output <- resultSet
	}
}

// Error returns the run-level failure of the streaming search, if there was one
func (proc *Searcher) Error() error {
	return proc.runErr
}

// CollectSearchStats is a method to return the number of subjects compared and skipped during the run
func (proc *Searcher) CollectSearchStats() (int, int) {
	if proc.boss == nil {
		return 0, 0
	}
	return proc.boss.subjectCount, proc.boss.skippedSubjects
}

// ResultRanker is a pipeline process that fixes the order of each query's result set
type ResultRanker struct {
	info   *Info
	input  chan *results.RankedResultSet
	output chan *results.RankedResultSet
}

// NewResultRanker is the constructor
func NewResultRanker(info *Info) *ResultRanker {
	return &ResultRanker{info: info, output: make(chan *results.RankedResultSet, BUFFERSIZE)}
}

// Connect is the method to join the input of this process with the output of a Searcher
func (proc *ResultRanker) Connect(previous *Searcher) {
	proc.input = previous.output
}

// OutputChan exposes the ranked result sets for the reporting layer
func (proc *ResultRanker) OutputChan() chan *results.RankedResultSet {
	return proc.output
}

// Run is the method to run this process, which satisfies the pipeline interface
func (proc *ResultRanker) Run() {
	defer close(proc.output)
	for resultSet := range proc.input {
		resultSet.Finalize(proc.info.Ranking)
		proc.output <- resultSet
	}
}
