package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/sourmash-bio/mgsearch/src/compare"
	"github.com/sourmash-bio/mgsearch/src/results"
	"github.com/sourmash-bio/mgsearch/src/sketch"
)

// theBoss is used to orchestrate the streaming search: it pulls one subject sketch at a
// time from the supplier, fans the resident queries out to the comparison minions, then
// releases the subject before asking for the next one
type theBoss struct {
	info            *Info                      // the runtime info for the search
	queries         []*sketch.Sketch           // the resident query sketches (read-only for the whole run)
	supplier        SubjectSupplier            // yields subject sketches one at a time
	resultSets      []*results.RankedResultSet // one result collection per query, parallel to queries
	subjectCount    int                        // the number of subjects compared during the run
	skippedSubjects int                        // the number of subjects skipped due to mismatched sketch parameters
	fatalErr        error                      // first unrecoverable error hit by a minion
	sync.Mutex                                 // allows comparison minions to report errors and skips
}

// newBoss will initialise and return theBoss, with an empty result set ready for each query
func newBoss(runtimeInfo *Info, queries []*sketch.Sketch, supplier SubjectSupplier) *theBoss {
	resultSets := make([]*results.RankedResultSet, len(queries))
	for i, query := range queries {
		resultSets[i] = results.NewRankedResultSet(query.Name)
	}
	return &theBoss{
		info:       runtimeInfo,
		queries:    queries,
		supplier:   supplier,
		resultSets: resultSets,
	}
}

// mapQueries runs the streaming aggregation. Subjects are processed strictly one at a
// time; within each subject the per-query comparisons run concurrently. Per-subject
// mismatches are skipped with a warning. Stream failures and cancellation end the run,
// leaving the result sets holding every fully completed comparison.
func (theBoss *theBoss) mapQueries(ctx context.Context) error {
	if len(theBoss.queries) == 0 {
		return fmt.Errorf("no query sketches supplied")
	}

	for {
		// cancellation is only checked between subjects - comparisons are never left half-appended
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// fetch the next subject from the supplier
		subject, err := theBoss.supplier.Next()
		if errors.Is(err, sketch.ErrMismatchedSketches) {
			log.Printf("\twarning: skipping subject: %v", err)
			theBoss.skippedSubjects++
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("subject stream failed after %d subjects: %w", theBoss.subjectCount, err)
		}
		if theBoss.info.RequireAbundance && !subject.TrackAbundance() {
			return fmt.Errorf("sketch in '%v' must have abundance information", subject.Filename)
		}

		// fan the resident queries out to the comparison minions
		queryChan := make(chan int)
		var wg sync.WaitGroup
		for workerNum := 0; workerNum < theBoss.info.NumProc; workerNum++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for queryIdx := range queryChan {

					// each query's result set is only ever written by that query's comparison, so no locking is needed on the append
					record, err := compare.Compare(theBoss.queries[queryIdx], subject)
					if err != nil {
						theBoss.Lock()
						if errors.Is(err, sketch.ErrMismatchedSketches) {
							log.Printf("\twarning: skipping %v vs. %v: %v", theBoss.queries[queryIdx].Name, subject.Name, err)
							theBoss.skippedSubjects++
						} else if theBoss.fatalErr == nil {
							theBoss.fatalErr = err
						}
						theBoss.Unlock()
						continue
					}
					if err := theBoss.resultSets[queryIdx].Add(record); err != nil {
						theBoss.Lock()
						if theBoss.fatalErr == nil {
							theBoss.fatalErr = err
						}
						theBoss.Unlock()
					}
				}
			}()
		}
		for queryIdx := range theBoss.queries {
			queryChan <- queryIdx
		}
		close(queryChan)
		wg.Wait()
		if theBoss.fatalErr != nil {
			return theBoss.fatalErr
		}

		// the subject must not be retained anywhere beyond this point - release it before requesting the next one
		if releaser, ok := theBoss.supplier.(SubjectReleaser); ok {
			releaser.Release(subject)
		}
		theBoss.subjectCount++
	}
	return nil
}
