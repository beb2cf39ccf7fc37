// Package reporting renders ranked search results as a screen summary, a CSV file and optional ranking plots.
package reporting

import (
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/sourmash-bio/mgsearch/src/compare"
	"github.com/sourmash-bio/mgsearch/src/results"
)

// ResultWriter is a pipeline process that consumes ranked result sets and renders them
type ResultWriter struct {
	Input        chan *results.RankedResultSet // connected to the ResultRanker output
	Out          io.Writer                     // destination for the screen summary
	CSVPath      string                        // CSV output path ("" disables CSV output)
	ShowQuery    bool                          // prefix each summary line with the query name (manysearch)
	Plot         bool                          // render a ranking plot per query
	PlotDir      string                        // directory the ranking plots are written to
	DisplayWidth int                           // width the screen summary is formatted for

	missedAbundance bool // set when any subject lacked abundance tracking
}

// NewResultWriter is the constructor
func NewResultWriter() *ResultWriter {
	return &ResultWriter{
		Out:          os.Stdout,
		PlotDir:      "./mgsearch-plots",
		DisplayWidth: 80,
	}
}

// Run is the method to run this process, which satisfies the pipeline interface
func (proc *ResultWriter) Run() {
	var csvWriter *recordCSVWriter
	if proc.CSVPath != "" {
		var err error
		if csvWriter, err = newRecordCSVWriter(proc.CSVPath); err != nil {
			log.Fatalf("could not create CSV output: %v", err)
		}
		defer csvWriter.close()
	}

	first := true
	for resultSet := range proc.Input {
		for _, record := range resultSet.Records() {
			if csvWriter != nil {
				if err := csvWriter.write(record); err != nil {
					log.Fatalf("could not write CSV row: %v", err)
				}
			}
			if first {
				proc.printHeader()
				first = false
			}
			proc.printRecord(record)
		}
		if proc.Plot {
			if err := plotRanking(resultSet, proc.PlotDir); err != nil {
				log.Fatalf("could not plot ranking for %v: %v", resultSet.QueryName(), err)
			}
		}
	}

	if proc.missedAbundance {
		fmt.Fprintln(proc.Out)
		fmt.Fprintln(proc.Out, "** Note: N/A in column values indicate metagenomes w/o abundance tracking.")
	}
}

// printHeader writes the screen summary header
func (proc *ResultWriter) printHeader() {
	fmt.Fprintln(proc.Out)
	if proc.ShowQuery {
		fmt.Fprintln(proc.Out, "query             p_genome avg_abund   p_metag   metagenome name")
		fmt.Fprintln(proc.Out, "--------          -------- ---------   -------   ---------------")
	} else {
		fmt.Fprintln(proc.Out, "p_genome avg_abund   p_metag   metagenome name")
		fmt.Fprintln(proc.Out, "-------- ---------   -------   ---------------")
	}
}

// printRecord writes one screen summary line for a comparison record
func (proc *ResultWriter) printRecord(record *compare.Record) {
	pctGenome := fmt.Sprintf("%.1f", record.FQuery*100)
	avgAbund, pctMetag := "N/A", "N/A"
	if record.HasAbundance {
		pctMetag = fmt.Sprintf("%.1f%%", record.FMatchWeighted*100)
		if !math.IsNaN(record.AverageAbund) {
			avgAbund = fmt.Sprintf("%.1f", record.AverageAbund)
		}
	} else {
		proc.missedAbundance = true
	}

	if proc.ShowQuery {
		name := displayName(record.MatchName, record.MatchFilename, proc.DisplayWidth-21)
		queryName := displayName(record.QueryName, record.QueryFilename, 17)
		fmt.Fprintf(proc.Out, "%-17s %6s%%  %6s     %6s     %v\n", queryName, pctGenome, avgAbund, pctMetag, name)
	} else {
		name := displayName(record.MatchName, record.MatchFilename, proc.DisplayWidth-41)
		fmt.Fprintf(proc.Out, "%6s%%  %6s     %6s     %v\n", pctGenome, avgAbund, pctMetag, name)
	}
}

// displayName truncates a sketch name for the screen summary, falling back on the filename
func displayName(name, filename string, width int) string {
	if name == "" {
		name = filename
	}
	if width <= 3 || len(name) <= width {
		return name
	}
	return name[:width-3] + "..."
}

// plotRanking renders the overlap fraction of every subject in a finalized result set,
// best hit first, so a search can be eyeballed for how sharply it drops off
func plotRanking(resultSet *results.RankedResultSet, plotDir string) error {
	if resultSet.Len() == 0 {
		return nil
	}
	ranking := make(plotter.XYs, resultSet.Len())
	for i, record := range resultSet.Records() {
		ranking[i].X = float64(i + 1)
		ranking[i].Y = record.RankingKey() * 100
	}
	rankPlot, err := plot.New()
	if err != nil {
		return err
	}
	rankPlot.Title.Text = fmt.Sprintf("ranked subjects for %v", resultSet.QueryName())
	rankPlot.X.Label.Text = "subject rank"
	rankPlot.Y.Label.Text = "percent of metagenome found (weighted where available)"
	if err := plotutil.AddLinePoints(rankPlot, resultSet.QueryName(), ranking); err != nil {
		return err
	}
	if err := os.MkdirAll(plotDir, 0755); err != nil {
		return err
	}

	// clean up the query name so that we can use it as a filename
	var replacer = strings.NewReplacer("/", "__", "\t", "__", " ", "_")
	fileName := fmt.Sprintf("%v/ranking-for-%v.png", plotDir, replacer.Replace(resultSet.QueryName()))
	return rankPlot.Save(8*vg.Inch, 8*vg.Inch, fileName)
}
