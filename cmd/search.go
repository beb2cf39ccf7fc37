// Copyright © 2024 the mgsearch authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cmd

import (
	"log"
	"os"
	"runtime"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/sourmash-bio/mgsearch/src/misc"
	"github.com/sourmash-bio/mgsearch/src/pipeline"
	"github.com/sourmash-bio/mgsearch/src/reporting"
	"github.com/sourmash-bio/mgsearch/src/sketch"
	"github.com/sourmash-bio/mgsearch/src/version"
)

// the command line arguments
var (
	kmerSize         *uint32 // k-mer size used to select sketches
	molType          *string // molecule type used to select sketches
	scaled           *uint64 // scaled value to downsample the queries to
	outCSV           *string // path for the CSV output
	requireAbundance *bool   // require that metagenomes were sketched with abundance tracking
	plotRanking      *bool   // render a ranking plot per query
)

// the search command (used by cobra)
var searchCmd = &cobra.Command{
	Use:   "search <query genome sketch> <metagenome sketch> [<metagenome sketches> ...]",
	Short: "Search for a genome in metagenomes",
	Long:  `Search for a single query genome sketch in one or more metagenome sketches, streamed one at a time`,
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runSearch(args[0], args[1:])
	},
}

/*
  A function to initialise the command line arguments
*/
func init() {
	RootCmd.AddCommand(searchCmd)
	kmerSize = searchCmd.Flags().Uint32P("kmerSize", "k", 31, "k-mer size used to select sketches")
	molType = searchCmd.Flags().StringP("molType", "m", "DNA", "molecule type used to select sketches (DNA/protein/dayhoff/hp)")
	scaled = searchCmd.Flags().Uint64P("scaled", "s", 1000, "scaled value to downsample the query sketch to")
	outCSV = searchCmd.Flags().StringP("outCSV", "o", "", "write one CSV row per comparison to this file")
	requireAbundance = searchCmd.Flags().Bool("requireAbundance", false, "require that metagenomes were sketched with abundance tracking")
	plotRanking = searchCmd.Flags().Bool("plot", false, "render a ranking plot per query")
}

/*
  A function to check user supplied parameters
*/
func searchParamCheck(sketchFiles []string, molTypeTag string) (sketch.MolType, error) {
	for _, sketchFile := range sketchFiles {
		if err := misc.CheckFile(sketchFile); err != nil {
			return sketch.DNA, err
		}
		if err := misc.CheckExt(sketchFile, []string{"smsk", "tar", "tgz"}); err != nil {
			return sketch.DNA, err
		}
	}
	parsedMolType, err := sketch.ParseMolType(molTypeTag)
	if err != nil {
		return sketch.DNA, err
	}
	// set number of processors to use
	if *proc <= 0 || *proc > runtime.NumCPU() {
		*proc = runtime.NumCPU()
	}
	runtime.GOMAXPROCS(*proc)
	return parsedMolType, nil
}

/*
  The main function for the search sub-command
*/
func runSearch(queryFile string, subjectFiles []string) {
	// set up profiling
	if *profiling == true {
		defer profile.Start(profile.ProfilePath("./")).Stop()
	}

	// start logging
	if *logFile != "" {
		logFH := misc.StartLogging(*logFile)
		defer logFH.Close()
		log.SetOutput(logFH)
	} else {
		log.SetOutput(os.Stderr)
	}
	log.Printf("this is mgsearch (version %s)", version.GetVersion())
	log.Printf("starting the search subcommand")

	// check the supplied files and then log some stuff
	log.Printf("checking parameters...")
	parsedMolType, err := searchParamCheck(append([]string{queryFile}, subjectFiles...), *molType)
	misc.ErrorCheck(err)
	log.Printf("\tprocessors: %d", *proc)
	log.Printf("\tk-mer size: %d", *kmerSize)
	log.Printf("\tmolecule type: %v", parsedMolType)
	log.Printf("\tscaled: %d", *scaled)
	log.Printf("\tquery file: %v", queryFile)
	for _, file := range subjectFiles {
		log.Printf("\tmetagenome file: %v", file)
	}

	// load the query sketch
	log.Print("loading the query sketch...")
	query, err := sketch.LoadQuery(queryFile, *kmerSize, parsedMolType, *scaled)
	misc.ErrorCheck(err)
	log.Printf("\tloaded query sketch: %v (%d hashes)", query.DisplayName(55), query.Len())

	// run the streaming search
	info := &pipeline.Info{
		Version:          version.GetVersion(),
		NumProc:          *proc,
		Profiling:        *profiling,
		KmerSize:         *kmerSize,
		MolType:          parsedMolType,
		Scaled:           *scaled,
		RequireAbundance: *requireAbundance,
		OutCSV:           *outCSV,
		Plot:             *plotRanking,
	}
	runStreamingSearch(info, []*sketch.Sketch{query}, subjectFiles, false)
}

/*
  A function to set up the reporting process from the runtime info
*/
func reportingWriter(info *pipeline.Info, showQuery bool) *reporting.ResultWriter {
	writer := reporting.NewResultWriter()
	writer.CSVPath = info.OutCSV
	writer.ShowQuery = showQuery
	writer.Plot = info.Plot
	if info.PlotDir != "" {
		writer.PlotDir = info.PlotDir
	}
	return writer
}

/*
  A function to wire up and run the streaming search pipeline - shared by search and manysearch
*/
func runStreamingSearch(info *pipeline.Info, queries []*sketch.Sketch, subjectFiles []string, showQuery bool) {
	// create the pipeline
	log.Printf("initialising the streaming search pipeline...")
	searchPipeline := pipeline.NewPipeline()

	// initialise the processes
	log.Printf("\tinitialising the processes")
	searcher := pipeline.NewSearcher(info)
	ranker := pipeline.NewResultRanker(info)
	writer := reportingWriter(info, showQuery)

	// connect the data streams
	log.Printf("\tconnecting data streams")
	searcher.Connect(queries, pipeline.NewFileSupplier(subjectFiles, info.KmerSize, info.MolType))
	ranker.Connect(searcher)
	writer.Input = ranker.OutputChan()

	// submit each process to the pipeline to be run
	searchPipeline.AddProcesses(searcher, ranker, writer)
	log.Printf("\tnumber of processes added to the search pipeline: %d", searchPipeline.GetNumProcesses())
	searchPipeline.Run()

	// surface any run-level failure now the completed results have been flushed
	misc.ErrorCheck(searcher.Error())
	subjects, skipped := searcher.CollectSearchStats()
	log.Printf("\tsubjects searched: %d", subjects)
	if skipped != 0 {
		log.Printf("\tsubjects skipped: %d", skipped)
	}
	log.Printf("finished %v", misc.PrintMemUsage())
}
