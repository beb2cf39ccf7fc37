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
	"fmt"
	"log"
	"os"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/sourmash-bio/mgsearch/src/misc"
	"github.com/sourmash-bio/mgsearch/src/pipeline"
	"github.com/sourmash-bio/mgsearch/src/sketch"
	"github.com/sourmash-bio/mgsearch/src/version"
)

// the command line arguments
var (
	queryFiles         *[]string // the query genome sketch files
	againstFiles       *[]string // the metagenome sketch files to search
	msKmerSize         *uint32   // k-mer size used to select sketches
	msMolType          *string   // molecule type used to select sketches
	msScaled           *uint64   // scaled value to downsample the queries to
	msOutCSV           *string   // path for the CSV output
	msRequireAbundance *bool     // require that metagenomes were sketched with abundance tracking
	msPlotRanking      *bool     // render a ranking plot per query
)

// the manysearch command (used by cobra)
var manysearchCmd = &cobra.Command{
	Use:   "manysearch",
	Short: "Search for genomes in metagenomes",
	Long:  `Search for many query genome sketches in one or more metagenome sketches, sharing a single streamed pass over the metagenomes`,
	Run: func(cmd *cobra.Command, args []string) {
		runManysearch()
	},
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return misc.CheckRequiredFlags(cmd.Flags())
	},
}

/*
  A function to initialise the command line arguments
*/
func init() {
	RootCmd.AddCommand(manysearchCmd)
	queryFiles = manysearchCmd.Flags().StringSlice("query", []string{}, "query genome sketch file(s) - required")
	againstFiles = manysearchCmd.Flags().StringSlice("against", []string{}, "metagenome sketch file(s) to search - required")
	msKmerSize = manysearchCmd.Flags().Uint32P("kmerSize", "k", 31, "k-mer size used to select sketches")
	msMolType = manysearchCmd.Flags().StringP("molType", "m", "DNA", "molecule type used to select sketches (DNA/protein/dayhoff/hp)")
	msScaled = manysearchCmd.Flags().Uint64P("scaled", "s", 1000, "scaled value to downsample the query sketches to")
	msOutCSV = manysearchCmd.Flags().StringP("outCSV", "o", "", "write one CSV row per comparison to this file")
	msRequireAbundance = manysearchCmd.Flags().Bool("requireAbundance", false, "require that metagenomes were sketched with abundance tracking")
	msPlotRanking = manysearchCmd.Flags().Bool("plot", false, "render a ranking plot per query")
	manysearchCmd.MarkFlagRequired("query")
	manysearchCmd.MarkFlagRequired("against")
}

/*
  The main function for the manysearch sub-command
*/
func runManysearch() {
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
	log.Printf("starting the manysearch subcommand")

	// check the supplied files and then log some stuff
	log.Printf("checking parameters...")
	parsedMolType, err := searchParamCheck(append(append([]string{}, *queryFiles...), *againstFiles...), *msMolType)
	misc.ErrorCheck(err)
	log.Printf("\tprocessors: %d", *proc)
	log.Printf("\tk-mer size: %d", *msKmerSize)
	log.Printf("\tmolecule type: %v", parsedMolType)
	log.Printf("\tscaled: %d", *msScaled)
	for _, file := range *againstFiles {
		log.Printf("\tmetagenome file: %v", file)
	}

	// load every query sketch and keep them all resident for the single subject pass
	log.Print("loading the query sketches...")
	queries := []*sketch.Sketch{}
	for _, queryFile := range *queryFiles {
		sketches, err := sketch.Load(queryFile)
		misc.ErrorCheck(err)
		for _, candidate := range sketch.Select(sketches, *msKmerSize, parsedMolType) {
			if *msScaled > candidate.ScaledOrOne() {
				downsampled, err := candidate.Downsample(*msScaled)
				misc.ErrorCheck(err)
				downsampled.Filename = queryFile
				candidate = downsampled
			}
			queries = append(queries, candidate)
		}
	}
	if len(queries) == 0 {
		misc.ErrorCheck(fmt.Errorf("cannot find any query sketches at ksize=%d/moltype=%v", *msKmerSize, parsedMolType))
	}
	log.Printf("\tloaded %d query sketches", len(queries))

	// run the streaming search
	info := &pipeline.Info{
		Version:          version.GetVersion(),
		NumProc:          *proc,
		Profiling:        *profiling,
		KmerSize:         *msKmerSize,
		MolType:          parsedMolType,
		Scaled:           *msScaled,
		RequireAbundance: *msRequireAbundance,
		OutCSV:           *msOutCSV,
		Plot:             *msPlotRanking,
	}
	runStreamingSearch(info, queries, *againstFiles, true)
}
