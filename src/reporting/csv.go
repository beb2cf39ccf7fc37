package reporting

import (
	"encoding/csv"
	"math"
	"os"
	"strconv"

	"github.com/sourmash-bio/mgsearch/src/compare"
)

// Columns fixes the CSV column order - downstream tooling depends on it being stable
var Columns = []string{
	"intersect_bp",
	"match_filename",
	"match_name",
	"match_md5",
	"query_filename",
	"query_name",
	"query_md5",
	"ksize",
	"moltype",
	"scaled",
	"f_query",
	"f_match",
	"f_match_weighted",
	"sum_weighted_found",
	"average_abund",
	"median_abund",
	"std_abund",
	"query_n_hashes",
	"match_n_hashes",
	"match_n_weighted_hashes",
	"jaccard",
	"genome_containment_ani",
	"match_containment_ani",
	"average_containment_ani",
	"max_containment_ani",
	"potential_false_negative",
}

// recordCSVWriter streams comparison records to a CSV file
type recordCSVWriter struct {
	fh     *os.File
	writer *csv.Writer
}

// newRecordCSVWriter opens the CSV file and writes the header row
func newRecordCSVWriter(filePath string) (*recordCSVWriter, error) {
	fh, err := os.Create(filePath)
	if err != nil {
		return nil, err
	}
	writer := csv.NewWriter(fh)
	if err := writer.Write(Columns); err != nil {
		fh.Close()
		return nil, err
	}
	return &recordCSVWriter{fh: fh, writer: writer}, nil
}

// write appends one comparison record as a CSV row
func (recordCSVWriter *recordCSVWriter) write(record *compare.Record) error {
	return recordCSVWriter.writer.Write(RecordToRow(record))
}

// close flushes and closes the CSV file
func (recordCSVWriter *recordCSVWriter) close() error {
	recordCSVWriter.writer.Flush()
	if err := recordCSVWriter.writer.Error(); err != nil {
		recordCSVWriter.fh.Close()
		return err
	}
	return recordCSVWriter.fh.Close()
}

// RecordToRow converts a comparison record to CSV fields in the Columns order.
// Not-computed values (NaN) become empty cells, never zeros.
func RecordToRow(record *compare.Record) []string {
	return []string{
		strconv.FormatUint(record.IntersectBP, 10),
		record.MatchFilename,
		record.MatchName,
		record.MatchMD5,
		record.QueryFilename,
		record.QueryName,
		record.QueryMD5,
		strconv.FormatUint(uint64(record.KmerSize), 10),
		record.MolType.String(),
		strconv.FormatUint(record.Scaled, 10),
		formatFloat(record.FQuery),
		formatFloat(record.FMatch),
		formatFloat(record.FMatchWeighted),
		formatFloat(record.SumWeightedFound),
		formatFloat(record.AverageAbund),
		formatFloat(record.MedianAbund),
		formatFloat(record.StdAbund),
		strconv.Itoa(record.QueryNumHashes),
		strconv.Itoa(record.MatchNumHashes),
		formatFloat(record.MatchNumWeightedHashes),
		formatFloat(record.Jaccard),
		formatFloat(record.GenomeContainmentANI),
		formatFloat(record.MatchContainmentANI),
		formatFloat(record.AverageContainmentANI),
		formatFloat(record.MaxContainmentANI),
		strconv.FormatBool(record.PotentialFalseNegative),
	}
}

// formatFloat renders a float for CSV output, with an empty cell for not-computed values
func formatFloat(value float64) string {
	if math.IsNaN(value) {
		return ""
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
