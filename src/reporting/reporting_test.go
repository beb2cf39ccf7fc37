package reporting

import (
	"bytes"
	"encoding/csv"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sourmash-bio/mgsearch/src/compare"
	"github.com/sourmash-bio/mgsearch/src/results"
	"github.com/sourmash-bio/mgsearch/src/sketch"
)

var testKsize = uint32(21)

// helper to produce the record for a known query/subject pair
func newTestRecord(t *testing.T, abundances map[uint64]uint32) *compare.Record {
	query := sketch.NewSketch("genome", testKsize, sketch.DNA, 1, []uint64{1, 2, 3, 4}, nil)
	subject := sketch.NewSketch("metagenome", testKsize, sketch.DNA, 1, []uint64{2, 3, 4, 5}, abundances)
	record, err := compare.Compare(query, subject)
	if err != nil {
		t.Fatal(err)
	}
	return record
}

// helper to run a ResultWriter over one finalized result set
func renderResultSet(writer *ResultWriter, records ...*compare.Record) {
	resultSet := results.NewRankedResultSet("genome")
	for _, record := range records {
		_ = resultSet.Add(record)
	}
	resultSet.Finalize(nil)
	writer.Input = make(chan *results.RankedResultSet, 1)
	writer.Input <- resultSet
	close(writer.Input)
	writer.Run()
}

// every column lands in its slot with the expected rendering
func TestRecordToRow(t *testing.T) {
	record := newTestRecord(t, map[uint64]uint32{2: 1, 3: 5, 4: 2, 5: 10})
	row := RecordToRow(record)
	if len(row) != len(Columns) {
		t.Fatalf("expected %d cells, got %d", len(Columns), len(row))
	}
	cells := map[string]string{}
	for i, column := range Columns {
		cells[column] = row[i]
	}
	checks := map[string]string{
		"intersect_bp":             "3",
		"match_name":               "metagenome",
		"query_name":               "genome",
		"ksize":                    "21",
		"moltype":                  "DNA",
		"scaled":                   "1",
		"f_query":                  "0.75",
		"f_match":                  "0.75",
		"jaccard":                  "0.6",
		"sum_weighted_found":       "8",
		"median_abund":             "2",
		"query_n_hashes":           "4",
		"match_n_hashes":           "4",
		"match_n_weighted_hashes":  "18",
		"potential_false_negative": "false",
	}
	for column, expected := range checks {
		if cells[column] != expected {
			t.Fatalf("column %v: expected %q, got %q", column, expected, cells[column])
		}
	}
}

// not-computed values become empty cells, never zeros
func TestRecordToRowNotComputed(t *testing.T) {
	record := newTestRecord(t, nil)
	row := RecordToRow(record)
	cells := map[string]string{}
	for i, column := range Columns {
		cells[column] = row[i]
	}
	for _, column := range []string{"f_match_weighted", "sum_weighted_found", "average_abund", "median_abund", "std_abund", "match_n_weighted_hashes"} {
		if cells[column] != "" {
			t.Fatalf("column %v should be empty without abundance data, got %q", column, cells[column])
		}
	}
	if cells["f_query"] != "0.75" {
		t.Fatalf("unweighted columns should still be populated, got %q", cells["f_query"])
	}
}

// the screen summary carries the header and one formatted line per record
func TestScreenSummary(t *testing.T) {
	record := newTestRecord(t, map[uint64]uint32{2: 1, 3: 5, 4: 2, 5: 10})
	out := &bytes.Buffer{}
	writer := NewResultWriter()
	writer.Out = out
	renderResultSet(writer, record)

	rendered := out.String()
	if !strings.Contains(rendered, "p_genome avg_abund   p_metag   metagenome name") {
		t.Fatalf("missing summary header in:\n%v", rendered)
	}
	if !strings.Contains(rendered, "  75.0%     2.7      44.4%     metagenome") {
		t.Fatalf("missing summary line in:\n%v", rendered)
	}
	if strings.Contains(rendered, "N/A") {
		t.Fatal("no N/A expected when abundance data is present")
	}
}

// subjects without abundance tracking render N/A and a trailing note
func TestScreenSummaryNoAbundance(t *testing.T) {
	record := newTestRecord(t, nil)
	out := &bytes.Buffer{}
	writer := NewResultWriter()
	writer.Out = out
	renderResultSet(writer, record)

	rendered := out.String()
	if !strings.Contains(rendered, "N/A") {
		t.Fatalf("expected N/A cells in:\n%v", rendered)
	}
	if !strings.Contains(rendered, "** Note: N/A in column values indicate metagenomes w/o abundance tracking.") {
		t.Fatalf("expected the trailing note in:\n%v", rendered)
	}
}

// the many-query summary prefixes each line with the query name
func TestScreenSummaryShowQuery(t *testing.T) {
	record := newTestRecord(t, map[uint64]uint32{2: 1, 3: 5, 4: 2, 5: 10})
	out := &bytes.Buffer{}
	writer := NewResultWriter()
	writer.Out = out
	writer.ShowQuery = true
	renderResultSet(writer, record)

	rendered := out.String()
	if !strings.Contains(rendered, "query             p_genome avg_abund   p_metag   metagenome name") {
		t.Fatalf("missing many-query header in:\n%v", rendered)
	}
	if !strings.Contains(rendered, "genome              75.0%     2.7      44.4%     metagenome") {
		t.Fatalf("missing many-query summary line in:\n%v", rendered)
	}
}

// the CSV output holds the fixed header plus one row per record
func TestCSVOutput(t *testing.T) {
	tmpDir, err := ioutil.TempDir("", "mgsearch-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)
	csvPath := filepath.Join(tmpDir, "results.csv")

	record := newTestRecord(t, map[uint64]uint32{2: 1, 3: 5, 4: 2, 5: 10})
	writer := NewResultWriter()
	writer.Out = &bytes.Buffer{}
	writer.CSVPath = csvPath
	renderResultSet(writer, record)

	fh, err := os.Open(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	defer fh.Close()
	rows, err := csv.NewReader(fh).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected a header and one data row, got %d rows", len(rows))
	}
	for i, column := range Columns {
		if rows[0][i] != column {
			t.Fatalf("header column %d: expected %v, got %v", i, column, rows[0][i])
		}
	}
	if rows[1][0] != "3" {
		t.Fatalf("expected intersect_bp of 3, got %v", rows[1][0])
	}
}

// long subject names are truncated to fit the summary width
func TestDisplayNameTruncation(t *testing.T) {
	if got := displayName("CP001472.1 Acidobacterium capsulatum ATCC 51196", "", 15); got != "CP001472.1 A..." {
		t.Fatalf("unexpected truncation: %v", got)
	}
	if got := displayName("", "fallback.smsk", 20); got != "fallback.smsk" {
		t.Fatalf("expected the filename fallback, got %v", got)
	}
}

// the ranking plot lands in the requested directory
func TestPlotRanking(t *testing.T) {
	tmpDir, err := ioutil.TempDir("", "mgsearch-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	resultSet := results.NewRankedResultSet("genome one")
	_ = resultSet.Add(newTestRecord(t, map[uint64]uint32{2: 1, 3: 5, 4: 2, 5: 10}))
	resultSet.Finalize(nil)
	if err := plotRanking(resultSet, tmpDir); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "ranking-for-genome_one.png")); err != nil {
		t.Fatalf("expected a ranking plot on disk: %v", err)
	}
}
