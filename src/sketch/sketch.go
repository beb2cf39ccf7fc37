// Package sketch provides a read-only view over FracMinHash k-mer sketches of genomes and metagenomes.
package sketch

import (
	"crypto/md5"
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrMismatchedSketches is returned when two sketches cannot be compared (k-mer size, molecule type or scaled value differ)
var ErrMismatchedSketches = errors.New("mismatched sketch parameters")

// ErrNoAbundances is returned when abundance-weighted calculations are requested for a sketch without abundance tracking
var ErrNoAbundances = errors.New("sketch has no abundance tracking")

// MolType is the molecule type a sketch was built from
type MolType uint8

// the supported molecule types
const (
	DNA MolType = iota
	Protein
	Dayhoff
	HP
)

// String returns the molecule type tag as used in sketch files and reports
func (MolType MolType) String() string {
	switch MolType {
	case DNA:
		return "DNA"
	case Protein:
		return "protein"
	case Dayhoff:
		return "dayhoff"
	case HP:
		return "hp"
	default:
		return "unknown"
	}
}

// ParseMolType converts a molecule type tag to a MolType
func ParseMolType(tag string) (MolType, error) {
	switch tag {
	case "DNA", "dna":
		return DNA, nil
	case "protein":
		return Protein, nil
	case "dayhoff":
		return Dayhoff, nil
	case "hp":
		return HP, nil
	default:
		return DNA, fmt.Errorf("unrecognised molecule type: %v", tag)
	}
}

// Sketch is a FracMinHash sketch of a genome or metagenome.
// The hash set is kept sorted so that intersections can run as sorted merges.
// A Sketch is read-only once constructed and is safe to share between goroutines.
type Sketch struct {
	Name       string            `msgpack:"name"`
	Filename   string            `msgpack:"filename"`
	MD5        string            `msgpack:"md5"`
	KmerSize   uint32            `msgpack:"ksize"`
	MolType    MolType           `msgpack:"moltype"`
	Scaled     uint64            `msgpack:"scaled"`     // 0 or 1 means no subsampling was applied
	TotalKmers uint64            `msgpack:"totalKmers"` // distinct k-mer count prior to any downsampling (0 if unrecorded)
	Hashes     []uint64          `msgpack:"hashes"`
	Abundances map[uint64]uint32 `msgpack:"abundances"` // nil when the sketch was built without abundance tracking
}

// NewSketch is the Sketch constructor - it sorts and deduplicates the supplied hashes and fingerprints the sketch
func NewSketch(name string, ksize uint32, molType MolType, scaled uint64, hashes []uint64, abundances map[uint64]uint32) *Sketch {
	sorted := make([]uint64, len(hashes))
	copy(sorted, hashes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	// dedupe in place now the hashes are ordered
	deduped := sorted[:0]
	for i, hash := range sorted {
		if i == 0 || hash != sorted[i-1] {
			deduped = append(deduped, hash)
		}
	}

	newSketch := &Sketch{
		Name:       name,
		KmerSize:   ksize,
		MolType:    molType,
		Scaled:     scaled,
		Hashes:     deduped,
		Abundances: abundances,
	}
	newSketch.MD5 = newSketch.Fingerprint()
	return newSketch
}

// Len returns the number of hashes in the sketch
func (Sketch *Sketch) Len() int {
	return len(Sketch.Hashes)
}

// TrackAbundance reports whether the sketch carries per-hash abundance counts
func (Sketch *Sketch) TrackAbundance() bool {
	return Sketch.Abundances != nil
}

// SumAbundances returns the total of all abundance counts held by the sketch
func (Sketch *Sketch) SumAbundances() uint64 {
	var total uint64
	for _, count := range Sketch.Abundances {
		total += uint64(count)
	}
	return total
}

// Contains checks a hash for membership of the sketch
func (Sketch *Sketch) Contains(hash uint64) bool {
	i := sort.Search(len(Sketch.Hashes), func(i int) bool { return Sketch.Hashes[i] >= hash })
	return i < len(Sketch.Hashes) && Sketch.Hashes[i] == hash
}

// ScaledOrOne returns the scaled value of the sketch, treating the no-subsampling sentinel as 1
func (Sketch *Sketch) ScaledOrOne() uint64 {
	if Sketch.Scaled == 0 {
		return 1
	}
	return Sketch.Scaled
}

// EffectiveTotalKmers returns the distinct k-mer count of the original dataset,
// falling back on the FracMinHash cardinality estimate (sketch size * scaled) when it was not recorded
func (Sketch *Sketch) EffectiveTotalKmers() uint64 {
	if Sketch.TotalKmers != 0 {
		return Sketch.TotalKmers
	}
	return uint64(Sketch.Len()) * Sketch.ScaledOrOne()
}

// CheckCompatibility makes sure two sketches can be compared - their k-mer size,
// molecule type and scaled value must match exactly
func (Sketch *Sketch) CheckCompatibility(other *Sketch) error {
	if Sketch.KmerSize != other.KmerSize {
		return fmt.Errorf("%w: k-mer size %d vs. %d", ErrMismatchedSketches, Sketch.KmerSize, other.KmerSize)
	}
	if Sketch.MolType != other.MolType {
		return fmt.Errorf("%w: molecule type %v vs. %v", ErrMismatchedSketches, Sketch.MolType, other.MolType)
	}
	if Sketch.ScaledOrOne() != other.ScaledOrOne() {
		return fmt.Errorf("%w: scaled %d vs. %d", ErrMismatchedSketches, Sketch.ScaledOrOne(), other.ScaledOrOne())
	}
	return nil
}

// maxHashForScaled returns the FracMinHash cutoff for a scaled value - sketches keep all hashes below 2^64/scaled
func maxHashForScaled(scaled uint64) uint64 {
	if scaled <= 1 {
		return math.MaxUint64
	}
	return uint64(math.Round(float64(math.MaxUint64) / float64(scaled)))
}

// Downsample returns a copy of the sketch truncated to a coarser scaled value.
// Hashes above the new FracMinHash cutoff are dropped, along with their abundances.
func (sketch *Sketch) Downsample(scaled uint64) (*Sketch, error) {
	if scaled < sketch.ScaledOrOne() {
		return nil, fmt.Errorf("cannot downsample a sketch from scaled=%d to scaled=%d", sketch.ScaledOrOne(), scaled)
	}
	if scaled == sketch.ScaledOrOne() {
		return sketch, nil
	}
	cutoff := maxHashForScaled(scaled)
	keep := sort.Search(len(sketch.Hashes), func(i int) bool { return sketch.Hashes[i] > cutoff })
	downsampled := &Sketch{
		Name:       sketch.Name,
		Filename:   sketch.Filename,
		KmerSize:   sketch.KmerSize,
		MolType:    sketch.MolType,
		Scaled:     scaled,
		TotalKmers: sketch.TotalKmers,
		Hashes:     sketch.Hashes[:keep],
	}
	if sketch.Abundances != nil {
		abundances := make(map[uint64]uint32, keep)
		for _, hash := range downsampled.Hashes {
			abundances[hash] = sketch.Abundances[hash]
		}
		downsampled.Abundances = abundances
	}
	downsampled.MD5 = downsampled.Fingerprint()
	return downsampled, nil
}

// Fingerprint derives the content fingerprint of the sketch (md5 over the k-mer size and ordered hashes)
func (Sketch *Sketch) Fingerprint() string {
	hasher := md5.New()
	fmt.Fprintf(hasher, "%d", Sketch.KmerSize)
	for _, hash := range Sketch.Hashes {
		fmt.Fprintf(hasher, "%d", hash)
	}
	return fmt.Sprintf("%x", hasher.Sum(nil))
}

// DisplayName returns the sketch name for screen reports, truncated to the requested width.
// The filename stands in when a sketch was not named.
func (Sketch *Sketch) DisplayName(width int) string {
	name := Sketch.Name
	if name == "" {
		name = Sketch.Filename
	}
	if width <= 3 || len(name) <= width {
		return name
	}
	return name[:width-3] + "..."
}
