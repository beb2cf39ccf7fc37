package sketch

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io/ioutil"
	"os"
	"strings"

	"github.com/mholt/archiver"
	"gopkg.in/vmihailenco/msgpack.v2"
)

// Save writes one or more sketches to a gzipped msgpack sketch file
func Save(filePath string, sketches ...*Sketch) error {
	if len(sketches) == 0 {
		return fmt.Errorf("no sketches provided to save")
	}
	b, err := msgpack.Marshal(sketches)
	if err != nil {
		return err
	}
	fh, err := os.Create(filePath)
	if err != nil {
		return err
	}
	defer fh.Close()
	gz := gzip.NewWriter(fh)
	if _, err := gz.Write(b); err != nil {
		return err
	}
	return gz.Close()
}

// Load reads all the sketches held in a sketch file.
// Plain and gzipped msgpack files are supported, as are tarballs of sketch files (.tar / .tar.gz)
func Load(filePath string) ([]*Sketch, error) {
	if strings.HasSuffix(filePath, ".tar") || strings.HasSuffix(filePath, ".tar.gz") || strings.HasSuffix(filePath, ".tgz") {
		return loadCollection(filePath)
	}
	data, err := ioutil.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	sketches, err := loadFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("could not load sketch file %v: %w", filePath, err)
	}
	for _, loadedSketch := range sketches {
		loadedSketch.Filename = filePath
	}
	return sketches, nil
}

// loadCollection unpacks a tarball of sketch files and loads every member
func loadCollection(filePath string) ([]*Sketch, error) {
	collected := []*Sketch{}
	walkErr := archiver.Walk(filePath, func(f archiver.File) error {
		if f.IsDir() {
			return nil
		}
		data, err := ioutil.ReadAll(f)
		if err != nil {
			return err
		}
		sketches, err := loadFromBytes(data)
		if err != nil {
			return fmt.Errorf("could not load %v from collection %v: %w", f.Name(), filePath, err)
		}
		for _, loadedSketch := range sketches {
			loadedSketch.Filename = filePath
		}
		collected = append(collected, sketches...)
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	if len(collected) == 0 {
		return nil, fmt.Errorf("no sketches found in collection: %v", filePath)
	}
	return collected, nil
}

// loadFromBytes decodes sketches from raw or gzipped msgpack bytes
func loadFromBytes(data []byte) ([]*Sketch, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("sketch file appears empty")
	}

	// check for the gzip magic number before decoding
	if len(data) > 2 && data[0] == 0x1f && data[1] == 0x8b {
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		if data, err = ioutil.ReadAll(gz); err != nil {
			return nil, err
		}
	}
	sketches := []*Sketch{}
	if err := msgpack.Unmarshal(data, &sketches); err != nil {
		return nil, err
	}
	if len(sketches) == 0 {
		return nil, fmt.Errorf("sketch file holds no sketches")
	}

	// make sure every deserialised sketch honours the sorted hash invariant and carries a fingerprint
	for _, loadedSketch := range sketches {
		for i := 1; i < len(loadedSketch.Hashes); i++ {
			if loadedSketch.Hashes[i-1] >= loadedSketch.Hashes[i] {
				return nil, fmt.Errorf("sketch %v contains unsorted or duplicate hashes", loadedSketch.Name)
			}
		}
		if loadedSketch.MD5 == "" {
			loadedSketch.MD5 = loadedSketch.Fingerprint()
		}
	}
	return sketches, nil
}

// Select filters a multi-sketch container down to the sketches matching the requested k-mer size and molecule type
func Select(sketches []*Sketch, ksize uint32, molType MolType) []*Sketch {
	selected := []*Sketch{}
	for _, candidate := range sketches {
		if candidate.KmerSize == ksize && candidate.MolType == molType {
			selected = append(selected, candidate)
		}
	}
	return selected
}

// LoadQuery loads a query sketch file, selects the single sketch matching the requested
// parameters and downsamples it to the requested scaled value
func LoadQuery(filePath string, ksize uint32, molType MolType, scaled uint64) (*Sketch, error) {
	sketches, err := Load(filePath)
	if err != nil {
		return nil, err
	}
	selected := Select(sketches, ksize, molType)
	if len(selected) == 0 {
		return nil, fmt.Errorf("cannot find query sketch at ksize=%d/moltype=%v in %v", ksize, molType, filePath)
	}
	if len(selected) > 1 {
		return nil, fmt.Errorf("can only have one query; %d found in %v", len(selected), filePath)
	}
	query := selected[0]
	if scaled > query.ScaledOrOne() {
		if query, err = query.Downsample(scaled); err != nil {
			return nil, err
		}
		query.Filename = filePath
	}
	return query, nil
}
