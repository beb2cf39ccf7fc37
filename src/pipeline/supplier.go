package pipeline

import (
	"fmt"
	"io"

	"github.com/sourmash-bio/mgsearch/src/sketch"
)

// SubjectSupplier yields subject sketches one at a time. Next returns io.EOF once the
// stream is exhausted; any other error is a run-level failure. Errors wrapping
// sketch.ErrMismatchedSketches mark a subject that cannot be compared and should be
// skipped with a warning rather than aborting the run.
type SubjectSupplier interface {
	Next() (*sketch.Sketch, error)
}

// SubjectReleaser is optionally satisfied by suppliers that want to be told when the
// aggregator has finished with a subject. No subject is requested before the previous
// one has been released - this is the memory-bound contract of the streaming search.
type SubjectReleaser interface {
	Release(*sketch.Sketch)
}

// FileSupplier streams subject sketches from a list of sketch files, loading one file
// at a time so that only a single subject is ever resident
type FileSupplier struct {
	paths    []string
	ksize    uint32
	molType  sketch.MolType
	nextPath int
}

// NewFileSupplier is the FileSupplier constructor
func NewFileSupplier(paths []string, ksize uint32, molType sketch.MolType) *FileSupplier {
	return &FileSupplier{
		paths:   paths,
		ksize:   ksize,
		molType: molType,
	}
}

// Next loads the next subject sketch. Each file must hold exactly one sketch matching
// the requested k-mer size and molecule type - a file with no match is reported as a
// mismatched subject so the aggregator can skip it and continue.
func (FileSupplier *FileSupplier) Next() (*sketch.Sketch, error) {
	if FileSupplier.nextPath >= len(FileSupplier.paths) {
		return nil, io.EOF
	}
	path := FileSupplier.paths[FileSupplier.nextPath]
	FileSupplier.nextPath++

	sketches, err := sketch.Load(path)
	if err != nil {
		return nil, err
	}
	selected := sketch.Select(sketches, FileSupplier.ksize, FileSupplier.molType)
	if len(selected) == 0 {
		return nil, fmt.Errorf("%w: no sketch at ksize=%d/moltype=%v in %v", sketch.ErrMismatchedSketches, FileSupplier.ksize, FileSupplier.molType, path)
	}
	if len(selected) != 1 {
		return nil, fmt.Errorf("need one metagenome sketch per file for now; found %d in %v", len(selected), path)
	}
	return selected[0], nil
}
