package squashfs

import "fmt"

// MapSlice is a borrowed-or-owned byte range produced by a Mapper. It is an opaque handle;
// callers retrieve the bytes via Mapper.Data and release the slice via Mapper.Unmap.
type MapSlice interface {
	// Len returns the number of bytes covered by this slice.
	Len() int
}

// Mapper is the pluggable byte-range access trait of §4.1. It presents block-oriented,
// thread-safe-for-Map access to the raw archive bytes, independent of where those bytes
// actually live (a local file, an mmap'd region, a static in-memory buffer, or a remote
// range-request HTTP source).
//
// Implementations external to the core are free to store archive_offset however they like;
// this module's convention (documented in DESIGN.md per the spec's open question) is that the
// offset is applied by MapManager, not by the Mapper itself — a Mapper always receives and
// returns archive-local offsets.
type Mapper interface {
	// Init opens the underlying source. reportedSize is the caller's best guess at the
	// archive size (0 if unknown); Init may overwrite it with an authoritative value.
	Init(reportedSize *int64) error

	// BlockSizeHint returns this mapper's advisory block granularity, used when the caller
	// does not explicitly configure one.
	BlockSizeHint() int

	// Map produces a byte range [offset, offset+size) of the archive.
	Map(offset int64, size int) (MapSlice, error)

	// Data returns the bytes backing a slice previously returned by Map.
	Data(slice MapSlice) []byte

	// Unmap releases any resources tied to a slice (e.g. an mmap region).
	Unmap(slice MapSlice)

	// Cleanup releases the mapper itself (closes file descriptors, stops background refresh).
	Cleanup() error
}

// byteSliceMap is the MapSlice implementation shared by every in-process Mapper backend
// (file, static-memory, HTTP range-request): all of them ultimately hand back a []byte, so a
// single wrapper type avoids per-backend boilerplate.
type byteSliceMap struct {
	b []byte
}

func (s *byteSliceMap) Len() int { return len(s.b) }

func mapError(op string, err error) error {
	return fmt.Errorf("squashfs: mapper %s: %w", op, err)
}
