package squashfs

import (
	"bytes"
	"fmt"
	"io"
	"sync"
)

type SquashComp uint16

const (
	GZip SquashComp = 1
	LZMA            = 2
	LZO             = 3
	XZ              = 4
	LZ4             = 5
	ZSTD            = 6
)

// Compression is the exported name of the 16-bit on-disk compression_id enumeration
// (Superblock.Comp).
type Compression = SquashComp

func (s SquashComp) String() string {
	switch s {
	case GZip:
		return "GZip"
	case LZMA:
		return "LZMA"
	case LZO:
		return "LZO"
	case XZ:
		return "XZ"
	case LZ4:
		return "LZ4"
	case ZSTD:
		return "ZSTD"
	}
	return fmt.Sprintf("Compression(%d)", s)
}

// CompHandler is the pluggable Extractor of §6 for a single compression id: Decompress turns
// a compressed byte slice into its (owned) uncompressed form, Compress is its inverse for the
// write side. A handler registered with only Decompress set supports reading but not writing.
type CompHandler struct {
	Decompress func([]byte) ([]byte, error)
	Compress   func([]byte) ([]byte, error)
}

var (
	compHandlersMu sync.RWMutex
	compHandlers   = map[SquashComp]*CompHandler{}
)

// RegisterCompHandler installs (or replaces) the Extractor used for compression id id. Called
// from the init() of each comp_*.go file, selection at archive-open time is simply "whichever
// ids have a handler registered" (the compile-time feature/registry pattern of DESIGN NOTES §9).
func RegisterCompHandler(id SquashComp, h *CompHandler) {
	compHandlersMu.Lock()
	defer compHandlersMu.Unlock()
	compHandlers[id] = h
}

// RegisterDecompressor is a convenience for read-only Extractors (no write-side Compress).
func RegisterDecompressor(id SquashComp, f func([]byte) ([]byte, error)) {
	RegisterCompHandler(id, &CompHandler{Decompress: f})
}

// MakeDecompressor adapts a streaming io.Reader->io.ReadCloser constructor (the shape most
// compression packages expose, e.g. klauspost/compress/zstd.ZipDecompressor) into the
// []byte->[]byte form CompHandler.Decompress wants.
func MakeDecompressor(f func(io.Reader) io.ReadCloser) func([]byte) ([]byte, error) {
	return func(buf []byte) ([]byte, error) {
		rc := f(bytes.NewReader(buf))
		defer rc.Close()
		return io.ReadAll(rc)
	}
}

// MakeDecompressorErr is MakeDecompressor for constructors that can themselves fail to open
// (xz.NewReader, lzma.NewReader, ...).
func MakeDecompressorErr(f func(io.Reader) (io.ReadCloser, error)) func([]byte) ([]byte, error) {
	return func(buf []byte) ([]byte, error) {
		rc, err := f(bytes.NewReader(buf))
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
}

// compHandler returns the registered handler for id, or nil if none is registered.
func compHandler(id SquashComp) *CompHandler {
	compHandlersMu.RLock()
	defer compHandlersMu.RUnlock()
	return compHandlers[id]
}

// decompress runs the registered Extractor for this compression id over buf.
func (s SquashComp) decompress(buf []byte) ([]byte, error) {
	h := compHandler(s)
	if h == nil || h.Decompress == nil {
		return nil, fmt.Errorf("%w: %s", ErrCompressionUnsupported, s)
	}
	out, err := h.Decompress(buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrCompressionDecompress, s, err)
	}
	return out, nil
}

// compress runs the registered Extractor's write-side compressor; nothing in this module's
// read path calls it.
func (s SquashComp) compress(buf []byte) ([]byte, error) {
	h := compHandler(s)
	if h == nil || h.Compress == nil {
		return nil, fmt.Errorf("%w: %s has no compressor registered", ErrCompressionUnsupported, s)
	}
	return h.Compress(buf)
}
