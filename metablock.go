package squashfs

import "encoding/binary"

// metablockMaxSize is the largest compressed-or-uncompressed payload a single metablock may
// carry (§3.3).
const metablockMaxSize = 8192

// MetablockIterator walks a metablock stream (§3.3, §4.7): a concatenation of metablocks, each
// with a 2-byte on-disk size header, layered on a MapReader over the raw archive bytes.
// outer_offset values (as found in inode references and table lookup entries) are literal byte
// positions within the stream, so opening at one is a direct MapReader seek - no need to walk
// from the stream start.
//
// Every metablock's payload, compressed or not, is routed through the ExtractManager so it
// gets a refcounted owner a File can retain for its lifetime (§3.4 Ownership); this trades the
// zero-copy optimization the uncompressed case could in principle get for not having to teach
// every caller two different buffer-lifetime rules.
type MetablockIterator struct {
	mgr   *MapManager
	em    *ExtractManager
	order binary.ByteOrder

	streamStart int64 // absolute archive address the stream begins at
	limit       int64 // length of the valid range, measured from streamStart (0 = unbounded)

	mr *MapReader

	pos        int64 // absolute address the MapReader cursor currently sits at
	curAddress int64 // absolute address of the CURRENT metablock's 2-byte header
	curView    *ExtractView
	curData    []byte
}

// newMetablockIterator opens an iterator positioned at the metablock whose header lives at
// streamStart+startOuter.
func newMetablockIterator(mgr *MapManager, em *ExtractManager, order binary.ByteOrder, streamStart int64, limit int64, startOuter uint32) (*MetablockIterator, error) {
	start := streamStart + int64(startOuter)
	mr, err := NewMapReader(mgr, start)
	if err != nil {
		return nil, err
	}
	it := &MetablockIterator{
		mgr:         mgr,
		em:          em,
		order:       order,
		streamStart: streamStart,
		limit:       limit,
		mr:          mr,
		pos:         start,
	}
	if err := it.loadCurrent(); err != nil {
		return nil, err
	}
	return it, nil
}

// loadCurrent reads the 2-byte header at the MapReader's current position, decompresses (or
// passes through) its payload, and exposes it as curData.
func (it *MetablockIterator) loadCurrent() error {
	it.curAddress = it.pos
	if it.limit > 0 && it.curAddress >= it.streamStart+it.limit {
		return ErrOutOfBounds
	}

	hdr, err := it.mr.Advance(0, 2)
	if err != nil {
		return err
	}
	raw := it.order.Uint16(hdr)
	uncompressed := raw&0x8000 != 0
	size := int(raw & 0x7fff)
	if size > metablockMaxSize {
		return ErrSizeMismatch
	}

	payload, err := it.mr.Advance(0, size)
	if err != nil {
		return err
	}

	view, err := it.em.Uncompress(it.curAddress+2, payload, uncompressed)
	if err != nil {
		return err
	}
	if len(view.Data()) > metablockMaxSize {
		view.Close()
		return ErrSizeMismatch
	}
	if it.curView != nil {
		it.curView.Close()
	}
	it.curView = view
	it.curData = view.Data()
	it.pos = it.curAddress + 2 + int64(size)
	return nil
}

func (it *MetablockIterator) next(desiredSize int) error {
	return it.loadCurrent()
}

// skip fast-forwards *offset worth of whole 8192-byte (uncompressed) metablocks without
// decompressing any but the landing one (§4.7), relying on the invariant that every
// non-landing metablock in a valid series is exactly metablockMaxSize bytes uncompressed.
func (it *MetablockIterator) skip(offset *int64, desiredSize int) error {
	n := *offset / metablockMaxSize
	for i := int64(0); i < n; i++ {
		hdr, err := it.mr.Advance(0, 2)
		if err != nil {
			return err
		}
		raw := it.order.Uint16(hdr)
		size := int(raw & 0x7fff)
		if size > metablockMaxSize {
			return ErrSizeMismatch
		}
		if _, err := it.mr.Advance(0, size); err != nil {
			return err
		}
		it.pos += 2 + int64(size)
	}
	*offset -= n * metablockMaxSize
	return it.loadCurrent()
}

func (it *MetablockIterator) data() []byte {
	return it.curData
}

// address returns the absolute archive address of the metablock currently exposed.
func (it *MetablockIterator) address() int64 {
	return it.curAddress
}

// close releases the currently retained decompressed buffer and the underlying MapReader.
func (it *MetablockIterator) close() {
	if it.curView != nil {
		it.curView.Close()
		it.curView = nil
	}
	it.mr.Close()
}

// MetablockReader wraps MetablockIterator in the generic Reader adapter (§4.7), exposing
// Advance(offset, size) with the same spill-buffer strategy as MapReader.
type MetablockReader struct {
	it *MetablockIterator
	gr *genericReader
}

// NewMetablockReader opens a MetablockReader over the metablock stream starting at
// streamStart, positioned at outer_offset startOuter.
func NewMetablockReader(mgr *MapManager, em *ExtractManager, order binary.ByteOrder, streamStart int64, limit int64, startOuter uint32) (*MetablockReader, error) {
	it, err := newMetablockIterator(mgr, em, order, streamStart, limit, startOuter)
	if err != nil {
		return nil, err
	}
	return &MetablockReader{it: it, gr: newGenericReader(it)}, nil
}

// Advance moves the cursor forward by offset bytes of uncompressed payload and returns the
// following size bytes.
func (r *MetablockReader) Advance(offset int64, size int) ([]byte, error) {
	return r.gr.Advance(offset, size)
}

// Close releases the buffer and MapReader retained by this reader.
func (r *MetablockReader) Close() {
	r.it.close()
}
