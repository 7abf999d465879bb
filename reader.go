package squashfs

// chunkIterator is the "iterator of chunks" abstraction §4.4 describes: something that hands
// out successive byte ranges (mapper blocks for MapIterator, decompressed metablock payloads
// for MetablockIterator) one at a time. genericReader turns either into a linear
// advance(offset, size) interface.
type chunkIterator interface {
	// next advances to the following chunk. desiredSize is a hint (forwarded so a mapper can
	// coalesce several physical blocks when a large read is requested); implementations that
	// have no use for it may ignore it.
	next(desiredSize int) error

	// skip advances *offset worth of whole chunks as cheaply as possible (for MetablockIterator,
	// without decompressing non-landing metablocks), leaving *offset set to the remainder that
	// falls inside the newly-current chunk.
	skip(offset *int64, desiredSize int) error

	// data returns the current chunk's bytes.
	data() []byte
}

// genericReader is component §4.4: it owns a spill buffer and remembers how far into the
// current chunk the logical cursor sits, implementing the same mapped-vs-buffered strategy
// for any chunkIterator. Both MapReader (over MapIterator) and MetablockReader (over
// MetablockIterator) are instances of this adapter.
type genericReader struct {
	it      chunkIterator
	curData []byte
	curPos  int
	started bool
}

func newGenericReader(it chunkIterator) *genericReader {
	return &genericReader{it: it}
}

func (r *genericReader) ensureStarted() error {
	if r.started {
		return nil
	}
	r.curData = r.it.data()
	r.started = true
	return nil
}

// remainingDirect returns the number of bytes left in the current chunk - a hint letting
// callers avoid crossing chunk boundaries when they can choose their own read size.
func (r *genericReader) remainingDirect() int {
	if err := r.ensureStarted(); err != nil {
		return 0
	}
	return len(r.curData) - r.curPos
}

// Advance moves the logical cursor forward by offset bytes and returns a view of the
// following size bytes: a zero-copy slice into the current chunk if it fits entirely within
// one, otherwise a freshly allocated buffer assembled from successive chunks.
func (r *genericReader) Advance(offset int64, size int) ([]byte, error) {
	if err := r.ensureStarted(); err != nil {
		return nil, err
	}

	remaining := offset
	for remaining > 0 {
		avail := int64(len(r.curData) - r.curPos)
		if remaining < avail {
			r.curPos += int(remaining)
			remaining = 0
			break
		}
		remaining -= avail
		if remaining == 0 {
			if err := r.it.next(size); err != nil {
				return nil, err
			}
			r.curData = r.it.data()
			r.curPos = 0
			break
		}
		if err := r.it.skip(&remaining, size); err != nil {
			return nil, err
		}
		r.curData = r.it.data()
		r.curPos = 0
	}

	if size == 0 {
		return nil, nil
	}

	avail := len(r.curData) - r.curPos
	if size <= avail {
		view := r.curData[r.curPos : r.curPos+size]
		r.curPos += size
		return view, nil
	}

	buf := make([]byte, 0, size)
	buf = append(buf, r.curData[r.curPos:]...)
	r.curPos = len(r.curData)

	for len(buf) < size {
		if err := r.it.next(size - len(buf)); err != nil {
			return nil, err
		}
		r.curData = r.it.data()
		r.curPos = 0
		need := size - len(buf)
		avail = len(r.curData)
		if need <= avail {
			buf = append(buf, r.curData[:need]...)
			r.curPos = need
		} else {
			buf = append(buf, r.curData...)
			r.curPos = avail
		}
	}
	return buf, nil
}
