package squashfs

// MapIterator yields successive mapper blocks starting at a byte address rounded down to a
// block boundary (§4.3). Only one block is retained at a time: next() releases the previous
// block's MapManager reference before acquiring the following one.
type MapIterator struct {
	mgr        *MapManager
	blockIndex uint64
	curData    []byte
	have       bool
}

// newMapIterator opens an iterator over mgr starting at the mapper block containing
// startOffset, exposing data() trimmed so its first byte is startOffset.
func newMapIterator(mgr *MapManager, startOffset int64) (*MapIterator, error) {
	it := &MapIterator{mgr: mgr}
	blockIndex := uint64(startOffset / mgr.blockSize)
	within := int(startOffset - int64(blockIndex)*mgr.blockSize)

	blk, err := mgr.Get(blockIndex)
	if err != nil {
		return nil, err
	}
	it.blockIndex = blockIndex
	it.curData = blk.data[within:]
	it.have = true
	return it, nil
}

func (it *MapIterator) next(desiredSize int) error {
	if it.have {
		it.mgr.Release(it.blockIndex)
	}
	it.blockIndex++
	blk, err := it.mgr.Get(it.blockIndex)
	if err != nil {
		it.have = false
		return err
	}
	it.curData = blk.data
	it.have = true
	return nil
}

func (it *MapIterator) skip(offset *int64, desiredSize int) error {
	if it.mgr.blockSize <= 0 {
		return ErrIntegerOverflow
	}
	blocksToSkip := uint64(*offset) / uint64(it.mgr.blockSize)
	if it.have {
		it.mgr.Release(it.blockIndex)
		it.have = false
	}
	next := it.blockIndex + blocksToSkip + 1
	if next < it.blockIndex {
		return ErrIntegerOverflow
	}
	it.blockIndex = next
	blk, err := it.mgr.Get(it.blockIndex)
	if err != nil {
		return err
	}
	it.curData = blk.data
	it.have = true
	*offset = *offset - int64(blocksToSkip)*it.mgr.blockSize
	return nil
}

func (it *MapIterator) data() []byte {
	return it.curData
}

// close releases the currently retained block, if any.
func (it *MapIterator) close() {
	if it.have {
		it.mgr.Release(it.blockIndex)
		it.have = false
	}
}

// MapReader layers a linear advance(offset, size) cursor on a MapIterator, using the generic
// Reader adapter of §4.4 with the zero-copy-within-a-block / owned-spill-buffer strategy of
// §4.3.
type MapReader struct {
	it *MapIterator
	gr *genericReader
}

// NewMapReader opens a MapReader over mgr starting at startOffset.
func NewMapReader(mgr *MapManager, startOffset int64) (*MapReader, error) {
	it, err := newMapIterator(mgr, startOffset)
	if err != nil {
		return nil, err
	}
	return &MapReader{it: it, gr: newGenericReader(it)}, nil
}

// Advance moves the cursor forward by offset bytes and returns the following size bytes.
func (r *MapReader) Advance(offset int64, size int) ([]byte, error) {
	return r.gr.Advance(offset, size)
}

// RemainingDirect returns the bytes left in the current mapper block.
func (r *MapReader) RemainingDirect() int {
	return r.gr.remainingDirect()
}

// Close releases the block currently retained by the underlying iterator.
func (r *MapReader) Close() {
	r.it.close()
}
