package squashfs

// Xattr is one decoded extended-attribute pair (§3.7).
type Xattr struct {
	Prefix string
	Name   []byte
	Value  []byte
}

// XattrIterator enumerates the attributes of a File, resolving indirect value references
// through a second MetablockReader opened on demand (§4.17).
type XattrIterator struct {
	sb *Superblock

	mr      *MetablockReader
	remain  int64
	cur     Xattr
	isEmpty bool
}

// xattrTableStart returns the absolute offset of the xattr key/value metablock stream, the
// u64 that heads the xattr id table (read once and cached on the superblock).
func (sb *Superblock) xattrTableStart() (int64, error) {
	if sb.xattrStreamStart != 0 || sb.xattrStreamRead {
		return sb.xattrStreamStart, nil
	}
	var buf [8]byte
	if err := sb.readRawAt(buf[:], int64(sb.XattrIdTableStart)); err != nil {
		return 0, err
	}
	sb.xattrStreamStart = int64(sb.order.Uint64(buf[:]))
	sb.xattrStreamRead = true
	return sb.xattrStreamStart, nil
}

// IterXattr opens an XattrIterator over f's attributes; empty if f carries none.
func (sb *Superblock) IterXattr(f *File) (*XattrIterator, error) {
	if !sb.HasXattrs() || f.XattrIndex == noXattr {
		return &XattrIterator{sb: sb, isEmpty: true}, nil
	}

	entry, err := sb.xattrIdTable.Get(f.XattrIndex)
	if err != nil {
		return nil, err
	}
	streamStart, err := sb.xattrTableStart()
	if err != nil {
		return nil, err
	}

	ref := entry.ref
	mr, err := NewMetablockReader(sb.mapMgr, sb.metaExtract, sb.order, streamStart, 0, ref.Index())
	if err != nil {
		return nil, err
	}
	if _, err := mr.Advance(int64(ref.Offset()), 0); err != nil {
		mr.Close()
		return nil, err
	}

	return &XattrIterator{sb: sb, mr: mr, remain: int64(entry.size)}, nil
}

// Close releases the iterator's MetablockReader, if any.
func (it *XattrIterator) Close() {
	if it.mr != nil {
		it.mr.Close()
	}
}

func xattrPrefix(rawType uint16) string {
	switch rawType & 0xFF {
	case 0:
		return "user."
	case 1:
		return "trusted."
	case 2:
		return "security."
	}
	return ""
}

// Next parses the following (key, value) pair, dereferencing an indirect value if the key's
// high bit is set.
func (it *XattrIterator) Next() error {
	if it.isEmpty || it.remain <= 0 {
		return ErrNoSuchElement
	}
	order := it.sb.order

	khdr, err := it.mr.Advance(0, 4)
	if err != nil {
		return err
	}
	rawType := order.Uint16(khdr[0:2])
	nameSize := order.Uint16(khdr[2:4])
	it.remain -= 4

	nameBuf, err := it.mr.Advance(0, int(nameSize))
	if err != nil {
		return err
	}
	name := make([]byte, len(nameBuf))
	copy(name, nameBuf)
	it.remain -= int64(nameSize)

	vhdr, err := it.mr.Advance(0, 4)
	if err != nil {
		return err
	}
	valueSize := order.Uint32(vhdr)
	it.remain -= 4

	indirect := rawType&0x8000 != 0

	if !indirect {
		valBuf, err := it.mr.Advance(0, int(valueSize))
		if err != nil {
			return err
		}
		value := make([]byte, len(valBuf))
		copy(value, valBuf)
		it.remain -= int64(valueSize)

		it.cur = Xattr{Prefix: xattrPrefix(rawType), Name: name, Value: value}
		return nil
	}

	// indirect: the 8-byte value is itself a second metablock reference (§3.7).
	if valueSize != 8 {
		return ErrCorruptedInode
	}
	refBuf, err := it.mr.Advance(0, 8)
	if err != nil {
		return err
	}
	it.remain -= 8
	ref2 := inodeRef(order.Uint64(refBuf))

	streamStart, err := it.sb.xattrTableStart()
	if err != nil {
		return err
	}
	mr2, err := NewMetablockReader(it.sb.mapMgr, it.sb.metaExtract, it.sb.order, streamStart, 0, ref2.Index())
	if err != nil {
		return err
	}
	defer mr2.Close()
	if _, err := mr2.Advance(int64(ref2.Offset()), 0); err != nil {
		return err
	}

	vhdr2, err := mr2.Advance(0, 4)
	if err != nil {
		return err
	}
	indirectSize := it.sb.order.Uint32(vhdr2)
	valBuf, err := mr2.Advance(0, int(indirectSize))
	if err != nil {
		return err
	}
	value := make([]byte, len(valBuf))
	copy(value, valBuf)

	it.cur = Xattr{Prefix: xattrPrefix(rawType), Name: name, Value: value}
	return nil
}

// Entry returns the pair most recently loaded by Next.
func (it *XattrIterator) Entry() Xattr {
	return it.cur
}
