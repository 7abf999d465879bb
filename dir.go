package squashfs

import "bytes"

// DirectoryEntry is one parsed directory entry (§3.5): a name plus enough of the referenced
// inode to construct an inodeRef and check its advertised type.
type DirectoryEntry struct {
	Name  []byte
	Ref   inodeRef
	Type  Type
	Inode uint32
}

// DirectoryIterator walks a directory inode's entry stream (§4.10): a sequence of fragments,
// each a 12-byte header followed by count+1 variable-length entries.
type DirectoryIterator struct {
	sb  *Superblock
	dir *File

	mr *MetablockReader

	remainingSize    int64
	remainingEntries uint32
	startBase        uint32
	inodeBase        uint32

	cur DirectoryEntry
}

// IterDir opens a DirectoryIterator over dir's entry stream (§4.10 Init).
func (sb *Superblock) IterDir(dir *File) (*DirectoryIterator, error) {
	if !dir.Type.IsDir() {
		return nil, ErrNotDirectory
	}
	mr, err := NewMetablockReader(sb.mapMgr, sb.metaExtract, sb.order, int64(sb.DirTableStart), 0, uint32(dir.DirBlockStart))
	if err != nil {
		return nil, err
	}
	if _, err := mr.Advance(int64(dir.DirBlockOffset), 0); err != nil {
		mr.Close()
		return nil, err
	}
	return &DirectoryIterator{
		sb:            sb,
		dir:           dir,
		mr:            mr,
		remainingSize: int64(dir.DirFileSize) - 3,
	}, nil
}

// Close releases the underlying MetablockReader.
func (it *DirectoryIterator) Close() {
	it.mr.Close()
}

// Next advances to the next entry (§4.10 next()), returning ErrNoSuchElement at end of stream.
func (it *DirectoryIterator) Next() error {
	order := it.sb.order

	if it.remainingEntries == 0 {
		if it.remainingSize <= 0 {
			return ErrNoSuchElement
		}
		hdr, err := it.mr.Advance(0, 12)
		if err != nil {
			return err
		}
		count := order.Uint32(hdr[0:4])
		it.startBase = order.Uint32(hdr[4:8])
		it.inodeBase = order.Uint32(hdr[8:12])
		it.remainingEntries = count + 1
		it.remainingSize -= 12
	}
	it.remainingEntries--

	hdr, err := it.mr.Advance(0, 8)
	if err != nil {
		return err
	}
	offset := order.Uint16(hdr[0:2])
	inodeOfft := int16(order.Uint16(hdr[2:4]))
	etype := order.Uint16(hdr[4:6])
	nameSize := order.Uint16(hdr[6:8])
	it.remainingSize -= 8

	nameLen := int(nameSize) + 1
	nameBuf, err := it.mr.Advance(0, nameLen)
	if err != nil {
		return err
	}
	it.remainingSize -= int64(nameLen)

	if bytes.IndexByte(nameBuf, 0) >= 0 || bytes.IndexByte(nameBuf, '/') >= 0 {
		return ErrCorruptedDirectoryEntry
	}

	inodeNum := int64(it.inodeBase) + int64(inodeOfft)
	if inodeNum <= 0 || inodeNum > 0xFFFFFFFF {
		return ErrCorruptedDirectoryEntry
	}

	name := make([]byte, len(nameBuf))
	copy(name, nameBuf)

	it.cur = DirectoryEntry{
		Name:  name,
		Ref:   newInodeRef(uint64(it.startBase), offset),
		Type:  Type(etype),
		Inode: uint32(inodeNum),
	}
	return nil
}

// Entry returns the entry most recently loaded by Next.
func (it *DirectoryIterator) Entry() DirectoryEntry {
	return it.cur
}

// OpenFile opens the File the current entry points to, verifying its on-disk type agrees with
// the directory entry's advertised type (§4.10 open_file()).
func (it *DirectoryIterator) OpenFile() (*File, error) {
	f, err := it.sb.OpenFile(it.cur.Ref)
	if err != nil {
		return nil, err
	}
	if f.Type.Basic() != it.cur.Type.Basic() {
		f.Close()
		return nil, ErrCorruptedDirectoryEntry
	}
	f.dirInode = it.dir
	if it.sb.inodeMap != nil {
		it.sb.inodeMap.Set(f.InodeNumber, f.ref)
	}
	return f, nil
}

// rewind resets the iterator to the beginning of the directory's entry stream.
func (it *DirectoryIterator) rewind() error {
	mr, err := NewMetablockReader(it.sb.mapMgr, it.sb.metaExtract, it.sb.order, int64(it.sb.DirTableStart), 0, uint32(it.dir.DirBlockStart))
	if err != nil {
		return err
	}
	if _, err := mr.Advance(int64(it.dir.DirBlockOffset), 0); err != nil {
		mr.Close()
		return err
	}
	it.mr.Close()
	it.mr = mr
	it.remainingSize = int64(it.dir.DirFileSize) - 3
	it.remainingEntries = 0
	it.cur = DirectoryEntry{}
	return nil
}

// Lookup scans (using the directory index to skip ahead for extended directories) for an
// entry named name (§4.10 lookup()).
func (it *DirectoryIterator) Lookup(name string) error {
	if err := it.rewind(); err != nil {
		return err
	}

	if it.dir.Type == XDirType && it.dir.DirIdxCount > 0 {
		if err := it.seekViaIndex(name); err != nil && err != ErrNoSuchElement {
			return err
		}
	}

	target := []byte(name)
	for {
		if err := it.Next(); err != nil {
			if err == ErrNoSuchElement {
				return ErrNoSuchFile
			}
			return err
		}
		if bytes.Equal(it.cur.Name, target) {
			return nil
		}
	}
}
