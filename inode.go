package squashfs

import (
	"io/fs"
	"time"
)

// Sentinel values used throughout the on-disk format (§4.9).

const (
	noFragment uint32 = 0xFFFFFFFF
	noXattr    uint32 = 0xFFFFFFFF
)

// commonInodeHeaderSize is the 16-byte header every inode type starts with (§3.4).
const commonInodeHeaderSize = 16

// File is the inode view of §3.4/§4.9: a read-only snapshot of one inode's fields, borrowing
// the decompressed inode-table metablock buffer for as long as it is open. The contextual
// field dirInode is filled in by DirectoryIterator.OpenFile, not parsed from the inode body
// itself.
type File struct {
	sb  *Superblock
	ref inodeRef

	view *ExtractView

	Type        Type
	Perm        uint16
	UidIdx      uint16
	GidIdx      uint16
	ModTime     int32
	InodeNumber uint32

	NLink uint32

	// regular file
	BlocksStart    uint64
	FragBlockIndex uint32
	FragBlockOfft  uint32
	FileSize       uint64
	BlockSizes     []uint32 // raw size_info words, bit 24 = uncompressed, low 24 bits = size
	BlockOffsets   []uint64 // cumulative on-disk byte offset of each block, relative to BlocksStart
	Sparse         uint64

	// directory
	DirBlockStart  uint64
	DirBlockOffset uint32
	DirFileSize    uint64
	DirParentIno   uint32
	DirIdxCount    uint16
	DirIndex       []DirIndexEntry

	// symlink
	SymTarget []byte

	// device
	DeviceID uint32

	XattrIndex uint32

	// dirInode, when non-nil, is the directory File this File was opened from (via
	// DirectoryIterator.OpenFile); used by directory-consistency checks and as a
	// directory_parent_inode fallback.
	dirInode *File
}

// OpenFile reads the inode at ref and returns a File view over it (§4.9 steps 1-4). The
// returned File retains the inode-table metablock buffer until Close is called.
func (sb *Superblock) OpenFile(ref inodeRef) (*File, error) {
	if ref.IsNull() {
		return nil, ErrNoSuchFile
	}
	mr, err := sb.newInodeMetaReader(ref)
	if err != nil {
		return nil, err
	}
	defer mr.Close()

	hdr, err := mr.Advance(int64(ref.Offset()), commonInodeHeaderSize)
	if err != nil {
		return nil, err
	}

	f := &File{sb: sb, ref: ref}
	order := sb.order
	rawType := order.Uint16(hdr[0:2])
	f.Type = Type(rawType)
	if !f.Type.Valid() {
		return nil, ErrCorruptedInode
	}
	f.Perm = order.Uint16(hdr[2:4])
	f.UidIdx = order.Uint16(hdr[4:6])
	f.GidIdx = order.Uint16(hdr[6:8])
	f.ModTime = int32(order.Uint32(hdr[8:12]))
	f.InodeNumber = order.Uint32(hdr[12:16])
	if f.InodeNumber == 0 {
		return nil, ErrCorruptedInode
	}

	if err := f.parseBody(mr); err != nil {
		return nil, err
	}

	// Retain the metablock buffer for as long as this File lives (§3.4 Ownership); the parsed
	// fields themselves (SymTarget, DirIndex names) are copies and do not point into it.
	f.view = mr.it.curView.Clone()
	return f, nil
}

func (f *File) parseBody(mr *MetablockReader) error {
	order := f.sb.order
	switch f.Type {
	case DirType:
		b, err := mr.Advance(0, 16)
		if err != nil {
			return err
		}
		f.DirBlockStart = uint64(order.Uint32(b[0:4]))
		f.NLink = order.Uint32(b[4:8])
		f.DirFileSize = uint64(order.Uint16(b[8:10]))
		f.DirBlockOffset = uint32(order.Uint16(b[10:12]))
		f.DirParentIno = order.Uint32(b[12:16])
		f.XattrIndex = noXattr

	case XDirType:
		b, err := mr.Advance(0, 24)
		if err != nil {
			return err
		}
		f.NLink = order.Uint32(b[0:4])
		f.DirFileSize = uint64(order.Uint32(b[4:8]))
		f.DirBlockStart = uint64(order.Uint32(b[8:12]))
		f.DirParentIno = order.Uint32(b[12:16])
		f.DirIdxCount = order.Uint16(b[16:18])
		f.DirBlockOffset = uint32(order.Uint16(b[18:20]))
		f.XattrIndex = order.Uint32(b[20:24])
		if err := f.readDirIndex(mr); err != nil {
			return err
		}

	case FileType:
		b, err := mr.Advance(0, 16)
		if err != nil {
			return err
		}
		f.BlocksStart = uint64(order.Uint32(b[0:4]))
		f.FragBlockIndex = order.Uint32(b[4:8])
		f.FragBlockOfft = order.Uint32(b[8:12])
		f.FileSize = uint64(order.Uint32(b[12:16]))
		f.XattrIndex = noXattr
		return f.readBlockSizes(mr)

	case XFileType:
		b, err := mr.Advance(0, 40)
		if err != nil {
			return err
		}
		f.BlocksStart = order.Uint64(b[0:8])
		f.FileSize = order.Uint64(b[8:16])
		f.Sparse = order.Uint64(b[16:24])
		f.NLink = order.Uint32(b[24:28])
		f.FragBlockIndex = order.Uint32(b[28:32])
		f.FragBlockOfft = order.Uint32(b[32:36])
		f.XattrIndex = order.Uint32(b[36:40])
		return f.readBlockSizes(mr)

	case SymlinkType, XSymlinkType:
		b, err := mr.Advance(0, 8)
		if err != nil {
			return err
		}
		f.NLink = order.Uint32(b[0:4])
		nameSize := order.Uint32(b[4:8])
		if nameSize > 4096 {
			return ErrCorruptedInode
		}
		target, err := mr.Advance(0, int(nameSize))
		if err != nil {
			return err
		}
		sym := make([]byte, len(target))
		copy(sym, target)
		f.SymTarget = sym
		f.XattrIndex = noXattr
		if f.Type == XSymlinkType {
			xb, err := mr.Advance(0, 4)
			if err != nil {
				return err
			}
			f.XattrIndex = order.Uint32(xb)
		}

	case BlockDevType, CharDevType, XBlockDevType, XCharDevType:
		b, err := mr.Advance(0, 8)
		if err != nil {
			return err
		}
		f.NLink = order.Uint32(b[0:4])
		f.DeviceID = order.Uint32(b[4:8])
		f.XattrIndex = noXattr
		if f.Type == XBlockDevType || f.Type == XCharDevType {
			xb, err := mr.Advance(0, 4)
			if err != nil {
				return err
			}
			f.XattrIndex = order.Uint32(xb)
		}

	case FifoType, SocketType:
		b, err := mr.Advance(0, 4)
		if err != nil {
			return err
		}
		f.NLink = order.Uint32(b[0:4])
		f.XattrIndex = noXattr

	case XFifoType, XSocketType:
		b, err := mr.Advance(0, 8)
		if err != nil {
			return err
		}
		f.NLink = order.Uint32(b[0:4])
		f.XattrIndex = order.Uint32(b[4:8])

	default:
		return ErrCorruptedInode
	}
	return nil
}

// readBlockSizes reads the block_count u32 size-info words following a (extended) regular file
// body; block_count is derived from file_size, block_size, and whether a fragment holds the tail.
func (f *File) readBlockSizes(mr *MetablockReader) error {
	count := f.BlockCount()
	f.BlockSizes = make([]uint32, count)
	if count == 0 {
		return nil
	}
	raw, err := mr.Advance(0, int(count)*4)
	if err != nil {
		return err
	}
	order := f.sb.order
	f.BlockOffsets = make([]uint64, count)
	var offt uint64
	for i := uint32(0); i < count; i++ {
		f.BlockSizes[i] = order.Uint32(raw[i*4 : i*4+4])
		f.BlockOffsets[i] = offt
		offt += uint64(f.BlockSizes[i] &^ 0x1000000)
	}
	return nil
}

// readDirIndex parses the extended directory's index array (§3.5), which is stored inline in
// the inode body immediately after the fixed extended-directory fields.
func (f *File) readDirIndex(mr *MetablockReader) error {
	if f.DirIdxCount == 0 {
		return nil
	}
	order := f.sb.order
	f.DirIndex = make([]DirIndexEntry, 0, f.DirIdxCount)
	for n := uint16(0); n < f.DirIdxCount; n++ {
		hdr, err := mr.Advance(0, 12)
		if err != nil {
			return err
		}
		index := order.Uint32(hdr[0:4])
		start := order.Uint32(hdr[4:8])
		nameSize := order.Uint32(hdr[8:12])
		if nameSize > 4096 {
			return ErrCorruptedDirectoryHeader
		}
		nameBuf, err := mr.Advance(0, int(nameSize)+1)
		if err != nil {
			return err
		}
		name := make([]byte, len(nameBuf))
		copy(name, nameBuf)
		f.DirIndex = append(f.DirIndex, DirIndexEntry{Index: index, Start: start, Name: name})
	}
	return nil
}

// BlockCount returns the number of data blocks this regular file spans, including a partial
// last block unless a fragment holds the tail (§4.9: "block_count = file_size/block_size if has_fragment else ceil_div").
func (f *File) BlockCount() uint32 {
	if !f.Type.IsFile() {
		return 0
	}
	bs := uint64(f.sb.BlockSize)
	if f.HasFragment() {
		return uint32(f.FileSize / bs)
	}
	n := f.FileSize / bs
	if f.FileSize%bs != 0 {
		n++
	}
	return uint32(n)
}

// HasFragment reports whether the file's tail is stored in a shared fragment block.
func (f *File) HasFragment() bool {
	return f.Type.IsFile() && f.FragBlockIndex != noFragment
}

// InodeRef returns the packed (outer,inner) reference this File was opened from.
func (f *File) InodeRef() inodeRef {
	return f.ref
}

// Size returns the inode's logical size: file bytes, directory listing bytes, or symlink
// target length, 0 for other types.
func (f *File) Size() uint64 {
	switch {
	case f.Type.IsFile():
		return f.FileSize
	case f.Type.IsDir():
		return f.DirFileSize
	case f.Type.IsSymlink():
		return uint64(len(f.SymTarget))
	}
	return 0
}

// Permission returns the raw on-disk permission bits (no type bits).
func (f *File) Permission() uint16 {
	return f.Perm
}

// FSMode returns an io/fs.FileMode combining the type and permission bits.
func (f *File) FSMode() fs.FileMode {
	return UnixToMode(uint32(f.Perm))&fs.ModePerm | f.Type.Mode()
}

// ModifiedTime returns the inode's modification time.
func (f *File) ModifiedTime() time.Time {
	return time.Unix(int64(f.ModTime), 0)
}

// Uid/Gid resolve the inode's id-table indices to the real numeric id.
func (f *File) Uid() (uint32, error) { return f.sb.idTable.Get(f.UidIdx) }
func (f *File) Gid() (uint32, error) { return f.sb.idTable.Get(f.GidIdx) }

// GetUid/GetGid are no-error convenience wrappers around Uid/Gid, for callers (os.FileInfo-style
// consumers) that just want a best-effort value and would otherwise ignore the error; 0 on failure.
func (f *File) GetUid() uint32 {
	uid, _ := f.Uid()
	return uid
}

func (f *File) GetGid() uint32 {
	gid, _ := f.Gid()
	return gid
}

// BlockSizeInfo returns the raw size-info word for data block i (§4.9 block_size_info).
func (f *File) BlockSizeInfo(i int) uint32 {
	if i < 0 || i >= len(f.BlockSizes) {
		return 0
	}
	return f.BlockSizes[i]
}

// BlockIsCompressed reports whether on-disk block i is stored compressed.
func (f *File) BlockIsCompressed(i int) bool {
	return f.BlockSizeInfo(i)&0x1000000 == 0
}

// BlockOnDiskSize returns the on-disk byte length of block i (0 means a sparse hole).
func (f *File) BlockOnDiskSize(i int) uint32 {
	return f.BlockSizeInfo(i) &^ 0x1000000
}

// Close releases the retained inode-table metablock buffer. Safe to call on a nil File.
func (f *File) Close() {
	if f == nil || f.view == nil {
		return
	}
	f.view.Close()
	f.view = nil
}
