package squashfs

import (
	"bytes"
	"encoding/binary"
	"io"
	"log"
	"reflect"
)

// Superblock is the 96-byte on-disk header (§3.2), plus the runtime state wired in by Archive
// once the mapper stack is up: raw reads of uncompressed lookup arrays go through fs directly,
// while metablock-stream reads (inode table, directory table, tables-of-tables) go through
// mapMgr/metaExtract.
//
// https://dr-emann.github.io/squashfs/
type Superblock struct {
	fs          io.ReaderAt
	order       binary.ByteOrder
	archiveOfft int64

	mapMgr      *MapManager
	metaExtract *ExtractManager
	dataExtract *ExtractManager

	maxSymlinkDepth int

	idTable      *IdTable
	fragTable    *FragmentTable
	exportTable  *ExportTable
	xattrIdTable *xattrIDTable
	inodeMap     *InodeMap

	xattrStreamStart int64
	xattrStreamRead  bool

	Magic             uint32
	InodeCnt          uint32
	ModTime           int32
	BlockSize         uint32
	FragCount         uint32
	Comp              SquashComp
	BlockLog          uint16
	Flags             SquashFlags
	IdCount           uint16
	VMajor            uint16
	VMinor            uint16
	RootInode         uint64
	BytesUsed         uint64
	IdTableStart      uint64
	XattrIdTableStart uint64
	InodeTableStart   uint64
	DirTableStart     uint64
	FragTableStart    uint64
	ExportTableStart  uint64
}

const superblockMagicLE = "hsqs"
const superblockMagicBE = "sqsh"

// New reads and validates the superblock at the start of fs (§3.2, §4.1 "Superblock" step).
// It does not wire the metablock/table reader stack; callers needing File/Table access use
// Archive.Open, which reads the superblock the same way and then attaches the mapper stack.
func New(fs io.ReaderAt) (*Superblock, error) {
	return newAt(fs, 0)
}

func newAt(fs io.ReaderAt, archiveOffset int64) (*Superblock, error) {
	sb := &Superblock{fs: fs, archiveOfft: archiveOffset}
	head := make([]byte, sb.binarySize())

	log.Printf("squashfs: reading %d byte superblock", len(head))
	if _, err := fs.ReadAt(head, archiveOffset); err != nil {
		return nil, err
	}
	if err := sb.UnmarshalBinary(head); err != nil {
		return nil, err
	}
	if err := sb.validate(); err != nil {
		return nil, err
	}
	return sb, nil
}

// UnmarshalBinary decodes the fixed-layout superblock fields in declaration order, the same
// reflect-driven approach Bytes uses in reverse.
func (s *Superblock) UnmarshalBinary(data []byte) error {
	if len(data) < s.binarySize() {
		return ErrSuperblockTooSmall
	}

	switch string(data[:4]) {
	case superblockMagicLE:
		s.order = binary.LittleEndian
	case superblockMagicBE:
		s.order = binary.BigEndian
	default:
		return ErrWrongMagic
	}

	v := reflect.ValueOf(s).Elem()
	r := bytes.NewReader(data)
	for i := 0; i < v.NumField(); i++ {
		name := v.Type().Field(i).Name
		if name[0] < 'A' || name[0] > 'Z' {
			continue
		}
		if err := binary.Read(r, s.order, v.Field(i).Addr().Interface()); err != nil {
			return err
		}
	}
	return nil
}

// Bytes re-encodes the superblock to its 96-byte on-disk form.
func (s *Superblock) Bytes() []byte {
	buf := &bytes.Buffer{}
	order := s.order
	if order == nil {
		order = binary.LittleEndian
	}
	v := reflect.ValueOf(s).Elem()
	for i := 0; i < v.NumField(); i++ {
		name := v.Type().Field(i).Name
		if name[0] < 'A' || name[0] > 'Z' {
			continue
		}
		binary.Write(buf, order, v.Field(i).Interface())
	}
	return buf.Bytes()
}

func (s *Superblock) binarySize() int {
	v := reflect.ValueOf(s).Elem()
	sz := uintptr(0)
	for i := 0; i < v.NumField(); i++ {
		name := v.Type().Field(i).Name
		if name[0] < 'A' || name[0] > 'Z' {
			continue
		}
		sz += v.Field(i).Type().Size()
	}
	return int(sz)
}

// validate applies the checks §3.2/§7.1 require before any table is touched: version, the
// block_size/block_log relationship, and bytes_used sanity.
func (s *Superblock) validate() error {
	if s.VMajor != 4 || s.VMinor != 0 {
		return ErrInvalidVersion
	}
	if s.BlockSize == 0 || s.BlockSize&(s.BlockSize-1) != 0 {
		return ErrBlocksizeMismatch
	}
	if uint32(1)<<s.BlockLog != s.BlockSize {
		return ErrBlocksizeMismatch
	}
	if s.BytesUsed == 0 {
		return ErrSizeMismatch
	}
	return nil
}

// readRawAt reads len(buf) uncompressed bytes at the archive-relative offset off, applying the
// archive_offset convention (§9 Open Question: Mappers/raw reads are archive-local, the
// archive's start-of-container offset is added exactly once, here).
func (s *Superblock) readRawAt(buf []byte, off int64) error {
	_, err := s.fs.ReadAt(buf, s.archiveOfft+off)
	return err
}

// ByteOrder returns the byte order this archive was encoded with (hsqs little-endian, or the
// sqsh big-endian variant).
func (s *Superblock) ByteOrder() binary.ByteOrder {
	return s.order
}

// RootInodeRef returns the inode reference of the filesystem root.
func (s *Superblock) RootInodeRef() inodeRef {
	return inodeRef(s.RootInode)
}

// HasXattrs reports whether the archive carries an xattr table at all (an all-ones
// XattrIdTableStart means none, per §3.7).
func (s *Superblock) HasXattrs() bool {
	return s.XattrIdTableStart != 0xFFFFFFFFFFFFFFFF
}

// HasExportTable reports whether inode-number-to-reference lookups are available (§3.6,
// requires the EXPORTABLE flag and a present export table).
func (s *Superblock) HasExportTable() bool {
	return s.Flags.Has(EXPORTABLE) && s.ExportTableStart != 0xFFFFFFFFFFFFFFFF
}

// HasFragments reports whether the fragment table is present and non-empty.
func (s *Superblock) HasFragments() bool {
	return s.FragCount > 0 && s.FragTableStart != 0xFFFFFFFFFFFFFFFF
}

// newInodeMetaReader opens a MetablockReader over the inode table positioned at ref's
// metablock (Index(), the literal outer_offset); callers then Advance past ref.Offset() bytes
// of inner_offset before reading fields.
func (s *Superblock) newInodeMetaReader(ref inodeRef) (*MetablockReader, error) {
	return NewMetablockReader(s.mapMgr, s.metaExtract, s.order, int64(s.InodeTableStart), 0, ref.Index())
}

// newDirMetaReader opens a MetablockReader over the directory table at the given outer offset.
func (s *Superblock) newDirMetaReader(outerOffset uint32) (*MetablockReader, error) {
	return NewMetablockReader(s.mapMgr, s.metaExtract, s.order, int64(s.DirTableStart), 0, outerOffset)
}
