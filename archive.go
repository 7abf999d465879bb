package squashfs

import (
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
)

// Archive is the top-level handle produced by Open (§6.1): the superblock plus the wired
// mapper/extract stack, the dynamic inode map, and the options that were in effect when it was
// opened. It implements io/fs.FS so callers can drive it with the standard fs.Stat/fs.ReadDir/
// fs.ReadFile helpers, exactly as the teacher's cmd/sqfs and list_squashfs do.
type Archive struct {
	sb *Superblock

	mapper Mapper

	maxSymlinkDepth int
}

var _ fs.FS = (*Archive)(nil)
var _ fs.StatFS = (*Archive)(nil)
var _ fs.ReadFileFS = (*Archive)(nil)
var _ fs.ReadDirFS = (*Archive)(nil)

// Open reads and validates the superblock at the start of source, wires the mapper and
// extract-manager stack, and returns a ready-to-use Archive (§4.1 "archive open" steps 1-6).
func Open(source io.ReaderAt, opts ...OpenOption) (*Archive, error) {
	cfg := &archiveConfig{
		maxSymlinkDepth: defaultMaxSymlinkDepth,
	}
	for _, o := range opts {
		if err := o(cfg); err != nil {
			return nil, err
		}
	}

	mapper := cfg.mapper
	if mapper == nil {
		mapper = NewFileMapper(source)
	}

	size := cfg.sourceSize
	if err := mapper.Init(&size); err != nil {
		return nil, err
	}

	sb, err := newAt(source, cfg.archiveOffset)
	if err != nil {
		mapper.Cleanup()
		return nil, err
	}

	if cfg.allowedComp != nil && !cfg.allowedComp[sb.Comp] {
		mapper.Cleanup()
		return nil, ErrCompressionUnsupported
	}

	blockSize := cfg.mapperBlockSize
	if blockSize <= 0 {
		blockSize = int64(mapper.BlockSizeHint())
	}
	bytesUsed := int64(sb.BytesUsed)
	if size > 0 && size < bytesUsed {
		bytesUsed = size
	}

	sb.mapMgr = NewMapManager(mapper, cfg.archiveOffset, blockSize, bytesUsed, cfg.mapperLRUSize)
	sb.metaExtract = NewExtractManager(sb.Comp, cfg.extractLRUSize)
	sb.dataExtract = NewExtractManager(sb.Comp, cfg.extractLRUSize)
	sb.maxSymlinkDepth = cfg.maxSymlinkDepth

	sb.idTable = sb.newIdTable()
	if sb.HasFragments() {
		sb.fragTable = sb.newFragmentTable()
	}
	if sb.HasExportTable() {
		sb.exportTable = sb.newExportTable()
	}
	if sb.HasXattrs() {
		sb.xattrIdTable = sb.newXattrIDTable()
	}

	sb.inodeMap = sb.newInodeMap()

	ar := &Archive{
		sb:              sb,
		mapper:          mapper,
		maxSymlinkDepth: cfg.maxSymlinkDepth,
	}

	root, err := sb.OpenFile(sb.RootInodeRef())
	if err != nil {
		mapper.Cleanup()
		return nil, err
	}
	sb.inodeMap.Set(root.InodeNumber, root.InodeRef())
	root.Close()

	return ar, nil
}

// OpenFile opens path as a regular OS file and returns an Archive over it; the file is closed
// when the returned Archive is Closed.
func OpenFile(path string, opts ...OpenOption) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	ar, err := Open(f, opts...)
	if err != nil {
		f.Close()
		return nil, err
	}
	return ar, nil
}

// Superblock returns the archive's parsed superblock.
func (ar *Archive) Superblock() *Superblock {
	return ar.sb
}

// Close releases the archive's mapper and everything it owns (mmap regions, open files, HTTP
// client connections).
func (ar *Archive) Close() error {
	return ar.mapper.Cleanup()
}

// RootFile opens the filesystem root as a File; the caller must Close it.
func (ar *Archive) RootFile() (*File, error) {
	return ar.sb.OpenFile(ar.sb.RootInodeRef())
}

// OpenFileByRef opens the inode ref points to directly, bypassing path resolution.
func (ar *Archive) OpenFileByRef(ref inodeRef) (*File, error) {
	return ar.sb.OpenFile(ref)
}

// resolve runs a PathResolver from the root over name, following the terminal symlink iff
// followSymlinks is set (§4.15).
func (ar *Archive) resolve(name string, followSymlinks bool) (*File, error) {
	root, err := ar.RootFile()
	if err != nil {
		return nil, err
	}
	r, err := ar.NewPathResolver(root)
	if err != nil {
		root.Close()
		return nil, err
	}
	defer r.Close()
	defer root.Close()

	if name == "." || name == "" {
		return ar.RootFile()
	}

	if err := r.Resolve(name, followSymlinks); err != nil {
		return nil, err
	}
	return r.Candidate()
}

// OpenPath resolves path from the root, following a terminal symlink to its target.
func (ar *Archive) OpenPath(name string) (*File, error) {
	return ar.resolve(name, true)
}

// LopenPath resolves path from the root without following a terminal symlink: if the final
// segment names a symlink, the symlink inode itself is returned.
func (ar *Archive) LopenPath(name string) (*File, error) {
	return ar.resolve(name, false)
}

// FindInode is a one-shot path lookup, the convenience entry point the teacher's own tests drive
// directly: followSymlinks selects OpenPath vs LopenPath semantics for the terminal segment.
func (ar *Archive) FindInode(name string, followSymlinks bool) (*File, error) {
	return ar.resolve(name, followSymlinks)
}

// Lstat resolves name without following a terminal symlink and returns its fs.FileInfo, the way
// os.Lstat does for a real filesystem.
func (ar *Archive) Lstat(name string) (fs.FileInfo, error) {
	f, err := ar.LopenPath(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return &fileinfo{name: path.Base(name), ino: f}, nil
}

// Open implements io/fs.FS: it resolves name (following symlinks, matching fs.FS semantics) and
// wraps the result as an io/fs.File.
func (ar *Archive) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	f, err := ar.OpenPath(name)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	return openFSFile(f, path.Base(name))
}

// Stat implements io/fs.StatFS: it resolves name (following a terminal symlink) and returns its
// fs.FileInfo without requiring the caller to Open it first.
func (ar *Archive) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}
	f, err := ar.OpenPath(name)
	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: err}
	}
	defer f.Close()
	return &fileinfo{name: path.Base(name), ino: f}, nil
}

// ReadFile implements io/fs.ReadFileFS, reading the whole of name in one call via EasyFileContent.
func (ar *Archive) ReadFile(name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrInvalid}
	}
	data, err := ar.EasyFileContent(name)
	if err != nil {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: err}
	}
	return data, nil
}

// ReadDir implements io/fs.ReadDirFS: it resolves name to a directory, iterates its entries and
// returns them sorted by name the way os.ReadDir does.
func (ar *Archive) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	f, err := ar.OpenPath(name)
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: err}
	}
	defer f.Close()
	if !f.Type.IsDir() {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: ErrNotDirectory}
	}
	it, err := ar.sb.IterDir(f)
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: err}
	}
	defer it.Close()

	var entries []fs.DirEntry
	for {
		if err := it.Next(); err != nil {
			if err == ErrNoSuchElement {
				break
			}
			return nil, &fs.PathError{Op: "readdir", Path: name, Err: err}
		}
		e := it.Entry()
		entries = append(entries, &fsDirEntry{sb: ar.sb, name: string(e.Name), typ: e.Type, ref: e.Ref})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}
