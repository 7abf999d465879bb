package squashfs

import "errors"

// Package-specific error variables that can be used with errors.Is() for error handling.
var (
	// ErrInvalidFile is returned when the file format is not recognized as SquashFS
	ErrInvalidFile = errors.New("invalid file, squashfs signature not found")

	// ErrInvalidSuper is returned when the superblock data is corrupted or invalid
	ErrInvalidSuper = errors.New("invalid squashfs superblock")

	// ErrInvalidVersion is returned when the SquashFS version is not 4.0
	// This library only supports SquashFS 4.0 format
	ErrInvalidVersion = errors.New("invalid file version, expected squashfs 4.0")

	// ErrInodeNotExported is returned when trying to access an inode that isn't in the export table
	ErrInodeNotExported = errors.New("unknown squashfs inode and no NFS export table")

	// ErrNotDirectory is returned when attempting to perform directory operations on a non-directory
	ErrNotDirectory = errors.New("not a directory")

	// ErrTooManySymlinks is returned when symlink resolution exceeds the maximum depth
	// This prevents infinite loops in symlink resolution
	ErrTooManySymlinks = errors.New("too many levels of symbolic links")

	// ErrNotAFile is returned when a file-only operation is attempted on a non-regular-file inode
	ErrNotAFile = errors.New("not a regular file")

	// ErrNotASymlink is returned when symlink-only operations are attempted on a non-symlink inode
	ErrNotASymlink = errors.New("not a symbolic link")

	// ErrOutOfBounds is returned when an index, offset or block number falls outside
	// the archive or a table's valid range
	ErrOutOfBounds = errors.New("squashfs: out of bounds")

	// ErrIntegerOverflow is returned when an arithmetic computation on offsets or sizes overflows
	ErrIntegerOverflow = errors.New("squashfs: integer overflow")

	// ErrSizeMismatch is returned when a declared size (metablock header, fragment, bytes_used)
	// disagrees with what is actually available
	ErrSizeMismatch = errors.New("squashfs: size mismatch")

	// ErrBlocksizeMismatch is returned when block_log does not match block_size on open
	ErrBlocksizeMismatch = errors.New("squashfs: block_log does not match block_size")

	// ErrSuperblockTooSmall is returned when fewer than 96 bytes are available for the header
	ErrSuperblockTooSmall = errors.New("squashfs: superblock too small")

	// ErrWrongMagic is returned when the magic number doesn't match any known squashfs byte order
	ErrWrongMagic = errors.New("squashfs: wrong magic number")

	// ErrCompressionUnsupported is returned when the archive uses a compression id with no
	// registered Extractor, or one excluded by an open-time whitelist
	ErrCompressionUnsupported = errors.New("squashfs: unsupported compression algorithm")

	// ErrCompressionDecompress is returned when an Extractor fails mid-stream
	ErrCompressionDecompress = errors.New("squashfs: decompression failed")

	// ErrCorruptedInode is returned when an inode's fields are internally inconsistent
	ErrCorruptedInode = errors.New("squashfs: corrupted inode")

	// ErrCorruptedDirectoryEntry is returned when a directory entry's name contains NUL or '/'
	// or its computed inode number is invalid
	ErrCorruptedDirectoryEntry = errors.New("squashfs: corrupted directory entry")

	// ErrCorruptedDirectoryHeader is returned when a directory fragment header is malformed
	ErrCorruptedDirectoryHeader = errors.New("squashfs: corrupted directory header")

	// ErrNoSuchFile is returned when a path or directory lookup finds no matching entry
	ErrNoSuchFile = errors.New("squashfs: no such file or directory")

	// ErrNoSuchElement is returned when a lookup into a cache or map finds no entry and none
	// can be materialized
	ErrNoSuchElement = errors.New("squashfs: no such element")

	// ErrNoSuchXattr is returned when a requested extended attribute key does not exist
	ErrNoSuchXattr = errors.New("squashfs: no such extended attribute")

	// ErrNoExtendedDirectory is returned when a directory index operation is attempted on a
	// basic (non-extended) directory inode
	ErrNoExtendedDirectory = errors.New("squashfs: not an extended directory")

	// ErrWalkerCannotGoUp is returned by PathResolver.up() at the root
	ErrWalkerCannotGoUp = errors.New("squashfs: already at root, cannot go up")

	// ErrWalkerCannotGoDown is returned by PathResolver.down() when no entry is selected
	ErrWalkerCannotGoDown = errors.New("squashfs: no selected entry to descend into")

	// ErrInodeMapIsInconsistent is returned when InodeMap.set observes a conflicting mapping
	ErrInodeMapIsInconsistent = errors.New("squashfs: inode map is inconsistent")

	// ErrDirectoryRecursion is returned when a tree traversal detects a directory cycle
	ErrDirectoryRecursion = errors.New("squashfs: directory recursion detected")

	// ErrMapperInit is returned when a Mapper fails to initialize against its source
	ErrMapperInit = errors.New("squashfs: mapper initialization failed")

	// ErrMapperMap is returned when a Mapper fails to produce a requested byte range, including
	// a remote source whose backing file changed mid-read
	ErrMapperMap = errors.New("squashfs: mapper failed to map requested range")

	// ErrInvalidArgument is returned for malformed caller input (bad option values, etc.)
	ErrInvalidArgument = errors.New("squashfs: invalid argument")
)
