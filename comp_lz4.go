//go:build lz4

package squashfs

import (
	"github.com/pierrec/lz4/v4"
)

// SquashFS's LZ4 compression id (5) stores raw LZ4 block-format data (no frame header), since
// the surrounding metablock/datablock header already records both compressed and uncompressed
// sizes. pierrec/lz4/v4's block-level UncompressBlock is what that format needs; it is the
// dependency keeword-go-diskfs's go.mod carries for exactly this squashfs compression id.
// 1 MiB is the format's maximum block_size (§3.2), so it bounds the scratch buffer.
const maxSquashBlockSize = 1 << 20

func lz4Decompress(buf []byte) ([]byte, error) {
	dst := make([]byte, maxSquashBlockSize)
	n, err := lz4.UncompressBlock(buf, dst)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, dst[:n])
	return out, nil
}

func lz4Compress(buf []byte) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(buf)))
	var c lz4.Compressor
	n, err := c.CompressBlock(buf, dst)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// incompressible per pierrec/lz4 convention
		return buf, nil
	}
	return dst[:n], nil
}

func init() {
	RegisterCompHandler(LZ4, &CompHandler{
		Decompress: lz4Decompress,
		Compress:   lz4Compress,
	})
}
