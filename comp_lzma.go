//go:build lzma

package squashfs

import (
	"io"

	"github.com/ulikunitz/xz/lzma"
)

// SquashFS's LZMA compression id (2, the format's original/legacy compressor before XZ
// superseded it in squashfs-tools) stores a raw LZMA1 stream with no xz container - the
// ulikunitz/xz module the teacher already depends on for XZ (comp_xz.go) ships exactly that
// in its lzma subpackage. Write-side support is intentionally left unregistered: modern
// squashfs-tools never emits this id, only XZ.
func init() {
	RegisterDecompressor(LZMA, MakeDecompressorErr(func(r io.Reader) (io.ReadCloser, error) {
		lr, err := lzma.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(lr), nil
	}))
}
