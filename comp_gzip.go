package squashfs

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"
)

// SquashFS's "gzip" compression id is actually a raw zlib stream (RFC 1950), not
// gzip-framed (RFC 1952). klauspost/compress/zlib is a drop-in, faster replacement for
// compress/zlib and is registered unconditionally (no build tag) since GZip is the
// most common squashfs compression and the teacher's comp_zstd.go already establishes
// klauspost/compress as this module's baseline compression dependency.
func gzipCompress(buf []byte) ([]byte, error) {
	var out bytes.Buffer
	w, err := zlib.NewWriterLevel(&out, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(buf); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func init() {
	RegisterCompHandler(GZip, &CompHandler{
		Decompress: MakeDecompressorErr(func(r io.Reader) (io.ReadCloser, error) {
			return zlib.NewReader(r)
		}),
		Compress: gzipCompress,
	})
}
