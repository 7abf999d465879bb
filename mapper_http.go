package squashfs

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
)

// httpMapper is the range-request HTTP Mapper backend of §4.1. The first request's
// Content-Range total size and Last-Modified are cached; every subsequent request must agree
// with the cached Last-Modified, or Map fails with ErrMapperMap to signal the archive mutated
// out from under a read in progress.
type httpMapper struct {
	client *http.Client
	url    string

	mu           sync.Mutex
	size         int64
	lastModified string
	initDone     bool
}

// NewHTTPMapper returns a Mapper that issues Range: bytes=a-b GETs against url.
func NewHTTPMapper(url string, client *http.Client) Mapper {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpMapper{client: client, url: url}
}

func (m *httpMapper) Init(reportedSize *int64) error {
	slice, err := m.doRange(0, 1)
	if err != nil {
		return mapError("init", err)
	}
	m.mu.Lock()
	m.initDone = true
	sz := m.size
	m.mu.Unlock()
	if sz > 0 {
		*reportedSize = sz
	}
	_ = slice
	return nil
}

func (m *httpMapper) BlockSizeHint() int {
	// smaller than the local default: remote fetches are latency-bound, not bandwidth-bound,
	// so fewer bytes per round trip amortizes better when only a slice of a block is wanted.
	return 40 * 1024
}

func (m *httpMapper) Map(offset int64, size int) (MapSlice, error) {
	if size <= 0 {
		return &byteSliceMap{}, nil
	}
	return m.doRange(offset, size)
}

func (m *httpMapper) doRange(offset int64, size int) (MapSlice, error) {
	req, err := http.NewRequest(http.MethodGet, m.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", offset, offset+int64(size)-1))

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPartialContent && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %s", ErrMapperMap, resp.Status)
	}

	lastMod := resp.Header.Get("Last-Modified")
	total := parseContentRangeTotal(resp.Header.Get("Content-Range"))

	m.mu.Lock()
	if !m.initDone {
		m.size = total
		m.lastModified = lastMod
	} else if lastMod != "" && m.lastModified != "" && lastMod != m.lastModified {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: remote file changed mid-read (Last-Modified %q != %q)", ErrMapperMap, lastMod, m.lastModified)
	}
	m.mu.Unlock()

	buf := make([]byte, 0, size)
	tmp := make([]byte, 32*1024)
	for {
		n, rerr := resp.Body.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
		}
		if rerr != nil {
			break
		}
	}
	return &byteSliceMap{b: buf}, nil
}

func (m *httpMapper) Data(slice MapSlice) []byte {
	return slice.(*byteSliceMap).b
}

func (m *httpMapper) Unmap(slice MapSlice) {}

func (m *httpMapper) Cleanup() error { return nil }

// parseContentRangeTotal extracts the total size from a "bytes a-b/total" Content-Range
// header value; returns 0 if the total is unknown ("*") or the header is absent/malformed.
func parseContentRangeTotal(cr string) int64 {
	idx := strings.LastIndexByte(cr, '/')
	if idx < 0 || idx+1 >= len(cr) {
		return 0
	}
	total := cr[idx+1:]
	if total == "*" {
		return 0
	}
	n, err := strconv.ParseInt(total, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
