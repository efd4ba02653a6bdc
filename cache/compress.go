package cache

import (
	"bytes"
	"compress/gzip"
	"io"
)

// compress gzips value for opt-in compression before the size check, per spec.md
// §4.8. Compression failures fall back to the original bytes rather than erroring the
// whole Put — a cache write is never allowed to fail the query it's caching.
func compress(value []byte) []byte {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(value); err != nil {
		return value
	}
	if err := w.Close(); err != nil {
		return value
	}
	return buf.Bytes()
}

// decompress reverses compress; callers that don't know whether an entry was
// compressed should try decompress and fall back to the raw bytes on failure.
func decompress(value []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(value))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
