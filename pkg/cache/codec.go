package cache

import (
	"bytes"
	"encoding/gob"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
	"github.com/ulikunitz/xz"

	"github.com/blksword/flashdir/pkg/fs"
)

// CompressionThreshold is the minimum encoded size (spec §4.4: "a
// configurable threshold, default 1 MiB") above which block compression is
// attempted at all.
const CompressionThreshold = 1 << 20

// compressionRatioGate: compression is only kept if it shrinks the payload
// below this fraction of its original size; otherwise the CPU cost isn't
// worth it and the raw gob bytes are stored instead.
const compressionRatioGate = 0.8

// envelope is the cross-tier wire format: a deterministic gob encoding of
// ScanResult, optionally xz-compressed, with a checksum over the
// *uncompressed* bytes so corruption (truncation, bit rot, a partial write)
// is detected before a caller ever sees a half-deserialized ScanResult.
type envelope struct {
	Compressed   bool
	OriginalSize int
	Checksum     uint64
	Payload      []byte
}

func init() {
	gob.Register(fs.ScanResult{})
}

// Encode serializes a ScanResult for storage in either cache tier.
func Encode(r *fs.ScanResult) ([]byte, error) {
	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(r); err != nil {
		return nil, errors.Wrap(err, "encoding scan result")
	}
	rawBytes := raw.Bytes()

	env := envelope{
		OriginalSize: len(rawBytes),
		Checksum:     xxhash.Sum64(rawBytes),
	}

	if len(rawBytes) > CompressionThreshold {
		if compressed, ok := tryCompress(rawBytes); ok {
			env.Compressed = true
			env.Payload = compressed
		} else {
			env.Payload = rawBytes
		}
	} else {
		env.Payload = rawBytes
	}

	var out bytes.Buffer
	if err := gob.NewEncoder(&out).Encode(&env); err != nil {
		return nil, errors.Wrap(err, "encoding cache envelope")
	}
	return out.Bytes(), nil
}

// Decode is the inverse of Encode. A checksum mismatch or decompression
// failure is reported as a corruption error; the caller (Disk.Get in
// pkg/cache/disk.go) treats that as a cache miss, never as a scan failure.
func Decode(blob []byte) (*fs.ScanResult, error) {
	var env envelope
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&env); err != nil {
		return nil, errors.Wrap(err, "decoding cache envelope")
	}

	rawBytes := env.Payload
	if env.Compressed {
		decompressed, err := decompress(env.Payload, env.OriginalSize)
		if err != nil {
			return nil, errors.Wrap(err, "decompressing cache payload")
		}
		rawBytes = decompressed
	}

	if xxhash.Sum64(rawBytes) != env.Checksum {
		return nil, errors.New("cache payload checksum mismatch")
	}

	var r fs.ScanResult
	if err := gob.NewDecoder(bytes.NewReader(rawBytes)).Decode(&r); err != nil {
		return nil, errors.Wrap(err, "decoding scan result")
	}
	return &r, nil
}

// tryCompress xz-compresses data and reports ok=false if the result does not
// clear compressionRatioGate, in which case the caller should keep the raw
// bytes rather than pay decompression cost for little gain.
func tryCompress(data []byte) (compressed []byte, ok bool) {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, false
	}
	if _, err := w.Write(data); err != nil {
		return nil, false
	}
	if err := w.Close(); err != nil {
		return nil, false
	}

	if float64(buf.Len()) >= compressionRatioGate*float64(len(data)) {
		return nil, false
	}
	return buf.Bytes(), true
}

func decompress(data []byte, originalSize int) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, originalSize)
	buf := bytes.NewBuffer(out)
	if _, err := io.Copy(buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
