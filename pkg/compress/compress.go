// Package compress implements the threshold-gated, reversible
// compression this store applies to object bodies before they reach the
// object bucket.
package compress

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// zstdMagic is the little-endian frame magic number zstd streams start
// with; reading it as a uint32 lets decompress skip anything that isn't
// actually compressed (including data this package itself passed
// through below minSize) without attempting and failing a full decode.
const zstdMagic = 0xFD2FB528

// minSize is the smallest payload this package will bother compressing.
// Below it, the zstd frame overhead outweighs any space saved.
const minSize = 512

// Compressor compresses and decompresses object bodies at a fixed
// level, clamped to a narrow range chosen for latency over ratio: this
// sits in a request path, not a batch job.
type Compressor struct {
	level zstd.EncoderLevel

	encOnce sync.Once
	enc     *zstd.Encoder
	encErr  error

	decOnce sync.Once
	dec     *zstd.Decoder
	decErr  error
}

// New returns a Compressor at the given level, clamped to [1,3].
func New(level int) *Compressor {
	if level < 1 {
		level = 1
	}
	if level > 3 {
		level = 3
	}
	return &Compressor{level: zstd.EncoderLevel(level)}
}

func (c *Compressor) encoder() (*zstd.Encoder, error) {
	c.encOnce.Do(func() {
		c.enc, c.encErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(c.level))
	})
	return c.enc, c.encErr
}

func (c *Compressor) decoder() (*zstd.Decoder, error) {
	c.decOnce.Do(func() {
		c.dec, c.decErr = zstd.NewReader(nil)
	})
	return c.dec, c.decErr
}

// Compress returns data unchanged if it is smaller than the compression
// threshold, otherwise its zstd-compressed form.
func (c *Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) < minSize {
		return data, nil
	}
	enc, err := c.encoder()
	if err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	return enc.EncodeAll(data, make([]byte, 0, len(data))), nil
}

// Decompress reverses Compress. Data that doesn't carry the zstd magic
// prefix is returned unchanged — this covers both data that was never
// compressed (below the threshold) and, defensively, anything a decode
// attempt fails against, so storage written before a compression-format
// change never becomes unreadable.
func (c *Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) < 4 {
		return data, nil
	}
	if binary.LittleEndian.Uint32(data[:4]) != zstdMagic {
		return data, nil
	}
	dec, err := c.decoder()
	if err != nil {
		return data, nil
	}
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return data, nil
	}
	return out, nil
}

// ShouldCompress reports whether a payload of the given size meets the
// compression threshold. It does not decide worker-pool routing; the
// api handlers compare against workerpool.Threshold for that.
func (c *Compressor) ShouldCompress(size int) bool {
	return size >= minSize
}
