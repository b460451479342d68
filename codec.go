package zarr

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// codec compresses and decompresses whole chunks.
type codec interface {
	Decode(src []byte) ([]byte, error)
	Encode(src []byte) ([]byte, error)
	Close()
}

// newCodec returns the codec for a compressor configuration. A nil
// configuration stores chunks raw.
func newCodec(cfg *CompressorConfig) (codec, error) {
	if cfg == nil {
		return rawCodec{}, nil
	}
	switch cfg.ID {
	case "zstd":
		return newZstdCodec(cfg.Level)
	case "zlib":
		return zlibCodec{level: levelOr(cfg.Level, zlib.DefaultCompression)}, nil
	case "gzip":
		return gzipCodec{level: levelOr(cfg.Level, gzip.DefaultCompression)}, nil
	case "blosc":
		return nil, fmt.Errorf("blosc compression not yet supported")
	default:
		return nil, fmt.Errorf("unsupported compressor: %s", cfg.ID)
	}
}

func levelOr(level, def int) int {
	if level == 0 {
		return def
	}
	return level
}

type rawCodec struct{}

func (rawCodec) Decode(src []byte) ([]byte, error) { return src, nil }
func (rawCodec) Encode(src []byte) ([]byte, error) { return src, nil }
func (rawCodec) Close()                            {}

// zstdCodec shares one decoder and one encoder; both are safe for concurrent
// DecodeAll and EncodeAll calls.
type zstdCodec struct {
	dec *zstd.Decoder
	enc *zstd.Encoder
}

func newZstdCodec(level int) (*zstdCodec, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	opts := []zstd.EOption{}
	if level != 0 {
		opts = append(opts, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	}
	enc, err := zstd.NewWriter(nil, opts...)
	if err != nil {
		dec.Close()
		return nil, fmt.Errorf("failed to create zstd writer: %w", err)
	}
	return &zstdCodec{dec: dec, enc: enc}, nil
}

func (c *zstdCodec) Decode(src []byte) ([]byte, error) {
	return c.dec.DecodeAll(src, nil)
}

func (c *zstdCodec) Encode(src []byte) ([]byte, error) {
	return c.enc.EncodeAll(src, nil), nil
}

func (c *zstdCodec) Close() {
	c.dec.Close()
	c.enc.Close()
}

type zlibCodec struct{ level int }

func (zlibCodec) Decode(src []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("failed to init zlib reader: %w", err)
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

func (c zlibCodec) Encode(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, c.level)
	if err != nil {
		return nil, fmt.Errorf("failed to init zlib writer: %w", err)
	}
	if _, err := zw.Write(src); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (zlibCodec) Close() {}

type gzipCodec struct{ level int }

func (gzipCodec) Decode(src []byte) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("failed to init gzip reader: %w", err)
	}
	defer gr.Close()
	return io.ReadAll(gr)
}

func (c gzipCodec) Encode(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	gw, err := gzip.NewWriterLevel(&buf, c.level)
	if err != nil {
		return nil, fmt.Errorf("failed to init gzip writer: %w", err)
	}
	if _, err := gw.Write(src); err != nil {
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gzipCodec) Close() {}
