package domain

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Message header keys shared by the Kafka reader and writer.
const (
	HeaderContentEncoding = "content-encoding"
	HeaderSensorID        = "sensor_id"
	HeaderVolumeTime      = "volume_time"
	HeaderProcessedAt     = "processed_at"
)

// Content encodings understood by DecodePayload and EncodePayload.
const (
	EncodingNone = "none"
	EncodingZstd = "zstd"
)

var (
	zstdOnce    sync.Once
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
	zstdErr     error
)

func zstdCodec() (*zstd.Encoder, *zstd.Decoder, error) {
	zstdOnce.Do(func() {
		zstdEncoder, zstdErr = zstd.NewWriter(nil)
		if zstdErr != nil {
			return
		}
		zstdDecoder, zstdErr = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	})
	return zstdEncoder, zstdDecoder, zstdErr
}

// DecodePayload undoes the given content encoding. An empty encoding is
// treated as none.
func DecodePayload(data []byte, encoding string) ([]byte, error) {
	switch encoding {
	case "", EncodingNone:
		return data, nil
	case EncodingZstd:
		_, dec, err := zstdCodec()
		if err != nil {
			return nil, fmt.Errorf("init zstd: %w", err)
		}
		out, err := dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decode: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}
}

// EncodePayload applies the given content encoding.
func EncodePayload(data []byte, encoding string) ([]byte, error) {
	switch encoding {
	case "", EncodingNone:
		return data, nil
	case EncodingZstd:
		enc, _, err := zstdCodec()
		if err != nil {
			return nil, fmt.Errorf("init zstd: %w", err)
		}
		return enc.EncodeAll(data, make([]byte, 0, len(data)/4)), nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}
}
