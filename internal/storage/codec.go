package storage

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Payload encodings
const (
	encodingIdentity = "identity"
	encodingZstd     = "zstd"
)

var (
	zstdOnce    sync.Once
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
	zstdErr     error
)

func zstdCodec() (*zstd.Encoder, *zstd.Decoder, error) {
	zstdOnce.Do(func() {
		zstdEncoder, zstdErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if zstdErr != nil {
			return
		}
		zstdDecoder, zstdErr = zstd.NewReader(nil)
	})
	return zstdEncoder, zstdDecoder, zstdErr
}

// encodePayload compresses data at or above threshold bytes. A
// threshold of zero or less disables compression.
func encodePayload(data []byte, threshold int) ([]byte, string, error) {
	if threshold <= 0 || len(data) < threshold {
		return data, encodingIdentity, nil
	}
	enc, _, err := zstdCodec()
	if err != nil {
		return nil, "", fmt.Errorf("zstd encoder: %w", err)
	}
	return enc.EncodeAll(data, make([]byte, 0, len(data)/4)), encodingZstd, nil
}

func decodePayload(data []byte, encoding string) ([]byte, error) {
	switch encoding {
	case encodingIdentity, "":
		return data, nil
	case encodingZstd:
		_, dec, err := zstdCodec()
		if err != nil {
			return nil, fmt.Errorf("zstd decoder: %w", err)
		}
		out, err := dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress payload: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown payload encoding %q", encoding)
	}
}
