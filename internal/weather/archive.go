package weather

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"potager/internal/types"
)

// Codec compresses normalized weather series into the archive blob
// format and back: JSON inside zstd. Encoders and decoders are pooled;
// a Codec is safe for concurrent use.
type Codec struct {
	encoders sync.Pool
	decoders sync.Pool
}

// NewCodec builds a weather archive codec.
func NewCodec() *Codec {
	return &Codec{
		encoders: sync.Pool{
			New: func() any {
				e, err := zstd.NewWriter(nil)
				if err != nil {
					// Cannot fail with nil output and default options.
					panic(fmt.Sprintf("creating zstd encoder: %v", err))
				}
				return e
			},
		},
		decoders: sync.Pool{
			New: func() any {
				d, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
				if err != nil {
					panic(fmt.Sprintf("creating zstd decoder: %v", err))
				}
				return d
			},
		},
	}
}

// Compress renders the series as compressed archive bytes.
func (c *Codec) Compress(series *types.WeatherSeries) ([]byte, error) {
	raw, err := json.Marshal(series)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "encoding weather series for archive", err)
	}

	enc := c.encoders.Get().(*zstd.Encoder)
	defer c.encoders.Put(enc)
	return enc.EncodeAll(raw, nil), nil
}

// Decompress restores a series from archive bytes. Corrupt blobs map
// to internal_archive_corrupt so callers can distinguish bad storage
// from bad requests.
func (c *Codec) Decompress(blob []byte) (*types.WeatherSeries, error) {
	dec := c.decoders.Get().(*zstd.Decoder)
	defer c.decoders.Put(dec)

	raw, err := dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalArchiveCorrupt, "decompressing weather archive", err)
	}

	var series types.WeatherSeries
	if err := json.Unmarshal(raw, &series); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalArchiveCorrupt, "decoding weather archive", err)
	}
	return &series, nil
}
