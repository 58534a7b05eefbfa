package cache

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Payload format markers, the first byte of every stored value.
const (
	formatJSON byte = 'j'
	formatGzip byte = 'z'
)

var errCorrupt = errors.New("corrupt cache payload")

// Codec serializes cached values. Compression applies only to the classes
// listed in CompressClasses and only above MinCompressBytes.
type Codec struct {
	Compress         bool
	MinCompressBytes int
	CompressClasses  map[Class]bool
}

// DefaultCodec compresses transaction pages of 1 KiB or more.
func DefaultCodec() Codec {
	return Codec{
		Compress:         true,
		MinCompressBytes: 1024,
		CompressClasses:  map[Class]bool{ClassTransactions: true},
	}
}

func (c Codec) Encode(class Class, v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	if !c.Compress || !c.CompressClasses[class] || len(raw) < c.MinCompressBytes {
		return append([]byte{formatJSON}, raw...), nil
	}

	var buf bytes.Buffer
	buf.WriteByte(formatGzip)
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode accepts either format regardless of the current settings.
func (c Codec) Decode(data []byte, dst any) error {
	if len(data) == 0 {
		return errCorrupt
	}
	body := data[1:]
	switch data[0] {
	case formatJSON:
	case formatGzip:
		zr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("%w: %v", errCorrupt, err)
		}
		defer zr.Close()
		if body, err = io.ReadAll(zr); err != nil {
			return fmt.Errorf("%w: %v", errCorrupt, err)
		}
	default:
		return errCorrupt
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %v", errCorrupt, err)
	}
	return nil
}
