package ser

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

// Frame is one raw frame payload.
type Frame struct {
	Index      int
	Width      int
	Height     int
	PixelDepth int
	Data       []byte
}

// Samples returns the frame as []uint8, []uint16 or []uint32 depending on
// the pixel depth, in row-major order.
func (f *Frame) Samples() (interface{}, error) {
	switch f.PixelDepth {
	case 8:
		return unpack[uint8](f.Data, 1), nil
	case 16:
		return unpack[uint16](f.Data, 2), nil
	case 32:
		return unpack[uint32](f.Data, 4), nil
	}

	return nil, fmt.Errorf("%w: %d", ErrUnsupportedPixelDepth, f.PixelDepth)
}

// unpack assembles little-endian samples of size bytes each. A trailing
// partial sample is dropped.
func unpack[T constraints.Unsigned](raw []byte, size int) []T {
	out := make([]T, len(raw)/size)

	for i := range out {
		var v T
		chunk := raw[i*size : (i+1)*size]
		for b := size - 1; b >= 0; b-- {
			v = v<<8 | T(chunk[b])
		}
		out[i] = v
	}

	return out
}
