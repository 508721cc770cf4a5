package ser

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// HeaderSize is the length of the fixed SER preamble.
const HeaderSize = 178

var (
	ErrTruncatedInput        = errors.New("truncated input")
	ErrUnsupportedPixelDepth = errors.New("unsupported pixel depth")
	ErrInvalidHeader         = errors.New("invalid header")
)

// seconds between 0001-01-01 and the unix epoch.
const epochOffset = 62135596800

// Header describes a SER capture. Only the geometry fields drive decoding;
// the rest is descriptive.
type Header struct {
	// Name identifies where the capture came from. Not part of the file.
	Name string

	FileID string
	LuID   int32

	ColorID int32

	// LittleEndian is the raw endianness flag. Frame samples are always
	// decoded least-significant byte first whatever its value.
	LittleEndian int32

	Width      int32
	Height     int32
	PixelDepth int32
	FrameCount int32

	Observer   string
	Instrument string
	Telescope  string

	// DateTime and DateTimeUTC are 100ns ticks since 0001-01-01.
	DateTime    int64
	DateTimeUTC int64
}

func (h Header) BytesPerPixel() int {
	return int(h.PixelDepth) / 8
}

// FrameSize is the number of bytes in a single frame. Only meaningful once
// Validate has passed.
func (h Header) FrameSize() int {
	return int(h.frameSize())
}

// frameSize cannot overflow: two positive int32 factors and at most 4 bytes
// per pixel stay below 1<<64.
func (h Header) frameSize() uint64 {
	if h.Width <= 0 || h.Height <= 0 || h.PixelDepth <= 0 {
		return 0
	}

	return uint64(h.Width) * uint64(h.Height) * uint64(h.BytesPerPixel())
}

func (h Header) checkFrameSize() error {
	if size := h.frameSize(); size > math.MaxInt {
		return fmt.Errorf("%w: frame of %dx%dx%d bits is %d bytes", ErrInvalidHeader, h.Width, h.Height, h.PixelDepth, size)
	}

	return nil
}

// Validate checks the header can drive a decode.
func (h Header) Validate() error {
	switch h.PixelDepth {
	case 8, 16, 32:
	default:
		return fmt.Errorf("%w: %d", ErrUnsupportedPixelDepth, h.PixelDepth)
	}

	if h.Width <= 0 || h.Height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrInvalidHeader, h.Width, h.Height)
	}

	if h.FrameCount < 0 {
		return fmt.Errorf("%w: frame count %d", ErrInvalidHeader, h.FrameCount)
	}

	return h.checkFrameSize()
}

// ObservedAt returns the UTC capture start, or false when the file does not
// record one.
func (h Header) ObservedAt() (time.Time, bool) {
	if h.DateTimeUTC <= 0 {
		return time.Time{}, false
	}

	return ticksToTime(h.DateTimeUTC), true
}

func ticksToTime(ticks int64) time.Time {
	sec := ticks / 10000000
	nsec := (ticks % 10000000) * 100

	return time.Unix(sec-epochOffset, nsec).UTC()
}
