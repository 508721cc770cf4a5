package ser

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

type Decoder struct {
	rdr io.Reader
}

func NewDecoder(rdr io.Reader) *Decoder {
	return &Decoder{rdr: rdr}
}

// readFull fills buf, reporting a short stream as ErrTruncatedInput.
func (d *Decoder) readFull(buf []byte, what string) error {
	n, err := io.ReadFull(d.rdr, buf)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: read %d of %d %s bytes", ErrTruncatedInput, n, len(buf), what)
	}

	if err != nil {
		return fmt.Errorf("reading %s: %w", what, err)
	}

	return nil
}

// readN reads exactly n bytes. The buffer grows with the bytes actually
// read, so a header declaring a huge frame over a short stream fails with
// ErrTruncatedInput instead of allocating the declared size up front.
func (d *Decoder) readN(n int64, what string) ([]byte, error) {
	var buf bytes.Buffer

	read, err := io.CopyN(&buf, d.rdr, n)
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: read %d of %d %s bytes", ErrTruncatedInput, read, n, what)
	}

	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", what, err)
	}

	return buf.Bytes(), nil
}

// ReadHeader consumes exactly HeaderSize bytes. The header is not validated.
func (d *Decoder) ReadHeader() (h Header, err error) {
	raw := make([]byte, HeaderSize)

	err = d.readFull(raw, "header")
	if err != nil {
		return h, err
	}

	h = Header{
		FileID:       text(raw[0:14]),
		LuID:         int32At(raw, 14),
		ColorID:      int32At(raw, 18),
		LittleEndian: int32At(raw, 22),
		Width:        int32At(raw, 26),
		Height:       int32At(raw, 30),
		PixelDepth:   int32At(raw, 34),
		FrameCount:   int32At(raw, 38),
		Observer:     text(raw[42:82]),
		Instrument:   text(raw[82:122]),
		Telescope:    text(raw[122:162]),
		DateTime:     int64(binary.LittleEndian.Uint64(raw[162:170])),
		DateTimeUTC:  int64(binary.LittleEndian.Uint64(raw[170:178])),
	}

	return h, nil
}

// ReadFrame reads the next frame payload described by h.
func (d *Decoder) ReadFrame(h Header, index int) (*Frame, error) {
	switch h.PixelDepth {
	case 8, 16, 32:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedPixelDepth, h.PixelDepth)
	}

	err := h.checkFrameSize()
	if err != nil {
		return nil, err
	}

	data, err := d.readN(int64(h.FrameSize()), fmt.Sprintf("frame %d", index))
	if err != nil {
		return nil, err
	}

	return &Frame{
		Index:      index,
		Width:      int(h.Width),
		Height:     int(h.Height),
		PixelDepth: int(h.PixelDepth),
		Data:       data,
	}, nil
}

func int32At(b []byte, off int) int32 {
	return int32(binary.LittleEndian.Uint32(b[off : off+4]))
}

func text(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}

	return string(bytes.TrimSpace(b))
}
