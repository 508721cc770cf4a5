package fits

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/astrogo/fitsio"
	"github.com/rickbassham/ser2fits/common"
)

var (
	ErrIncompatible = errors.New("incompatible image")
	ErrUnsupported  = errors.New("unsupported image layout")
)

type Decoder struct {
	rdr io.Reader
}

func NewDecoder(rdr io.Reader) *Decoder {
	return &Decoder{rdr: rdr}
}

// ImageInfo describes the primary HDU of a FITS file.
type ImageInfo struct {
	Bitpix int
	Axes   []int
	Header common.Header
}

func (d *Decoder) ReadHeader() (h common.Header, err error) {
	info, err := d.ReadImageInfo()
	if err != nil {
		return h, err
	}

	return info.Header, nil
}

func (d *Decoder) ReadImageInfo() (info ImageInfo, err error) {
	fit, err := fitsio.Open(d.rdr)
	if err != nil {
		return info, err
	}
	defer fit.Close()

	hdr := fit.HDU(0).Header()

	info = ImageInfo{
		Bitpix: hdr.Bitpix(),
		Axes:   append([]int(nil), hdr.Axes()...),
		Header: common.Header{},
	}

	for _, key := range hdr.Keys() {
		v := hdr.Get(key).Value
		if s, ok := v.(string); ok {
			v = strings.TrimSpace(s)
		}

		info.Header[key] = v
	}

	return info, nil
}

// Compatible reports whether a width x height frame of the given bitpix can
// replace this image without changing its layout.
func (info ImageInfo) Compatible(bitpix, width, height int) error {
	if info.Bitpix != bitpix {
		return fmt.Errorf("%w: BITPIX %d, want %d", ErrIncompatible, info.Bitpix, bitpix)
	}

	if len(info.Axes) != 2 || info.Axes[0] != width || info.Axes[1] != height {
		return fmt.Errorf("%w: axes %v, want [%d %d]", ErrIncompatible, info.Axes, width, height)
	}

	want := bzero(bitpix)

	got := int64(0)
	if _, ok := info.Header["BZERO"]; ok {
		v, err := info.Header.Int64("BZERO")
		if err != nil {
			return fmt.Errorf("%w: %v", ErrIncompatible, err)
		}
		got = v
	}

	if got != want {
		return fmt.Errorf("%w: BZERO %d, want %d", ErrIncompatible, got, want)
	}

	return nil
}

// ReadImage reads a 2D unsigned image of the kind Encoder writes, undoing the
// BZERO offset of 16 and 32 bit data.
func (d *Decoder) ReadImage() (img Image, err error) {
	fit, err := fitsio.Open(d.rdr)
	if err != nil {
		return img, err
	}
	defer fit.Close()

	hdu, ok := fit.HDU(0).(fitsio.Image)
	if !ok {
		return img, fmt.Errorf("%w: primary HDU is not an image", ErrUnsupported)
	}

	hdr := hdu.Header()
	axes := hdr.Axes()
	if len(axes) != 2 {
		return img, fmt.Errorf("%w: %d axes", ErrUnsupported, len(axes))
	}

	img.Width, img.Height = axes[0], axes[1]
	n := img.Width * img.Height

	bitpix := hdr.Bitpix()
	size := bitpix / 8
	raw := hdu.Raw()

	if bitpix <= 0 || len(raw) < n*size {
		return img, fmt.Errorf("%w: BITPIX %d with %d data bytes", ErrUnsupported, bitpix, len(raw))
	}

	zero := int64(0)
	if c := hdr.Get("BZERO"); c != nil {
		zero, err = common.ToInt64(c.Value)
		if err != nil {
			return img, fmt.Errorf("%w: BZERO: %v", ErrUnsupported, err)
		}
	}

	if zero != bzero(bitpix) {
		return img, fmt.Errorf("%w: BITPIX %d with BZERO %d is not unsigned", ErrUnsupported, bitpix, zero)
	}

	switch bitpix {
	case 8:
		img.Pixels = append([]uint8(nil), raw[:n]...)
	case 16:
		px := make([]uint16, n)
		for i := range px {
			px[i] = binary.BigEndian.Uint16(raw[i*2:]) ^ 0x8000
		}
		img.Pixels = px
	case 32:
		px := make([]uint32, n)
		for i := range px {
			px[i] = binary.BigEndian.Uint32(raw[i*4:]) ^ 0x80000000
		}
		img.Pixels = px
	default:
		return img, fmt.Errorf("%w: BITPIX %d", ErrUnsupported, bitpix)
	}

	return img, nil
}
