package fits

import (
	"errors"
	"fmt"
	"io"

	"github.com/astrogo/fitsio"
)

var ErrImageSize = errors.New("pixel count does not match image size")

// Image is a single 2D frame of unsigned samples, stored row by row.
type Image struct {
	Width  int
	Height int

	// Pixels is a []uint8, []uint16 or []uint32.
	Pixels interface{}

	// Cards are appended to the primary header.
	Cards []fitsio.Card
}

type Encoder struct {
	w io.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Bitpix returns the FITS BITPIX for a pixel slice.
func Bitpix(pixels interface{}) (int, error) {
	switch pixels.(type) {
	case []uint8:
		return 8, nil
	case []uint16:
		return 16, nil
	case []uint32:
		return 32, nil
	}

	return 0, fmt.Errorf("unsupported pixel type %T", pixels)
}

// bzero is the offset FITS uses to store unsigned integers in its signed
// types. 8 bit data is unsigned already.
func bzero(bitpix int) int64 {
	switch bitpix {
	case 16:
		return 1 << 15
	case 32:
		return 1 << 31
	}

	return 0
}

// Encode writes img as the primary HDU of a new FITS file.
func (e *Encoder) Encode(img Image) error {
	bitpix, err := Bitpix(img.Pixels)
	if err != nil {
		return err
	}

	data, n := signed(img.Pixels)
	if n != img.Width*img.Height {
		return fmt.Errorf("%w: %d pixels for %dx%d", ErrImageSize, n, img.Width, img.Height)
	}

	f, err := fitsio.Create(e.w)
	if err != nil {
		return err
	}
	defer f.Close()

	// NAXIS1 is the fastest varying axis, so a row-major [height, width]
	// array is declared as {width, height}.
	hdu := fitsio.NewImage(bitpix, []int{img.Width, img.Height})
	defer hdu.Close()

	var cards []fitsio.Card
	if z := bzero(bitpix); z != 0 {
		cards = append(cards,
			fitsio.Card{Name: "BZERO", Value: int(z), Comment: "offset data range to that of unsigned"},
			fitsio.Card{Name: "BSCALE", Value: 1, Comment: "default scaling factor"},
		)
	}
	cards = append(cards, img.Cards...)

	if len(cards) > 0 {
		err = hdu.Header().Append(cards...)
		if err != nil {
			return err
		}
	}

	err = hdu.Write(data)
	if err != nil {
		return err
	}

	return f.Write(hdu)
}

// signed shifts unsigned samples into the signed range FITS stores, the
// inverse of applying BZERO. 8 bit samples keep their bit pattern.
func signed(pixels interface{}) (interface{}, int) {
	switch pixels := pixels.(type) {
	case []uint8:
		out := make([]int8, len(pixels))
		for i, v := range pixels {
			out[i] = int8(v)
		}
		return out, len(out)
	case []uint16:
		out := make([]int16, len(pixels))
		for i, v := range pixels {
			out[i] = int16(v ^ 0x8000)
		}
		return out, len(out)
	case []uint32:
		out := make([]int32, len(pixels))
		for i, v := range pixels {
			out[i] = int32(v ^ 0x80000000)
		}
		return out, len(out)
	}

	return nil, 0
}
