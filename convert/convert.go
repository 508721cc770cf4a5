// Package convert turns a SER capture into one FITS file per frame.
package convert

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/astrogo/fitsio"
	"github.com/rickbassham/ser2fits/fits"
	"github.com/rickbassham/ser2fits/ser"
	log "github.com/sirupsen/logrus"
)

var (
	ErrOutputWrite        = errors.New("output write failure")
	ErrIncompatibleOutput = fmt.Errorf("%w: existing file is incompatible", ErrOutputWrite)
)

// Result describes a finished decode.
type Result struct {
	Header ser.Header
	Files  []string
}

// FrameName is the output file name for frame i.
func FrameName(i int) string {
	return fmt.Sprintf("decoded_%04d.fits", i)
}

// DecodeFile decodes the SER file at input into outputDir.
func DecodeFile(input, outputDir string, opts ...Option) (Result, error) {
	f, err := os.Open(input)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	return Decode(f, outputDir, append([]Option{WithSourceName(input)}, opts...)...)
}

// Decode reads a SER stream and writes each frame to outputDir, which must
// exist. Frames written before a failure are left in place.
func Decode(r io.Reader, outputDir string, opts ...Option) (res Result, err error) {
	c := config{logger: log.StandardLogger()}
	for _, opt := range opts {
		opt(&c)
	}

	d := ser.NewDecoder(bufio.NewReader(r))

	h, err := d.ReadHeader()
	if err != nil {
		return res, err
	}
	h.Name = c.name
	res.Header = h

	err = h.Validate()
	if err != nil {
		return res, err
	}

	logger := c.logger.WithFields(log.Fields{
		"source": h.Name,
		"width":  h.Width,
		"height": h.Height,
		"depth":  h.PixelDepth,
		"frames": h.FrameCount,
	})

	logger.Info("decoding ser file")

	if h.LittleEndian == 0 {
		logger.Warn("header declares big endian samples; decoding as little endian")
	}

	cards := headerCards(h)
	total := int(h.FrameCount)

	for i := 0; i < total; i++ {
		frame, err := d.ReadFrame(h, i)
		if err != nil {
			return res, err
		}

		samples, err := frame.Samples()
		if err != nil {
			return res, err
		}

		path := filepath.Join(outputDir, FrameName(i))

		logger.WithField("file", path).Debugf("writing frame %d/%d", i+1, total)

		err = writeFrame(path, fits.Image{
			Width:  frame.Width,
			Height: frame.Height,
			Pixels: samples,
			Cards:  append(cards, fitsio.Card{Name: "FRAMENUM", Value: i, Comment: "frame index in source"}),
		})
		if err != nil {
			return res, err
		}

		res.Files = append(res.Files, path)

		if c.progress != nil {
			c.progress(i+1, total)
		}
	}

	logger.Infof("wrote %d fits files to %s", len(res.Files), outputDir)

	return res, nil
}

func headerCards(h ser.Header) []fitsio.Card {
	var cards []fitsio.Card

	if h.Observer != "" {
		cards = append(cards, fitsio.Card{Name: "OBSERVER", Value: h.Observer})
	}

	if h.Instrument != "" {
		cards = append(cards, fitsio.Card{Name: "INSTRUME", Value: h.Instrument})
	}

	if h.Telescope != "" {
		cards = append(cards, fitsio.Card{Name: "TELESCOP", Value: h.Telescope})
	}

	if at, ok := h.ObservedAt(); ok {
		cards = append(cards, fitsio.Card{Name: "DATE-OBS", Value: at.Format("2006-01-02T15:04:05.000000"), Comment: "UTC start of capture"})
	}

	cards = append(cards, fitsio.Card{Name: "COLORID", Value: int(h.ColorID), Comment: "SER color id"})

	if h.Name != "" {
		cards = append(cards, fitsio.Card{Name: "SERFILE", Value: filepath.Base(h.Name)})
	}

	// callers append per frame cards
	return cards[:len(cards):len(cards)]
}
