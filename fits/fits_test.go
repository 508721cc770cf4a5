package fits_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/astrogo/fitsio"
	"github.com/rickbassham/ser2fits/common"
	"github.com/rickbassham/ser2fits/fits"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pixels reads the primary image back as unsigned samples.
func pixels(t *testing.T, b []byte) (bitpix int, axes []int, out []uint64) {
	t.Helper()

	f, err := fitsio.Open(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	img, ok := f.HDU(0).(fitsio.Image)
	require.True(t, ok)

	bitpix = img.Header().Bitpix()
	axes = append(axes, img.Header().Axes()...)
	raw := img.Raw()

	n := 1
	for _, dim := range axes {
		n *= dim
	}

	size := bitpix / 8
	require.GreaterOrEqual(t, len(raw), n*size)

	out = make([]uint64, n)
	for i := range out {
		chunk := raw[i*size : (i+1)*size]
		switch size {
		case 1:
			out[i] = uint64(chunk[0])
		case 2:
			out[i] = uint64(binary.BigEndian.Uint16(chunk) ^ 0x8000)
		case 4:
			out[i] = uint64(binary.BigEndian.Uint32(chunk) ^ 0x80000000)
		}
	}

	return bitpix, axes, out
}

func TestEncode(t *testing.T) {
	for _, tc := range []struct {
		name     string
		pixels   interface{}
		bitpix   int
		bzero    int64
		expected []uint64
	}{
		{
			name:     "8 bit",
			pixels:   []uint8{0, 1, 127, 128, 200, 255},
			bitpix:   8,
			expected: []uint64{0, 1, 127, 128, 200, 255},
		},
		{
			name:     "16 bit",
			pixels:   []uint16{0, 1, 0x1234, 0x7FFF, 0x8000, 0xFFFF},
			bitpix:   16,
			bzero:    32768,
			expected: []uint64{0, 1, 0x1234, 0x7FFF, 0x8000, 0xFFFF},
		},
		{
			name:     "32 bit",
			pixels:   []uint32{0, 1, 0x12345678, 0x7FFFFFFF, 0x80000000, 0xFFFFFFFF},
			bitpix:   32,
			bzero:    2147483648,
			expected: []uint64{0, 1, 0x12345678, 0x7FFFFFFF, 0x80000000, 0xFFFFFFFF},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer

			err := fits.NewEncoder(&buf).Encode(fits.Image{
				Width:  3,
				Height: 2,
				Pixels: tc.pixels,
				Cards:  []fitsio.Card{{Name: "OBSERVER", Value: "Jane Doe"}},
			})
			require.NoError(t, err)

			bitpix, axes, got := pixels(t, buf.Bytes())
			assert.Equal(t, tc.bitpix, bitpix)
			assert.Equal(t, []int{3, 2}, axes)
			assert.Equal(t, tc.expected, got)

			info, err := fits.NewDecoder(bytes.NewReader(buf.Bytes())).ReadImageInfo()
			require.NoError(t, err)
			assert.Equal(t, "Jane Doe", info.Header["OBSERVER"])

			if tc.bzero != 0 {
				z, err := info.Header.Int64("BZERO")
				require.NoError(t, err)
				assert.Equal(t, tc.bzero, z)
			} else {
				assert.NotContains(t, info.Header, "BZERO")
			}

			assert.NoError(t, info.Compatible(tc.bitpix, 3, 2))

			back, err := fits.NewDecoder(bytes.NewReader(buf.Bytes())).ReadImage()
			require.NoError(t, err)
			assert.Equal(t, 3, back.Width)
			assert.Equal(t, 2, back.Height)
			assert.Equal(t, tc.pixels, back.Pixels)
		})
	}
}

func TestReadImageSigned(t *testing.T) {
	var buf bytes.Buffer

	f, err := fitsio.Create(&buf)
	require.NoError(t, err)

	img := fitsio.NewImage(16, []int{2, 1})
	require.NoError(t, img.Write([]int16{-1, 1}))
	require.NoError(t, f.Write(img))
	require.NoError(t, img.Close())
	require.NoError(t, f.Close())

	_, err = fits.NewDecoder(bytes.NewReader(buf.Bytes())).ReadImage()
	assert.ErrorIs(t, err, fits.ErrUnsupported)
}

func TestEncodeSizeMismatch(t *testing.T) {
	var buf bytes.Buffer

	err := fits.NewEncoder(&buf).Encode(fits.Image{Width: 2, Height: 2, Pixels: []uint16{1, 2, 3}})
	assert.ErrorIs(t, err, fits.ErrImageSize)
	assert.Zero(t, buf.Len())
}

func TestEncodeUnsupportedType(t *testing.T) {
	var buf bytes.Buffer

	err := fits.NewEncoder(&buf).Encode(fits.Image{Width: 1, Height: 1, Pixels: []float32{1}})
	assert.Error(t, err)
}

func TestCompatible(t *testing.T) {
	for _, tc := range []struct {
		name      string
		info      fits.ImageInfo
		expectErr bool
	}{
		{
			name: "matching 16 bit",
			info: fits.ImageInfo{Bitpix: 16, Axes: []int{4, 3}, Header: common.Header{"BZERO": 32768}},
		},
		{
			name:      "different bitpix",
			info:      fits.ImageInfo{Bitpix: 8, Axes: []int{4, 3}, Header: common.Header{}},
			expectErr: true,
		},
		{
			name:      "swapped axes",
			info:      fits.ImageInfo{Bitpix: 16, Axes: []int{3, 4}, Header: common.Header{"BZERO": 32768}},
			expectErr: true,
		},
		{
			name:      "cube",
			info:      fits.ImageInfo{Bitpix: 16, Axes: []int{4, 3, 2}, Header: common.Header{"BZERO": 32768}},
			expectErr: true,
		},
		{
			name:      "signed 16 bit",
			info:      fits.ImageInfo{Bitpix: 16, Axes: []int{4, 3}, Header: common.Header{}},
			expectErr: true,
		},
		{
			name: "float bzero",
			info: fits.ImageInfo{Bitpix: 16, Axes: []int{4, 3}, Header: common.Header{"BZERO": 32768.0}},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.info.Compatible(16, 4, 3)
			if tc.expectErr {
				assert.ErrorIs(t, err, fits.ErrIncompatible)
				return
			}

			assert.NoError(t, err)
		})
	}
}
