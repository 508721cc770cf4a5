// Package rate scores decoded frames by sharpness and keeps the best ones.
package rate

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math/bits"

	"github.com/disintegration/gift"
	"github.com/rickbassham/ser2fits/fits"
)

// blurSigma matches a 5x5 Gaussian kernel.
const blurSigma = 1.1

var ErrTooSmall = errors.New("image too small to rate")

// Score is the variance of the Laplacian of the lightly blurred frame. Higher
// means sharper.
func Score(img fits.Image) (float64, error) {
	if img.Width < 3 || img.Height < 3 {
		return 0, fmt.Errorf("%w: %dx%d", ErrTooSmall, img.Width, img.Height)
	}

	src, err := gray16(img)
	if err != nil {
		return 0, err
	}

	blurred := image.NewGray16(src.Bounds())
	gift.New(gift.GaussianBlur(blurSigma)).Draw(blurred, src)

	return laplacianVariance(blurred), nil
}

// gray16 scales samples of any supported depth onto 16 bits. 32 bit frames
// are shifted by the least amount that fits their brightest pixel.
func gray16(img fits.Image) (*image.Gray16, error) {
	g := image.NewGray16(image.Rect(0, 0, img.Width, img.Height))

	var at func(i int) uint16

	switch px := img.Pixels.(type) {
	case []uint8:
		at = func(i int) uint16 { return uint16(px[i]) * 257 }
	case []uint16:
		at = func(i int) uint16 { return px[i] }
	case []uint32:
		// keep the top 16 significant bits of the frame's brightest pixel
		var peak uint32
		for _, v := range px {
			if v > peak {
				peak = v
			}
		}
		shift := 0
		if l := bits.Len32(peak); l > 16 {
			shift = l - 16
		}
		at = func(i int) uint16 { return uint16(px[i] >> shift) }
	default:
		return nil, fmt.Errorf("unsupported pixel type %T", img.Pixels)
	}

	if n := pixelCount(img.Pixels); n != img.Width*img.Height {
		return nil, fmt.Errorf("%w: %d pixels for %dx%d", fits.ErrImageSize, n, img.Width, img.Height)
	}

	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			g.SetGray16(x, y, color.Gray16{Y: at(y*img.Width + x)})
		}
	}

	return g, nil
}

func pixelCount(pixels interface{}) int {
	switch px := pixels.(type) {
	case []uint8:
		return len(px)
	case []uint16:
		return len(px)
	case []uint32:
		return len(px)
	}

	return 0
}

// laplacianVariance applies the 4-neighbour Laplacian to every interior pixel
// and returns the variance of the responses.
func laplacianVariance(g *image.Gray16) float64 {
	b := g.Bounds()
	values := make([]float64, 0, (b.Dx()-2)*(b.Dy()-2))

	y16 := func(x, y int) float64 { return float64(g.Gray16At(x, y).Y) }

	for y := b.Min.Y + 1; y < b.Max.Y-1; y++ {
		for x := b.Min.X + 1; x < b.Max.X-1; x++ {
			v := -4*y16(x, y) + y16(x, y-1) + y16(x, y+1) + y16(x-1, y) + y16(x+1, y)
			values = append(values, v)
		}
	}

	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}

	return variance / float64(len(values))
}
