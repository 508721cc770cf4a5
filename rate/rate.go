package rate

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/rickbassham/ser2fits/fits"
	log "github.com/sirupsen/logrus"
	"github.com/yargevad/filepathx"
)

var ErrInvalidPercent = errors.New("percent must be in (0, 100]")

// Rating is the sharpness score of one FITS file.
type Rating struct {
	Path  string
	Score float64
}

// RateFile scores the primary image of the FITS file at path.
func RateFile(path string) (Rating, error) {
	f, err := os.Open(path)
	if err != nil {
		return Rating{}, err
	}
	defer f.Close()

	img, err := fits.NewDecoder(f).ReadImage()
	if err != nil {
		return Rating{}, fmt.Errorf("reading %s: %w", path, err)
	}

	score, err := Score(img)
	if err != nil {
		return Rating{}, fmt.Errorf("rating %s: %w", path, err)
	}

	return Rating{Path: path, Score: score}, nil
}

// RateDir scores every .fits file in dir, sharpest first. Files that are not
// unsigned 2D images, or are too small to rate, are skipped.
func RateDir(dir string, opts ...Option) ([]Rating, error) {
	c := newConfig(opts)

	files, err := filepathx.Glob(filepath.Join(dir, "*.fits"))
	if err != nil {
		return nil, err
	}

	ratings := make([]Rating, 0, len(files))

	for _, file := range files {
		r, err := RateFile(file)
		if errors.Is(err, fits.ErrUnsupported) || errors.Is(err, ErrTooSmall) {
			c.logger.Warnf("skipping %s: %v", file, err)
			continue
		}
		if err != nil {
			return nil, err
		}

		c.logger.WithField("file", file).Debugf("score %f", r.Score)
		ratings = append(ratings, r)
	}

	sort.SliceStable(ratings, func(i, j int) bool {
		if ratings[i].Score != ratings[j].Score {
			return ratings[i].Score > ratings[j].Score
		}
		return ratings[i].Path < ratings[j].Path
	})

	return ratings, nil
}

// Best returns the top percent of ratings, which must already be sorted.
// At least one is kept when there is any.
func Best(ratings []Rating, percent float64) []Rating {
	n := int(float64(len(ratings)) * percent / 100)
	if n == 0 && len(ratings) > 0 {
		n = 1
	}
	if n > len(ratings) {
		n = len(ratings)
	}

	return ratings[:n]
}

// Run rates the frames in inputDir and copies the sharpest percent of them
// into outputDir, which must exist. Copies replace files of the same name.
func Run(inputDir, outputDir string, percent float64, opts ...Option) ([]Rating, error) {
	if !(percent > 0 && percent <= 100) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPercent, percent)
	}

	c := newConfig(opts)

	ratings, err := RateDir(inputDir, opts...)
	if err != nil {
		return nil, err
	}

	best := Best(ratings, percent)

	for _, r := range best {
		err = copyFile(r.Path, filepath.Join(outputDir, filepath.Base(r.Path)))
		if err != nil {
			return nil, err
		}
	}

	c.logger.Infof("kept %d of %d frames from %s in %s", len(best), len(ratings), inputDir, outputDir)

	return best, nil
}

func newConfig(opts []Option) config {
	c := config{logger: log.StandardLogger()}
	for _, opt := range opts {
		opt(&c)
	}

	return c
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	_, err = io.Copy(out, in)
	if err != nil {
		out.Close()
		return fmt.Errorf("copying %s to %s: %w", src, dst, err)
	}

	return out.Close()
}
