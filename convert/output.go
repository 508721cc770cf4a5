package convert

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rickbassham/ser2fits/fits"
)

const newFileMode os.FileMode = 0644

// writeFrame writes img to path. An existing file is replaced only when its
// layout matches img. The new content goes to a temporary file in the same
// directory first so a failed write never leaves a partial file at path.
func writeFrame(path string, img fits.Image) error {
	bitpix, err := fits.Bitpix(img.Pixels)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrOutputWrite, path, err)
	}

	mode, err := checkExisting(path, bitpix, img.Width, img.Height)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOutputWrite, err)
	}

	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	err = fits.NewEncoder(tmp).Encode(img)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrOutputWrite, path, err)
	}

	err = tmp.Close()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrOutputWrite, path, err)
	}

	// CreateTemp uses 0600.
	err = os.Chmod(tmp.Name(), mode)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrOutputWrite, path, err)
	}

	err = os.Rename(tmp.Name(), path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrOutputWrite, path, err)
	}

	committed = true

	return nil
}

// checkExisting validates a file already at path and returns the mode the
// replacement should get.
func checkExisting(path string, bitpix, width, height int) (os.FileMode, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return newFileMode, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrOutputWrite, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrOutputWrite, err)
	}

	info, err := fits.NewDecoder(f).ReadImageInfo()
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrIncompatibleOutput, path, err)
	}

	err = info.Compatible(bitpix, width, height)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrIncompatibleOutput, path, err)
	}

	return st.Mode().Perm(), nil
}
