package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/profile"
	"github.com/rickbassham/ser2fits/convert"
	"github.com/rickbassham/ser2fits/rate"
	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"
	"github.com/yargevad/filepathx"
)

var (
	input  = flag.String("input", "*.ser", "Glob to match SER files. ** matches any number of directories.")
	output = flag.String("output", "fits_out", "Directory to write FITS files to. Created if missing.")

	ratePercent = flag.Float64("rate", 0, "After decoding, copy the sharpest percent of frames to -best. 0 disables rating.")
	best        = flag.String("best", "best", "Directory to copy the sharpest frames to. Created if missing.")

	debug        = flag.Bool("debug", false, "Enable debug logging")
	showProgress = flag.Bool("progress", false, "Show a progress bar per input file.")
	profileMode  = flag.String("profile", "", "Write a cpu or mem profile to the current directory.")
)

// outputDir picks where frames of file go under root. With several inputs
// each one gets its own directory so frame names do not collide.
func outputDir(root, file string, multiple bool) string {
	if !multiple {
		return root
	}

	base := filepath.Base(file)
	return filepath.Join(root, strings.TrimSuffix(base, filepath.Ext(base)))
}

// makeDir creates dir with the permissions of the input's directory.
func makeDir(file, dir string) error {
	fullPath, err := filepath.Abs(file)
	if err != nil {
		return err
	}

	d, err := os.Stat(filepath.Dir(fullPath))
	if err != nil {
		return fmt.Errorf("unable to access %s; %w", file, err)
	}

	perm := d.Mode() & os.ModePerm

	err = os.MkdirAll(dir, perm)
	if err != nil && !os.IsExist(err) {
		return fmt.Errorf("unable to create %s; %w", dir, err)
	}

	return nil
}

func handleFile(file string, multiple bool) error {
	if strings.HasPrefix(filepath.Base(file), ".") {
		log.Infof("skipping dotfile %s", file)
		return nil
	}

	if !strings.EqualFold(filepath.Ext(file), ".ser") {
		log.Warnf("skipping %s; only .ser files can be decoded", file)
		return nil
	}

	dir := outputDir(*output, file, multiple)

	err := makeDir(file, dir)
	if err != nil {
		return err
	}

	opts := []convert.Option{convert.WithLogger(log.StandardLogger())}

	if *showProgress {
		var bar *progressbar.ProgressBar
		opts = append(opts, convert.WithProgress(func(done, total int) {
			if bar == nil {
				bar = progressbar.Default(int64(total), filepath.Base(file))
			}
			_ = bar.Set(done)
		}))
	}

	res, err := convert.DecodeFile(file, dir, opts...)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", file, err)
	}

	log.Infof("decoded %s into %d frames", file, len(res.Files))

	if *ratePercent == 0 {
		return nil
	}

	bestDir := outputDir(*best, file, multiple)

	err = makeDir(file, bestDir)
	if err != nil {
		return err
	}

	_, err = rate.Run(dir, bestDir, *ratePercent, rate.WithLogger(log.StandardLogger()))
	if err != nil {
		return fmt.Errorf("rating %s: %w", dir, err)
	}

	return nil
}

func run() error {
	switch *profileMode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileHeap, profile.ProfilePath(".")).Stop()
	default:
		return fmt.Errorf("unknown profile mode %q", *profileMode)
	}

	if *ratePercent < 0 || *ratePercent > 100 {
		return fmt.Errorf("%w: %v", rate.ErrInvalidPercent, *ratePercent)
	}

	log.Infof("searching for files matching %s", *input)

	files, err := filepathx.Glob(*input)
	if err != nil {
		return err
	}

	log.Infof("found %d matching files", len(files))

	if len(files) == 0 {
		return fmt.Errorf("no files match %s", *input)
	}

	failed := 0
	for _, file := range files {
		err := handleFile(file, len(files) > 1)
		if err != nil {
			log.Error(err)
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}

	return nil
}

func main() {
	flag.Parse()

	if *debug {
		log.SetLevel(log.DebugLevel)
	}

	if *input == "" || *output == "" {
		flag.Usage()
		log.Fatal("See usage.")
	}

	err := run()
	if err != nil {
		log.Fatalln(err.Error())
	}

	log.Info("done")
}
