// Package arrays persists significance curves as flat text arrays, one value
// per line, in the layout numpy.savetxt produces.
package arrays

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"llrscan/adapters/samples"
	domain "llrscan/domain/separation"
	"llrscan/internal"
	"llrscan/internal/errors"
)

// Study names the x axis of a set of curves
type Study string

const (
	StudyLuminosity Study = "ZvsNeft"
	StudyThreshold  Study = "ZvsPcut"
)

// xName is the file stem of the x array of each study
func (s Study) xName() string {
	if s == StudyThreshold {
		return "prob_threshold"
	}
	return "luminosity"
}

// Curves are the x values and the three significance curves of one scan
type Curves struct {
	X            []float64
	NSigma       []float64
	NSigmaNoBeta []float64
	NSigmaExact  []float64
}

// FromResult extracts the curves of a scan; the x axis follows the study
func FromResult(study Study, res *domain.ScanResult) Curves {
	x := res.Luminosities()
	if study == StudyThreshold {
		x = res.Thresholds()
	}
	return Curves{
		X:            x,
		NSigma:       res.NSigma(),
		NSigmaNoBeta: res.NSigmaNoBeta(),
		NSigmaExact:  res.NSigmaExact(),
	}
}

// Store reads and writes curves under one directory
type Store struct {
	dir    string
	logger *internal.Logger
}

// NewStore creates a store rooted at dir
func NewStore(dir string, logger *internal.Logger) *Store {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Store{dir: dir, logger: logger.With("arrays")}
}

// Paths returns the four file paths of a study, x array first
func (s *Store) Paths(study Study, ext string) [4]string {
	name := func(stem string) string {
		return filepath.Join(s.dir, fmt.Sprintf("%s%s_arr%s.txt", stem, study, ext))
	}
	return [4]string{
		name(study.xName()),
		name("nstdevs"),
		name("nstdevs_no_beta"),
		name("nstdevs_exact"),
	}
}

// Save writes the four arrays and returns their paths
func (s *Store) Save(study Study, ext string, c Curves) ([]string, error) {
	n := len(c.X)
	if len(c.NSigma) != n || len(c.NSigmaNoBeta) != n || len(c.NSigmaExact) != n {
		return nil, errors.InvalidInput(fmt.Sprintf("curve lengths differ: %d/%d/%d/%d",
			n, len(c.NSigma), len(c.NSigmaNoBeta), len(c.NSigmaExact)))
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, errors.IOError(s.dir, err)
	}

	paths := s.Paths(study, ext)
	for i, values := range [][]float64{c.X, c.NSigma, c.NSigmaNoBeta, c.NSigmaExact} {
		if err := writeArray(paths[i], values); err != nil {
			return nil, err
		}
	}
	s.logger.Info("saved %d-point %s curves to %s", n, study, s.dir)
	return paths[:], nil
}

// Load reads back the four arrays written by Save
func (s *Store) Load(study Study, ext string) (Curves, error) {
	paths := s.Paths(study, ext)
	var loaded [4][]float64
	for i, p := range paths {
		values, err := readArray(p)
		if err != nil {
			return Curves{}, err
		}
		loaded[i] = values
	}
	c := Curves{X: loaded[0], NSigma: loaded[1], NSigmaNoBeta: loaded[2], NSigmaExact: loaded[3]}
	if len(c.NSigma) != len(c.X) || len(c.NSigmaNoBeta) != len(c.X) || len(c.NSigmaExact) != len(c.X) {
		return Curves{}, errors.InvalidInput(fmt.Sprintf("arrays for %s%s have mismatched lengths", study, ext))
	}
	return c, nil
}

func writeArray(path string, values []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.IOError(path, err)
	}
	w := bufio.NewWriter(f)
	for _, v := range values {
		fmt.Fprintf(w, "%.18e\n", v)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return errors.IOError(path, err)
	}
	if err := f.Close(); err != nil {
		return errors.IOError(path, err)
	}
	return nil
}

func readArray(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.IOError(path, err)
	}
	defer f.Close()
	return samples.ParseText(f, path)
}
