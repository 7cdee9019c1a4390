// Package samples loads classifier-score samples from text, CSV or Excel files.
package samples

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"llrscan/internal"
	"llrscan/internal/errors"

	"github.com/xuri/excelize/v2"
)

// File types understood by the reader
const (
	TypeText = "txt"
	TypeCSV  = "csv"
	TypeXLSX = "xlsx"
)

// Reader reads one sample array from a file. Text files hold whitespace
// separated values with optional '#' comments; CSV and Excel files are read
// from their first column, skipping rows that do not parse as numbers.
type Reader struct {
	filePath string
	fileType string
	logger   *internal.Logger
}

// NewReader picks the file type from the extension; anything that is not
// .csv or .xlsx is read as text
func NewReader(filePath string, logger *internal.Logger) *Reader {
	fileType := TypeText
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".csv":
		fileType = TypeCSV
	case ".xlsx":
		fileType = TypeXLSX
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Reader{filePath: filePath, fileType: fileType, logger: logger.With("samples")}
}

// Read returns every finite value in the file, in file order
func (r *Reader) Read() ([]float64, error) {
	start := time.Now()
	if _, err := os.Stat(r.filePath); err != nil {
		return nil, errors.IOError(r.filePath, err)
	}

	var (
		values []float64
		err    error
	)
	switch r.fileType {
	case TypeXLSX:
		values, err = r.readExcel()
	case TypeCSV:
		values, err = r.readCSV()
	default:
		values, err = r.readText()
	}
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, errors.InvalidInput(fmt.Sprintf("%s contains no numeric samples", r.filePath))
	}
	r.logger.Info("read %d samples from %s (%s) in %.2fms", len(values), r.filePath, r.fileType,
		float64(time.Since(start).Nanoseconds())/1e6)
	return values, nil
}

func (r *Reader) readText() ([]float64, error) {
	f, err := os.Open(r.filePath)
	if err != nil {
		return nil, errors.IOError(r.filePath, err)
	}
	defer f.Close()
	values, err := ParseText(f, r.filePath)
	if err != nil {
		return nil, err
	}
	finite := values[:0]
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if skipped := len(values) - len(finite); skipped > 0 {
		r.logger.Debug("skipped %d non-finite values in %s", skipped, r.filePath)
	}
	return finite, nil
}

// ParseText reads whitespace separated floats. Text after '#' on a line is ignored.
// NaN and Inf tokens are kept so arrays round-trip position for position.
func ParseText(in io.Reader, name string) ([]float64, error) {
	var values []float64
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		for _, field := range strings.Fields(text) {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, errors.InvalidInput(fmt.Sprintf("%s:%d: %q is not a number", name, line, field))
			}
			values = append(values, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.IOError(name, err)
	}
	return values, nil
}

func (r *Reader) readCSV() ([]float64, error) {
	f, err := os.Open(r.filePath)
	if err != nil {
		return nil, errors.IOError(r.filePath, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(errors.InvalidInput(err.Error()), "failed to read CSV file %s", r.filePath)
	}
	return r.firstColumn(rows), nil
}

// readExcel reads the first column of Sheet1
func (r *Reader) readExcel() ([]float64, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, errors.IOError(r.filePath, err)
	}
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	if err != nil {
		return nil, errors.Wrapf(errors.InvalidInput(err.Error()), "failed to read Sheet1 of %s", r.filePath)
	}
	return r.firstColumn(rows), nil
}

func (r *Reader) firstColumn(rows [][]string) []float64 {
	values := make([]float64, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[0]), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			skipped++
			continue
		}
		values = append(values, v)
	}
	if skipped > 0 {
		r.logger.Debug("skipped %d non-numeric rows in %s", skipped, r.filePath)
	}
	return values
}

// Rescale maps [minimum, 1] onto [0, 1] with (x - minimum)/(1 - minimum).
// A zero minimum returns the samples unchanged.
func Rescale(samples []float64, minimum float64) ([]float64, error) {
	if minimum == 0 {
		return samples, nil
	}
	if minimum >= 1 || minimum < 0 {
		return nil, errors.ConfigInvalid(fmt.Sprintf("sample minimum %g must lie in [0, 1)", minimum))
	}
	out := make([]float64, len(samples))
	for i, v := range samples {
		out[i] = (v - minimum) / (1 - minimum)
	}
	return out, nil
}

// Load reads a sample file and applies Rescale
func Load(path string, minimum float64, logger *internal.Logger) ([]float64, error) {
	values, err := NewReader(path, logger).Read()
	if err != nil {
		return nil, err
	}
	return Rescale(values, minimum)
}
