package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ReadCSV parses numeric rows whose last column is the target. A first row
// that does not parse as numbers is treated as a header and skipped.
func ReadCSV(r io.Reader) (*mat.Dense, []float64, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, invalid(fmt.Errorf("read csv: %w", err))
	}
	if len(records) > 0 && !isNumericRow(records[0]) {
		records = records[1:]
	}
	if len(records) == 0 {
		return nil, nil, invalid(fmt.Errorf("csv has no data rows"))
	}

	cols := len(records[0])
	if cols < 2 {
		return nil, nil, invalid(fmt.Errorf("csv needs at least one feature and one target column, got %d", cols))
	}

	x := mat.NewDense(len(records), cols-1, nil)
	y := make([]float64, len(records))
	for i, rec := range records {
		if len(rec) != cols {
			return nil, nil, invalid(fmt.Errorf("row %d has %d columns, expected %d", i+1, len(rec), cols))
		}
		for j, field := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, nil, invalid(fmt.Errorf("row %d column %d: %w", i+1, j+1, err))
			}
			if j == cols-1 {
				y[i] = v
			} else {
				x.Set(i, j, v)
			}
		}
	}
	return x, y, nil
}

// LoadCSV reads training data and, when testPath is non-empty, held-out data.
func LoadCSV(trainPath, testPath string) (*Dataset, error) {
	trainX, trainY, err := readCSVFile(trainPath)
	if err != nil {
		return nil, err
	}

	var opts []Option
	if testPath != "" {
		testX, testY, err := readCSVFile(testPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithTest(testX, testY))
	}
	return New(trainX, trainY, opts...)
}

func readCSVFile(path string) (*mat.Dense, []float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	x, y, err := ReadCSV(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return x, y, nil
}

func isNumericRow(rec []string) bool {
	for _, field := range rec {
		if _, err := strconv.ParseFloat(strings.TrimSpace(field), 64); err != nil {
			return false
		}
	}
	return true
}
