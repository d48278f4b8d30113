package data

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"covertype/pkg/dataprep"
)

// CSVOptions selects the columns of a CSV file with a header row.
type CSVOptions struct {
	// Target is the name of the label column.
	Target string
	// Features lists the feature columns in order. Empty means every column
	// except Target and Skip.
	Features []string
	// Skip names columns to ignore, such as row identifiers.
	Skip []string
}

// ReadCSV decodes a labeled dataset. Any malformed feature cell fails the read.
func ReadCSV(r io.Reader, opts CSVOptions) (*Dataset, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrapf(ErrRetrieval, "read csv header: %v", err)
	}
	position := make(map[string]int, len(header))
	for i, h := range header {
		position[strings.TrimSpace(h)] = i
	}

	labelCol, ok := position[opts.Target]
	if !ok {
		return nil, errors.Wrapf(ErrRetrieval, "target column %q not in header", opts.Target)
	}

	featureNames := opts.Features
	if len(featureNames) == 0 {
		skip := map[string]struct{}{opts.Target: {}}
		for _, s := range opts.Skip {
			skip[s] = struct{}{}
		}
		for _, h := range header {
			h = strings.TrimSpace(h)
			if _, ok := skip[h]; !ok {
				featureNames = append(featureNames, h)
			}
		}
	}
	featureCols := make([]int, len(featureNames))
	for i, name := range featureNames {
		col, ok := position[name]
		if !ok {
			return nil, errors.Wrapf(ErrRetrieval, "feature column %q not in header", name)
		}
		featureCols[i] = col
	}

	var (
		X   [][]float64
		raw []string
	)
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(ErrRetrieval, "csv line %d: %v", line, err)
		}

		x := make([]float64, len(featureCols))
		for i, col := range featureCols {
			v, err := dataprep.ParseFeature(rec[col])
			if err != nil {
				return nil, errors.Wrapf(ErrRetrieval, "csv line %d, column %q: %v", line, featureNames[i], err)
			}
			x[i] = v
		}
		X = append(X, x)
		raw = append(raw, rec[labelCol])
	}
	if len(X) == 0 {
		return nil, errors.Wrap(ErrRetrieval, "csv has no data rows")
	}

	y, classes := dataprep.EncodeTarget(raw)
	return &Dataset{FeatureNames: featureNames, X: X, Y: y, Classes: classes}, nil
}

// CSVProvider loads datasets from local CSV files. The dataset id is the file path.
type CSVProvider struct {
	Options CSVOptions
	Logger  *zap.Logger
}

// NewCSVProvider returns a provider reading files with the given column layout.
func NewCSVProvider(opts CSVOptions, logger *zap.Logger) *CSVProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVProvider{Options: opts, Logger: logger}
}

// Fetch reads the CSV file at path.
func (p *CSVProvider) Fetch(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(ErrRetrieval, "open %s: %v", path, err)
	}
	defer file.Close()

	ds, err := ReadCSV(file, p.Options)
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	ds.Name = path
	p.Logger.Debug("loaded csv dataset", zap.String("path", path), zap.Int("rows", ds.Len()), zap.Int("features", ds.NumFeatures()))
	return ds, nil
}
