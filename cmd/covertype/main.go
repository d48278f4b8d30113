// Command covertype fetches the Covertype dataset, optionally rebalances its
// classes, writes t-SNE and UMAP projections and reports how well a random
// forest classifies it.
//
//	covertype [flags] [none|under|over ...]
//
// Several modes run one after the other on a single download, each writing
// its images to <out>/<mode>.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"covertype/pkg/config"
	"covertype/pkg/logging"
	"covertype/pkg/sampling"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, modes, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, "covertype:", err)
		return 1
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintln(stderr, "covertype:", err)
		return 1
	}
	defer logger.Sync() //nolint:errcheck
	logger.Info("starting", append(logging.HostFields(), zap.Stringers("modes", modes))...)

	provider, id, err := newProvider(cfg.Dataset, logger)
	if err != nil {
		logger.Error("setup failed", zap.Error(err))
		fmt.Fprintln(stderr, "covertype:", err)
		return 1
	}
	if err := runModes(cfg, modes, provider, id, stdout, logger); err != nil {
		logger.Error("run failed", zap.Error(err))
		fmt.Fprintln(stderr, "covertype:", err)
		return 1
	}
	return 0
}

// parseArgs loads the config file, applies the flags that were set on top of
// it and parses the balancing modes. No mode means none.
func parseArgs(args []string, stderr io.Writer) (*config.Config, []sampling.Mode, error) {
	fs := flag.NewFlagSet("covertype", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: covertype [flags] [none|under|over ...]")
		fs.PrintDefaults()
	}

	configPath := fs.String("config", "", "YAML configuration file")
	datasetID := fs.String("dataset-id", "", "UCI dataset id")
	csvPath := fs.String("csv", "", "read the dataset from a local CSV file instead of UCI")
	target := fs.String("target", "", "target column of the CSV file")
	outDir := fs.String("out", "", "directory for tsne.png and umap.png")
	noShow := fs.Bool("no-show", false, "do not open the images after saving them")
	noPlots := fs.Bool("no-plots", false, "skip the projections")
	maxSamples := fs.Int("max-samples", 0, "rows projected at most, 0 projects every row")
	logLevel := fs.String("log-level", "", "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	modes, err := parseModes(fs.Args())
	if err != nil {
		return nil, nil, err
	}

	cfg := config.Default()
	if *configPath != "" {
		if cfg, err = config.Load(*configPath); err != nil {
			return nil, nil, err
		}
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["dataset-id"] {
		cfg.Dataset.Source, cfg.Dataset.ID = "uci", *datasetID
	}
	if set["csv"] {
		cfg.Dataset.Source, cfg.Dataset.Path = "csv", *csvPath
	}
	if set["target"] {
		cfg.Dataset.Target = *target
	}
	if set["out"] {
		cfg.Visualize.OutDir = *outDir
	}
	if *noShow {
		cfg.Visualize.Show = false
	}
	if *noPlots {
		cfg.Visualize.Enabled = false
	}
	if set["max-samples"] {
		cfg.Visualize.MaxSamples = *maxSamples
	}
	if set["log-level"] {
		cfg.Log.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, modes, nil
}

// parseModes parses the positional modes. A repeated mode is rejected since
// both runs would write the same directory.
func parseModes(args []string) ([]sampling.Mode, error) {
	if len(args) == 0 {
		return []sampling.Mode{sampling.None}, nil
	}
	seen := make(map[sampling.Mode]bool, len(args))
	modes := make([]sampling.Mode, 0, len(args))
	for _, arg := range args {
		mode, err := sampling.ParseMode(arg)
		if err != nil {
			return nil, err
		}
		if seen[mode] {
			return nil, errors.Errorf("mode %s given twice", mode)
		}
		seen[mode] = true
		modes = append(modes, mode)
	}
	return modes, nil
}
