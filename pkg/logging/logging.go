// Package logging builds the zap logger shared by a run.
package logging

import (
	"os"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/cpuid/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"covertype/pkg/config"
)

// New returns a logger writing to stderr and, when cfg.File is set, to a
// size-rotated JSON file. Every entry carries the run id.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	return Build(cfg, zapcore.Lock(os.Stderr))
}

// Build is New with an explicit console sink.
func Build(cfg config.LogConfig, sink zapcore.WriteSyncer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, errors.Wrap(err, "logging: level")
	}

	var enc zapcore.Encoder
	switch cfg.Format {
	case "json":
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	case "", "console":
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(ec)
	default:
		return nil, errors.Errorf("logging: unknown format %q", cfg.Format)
	}

	cores := []zapcore.Core{zapcore.NewCore(enc, sink, level)}
	if cfg.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}
		fileEnc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		cores = append(cores, zapcore.NewCore(fileEnc, zapcore.AddSync(rotated), level))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.ErrorOutput(sink))
	return logger.With(zap.String("run_id", uuid.NewString())), nil
}

// HostFields describes the machine for the startup log line.
func HostFields() []zap.Field {
	return []zap.Field{
		zap.String("cpu", cpuid.CPU.BrandName),
		zap.Int("physical_cores", cpuid.CPU.PhysicalCores),
		zap.Int("logical_cores", cpuid.CPU.LogicalCores),
		zap.Bool("avx2", cpuid.CPU.Supports(cpuid.AVX2)),
		zap.String("os", runtime.GOOS),
		zap.String("arch", runtime.GOARCH),
		zap.Int("gomaxprocs", runtime.GOMAXPROCS(0)),
	}
}

// Workers is the default worker count for CPU bound stages: the logical
// core count reported by the CPU, bounded by GOMAXPROCS.
func Workers() int {
	n := runtime.GOMAXPROCS(0)
	if lc := cpuid.CPU.LogicalCores; lc > 0 && lc < n {
		n = lc
	}
	return n
}
