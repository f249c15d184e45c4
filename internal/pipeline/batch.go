package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

type Processor interface {
	Process(ctx context.Context, src string) (Outcome, error)
}

// FileOutcome is one entry of a Report.
type FileOutcome struct {
	Outcome
	Err error
}

// Report summarizes a batch run.
type Report struct {
	Processed []FileOutcome
	Skipped   []FileOutcome
	Failed    []FileOutcome
	Elapsed   time.Duration
}

// Total is the number of files the batch attempted.
func (r Report) Total() int {
	return len(r.Processed) + len(r.Skipped) + len(r.Failed)
}

// Err joins the errors of all failed files, or returns nil.
func (r Report) Err() error {
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		errs = append(errs, f.Err)
	}
	return errors.Join(errs...)
}

// Batch feeds files to a Processor one after another.
type Batch struct {
	Processor Processor
	Logger    *zap.Logger

	// OnStart and OnDone are optional progress hooks.
	OnStart func(index, total int, path string)
	OnDone  func(index, total int, outcome FileOutcome)
}

// Run processes files in order. A failed file is recorded and the batch
// moves on; only cancellation of ctx stops it early, in which case the
// partial report is returned with ctx's error.
func (b *Batch) Run(ctx context.Context, files []string) (Report, error) {
	logger := b.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	started := time.Now()
	var report Report
	logger.Info("batch started", zap.Int("files", len(files)))

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			report.Elapsed = time.Since(started)
			logger.Warn("batch interrupted", zap.Int("remaining", len(files)-i), zap.Error(err))
			return report, err
		}

		if b.OnStart != nil {
			b.OnStart(i, len(files), path)
		}

		outcome, err := b.Processor.Process(ctx, path)
		entry := FileOutcome{Outcome: outcome, Err: err}
		if entry.Source == "" {
			entry.Source = path
		}
		switch {
		case err != nil:
			report.Failed = append(report.Failed, entry)
		case outcome.Skipped:
			report.Skipped = append(report.Skipped, entry)
		default:
			report.Processed = append(report.Processed, entry)
		}

		if b.OnDone != nil {
			b.OnDone(i, len(files), entry)
		}
	}

	report.Elapsed = time.Since(started)
	fields := []zap.Field{
		zap.Int("files", report.Total()),
		zap.Int("processed", len(report.Processed)),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("failed", len(report.Failed)),
		zap.Duration("elapsed", report.Elapsed),
	}
	if err := report.Err(); err != nil {
		logger.Warn("batch finished with failures", append(fields, zap.Error(err))...)
		return report, nil
	}
	logger.Info("batch finished", fields...)
	return report, nil
}

// Scan lists the regular files directly inside dir whose extension equals
// ext, ignoring case. The result is sorted by name.
func Scan(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if !MatchesExt(entry.Name(), ext) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// MatchesExt reports whether name ends in ext, ignoring case. ext may be
// given with or without the leading dot.
func MatchesExt(name, ext string) bool {
	ext = strings.TrimSpace(ext)
	if ext == "" {
		return false
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return strings.EqualFold(filepath.Ext(name), ext)
}
