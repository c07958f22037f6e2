package ingestion

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/guttosm/tickerql/internal/domain/models"
	"github.com/guttosm/tickerql/internal/logger"
)

const maxParallel = 8

// Importer persists one symbol's batch of prices. service.MarketService satisfies it.
type Importer interface {
	AddMarketData(ctx context.Context, in models.MarketDataInput) (*models.Ticker, error)
}

// Summary reports what an import wrote.
type Summary struct {
	Files   int
	Symbols int
	Prices  int
}

// ImportDirectory loads every *.csv file in dir through importer.
//
// Parameters:
//   - dir: directory containing the CSV files.
//   - importer: write path, called once per symbol per file.
//   - parallel: files processed concurrently (0 = min(8, NumCPU)).
//
// Behavior:
//   - Each file must start with the header symbol,name,sector,date,close_price,volume.
//   - A file is fully parsed before anything from it is written.
//   - If any file returns an error, the rest are cancelled and that error is returned.
//
// Returns:
//   - Summary: counts of what was written, also on partial failure.
//   - error: first error encountered (if any).
func ImportDirectory(ctx context.Context, dir string, importer Importer, parallel int) (Summary, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return Summary{}, fmt.Errorf("list %s: %w", dir, err)
	}
	if len(files) == 0 {
		return Summary{}, fmt.Errorf("no .csv files found in %s", dir)
	}
	sort.Strings(files)

	workers := clampParallel(parallel)
	logger.L().Info().Int("files", len(files)).Str("dir", dir).Int("max_parallel", workers).Msg("import start")

	var (
		mu  sync.Mutex
		sum Summary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			start := time.Now()
			base := filepath.Base(f)

			groups, rows, err := parseFile(gctx, f)
			if err != nil {
				logger.L().Error().Str("file", base).Err(err).Msg("file rejected")
				return fmt.Errorf("file %s: %w", base, err)
			}

			for _, in := range groups {
				if _, err := importer.AddMarketData(gctx, in); err != nil {
					logger.L().Error().Str("file", base).Str("symbol", in.Symbol).Err(err).Msg("import failed")
					return fmt.Errorf("file %s: symbol %s: %w", base, in.Symbol, err)
				}
				mu.Lock()
				sum.Symbols++
				sum.Prices += len(in.Prices)
				mu.Unlock()
			}

			mu.Lock()
			sum.Files++
			mu.Unlock()

			logger.L().Info().
				Int("idx", i+1).
				Int("total", len(files)).
				Str("file", base).
				Int("rows", rows).
				Int("symbols", len(groups)).
				Dur("elapsed", time.Since(start)).
				Msg("file done")
			return nil
		})
	}

	err = g.Wait()
	return sum, err
}

func clampParallel(parallel int) int {
	if parallel <= 0 {
		return min(maxParallel, runtime.NumCPU())
	}
	return min(parallel, maxParallel)
}
