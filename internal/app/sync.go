package app

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/eodlake/internal/models"
	"github.com/bobmcallan/eodlake/internal/storage/dataset"
	"github.com/bobmcallan/eodlake/internal/table"
)

// SyncEOD fetches end-of-day data for req and writes it to the raw-data
// dataset fileName (default SYMBOL.EXCHANGE). The mode is checked before the
// provider is called. An empty response is returned without writing.
func (a *App) SyncEOD(ctx context.Context, req models.FetchRequest, fileName, mode string) (*table.Table, error) {
	if _, err := dataset.ParseMode(mode); err != nil {
		return nil, err
	}
	if fileName == "" {
		fileName = req.Ticker()
	}

	start := time.Now()
	t, err := a.EODHDClient.FetchEOD(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", req.Ticker(), err)
	}

	if t.Empty() {
		a.Logger.Warn().Str("ticker", req.Ticker()).Msg("No EOD rows returned, nothing written")
		return t, nil
	}

	if !t.HasUniqueIndex() {
		a.Logger.Warn().Str("ticker", req.Ticker()).Msg("Provider returned duplicate dates, writing rows as received")
	}

	if err := a.Dataset.Write(ctx, fileName, t, mode); err != nil {
		return nil, err
	}

	a.Logger.Info().
		Str("ticker", req.Ticker()).
		Str("dataset", fileName).
		Str("mode", mode).
		Int("rows", t.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("EOD sync complete")
	return t, nil
}

// SyncFundamentals fetches the fundamentals payload for req and stores it
// verbatim as <fileName>/<SYMBOL.EXCHANGE>.json (fileName defaults to
// "fundamentals").
func (a *App) SyncFundamentals(ctx context.Context, req models.FetchRequest, fileName string) ([]byte, error) {
	if fileName == "" {
		fileName = FundamentalsFolder
	}

	body, err := a.EODHDClient.FetchFundamentals(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetch fundamentals %s: %w", req.Ticker(), err)
	}

	if err := a.Dataset.WriteRaw(ctx, fileName, req.Ticker()+".json", body); err != nil {
		return nil, err
	}

	a.Logger.Info().
		Str("ticker", req.Ticker()).
		Str("dataset", fileName).
		Int("bytes", len(body)).
		Msg("Fundamentals sync complete")
	return body, nil
}

// Read returns every row stored under the raw-data dataset folder.
func (a *App) Read(ctx context.Context, folder string) (*table.Table, error) {
	return a.Dataset.Read(ctx, folder)
}

// BatchResult reports the outcome of SyncEODBatch for one ticker.
type BatchResult struct {
	Ticker string
	Rows   int
	Err    error
}

// SyncEODBatch runs SyncEOD for each request in order, each into its own
// SYMBOL.EXCHANGE dataset. A failing ticker is logged and recorded; the rest
// still run. The returned error is non-nil only for an invalid mode or a
// cancelled context.
func (a *App) SyncEODBatch(ctx context.Context, reqs []models.FetchRequest, mode string) ([]BatchResult, error) {
	if _, err := dataset.ParseMode(mode); err != nil {
		return nil, err
	}

	start := time.Now()
	results := make([]BatchResult, 0, len(reqs))
	failed := 0
	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := BatchResult{Ticker: req.Ticker()}
		t, err := a.SyncEOD(ctx, req, "", mode)
		if err != nil {
			failed++
			res.Err = err
			a.Logger.Warn().Err(err).Str("ticker", res.Ticker).Msg("EOD batch: ticker failed")
		} else {
			res.Rows = t.Len()
		}
		results = append(results, res)
	}

	a.Logger.Info().
		Int("tickers", len(reqs)).
		Int("failed", failed).
		Dur("elapsed", time.Since(start)).
		Msg("EOD batch: complete")
	return results, nil
}
