package exporter

import (
	"context"
	"fmt"

	"ibovselic/internal/provider"
	"ibovselic/internal/provider/bcb"
)

// Default output file names.
const (
	FileIBOV      = "history_ibov.json"
	FileSELIC     = "history_selic.json"
	FileSELICMeta = "history_selic_meta.json"
)

// Files holds the output file name of each series.
type Files struct {
	IBOV      string
	SELIC     string
	SELICMeta string
}

// DefaultFiles returns the default output file names.
func DefaultFiles() Files {
	return Files{IBOV: FileIBOV, SELIC: FileSELIC, SELICMeta: FileSELICMeta}
}

// RateSource hands out a provider bound to one SGS series code.
type RateSource interface {
	Series(code int) provider.Provider
}

// Facade binds each exported series to its provider, file name and label.
type Facade struct {
	exporter *Exporter
	index    provider.Provider
	rates    RateSource
	files    Files
}

// NewFacade creates a Facade. Empty file names fall back to the defaults.
func NewFacade(exp *Exporter, index provider.Provider, rates RateSource, files Files) *Facade {
	def := DefaultFiles()
	if files.IBOV == "" {
		files.IBOV = def.IBOV
	}
	if files.SELIC == "" {
		files.SELIC = def.SELIC
	}
	if files.SELICMeta == "" {
		files.SELICMeta = def.SELICMeta
	}
	return &Facade{exporter: exp, index: index, rates: rates, files: files}
}

// ExportIBOV writes the monthly IBOVESPA history.
func (f *Facade) ExportIBOV(ctx context.Context, startYear, endYear int) (string, error) {
	return f.exporter.Export(ctx, "IBOVESPA", startYear, endYear, f.index.Fetch, f.files.IBOV)
}

// ExportSELIC writes the given SGS series, normally bcb.SeriesSelicMonthly.
func (f *Facade) ExportSELIC(ctx context.Context, startYear, endYear, series int) (string, error) {
	label := fmt.Sprintf("SELIC serie %d", series)
	return f.exporter.Export(ctx, label, startYear, endYear, f.rates.Series(series).Fetch, f.files.SELIC)
}

// ExportSELICMeta writes the monthly accumulated SELIC target.
func (f *Facade) ExportSELICMeta(ctx context.Context, startYear, endYear int) (string, error) {
	label := fmt.Sprintf("SELIC serie %d", bcb.SeriesSelicTargetMonthly)
	return f.exporter.Export(ctx, label, startYear, endYear, f.rates.Series(bcb.SeriesSelicTargetMonthly).Fetch, f.files.SELICMeta)
}

// ExportAll runs IBOV, SELIC and SELIC meta in that order and stops at the
// first failure. It returns the paths written so far.
func (f *Facade) ExportAll(ctx context.Context, startYear, endYear, series int) ([]string, error) {
	steps := []func() (string, error){
		func() (string, error) { return f.ExportIBOV(ctx, startYear, endYear) },
		func() (string, error) { return f.ExportSELIC(ctx, startYear, endYear, series) },
		func() (string, error) { return f.ExportSELICMeta(ctx, startYear, endYear) },
	}
	paths := make([]string, 0, len(steps))
	for _, step := range steps {
		path, err := step()
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
