package exporter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ibovselic/internal/provider"
)

const (
	// DefaultDataDir is where exports land when no directory is given.
	DefaultDataDir = "data/raw"
	// DefaultChunkSize is the widest year span requested in one call.
	DefaultChunkSize = 10
)

// FetchFunc retrieves the records of one inclusive year span.
type FetchFunc func(ctx context.Context, startYear, endYear int) ([]provider.Record, error)

// Exporter fetches a year range chunk by chunk and writes the records as a
// single JSON array.
type Exporter struct {
	dataDir   string
	chunkSize int
	observer  Observer
}

// Option is a configuration option for the Exporter.
type Option func(*Exporter)

// WithChunkSize sets the maximum number of years per fetch.
func WithChunkSize(size int) Option {
	return func(e *Exporter) {
		e.chunkSize = size
	}
}

// WithObserver sets the receiver of export events.
func WithObserver(o Observer) Option {
	return func(e *Exporter) {
		if o != nil {
			e.observer = o
		}
	}
}

// New creates an Exporter writing under dataDir. The directory is created on
// the first successful export.
func New(dataDir string, options ...Option) (*Exporter, error) {
	if dataDir == "" {
		dataDir = DefaultDataDir
	}
	e := &Exporter{
		dataDir:   dataDir,
		chunkSize: DefaultChunkSize,
		observer:  nopObserver{},
	}
	for _, option := range options {
		option(e)
	}
	if e.chunkSize < 1 {
		return nil, &provider.ValidationError{Field: "chunk_size", Reason: fmt.Sprintf("must be at least 1, got %d", e.chunkSize)}
	}
	return e, nil
}

func (e *Exporter) DataDir() string { return e.dataDir }

func (e *Exporter) ChunkSize() int { return e.chunkSize }

// Export fetches [startYear, endYear] in chunks, strictly in ascending order,
// and writes every record to filename under the data directory, replacing
// any previous file. It returns the absolute path written. If any chunk
// fails, nothing is written and the fetch error is returned unchanged.
func (e *Exporter) Export(ctx context.Context, label string, startYear, endYear int, fetch FetchFunc, filename string) (string, error) {
	span := YearRange{Start: startYear, End: endYear}
	fail := func(err error) (string, error) {
		e.observer.Observe(Event{Type: ExportFailed, Label: label, Span: span, Err: err})
		return "", err
	}

	if err := validateYears(startYear, endYear); err != nil {
		return fail(err)
	}
	if filename == "" {
		return fail(&provider.ValidationError{Field: "filename", Reason: "must not be empty"})
	}

	chunks := Chunks(startYear, endYear, e.chunkSize)
	e.observer.Observe(Event{Type: ExportStarted, Label: label, Span: span, ChunkCount: len(chunks)})
	began := time.Now()

	var records []provider.Record
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		e.observer.Observe(Event{Type: ChunkStarted, Label: label, Span: span, Chunk: chunk, ChunkIndex: i, ChunkCount: len(chunks)})
		t := time.Now()
		got, err := fetch(ctx, chunk.Start, chunk.End)
		if err != nil {
			return fail(err)
		}
		records = append(records, got...)
		e.observer.Observe(Event{
			Type:       ChunkFinished,
			Label:      label,
			Span:       span,
			Chunk:      chunk,
			ChunkIndex: i,
			ChunkCount: len(chunks),
			Records:    len(got),
			Elapsed:    time.Since(t),
		})
	}

	path, err := filepath.Abs(filepath.Join(e.dataDir, filename))
	if err != nil {
		return fail(fmt.Errorf("resolving output path: %w", err))
	}
	if err := writeJSON(path, records); err != nil {
		return fail(err)
	}

	e.observer.Observe(Event{Type: ExportFinished, Label: label, Span: span, ChunkCount: len(chunks), Records: len(records), Path: path, Elapsed: time.Since(began)})
	return path, nil
}

func validateYears(startYear, endYear int) error {
	if startYear > endYear {
		return &provider.ValidationError{Field: "start_year", Reason: fmt.Sprintf("%d is after end_year %d", startYear, endYear)}
	}
	if startYear < provider.MinYear {
		return &provider.ValidationError{Field: "start_year", Reason: fmt.Sprintf("%d is before %d", startYear, provider.MinYear)}
	}
	return nil
}

// writeJSON replaces path with the indented JSON array of records. The data
// goes to a temporary file in the same directory first, so a failed write
// never leaves a truncated file behind.
func writeJSON(path string, records []provider.Record) error {
	if records == nil {
		records = []provider.Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encoding records: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
