package exporter_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ibovselic/internal/exporter"
	"ibovselic/internal/provider"
)

type call struct{ start, end int }

// recordingFetch returns one IBOV record per year of the requested span.
func recordingFetch(calls *[]call) exporter.FetchFunc {
	return func(_ context.Context, startYear, endYear int) ([]provider.Record, error) {
		*calls = append(*calls, call{startYear, endYear})
		out := make([]provider.Record, 0, endYear-startYear+1)
		for y := startYear; y <= endYear; y++ {
			out = append(out, provider.NewRecord(provider.IBOV, y, time.January, float64(y)))
		}
		return out, nil
	}
}

func readRecords(t *testing.T, path string) []provider.Record {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var out []provider.Record
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func TestNew(t *testing.T) {
	t.Parallel()

	e, err := exporter.New("")
	require.NoError(t, err)
	require.Equal(t, exporter.DefaultDataDir, e.DataDir())
	require.Equal(t, exporter.DefaultChunkSize, e.ChunkSize())

	e, err = exporter.New("out", exporter.WithChunkSize(3), exporter.WithObserver(nil))
	require.NoError(t, err)
	require.Equal(t, "out", e.DataDir())
	require.Equal(t, 3, e.ChunkSize())

	for _, size := range []int{0, -1} {
		_, err = exporter.New("out", exporter.WithChunkSize(size))
		var ve *provider.ValidationError
		require.ErrorAs(t, err, &ve)
		require.Equal(t, "chunk_size", ve.Field)
	}
}

func TestExport_ChunkOrder(t *testing.T) {
	t.Parallel()

	// Arrange
	dir := t.TempDir()
	e, err := exporter.New(dir)
	require.NoError(t, err)
	var calls []call

	// Act
	path, err := e.Export(t.Context(), "IBOVESPA", 2000, 2025, recordingFetch(&calls), "history_ibov.json")

	// Assert
	require.NoError(t, err)
	require.Equal(t, []call{{2000, 2009}, {2010, 2019}, {2020, 2025}}, calls)
	require.True(t, filepath.IsAbs(path))
	require.Equal(t, filepath.Join(dir, "history_ibov.json"), path)

	records := readRecords(t, path)
	require.Len(t, records, 26)
	for i, rec := range records {
		require.Equal(t, 2000+i, rec.Year, "records keep chunk then source order")
		require.NoError(t, rec.Validate())
	}
}

func TestExport_ValidationBeforeFetch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		start, end int
		filename   string
		field      string
	}{
		{"inverted span", 2021, 2020, "x.json", "start_year"},
		{"start before 1900", 1899, 2020, "x.json", "start_year"},
		{"empty filename", 2020, 2021, "", "filename"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			e, err := exporter.New(dir)
			require.NoError(t, err)

			fetched := false
			fetch := func(context.Context, int, int) ([]provider.Record, error) {
				fetched = true
				return nil, nil
			}

			path, err := e.Export(t.Context(), "IBOVESPA", tc.start, tc.end, fetch, tc.filename)
			require.Empty(t, path)
			require.False(t, fetched)

			var ve *provider.ValidationError
			require.ErrorAs(t, err, &ve)
			require.Equal(t, tc.field, ve.Field)

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			require.Empty(t, entries)
		})
	}
}

func TestExport_ChunkFailureWritesNothing(t *testing.T) {
	t.Parallel()

	// Arrange
	dir := filepath.Join(t.TempDir(), "raw")
	e, err := exporter.New(dir)
	require.NoError(t, err)

	cause := &provider.TransportError{Method: "GET", URL: "http://sgs", StatusCode: 500, Err: errors.New("boom")}
	var calls []call
	fetch := func(_ context.Context, startYear, endYear int) ([]provider.Record, error) {
		calls = append(calls, call{startYear, endYear})
		if startYear == 2010 {
			return nil, cause
		}
		return []provider.Record{provider.NewRecord(provider.SELIC, startYear, time.June, 1)}, nil
	}

	// Act
	path, err := e.Export(t.Context(), "SELIC serie 4390", 2000, 2025, fetch, "history_selic.json")

	// Assert: the error is the fetch error, later chunks are never requested
	require.Empty(t, path)
	require.Same(t, cause, err)
	var te *provider.TransportError
	require.ErrorAs(t, err, &te)
	require.Equal(t, []call{{2000, 2009}, {2010, 2019}}, calls)

	_, statErr := os.Stat(dir)
	require.True(t, os.IsNotExist(statErr))
}

func TestExport_FailureKeepsPreviousFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	e, err := exporter.New(dir)
	require.NoError(t, err)

	var calls []call
	path, err := e.Export(t.Context(), "IBOVESPA", 2020, 2021, recordingFetch(&calls), "out.json")
	require.NoError(t, err)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	failing := func(context.Context, int, int) ([]provider.Record, error) {
		return nil, &provider.SchemaError{Source: "b3", Index: 0, Field: "month", Err: errors.New("missing")}
	}
	_, err = e.Export(t.Context(), "IBOVESPA", 2020, 2021, failing, "out.json")
	var se *provider.SchemaError
	require.ErrorAs(t, err, &se)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, before, after)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temporary files left behind")
}

func TestExport_Format(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	e, err := exporter.New(dir)
	require.NoError(t, err)

	fetch := func(context.Context, int, int) ([]provider.Record, error) {
		return []provider.Record{provider.NewRecord(provider.SELIC, 2020, time.March, 0.34)}, nil
	}
	path, err := e.Export(t.Context(), "SELIC serie 4390", 2020, 2020, fetch, "history_selic.json")
	require.NoError(t, err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	want := `[
  {
    "date_reference": "2020-03-01",
    "month": 3,
    "year": 2020,
    "index": "SELIC",
    "value": 0.34
  }
]
`
	require.Equal(t, want, string(b))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestExport_EmptyResultWritesEmptyArray(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	e, err := exporter.New(dir)
	require.NoError(t, err)

	fetch := func(context.Context, int, int) ([]provider.Record, error) { return nil, nil }
	path, err := e.Export(t.Context(), "IBOVESPA", 1990, 1991, fetch, "empty.json")
	require.NoError(t, err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "[]\n", string(b))
}

func TestExport_Idempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	e, err := exporter.New(dir, exporter.WithChunkSize(4))
	require.NoError(t, err)

	var calls []call
	path, err := e.Export(t.Context(), "IBOVESPA", 2001, 2012, recordingFetch(&calls), "a.json")
	require.NoError(t, err)
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	path, err = e.Export(t.Context(), "IBOVESPA", 2001, 2012, recordingFetch(&calls), "a.json")
	require.NoError(t, err)
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Len(t, calls, 6)
}

func TestExport_Overwrites(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	e, err := exporter.New(dir)
	require.NoError(t, err)

	var calls []call
	_, err = e.Export(t.Context(), "IBOVESPA", 2000, 2025, recordingFetch(&calls), "a.json")
	require.NoError(t, err)
	path, err := e.Export(t.Context(), "IBOVESPA", 2020, 2020, recordingFetch(&calls), "a.json")
	require.NoError(t, err)

	records := readRecords(t, path)
	require.Len(t, records, 1)
	require.Equal(t, 2020, records[0].Year)
}

func TestExport_CreatesNestedDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "data", "raw", "nested")
	e, err := exporter.New(dir)
	require.NoError(t, err)

	var calls []call
	path, err := e.Export(t.Context(), "IBOVESPA", 2020, 2020, recordingFetch(&calls), "a.json")
	require.NoError(t, err)
	require.FileExists(t, path)
}

func TestExport_PreservesDuplicates(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	e, err := exporter.New(dir)
	require.NoError(t, err)

	fetch := func(context.Context, int, int) ([]provider.Record, error) {
		return []provider.Record{
			provider.NewRecord(provider.SELIC, 2020, time.March, 0.34),
			provider.NewRecord(provider.SELIC, 2020, time.March, 0.35),
		}, nil
	}
	path, err := e.Export(t.Context(), "SELIC serie 432", 2020, 2020, fetch, "dup.json")
	require.NoError(t, err)

	records := readRecords(t, path)
	require.Len(t, records, 2)
	require.Equal(t, records[0].DateReference.String(), records[1].DateReference.String())
}

func TestExport_CanceledContext(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	e, err := exporter.New(dir, exporter.WithChunkSize(1))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	var calls []call
	fetch := func(ctx context.Context, startYear, endYear int) ([]provider.Record, error) {
		calls = append(calls, call{startYear, endYear})
		cancel()
		return nil, nil
	}

	_, err = e.Export(ctx, "IBOVESPA", 2020, 2022, fetch, "a.json")
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, calls, 1)
	require.NoFileExists(t, filepath.Join(dir, "a.json"))

	// between chunks the context error is returned as is
	var te *provider.TransportError
	require.False(t, errors.As(err, &te))
}

func TestExport_CanceledDuringRequest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	e, err := exporter.New(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	fetch := func(ctx context.Context, _, _ int) ([]provider.Record, error) {
		cancel()
		return nil, &provider.TransportError{Method: "GET", URL: "http://sgs", Err: ctx.Err()}
	}

	_, err = e.Export(ctx, "SELIC serie 4390", 2020, 2022, fetch, "a.json")

	var te *provider.TransportError
	require.ErrorAs(t, err, &te)
	require.ErrorIs(t, err, context.Canceled)
	require.NoFileExists(t, filepath.Join(dir, "a.json"))
}

func TestExport_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	e, err := exporter.New(dir, exporter.WithChunkSize(2))
	require.NoError(t, err)

	in := []provider.Record{
		provider.NewRecord(provider.IBOV, 2019, time.December, 115645.34),
		provider.NewRecord(provider.IBOV, 2020, time.January, 113760.57),
		provider.NewRecord(provider.SELIC, 2020, time.March, 0.1+0.2),
		provider.NewRecord(provider.SELIC, 2020, time.March, 1e-300),
		provider.NewRecord(provider.SELIC, 2021, time.July, 1.7976931348623157e308),
		provider.NewRecord(provider.SELIC, 2021, time.August, -0.0001),
	}
	// two chunks: [2019, 2020] and [2021, 2021]
	fetch := func(_ context.Context, startYear, endYear int) ([]provider.Record, error) {
		var out []provider.Record
		for _, rec := range in {
			if rec.Year >= startYear && rec.Year <= endYear {
				out = append(out, rec)
			}
		}
		return out, nil
	}

	path, err := e.Export(t.Context(), "mixed", 2019, 2021, fetch, "roundtrip.json")
	require.NoError(t, err)

	require.Equal(t, in, readRecords(t, path))
}

func TestExport_Events(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var events []exporter.Event
	e, err := exporter.New(dir, exporter.WithObserver(exporter.ObserverFunc(func(ev exporter.Event) {
		events = append(events, ev)
	})))
	require.NoError(t, err)

	var calls []call
	path, err := e.Export(t.Context(), "IBOVESPA", 2000, 2015, recordingFetch(&calls), "a.json")
	require.NoError(t, err)

	types := make([]exporter.EventType, 0, len(events))
	for _, ev := range events {
		types = append(types, ev.Type)
		require.Equal(t, "IBOVESPA", ev.Label)
		require.Equal(t, exporter.YearRange{Start: 2000, End: 2015}, ev.Span)
	}
	require.Equal(t, []exporter.EventType{
		exporter.ExportStarted,
		exporter.ChunkStarted, exporter.ChunkFinished,
		exporter.ChunkStarted, exporter.ChunkFinished,
		exporter.ExportFinished,
	}, types)

	require.Equal(t, 2, events[0].ChunkCount)
	require.Equal(t, exporter.YearRange{Start: 2010, End: 2015}, events[3].Chunk)
	require.Equal(t, 1, events[3].ChunkIndex)
	require.Equal(t, 6, events[4].Records)
	require.Equal(t, 16, events[5].Records)
	require.Equal(t, path, events[5].Path)

	events = nil
	_, err = e.Export(t.Context(), "IBOVESPA", 2015, 2000, recordingFetch(&calls), "a.json")
	require.Error(t, err)
	require.Len(t, events, 1)
	require.Equal(t, exporter.ExportFailed, events[0].Type)
	require.Equal(t, err, events[0].Err)
}

func TestExport_NonASCIIFilename(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	e, err := exporter.New(dir)
	require.NoError(t, err)

	var calls []call
	path, err := e.Export(t.Context(), "IBOVESPA", 2020, 2020, recordingFetch(&calls), "séries_ibov.json")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, "séries_ibov.json"))
	require.FileExists(t, path)
}
