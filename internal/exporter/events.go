package exporter

import "time"

// EventType names a step of an export.
type EventType string

const (
	ExportStarted  EventType = "export_started"
	ChunkStarted   EventType = "chunk_started"
	ChunkFinished  EventType = "chunk_finished"
	ExportFinished EventType = "export_finished"
	ExportFailed   EventType = "export_failed"
)

// Event is emitted by the Exporter at each step. Fields not relevant to
// the event type are left zero.
type Event struct {
	Type  EventType
	Label string
	Span  YearRange

	// Chunk events only.
	Chunk      YearRange
	ChunkIndex int
	ChunkCount int

	// Records is the chunk size for ChunkFinished and the total written for ExportFinished.
	Records int
	Path    string
	Elapsed time.Duration
	Err     error
}

// Observer receives export events. Implementations must not block.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to an Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

type nopObserver struct{}

func (nopObserver) Observe(Event) {}
