// Package wiki orchestrates page generation: retrieval, context assembly,
// streamed model generation, entity extraction, link-graph update and
// persistence, exposed as an ordered stream of progress events.
package wiki

import "github.com/eddowding/mothersalmanac-sub002/internal/page"

// EventType discriminates progress events.
type EventType string

const (
	// EventStatus is a human-readable phase announcement.
	EventStatus EventType = "status"

	// EventContent carries one incremental chunk of generated article text.
	EventContent EventType = "content"

	// EventDone is terminal: the page has been persisted.
	EventDone EventType = "done"

	// EventError is terminal: the pipeline failed.
	EventError EventType = "error"
)

// ProgressEvent is one element of the generation stream.
//
// Events arrive in strict pipeline order: status, content*, status, done;
// or any prefix followed by a single error. Exactly one terminal event
// (done or error) ends every stream; callers may drive a UI state machine
// off this guarantee.
type ProgressEvent struct {
	Type    EventType
	Message string     // status and error events
	Text    string     // content events
	Page    *page.Page // done events
}

// Terminal reports whether the event ends the stream.
func (e ProgressEvent) Terminal() bool {
	return e.Type == EventDone || e.Type == EventError
}

func statusEvent(message string) ProgressEvent {
	return ProgressEvent{Type: EventStatus, Message: message}
}

func contentEvent(text string) ProgressEvent {
	return ProgressEvent{Type: EventContent, Text: text}
}

func doneEvent(p *page.Page) ProgressEvent {
	return ProgressEvent{Type: EventDone, Page: p}
}

func errorEvent(message string) ProgressEvent {
	return ProgressEvent{Type: EventError, Message: message}
}
