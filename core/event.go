// Package core provides the storage-agnostic building blocks of the glyph
// record store adapter. This file defines lifecycle events emitted by the
// drivers after each store operation.
package core

import "sync"

// Event represents a lifecycle event emitted by an adapter.
type Event string

const (
	// EventCreate is emitted after records are inserted.
	EventCreate Event = "create"
	// EventUpdate is emitted after sparse updates are applied.
	EventUpdate Event = "update"
	// EventDelete is emitted after records are deleted.
	EventDelete Event = "delete"
	// EventFind is emitted after a find returns.
	EventFind Event = "find"
)

// EventHandler is the callback signature for event listeners. The payload
// is one of CreatePayload, UpdatePayload, DeletePayload or FindPayload.
type EventHandler func(payload any)

// EventDispatcher manages a list of event handlers and dispatches them when
// the corresponding events are emitted.
type EventDispatcher struct {
	mutex       sync.RWMutex
	handlerList map[Event][]EventHandler
}

// globalDispatcher is the shared event dispatcher used by every adapter.
var globalDispatcher = &EventDispatcher{
	handlerList: make(map[Event][]EventHandler),
}

// On registers an EventHandler for a specific Event.
//
// Example:
//
//	core.On(core.EventCreate, func(payload any) {
//		if p, ok := payload.(core.CreatePayload); ok {
//			log.Printf("%d %s records created", len(p.Records), p.RecordType)
//		}
//	})
func On(event Event, handler EventHandler) {
	globalDispatcher.mutex.Lock()
	defer globalDispatcher.mutex.Unlock()
	globalDispatcher.handlerList[event] = append(globalDispatcher.handlerList[event], handler)
}

// Emit triggers all registered handlers for the given Event. Handlers run
// on their own goroutines and must not assume ordering.
func Emit(event Event, payload any) {
	globalDispatcher.mutex.RLock()
	defer globalDispatcher.mutex.RUnlock()
	if handlerList, ok := globalDispatcher.handlerList[event]; ok {
		for _, handler := range handlerList {
			go handler(payload)
		}
	}
}

// CreatePayload accompanies EventCreate.
type CreatePayload struct {
	RecordType string
	Records    []Record
}

// UpdatePayload accompanies EventUpdate.
type UpdatePayload struct {
	RecordType string
	Updates    []Update
	Affected   int64
}

// DeletePayload accompanies EventDelete.
type DeletePayload struct {
	RecordType string
	IDs        []any
	Affected   int64
}

// FindPayload accompanies EventFind.
type FindPayload struct {
	RecordType string
	IDs        []any
	Options    *Options
	Result     *Result
}
