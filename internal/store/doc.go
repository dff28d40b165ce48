// Package store provides in-memory storage for board messages.
//
// This package is internal to msgboard and owns the authoritative, ordered
// record of every posted message and its reaction counters.
//
// The main components are:
//
//   - [Store]: Interface defining append, lookup and reaction operations
//   - [MemoryStore]: Mutex-guarded in-memory implementation of Store
//   - [Message]: Storage and wire representation of a message
//
// The sequence is append-only: messages are never deleted or reordered.
// Reactions mutate counters in place. Callers always receive copies.
//
// Fan-out to live viewers is not handled here; see the hub package.
package store
