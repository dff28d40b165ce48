// Package hub fans out message events to live viewers.
//
// A [Hub] holds the set of subscribed [Sink] values. [Hub.Publish] encodes a
// store.Message to JSON once and hands the bytes to each subscriber's
// bounded queue. Every subscriber has its own delivery goroutine, so a
// frozen connection never stalls the others or the request that published.
//
// Per-subscriber failures are swallowed by design: they are logged at debug
// level and reported to the optional [Observer], but Publish has no error
// result. Subscribers are removed only through [Hub.Unsubscribe], which the
// connection handlers call when their transport closes.
package hub
