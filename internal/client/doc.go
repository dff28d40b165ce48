// Package client provides a Go client for the message board HTTP API.
//
// [Client] covers listing, posting and reactions over REST, and live
// updates over the WebSocket endpoint via [Client.Watch]. Error responses
// come back as *apperr.Error values with the server's message, so a missing
// message can be detected with apperr.IsType(err, apperr.TypeNotFound).
//
// The msgboard CLI uses this package for its list, post, like, dislike and
// watch subcommands.
package client
