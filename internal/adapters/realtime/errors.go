package realtime

import "errors"

// Sentinel kinds for realtime errors.
var (
	ErrHubClosed    = errors.New("hub closed")
	ErrNoFlusher    = errors.New("response writer does not support streaming")
	ErrClientClosed = errors.New("client closed connection")
)
