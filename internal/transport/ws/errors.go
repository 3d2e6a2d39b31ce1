package ws

import "errors"

var (
	// ErrSessionShutdown is emitted when the server requests a session shutdown.
	ErrSessionShutdown = errors.New("websocket session shutdown")
	// ErrObserverDropped ends a session whose subscription was dropped by the hub.
	ErrObserverDropped = errors.New("activity observer dropped")
	// ErrClientGone ends a session whose peer closed or stopped reading.
	ErrClientGone = errors.New("websocket client gone")
)
