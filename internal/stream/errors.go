package stream

import "errors"

// Domain errors for the stream package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, stream.ErrNotConnected) {
//	    // a reconnect has been triggered; the message was not sent
//	}
var (
	// ErrNotConnected is returned by Send when no connection is live.
	ErrNotConnected = errors.New("stream: not connected")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("stream: client closed")

	// ErrSendBufferFull is returned when the outbound queue is full.
	ErrSendBufferFull = errors.New("stream: send buffer full")

	// ErrMalformed is returned for frames that are not a valid envelope.
	ErrMalformed = errors.New("stream: malformed message")

	// ErrNoSnapshotter is returned by Resync when no snapshot source is set.
	ErrNoSnapshotter = errors.New("stream: no snapshot source")
)
