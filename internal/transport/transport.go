// Package transport carries order session frames between this client and the
// engine.
//
// A Dialer opens one Channel per order. Inbound frames are decoded with
// internal/protocol and handed to a Receiver from a reader goroutine, in the
// order the engine sent them. Receivers must not block; the session
// controller only posts them to its event loop.
package transport

import (
	"context"
	"errors"

	"github.com/musher-dev/wdlplay/internal/protocol"
)

var (
	// ErrClosed is returned by Send after the channel was closed.
	ErrClosed = errors.New("channel closed")
	// ErrClosedByRemote reports that the engine hung up.
	ErrClosedByRemote = errors.New("channel closed by remote")
)

// Receiver consumes what arrives on a channel.
type Receiver interface {
	// Receive is called once per decoded inbound event.
	Receive(ev protocol.Event)
	// Fail is called at most once, when the channel breaks or a frame
	// cannot be decoded. It is not called after a local Close.
	Fail(err error)
}

// Channel is one open order connection.
type Channel interface {
	// Send queues msg for transmission. It is safe from any goroutine.
	Send(msg protocol.Outbound) error
	// Close releases the connection. Closing twice is a no-op.
	Close() error
}

// Dialer opens channels.
type Dialer interface {
	Dial(ctx context.Context, recv Receiver) (Channel, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, recv Receiver) (Channel, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context, recv Receiver) (Channel, error) {
	return f(ctx, recv)
}
