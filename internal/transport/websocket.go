package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/musher-dev/wdlplay/internal/buildinfo"
	"github.com/musher-dev/wdlplay/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
	sendBuffer     = 16
)

// WebSocketDialer opens order channels over gorilla/websocket.
type WebSocketDialer struct {
	URL    string
	Token  string
	Logger *slog.Logger
}

// Dial connects to the order endpoint and starts the reader and writer
// goroutines.
func (d *WebSocketDialer) Dial(ctx context.Context, recv Receiver) (Channel, error) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	header := http.Header{}
	header.Set("User-Agent", "wdlplay/"+buildinfo.Version)

	if d.Token != "" {
		header.Set("Authorization", "Bearer "+d.Token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, d.URL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: status %d: %w", d.URL, resp.StatusCode, err)
		}

		return nil, fmt.Errorf("dial %s: %w", d.URL, err)
	}

	conn.SetReadLimit(maxMessageSize)

	ch := &wsChannel{
		conn:   conn,
		recv:   recv,
		out:    make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		logger: logger,
	}

	ch.run()

	logger.Debug("order channel open", slog.String("channel.url", d.URL))

	return ch, nil
}

type wsChannel struct {
	conn   *websocket.Conn
	recv   Receiver
	out    chan []byte
	done   chan struct{}
	logger *slog.Logger

	closeOnce sync.Once
	failOnce  sync.Once
}

func (c *wsChannel) run() {
	g, ctx := errgroup.WithContext(context.Background())

	g.Go(c.readLoop)
	g.Go(func() error { return c.writeLoop(ctx) })

	go func() {
		if err := g.Wait(); err != nil {
			c.logger.Debug("order channel stopped", slog.String("error", err.Error()))
		}
	}()
}

func (c *wsChannel) readLoop() error {
	defer c.conn.Close()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				err = ErrClosedByRemote
			}

			c.fail(err)

			return fmt.Errorf("read: %w", err)
		}

		if msgType != websocket.TextMessage {
			continue
		}

		ev, err := protocol.DecodeEvent(data)
		if err != nil {
			c.fail(err)
			return fmt.Errorf("decode: %w", err)
		}

		if c.closed() {
			return nil
		}

		c.recv.Receive(ev)
	}
}

func (c *wsChannel) writeLoop(ctx context.Context) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return nil
		case <-ctx.Done():
			return nil
		case data := <-c.out:
			if err := c.write(websocket.TextMessage, data); err != nil {
				c.fail(err)
				c.conn.Close()

				return fmt.Errorf("write: %w", err)
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.fail(err)
				c.conn.Close()

				return fmt.Errorf("ping: %w", err)
			}
		}
	}
}

func (c *wsChannel) write(msgType int, data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}

	if err := c.conn.WriteMessage(msgType, data); err != nil {
		return fmt.Errorf("write message: %w", err)
	}

	return nil
}

func (c *wsChannel) Send(msg protocol.Outbound) error {
	data, err := protocol.EncodeOutbound(msg)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.out <- data:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

func (c *wsChannel) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)

		deadline := time.Now().Add(writeWait)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")

		if err := c.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
			c.logger.Debug("order channel close frame not sent", slog.String("error", err.Error()))
		}

		c.conn.Close()
	})

	return nil
}

func (c *wsChannel) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *wsChannel) fail(err error) {
	if c.closed() {
		return
	}

	c.failOnce.Do(func() { c.recv.Fail(err) })
}

// SessionURL derives the order endpoint from the checker base URL by switching
// http(s) to ws(s) and appending /session.
func SessionURL(serverURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(serverURL))
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}

	u.Path = strings.TrimRight(u.Path, "/") + "/session"

	return u.String(), nil
}
