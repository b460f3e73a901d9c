package wsnet

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"

	"github.com/i474232898/sunshine-wear/internal/transport"
)

// conn is one established peer link. All websocket writes go through writeLoop.
type conn struct {
	ws       *websocket.Conn
	remote   transport.Node
	settings *Settings

	send      chan *Frame
	done      chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	pending map[string]chan error
}

func newConn(ws *websocket.Conn, remote transport.Node, settings *Settings) *conn {
	buffer := settings.SendBufferSize
	if buffer < 1 {
		buffer = 1
	}
	return &conn{
		ws:       ws,
		remote:   remote,
		settings: settings,
		send:     make(chan *Frame, buffer),
		done:     make(chan struct{}),
		pending:  make(map[string]chan error),
	}
}

// serve runs the read loop until the link fails or is closed.
func (c *conn) serve(handle func(f *Frame)) error {
	go c.writeLoop()
	defer c.close()

	c.ws.SetReadDeadline(time.Now().Add(c.settings.ReadTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.settings.ReadTimeout))
	})

	for {
		var f Frame
		if err := c.ws.ReadJSON(&f); err != nil {
			return err
		}
		c.ws.SetReadDeadline(time.Now().Add(c.settings.ReadTimeout))

		if f.Type == frameAck {
			c.resolve(f.ID, f.Error)
			continue
		}
		handle(&f)
	}
}

func (c *conn) writeLoop() {
	ticker := time.NewTicker(c.settings.PingInterval)
	defer ticker.Stop()
	defer c.ws.Close()

	for {
		select {
		case <-c.done:
			c.ws.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.settings.WriteTimeout),
			)
			return
		case f := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.settings.WriteTimeout))
			if err := c.ws.WriteJSON(f); err != nil {
				glog.Infof("wsnet: write to %s failed: %v", c.remote.ID, err)
				c.close()
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.settings.WriteTimeout)); err != nil {
				glog.Infof("wsnet: ping to %s failed: %v", c.remote.ID, err)
				c.close()
				return
			}
		}
	}
}

func (c *conn) write(f *Frame) error {
	select {
	case <-c.done:
		return transport.ErrClosed
	default:
	}
	select {
	case c.send <- f:
		return nil
	case <-c.done:
		return transport.ErrClosed
	}
}

// request writes f and waits for the peer's ack.
func (c *conn) request(ctx context.Context, f *Frame) error {
	ack := make(chan error, 1)
	c.mu.Lock()
	c.pending[f.ID] = ack
	c.mu.Unlock()

	if err := c.write(f); err != nil {
		c.forget(f.ID)
		return err
	}

	select {
	case err := <-ack:
		return err
	case <-ctx.Done():
		c.forget(f.ID)
		return ctx.Err()
	case <-c.done:
		c.forget(f.ID)
		return transport.ErrClosed
	}
}

func (c *conn) pendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *conn) forget(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, id)
}

func (c *conn) resolve(id string, errText string) {
	c.mu.Lock()
	ack, ok := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()

	if !ok {
		return
	}
	if errText != "" {
		ack <- errors.New(errText)
	} else {
		ack <- nil
	}
}

func (c *conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// endpoint is the state shared by Server and Client: listeners, the event loop and
// the connection callbacks.
type endpoint struct {
	dispatch  *transport.Dispatcher
	listeners transport.Registry

	mu        sync.Mutex
	callbacks transport.ConnectionCallbacks
}

func newEndpoint() endpoint {
	return endpoint{dispatch: transport.NewDispatcher()}
}

func (e *endpoint) SetConnectionCallbacks(cb transport.ConnectionCallbacks) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.callbacks = cb
}

func (e *endpoint) AddDataListener(l transport.DataListener) func() {
	return e.listeners.AddData(l)
}

func (e *endpoint) AddMessageListener(l transport.MessageListener) func() {
	return e.listeners.AddMessage(l)
}

// Barrier waits until all events already queued were delivered.
func (e *endpoint) Barrier() {
	e.dispatch.Barrier()
}

func (e *endpoint) postCallback(fn func(cb transport.ConnectionCallbacks)) {
	e.dispatch.Post(func() {
		e.mu.Lock()
		cb := e.callbacks
		e.mu.Unlock()
		if cb != nil {
			fn(cb)
		}
	})
}

// inbound handles a non-ack frame from c. Messages are acknowledged once queued.
func (e *endpoint) inbound(c *conn, f *Frame, accepting func() bool) {
	switch f.Type {
	case frameMessage:
		ack := &Frame{Type: frameAck, ID: f.ID}
		if !accepting() {
			ack.Error = transport.ErrNotConnected.Error()
		} else {
			ev := transport.MessageEvent{Source: c.remote.ID, Path: f.Path, Data: f.Data}
			e.dispatch.Post(func() {
				if accepting() {
					e.listeners.NotifyMessage(ev)
				}
			})
		}
		if err := c.write(ack); err != nil {
			glog.V(2).Infof("wsnet: ack %s to %s dropped: %v", f.ID, c.remote.ID, err)
		}
	case frameData:
		ev := transport.DataEvent{
			Kind: eventKind(f.Kind),
			Item: transport.DataItem{Path: f.Path, Data: f.Data, Source: c.remote.ID},
		}
		e.dispatch.Post(func() {
			if accepting() {
				e.listeners.NotifyData([]transport.DataEvent{ev})
			}
		})
	case frameHello:
	default:
		glog.Warningf("wsnet: unknown frame type %q from %s", f.Type, c.remote.ID)
	}
}
