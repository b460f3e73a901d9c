package wsnet

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
	"go.uber.org/atomic"

	"github.com/i474232898/sunshine-wear/internal/transport"
)

var errBadHello = errors.New("wsnet: peer did not send hello")

// Client dials the companion's Server. It implements transport.Transport; the only
// node it ever sees is the companion.
type Client struct {
	endpoint

	url      string
	self     transport.Node
	secret   []byte
	settings *Settings
	dialer   *websocket.Dialer

	connMu     sync.Mutex
	conn       *conn
	connecting bool

	connected atomic.Bool
}

func NewClient(url string, self transport.Node, secret []byte, settings *Settings) *Client {
	if settings == nil {
		settings = DefaultSettings()
	}
	return &Client{
		endpoint: newEndpoint(),
		url:      url,
		self:     self,
		secret:   secret,
		settings: settings,
		dialer: &websocket.Dialer{
			HandshakeTimeout: settings.HandshakeTimeout,
		},
	}
}

// Connect dials in the background. The outcome arrives through the callbacks.
func (c *Client) Connect() {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn != nil || c.connecting {
		return
	}
	c.connecting = true
	go c.run()
}

func (c *Client) run() {
	cn, err := c.dial()
	if err != nil {
		c.connMu.Lock()
		c.connecting = false
		c.connMu.Unlock()
		glog.Warningf("wsnet: connect to %s failed: %v", c.url, err)
		c.postCallback(func(cb transport.ConnectionCallbacks) { cb.OnConnectionFailed(err) })
		return
	}

	c.connMu.Lock()
	if !c.connecting {
		// Disconnect raced the dial.
		c.connMu.Unlock()
		cn.ws.Close()
		return
	}
	c.connecting = false
	c.conn = cn
	c.connected.Store(true)
	c.connMu.Unlock()

	glog.Infof("wsnet: connected to %s (%s)", cn.remote.ID, cn.remote.DisplayName)
	c.postCallback(func(cb transport.ConnectionCallbacks) { cb.OnConnected() })

	err = cn.serve(func(f *Frame) {
		c.inbound(cn, f, c.connected.Load)
	})

	c.connMu.Lock()
	lost := c.conn == cn
	if lost {
		c.conn = nil
		c.connected.Store(false)
	}
	c.connMu.Unlock()

	if lost {
		glog.Infof("wsnet: connection to %s lost: %v", cn.remote.ID, err)
		c.postCallback(func(cb transport.ConnectionCallbacks) {
			cb.OnConnectionSuspended(transport.CauseNetworkLost)
		})
	}
}

func (c *Client) dial() (*conn, error) {
	token, err := IssueToken(c.secret, c.self, 0)
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	ctx, cancel := context.WithTimeout(context.Background(), c.settings.HandshakeTimeout)
	defer cancel()

	ws, resp, err := c.dialer.DialContext(ctx, c.url, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		return nil, err
	}

	ws.SetReadDeadline(time.Now().Add(c.settings.HandshakeTimeout))
	var hello Frame
	if err := ws.ReadJSON(&hello); err != nil {
		ws.Close()
		return nil, fmt.Errorf("wsnet: read hello: %w", err)
	}
	if hello.Type != frameHello || hello.Node == nil {
		ws.Close()
		return nil, errBadHello
	}
	return newConn(ws, *hello.Node, c.settings), nil
}

func (c *Client) current() *conn {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn
}

// Disconnect closes the link without reporting a suspension.
func (c *Client) Disconnect() {
	c.connMu.Lock()
	c.connecting = false
	cn := c.conn
	c.conn = nil
	c.connected.Store(false)
	c.connMu.Unlock()

	if cn != nil {
		cn.close()
	}
}

func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

func (c *Client) ConnectedNodes(ctx context.Context) ([]transport.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cn := c.current()
	if cn == nil {
		return nil, transport.ErrNotConnected
	}
	return []transport.Node{cn.remote}, nil
}

func (c *Client) SendMessage(ctx context.Context, node transport.NodeID, path string, data []byte) error {
	cn := c.current()
	if cn == nil {
		return transport.ErrNotConnected
	}
	if node != cn.remote.ID {
		return transport.ErrUnknownNode
	}
	return cn.request(ctx, &Frame{Type: frameMessage, ID: newFrameID(), Path: path, Data: data})
}

func (c *Client) PutDataItem(ctx context.Context, req transport.PutDataRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cn := c.current()
	if cn == nil {
		return transport.ErrNotConnected
	}
	return cn.write(dataFrame(transport.EventChanged, req.Path, req.Data, req.Urgent))
}

func (c *Client) DeleteDataItems(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cn := c.current()
	if cn == nil {
		return transport.ErrNotConnected
	}
	return cn.write(dataFrame(transport.EventDeleted, path, nil, true))
}

// Close disconnects and stops the event loop.
func (c *Client) Close() {
	c.Disconnect()
	c.dispatch.Close()
}
