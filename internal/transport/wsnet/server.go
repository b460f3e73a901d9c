package wsnet

import (
	"bytes"
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
	"go.uber.org/atomic"

	"github.com/i474232898/sunshine-wear/internal/transport"
)

// Server accepts paired wearables over websocket. It implements transport.Transport
// and http.Handler.
type Server struct {
	endpoint

	self     transport.Node
	secret   []byte
	settings *Settings
	upgrader websocket.Upgrader

	peersMu sync.Mutex
	peers   map[transport.NodeID]*conn

	// itemsMu is taken before peersMu, never after.
	itemsMu sync.Mutex
	items   map[string][]byte
	pending map[string]*pendingFrame

	connected atomic.Bool
	closed    atomic.Bool
}

func NewServer(self transport.Node, secret []byte, settings *Settings) *Server {
	if settings == nil {
		settings = DefaultSettings()
	}
	return &Server{
		endpoint: newEndpoint(),
		self:     self,
		secret:   secret,
		settings: settings,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: settings.HandshakeTimeout,
		},
		peers:   make(map[transport.NodeID]*conn),
		items:   make(map[string][]byte),
		pending: make(map[string]*pendingFrame),
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.closed.Load() {
		http.Error(w, "closed", http.StatusServiceUnavailable)
		return
	}

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	remote, err := VerifyToken(s.secret, token)
	if err != nil {
		glog.Warningf("wsnet: rejected pairing from %s: %v", r.RemoteAddr, err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		glog.Infof("wsnet: upgrade from %s failed: %v", r.RemoteAddr, err)
		return
	}

	c := newConn(ws, remote, s.settings)
	s.addPeer(c)
	defer s.removePeer(c)

	self := s.self
	if err := c.write(&Frame{Type: frameHello, ID: newFrameID(), Node: &self}); err != nil {
		return
	}
	glog.Infof("wsnet: node %s (%s) paired", remote.ID, remote.DisplayName)

	err = c.serve(func(f *Frame) {
		s.inbound(c, f, s.connected.Load)
	})
	glog.Infof("wsnet: node %s gone: %v", remote.ID, err)
}

func (s *Server) addPeer(c *conn) {
	s.peersMu.Lock()
	old := s.peers[c.remote.ID]
	s.peers[c.remote.ID] = c
	s.peersMu.Unlock()

	if old != nil {
		old.close()
	}
}

func (s *Server) removePeer(c *conn) {
	s.peersMu.Lock()
	defer s.peersMu.Unlock()
	if s.peers[c.remote.ID] == c {
		delete(s.peers, c.remote.ID)
	}
}

func (s *Server) peer(id transport.NodeID) *conn {
	s.peersMu.Lock()
	defer s.peersMu.Unlock()
	return s.peers[id]
}

func (s *Server) allPeers() []*conn {
	s.peersMu.Lock()
	defer s.peersMu.Unlock()
	out := make([]*conn, 0, len(s.peers))
	for _, c := range s.peers {
		out = append(out, c)
	}
	return out
}

func (s *Server) Connect() {
	s.postCallback(func(cb transport.ConnectionCallbacks) {
		if s.closed.Load() {
			cb.OnConnectionFailed(transport.ErrClosed)
			return
		}
		if !s.connected.Swap(true) {
			cb.OnConnected()
		}
	})
}

func (s *Server) Disconnect() {
	s.connected.Store(false)
}

func (s *Server) IsConnected() bool {
	return s.connected.Load()
}

func (s *Server) ConnectedNodes(ctx context.Context) ([]transport.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.connected.Load() {
		return nil, transport.ErrNotConnected
	}
	peers := s.allPeers()
	nodes := make([]transport.Node, 0, len(peers))
	for _, c := range peers {
		nodes = append(nodes, c.remote)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes, nil
}

func (s *Server) SendMessage(ctx context.Context, node transport.NodeID, path string, data []byte) error {
	if !s.connected.Load() {
		return transport.ErrNotConnected
	}
	c := s.peer(node)
	if c == nil {
		return transport.ErrUnknownNode
	}
	return c.request(ctx, &Frame{Type: frameMessage, ID: newFrameID(), Path: path, Data: data})
}

// PutDataItem sends the item to every paired node. A non-urgent item waits
// BatchDelay; a later put on the same path replaces it while it waits.
func (s *Server) PutDataItem(ctx context.Context, req transport.PutDataRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.connected.Load() {
		return transport.ErrNotConnected
	}

	s.itemsMu.Lock()
	defer s.itemsMu.Unlock()

	if prev, ok := s.items[req.Path]; ok && bytes.Equal(prev, req.Data) {
		glog.V(2).Infof("wsnet: %s unchanged", req.Path)
		return nil
	}
	s.items[req.Path] = bytes.Clone(req.Data)

	f := dataFrame(transport.EventChanged, req.Path, bytes.Clone(req.Data), req.Urgent)
	batched := !req.Urgent && s.settings.BatchDelay > 0

	if p, ok := s.pending[req.Path]; ok {
		if batched {
			p.frame = f
			return nil
		}
		p.timer.Stop()
		delete(s.pending, req.Path)
	}
	if !batched {
		s.broadcastLocked(f)
		return nil
	}

	p := &pendingFrame{frame: f}
	p.timer = time.AfterFunc(s.settings.BatchDelay, func() { s.flush(req.Path, p) })
	s.pending[req.Path] = p
	return nil
}

type pendingFrame struct {
	timer *time.Timer
	frame *Frame
}

func (s *Server) flush(path string, p *pendingFrame) {
	s.itemsMu.Lock()
	defer s.itemsMu.Unlock()
	if s.pending[path] != p {
		return
	}
	delete(s.pending, path)
	s.broadcastLocked(p.frame)
}

func (s *Server) DeleteDataItems(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.connected.Load() {
		return transport.ErrNotConnected
	}

	s.itemsMu.Lock()
	defer s.itemsMu.Unlock()

	if p, ok := s.pending[path]; ok {
		p.timer.Stop()
		delete(s.pending, path)
	}
	if _, ok := s.items[path]; !ok {
		return nil
	}
	delete(s.items, path)
	s.broadcastLocked(dataFrame(transport.EventDeleted, path, nil, true))
	return nil
}

// broadcastLocked writes f to every peer. The caller holds itemsMu so frames of
// one path leave in put order.
func (s *Server) broadcastLocked(f *Frame) {
	for _, c := range s.allPeers() {
		if err := c.write(f); err != nil {
			glog.Infof("wsnet: %s %s to %s dropped: %v", f.Kind, f.Path, c.remote.ID, err)
		}
	}
}

// Close drops every peer and stops the event loop.
func (s *Server) Close() {
	s.closed.Store(true)
	s.connected.Store(false)
	for _, c := range s.allPeers() {
		c.close()
	}
	s.dispatch.Close()
}
