package transport

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// ErrUnavailable is reported to OnConnectionFailed when an endpoint cannot connect.
var ErrUnavailable = errors.New("transport: service unavailable")

type HubSettings struct {
	// BatchDelay postpones delivery of non-urgent data items.
	BatchDelay time.Duration
}

func DefaultHubSettings() *HubSettings {
	return &HubSettings{
		BatchDelay: 2 * time.Second,
	}
}

type itemKey struct {
	source NodeID
	path   string
}

// pendingItem is a batched change waiting for its delay to pass.
type pendingItem struct {
	timer *time.Timer
	ev    DataEvent
}

// Hub is an in-process paired network. Every joined Endpoint sees the others as
// connected nodes while both are connected.
//
// Data events of one source and path reach listeners in put order: a later put
// replaces a batched change that has not been delivered yet.
type Hub struct {
	settings *HubSettings

	mu        sync.Mutex
	endpoints map[NodeID]*Endpoint
	order     []NodeID
	items     map[itemKey][]byte
	pending   map[itemKey]*pendingItem
}

func NewHub(settings *HubSettings) *Hub {
	if settings == nil {
		settings = DefaultHubSettings()
	}
	return &Hub{
		settings:  settings,
		endpoints: make(map[NodeID]*Endpoint),
		items:     make(map[itemKey][]byte),
		pending:   make(map[itemKey]*pendingItem),
	}
}

// Join adds a node with a generated id.
func (h *Hub) Join(name string) *Endpoint {
	return h.JoinWithID(NodeID(uuid.NewString()), name)
}

func (h *Hub) JoinWithID(id NodeID, name string) *Endpoint {
	e := &Endpoint{
		hub:      h,
		node:     Node{ID: id, DisplayName: name, Nearby: true},
		dispatch: NewDispatcher(),
	}
	e.available.Store(true)

	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.endpoints[id]; ok {
		old.dispatch.Close()
	} else {
		h.order = append(h.order, id)
	}
	h.endpoints[id] = e
	return e
}

func (h *Hub) leave(e *Endpoint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.endpoints[e.node.ID] != e {
		return
	}
	delete(h.endpoints, e.node.ID)
	for i, id := range h.order {
		if id == e.node.ID {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

func (h *Hub) lookup(id NodeID) *Endpoint {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.endpoints[id]
}

func (h *Hub) others(id NodeID) []*Endpoint {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.othersLocked(id)
}

// othersLocked returns the endpoints other than id, in join order.
func (h *Hub) othersLocked(id NodeID) []*Endpoint {
	out := make([]*Endpoint, 0, len(h.order))
	for _, oid := range h.order {
		if oid != id {
			out = append(out, h.endpoints[oid])
		}
	}
	return out
}

func (h *Hub) put(source NodeID, req PutDataRequest) {
	key := itemKey{source: source, path: req.Path}

	h.mu.Lock()
	defer h.mu.Unlock()

	if prev, ok := h.items[key]; ok && bytes.Equal(prev, req.Data) {
		// Unchanged items do not produce change events.
		glog.V(2).Infof("transport: %s%s unchanged", source, req.Path)
		return
	}
	h.items[key] = bytes.Clone(req.Data)

	ev := DataEvent{Kind: EventChanged, Item: DataItem{Path: req.Path, Data: bytes.Clone(req.Data), Source: source}}
	batched := !req.Urgent && h.settings.BatchDelay > 0

	if p, ok := h.pending[key]; ok {
		if batched {
			p.ev = ev
			return
		}
		p.timer.Stop()
		delete(h.pending, key)
	}
	if !batched {
		h.broadcastLocked(source, ev)
		return
	}

	p := &pendingItem{ev: ev}
	p.timer = time.AfterFunc(h.settings.BatchDelay, func() { h.flush(key, p) })
	h.pending[key] = p
}

// flush delivers a batched change unless a later put or delete replaced it.
func (h *Hub) flush(key itemKey, p *pendingItem) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pending[key] != p {
		return
	}
	delete(h.pending, key)
	h.broadcastLocked(key.source, p.ev)
}

func (h *Hub) remove(source NodeID, path string) {
	key := itemKey{source: source, path: path}

	h.mu.Lock()
	defer h.mu.Unlock()

	if p, ok := h.pending[key]; ok {
		p.timer.Stop()
		delete(h.pending, key)
	}
	if _, ok := h.items[key]; !ok {
		return
	}
	delete(h.items, key)
	h.broadcastLocked(source, DataEvent{Kind: EventDeleted, Item: DataItem{Path: path, Source: source}})
}

// broadcastLocked queues ev on every other endpoint. Holding h.mu keeps the
// queue order equal to the put order.
func (h *Hub) broadcastLocked(source NodeID, ev DataEvent) {
	for _, e := range h.othersLocked(source) {
		e := e
		e.dispatch.Post(func() {
			if e.connected.Load() {
				e.listeners.NotifyData([]DataEvent{ev})
			}
		})
	}
}

// Endpoint is one node's view of a Hub. It implements Transport.
type Endpoint struct {
	hub       *Hub
	node      Node
	dispatch  *Dispatcher
	listeners Registry

	mu        sync.Mutex
	callbacks ConnectionCallbacks

	connected atomic.Bool
	available atomic.Bool
}

func (e *Endpoint) Node() Node { return e.node }

func (e *Endpoint) SetConnectionCallbacks(cb ConnectionCallbacks) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.callbacks = cb
}

func (e *Endpoint) connectionCallbacks() ConnectionCallbacks {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.callbacks
}

// SetAvailable controls whether subsequent Connect calls succeed.
func (e *Endpoint) SetAvailable(available bool) {
	e.available.Store(available)
}

func (e *Endpoint) Connect() {
	e.dispatch.Post(func() {
		cb := e.connectionCallbacks()
		if !e.available.Load() {
			if cb != nil {
				cb.OnConnectionFailed(ErrUnavailable)
			}
			return
		}
		if e.connected.Swap(true) {
			return
		}
		if cb != nil {
			cb.OnConnected()
		}
	})
}

// Disconnect drops the connection without a callback.
func (e *Endpoint) Disconnect() {
	e.connected.Store(false)
}

// Suspend drops the connection and reports the cause.
func (e *Endpoint) Suspend(cause SuspendCause) {
	if !e.connected.Swap(false) {
		return
	}
	e.dispatch.Post(func() {
		if cb := e.connectionCallbacks(); cb != nil {
			cb.OnConnectionSuspended(cause)
		}
	})
}

func (e *Endpoint) IsConnected() bool {
	return e.connected.Load()
}

func (e *Endpoint) ConnectedNodes(ctx context.Context) ([]Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !e.connected.Load() {
		return nil, ErrNotConnected
	}
	var nodes []Node
	for _, o := range e.hub.others(e.node.ID) {
		if o.connected.Load() {
			nodes = append(nodes, o.node)
		}
	}
	return nodes, nil
}

func (e *Endpoint) SendMessage(ctx context.Context, node NodeID, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !e.connected.Load() {
		return ErrNotConnected
	}
	target := e.hub.lookup(node)
	if target == nil || !target.connected.Load() {
		return ErrUnknownNode
	}

	ev := MessageEvent{Source: e.node.ID, Path: path, Data: bytes.Clone(data)}
	if !target.dispatch.Post(func() {
		if target.connected.Load() {
			target.listeners.NotifyMessage(ev)
		}
	}) {
		return ErrUnknownNode
	}
	return nil
}

func (e *Endpoint) PutDataItem(ctx context.Context, req PutDataRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !e.connected.Load() {
		return ErrNotConnected
	}
	e.hub.put(e.node.ID, req)
	return nil
}

func (e *Endpoint) DeleteDataItems(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !e.connected.Load() {
		return ErrNotConnected
	}
	e.hub.remove(e.node.ID, path)
	return nil
}

func (e *Endpoint) AddDataListener(l DataListener) func() {
	return e.listeners.AddData(l)
}

func (e *Endpoint) AddMessageListener(l MessageListener) func() {
	return e.listeners.AddMessage(l)
}

// Barrier waits until all events already queued for this endpoint were delivered.
func (e *Endpoint) Barrier() {
	e.dispatch.Barrier()
}

// Close removes the endpoint from the hub and stops its event loop.
func (e *Endpoint) Close() {
	e.connected.Store(false)
	e.hub.leave(e)
	e.dispatch.Close()
}
