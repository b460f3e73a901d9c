package wearable

import (
	"context"
	"sync"

	"github.com/golang/glog"
	"go.uber.org/atomic"

	"github.com/i474232898/sunshine-wear/internal/transport"
	"github.com/i474232898/sunshine-wear/internal/weather"
)

type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateSuspended
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateSuspended:
		return "suspended"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Endpoint drives the watch side: it connects while the face is visible, asks the
// phone for weather on every connect and caches what the phone pushes.
type Endpoint struct {
	transport transport.Transport
	cache     *Cache

	state atomic.Int32

	mu          sync.Mutex
	visible     bool
	unsubscribe func()

	workers sync.WaitGroup
}

// NewEndpoint registers the endpoint as t's connection callbacks.
func NewEndpoint(t transport.Transport, cache *Cache) *Endpoint {
	e := &Endpoint{transport: t, cache: cache}
	t.SetConnectionCallbacks(e)
	return e
}

func (e *Endpoint) State() State {
	return State(e.state.Load())
}

func (e *Endpoint) setState(s State) {
	if old := State(e.state.Swap(int32(s))); old != s {
		glog.V(2).Infof("wearable: %s -> %s", old, s)
	}
}

func (e *Endpoint) Cache() *Cache {
	return e.cache
}

// OnVisibilityChanged connects when the face becomes visible and disconnects when it
// is hidden.
func (e *Endpoint) OnVisibilityChanged(visible bool) {
	if !visible {
		e.mu.Lock()
		e.visible = false
		remove := e.unsubscribe
		e.unsubscribe = nil
		e.setState(StateDisconnected)
		e.mu.Unlock()

		if remove != nil {
			remove()
		}
		e.transport.Disconnect()
		return
	}

	e.mu.Lock()
	e.visible = true
	e.mu.Unlock()

	if e.State() == StateConnected && e.transport.IsConnected() {
		e.RequestWeatherUpdate()
		return
	}
	e.setState(StateConnecting)
	e.transport.Connect()
}

func (e *Endpoint) OnConnected() {
	e.mu.Lock()
	if !e.visible {
		e.mu.Unlock()
		// Hidden again before the connection completed.
		e.transport.Disconnect()
		return
	}
	e.setState(StateConnected)
	if e.unsubscribe == nil {
		e.unsubscribe = e.transport.AddDataListener(e)
	}
	e.mu.Unlock()

	glog.Infof("wearable: connected")
	e.RequestWeatherUpdate()
}

func (e *Endpoint) OnConnectionSuspended(cause transport.SuspendCause) {
	glog.Infof("wearable: connection suspended: %s", cause)
	e.dropConnection(StateSuspended)
}

func (e *Endpoint) OnConnectionFailed(err error) {
	glog.Warningf("wearable: connection failed: %v", err)
	e.dropConnection(StateFailed)
}

// dropConnection stops listening for data and moves to s.
func (e *Endpoint) dropConnection(s State) {
	e.mu.Lock()
	remove := e.unsubscribe
	e.unsubscribe = nil
	e.setState(s)
	e.mu.Unlock()

	if remove != nil {
		remove()
	}
}

// RequestWeatherUpdate asks every connected node for today's weather. It returns at
// once; the requests go out on a worker goroutine. Without a connection it does nothing.
func (e *Endpoint) RequestWeatherUpdate() {
	if !e.transport.IsConnected() {
		glog.V(2).Infof("wearable: not connected, skipping weather request")
		return
	}

	e.workers.Add(1)
	go func() {
		defer e.workers.Done()
		e.requestFromNodes(context.Background())
	}()
}

func (e *Endpoint) requestFromNodes(ctx context.Context) {
	nodes, err := e.transport.ConnectedNodes(ctx)
	if err != nil {
		glog.Warningf("wearable: list nodes: %v", err)
		return
	}
	for _, node := range nodes {
		if err := e.transport.SendMessage(ctx, node.ID, weather.RequestPath, nil); err != nil {
			glog.Warningf("wearable: request to %s: %v", node.ID, err)
			continue
		}
		glog.V(2).Infof("wearable: requested weather from %s", node.ID)
	}
}

// OnDataChanged stores every decodable record pushed on the data path. The newest
// event wins regardless of its retrieval time; undecodable payloads are dropped.
func (e *Endpoint) OnDataChanged(events []transport.DataEvent) {
	for _, ev := range events {
		if ev.Kind != transport.EventChanged || ev.Item.Path != weather.DataPath {
			continue
		}
		rec, err := weather.DecodeRecord(ev.Item.Data)
		if err != nil {
			glog.Warningf("wearable: discarding payload from %s: %v", ev.Item.Source, err)
			continue
		}
		e.cache.Store(rec)
	}
}

// Wait blocks until in-flight weather requests have finished.
func (e *Endpoint) Wait() {
	e.workers.Wait()
}

// Close hides the endpoint and waits for outstanding requests.
func (e *Endpoint) Close() {
	e.OnVisibilityChanged(false)
	e.Wait()
}
