// Package transport models the paired-device messaging substrate: node discovery,
// path-addressed messages and a synchronized data layer with change notifications.
package transport

import (
	"context"
	"errors"
)

var (
	// ErrNotConnected is returned by operations issued while the endpoint is not connected.
	ErrNotConnected = errors.New("transport: not connected")
	// ErrUnknownNode is returned when a message targets a node that is not reachable.
	ErrUnknownNode = errors.New("transport: unknown node")
	// ErrClosed is returned after the transport has been shut down.
	ErrClosed = errors.New("transport: closed")
)

type NodeID string

// Node is a paired device.
type Node struct {
	ID          NodeID `json:"id"`
	DisplayName string `json:"displayName"`
	Nearby      bool   `json:"nearby"`
}

type EventKind int

const (
	EventChanged EventKind = iota + 1
	EventDeleted
)

func (k EventKind) String() string {
	switch k {
	case EventChanged:
		return "changed"
	case EventDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// DataItem is a path-addressed payload in the data layer.
type DataItem struct {
	Path   string
	Data   []byte
	Source NodeID
}

type DataEvent struct {
	Kind EventKind
	Item DataItem
}

type MessageEvent struct {
	Source NodeID
	Path   string
	Data   []byte
}

// PutDataRequest writes an item. Urgent items skip delivery batching.
type PutDataRequest struct {
	Path   string
	Data   []byte
	Urgent bool
}

type SuspendCause int

const (
	CauseServiceDisconnected SuspendCause = iota + 1
	CauseNetworkLost
)

func (c SuspendCause) String() string {
	switch c {
	case CauseServiceDisconnected:
		return "service disconnected"
	case CauseNetworkLost:
		return "network lost"
	default:
		return "unknown"
	}
}

type DataListener interface {
	OnDataChanged(events []DataEvent)
}

type MessageListener interface {
	OnMessageReceived(ev MessageEvent)
}

// ConnectionCallbacks receives the outcome of Connect and later connection loss.
type ConnectionCallbacks interface {
	OnConnected()
	OnConnectionSuspended(cause SuspendCause)
	OnConnectionFailed(err error)
}

// DataListenerFunc adapts a function to DataListener.
type DataListenerFunc func(events []DataEvent)

func (f DataListenerFunc) OnDataChanged(events []DataEvent) { f(events) }

// MessageListenerFunc adapts a function to MessageListener.
type MessageListenerFunc func(ev MessageEvent)

func (f MessageListenerFunc) OnMessageReceived(ev MessageEvent) { f(ev) }

// DataPutter is the write side of the data layer.
type DataPutter interface {
	PutDataItem(ctx context.Context, req PutDataRequest) error
}

// NodeLister discovers the currently connected peer nodes.
type NodeLister interface {
	ConnectedNodes(ctx context.Context) ([]Node, error)
}

// Transport is one endpoint of the paired-device channel.
//
// Callbacks and listener notifications of one endpoint are delivered serially on a
// single goroutine. Blocking calls must not be issued from that goroutine.
type Transport interface {
	DataPutter
	NodeLister

	// Connect starts connecting; the outcome is reported through the callbacks.
	Connect()
	Disconnect()
	IsConnected() bool
	SetConnectionCallbacks(cb ConnectionCallbacks)

	// SendMessage returns once the transport accepted the message, not when it was handled.
	SendMessage(ctx context.Context, node NodeID, path string, data []byte) error
	DeleteDataItems(ctx context.Context, path string) error

	// AddDataListener registers l and returns a function removing it.
	AddDataListener(l DataListener) (remove func())
	AddMessageListener(l MessageListener) (remove func())
}
