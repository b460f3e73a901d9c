package transport

import (
	"sort"
	"sync"
)

// Registry tracks data and message listeners for an endpoint implementation.
type Registry struct {
	mu       sync.RWMutex
	next     int
	data     map[int]DataListener
	messages map[int]MessageListener
}

func (r *Registry) AddData(l DataListener) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.data == nil {
		r.data = make(map[int]DataListener)
	}
	id := r.next
	r.next++
	r.data[id] = l
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.data, id)
	}
}

func (r *Registry) AddMessage(l MessageListener) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.messages == nil {
		r.messages = make(map[int]MessageListener)
	}
	id := r.next
	r.next++
	r.messages[id] = l
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.messages, id)
	}
}

// DataListeners returns a snapshot in registration order.
func (r *Registry) DataListeners() []DataListener {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]DataListener, 0, len(r.data))
	for _, id := range sortedKeys(r.data) {
		out = append(out, r.data[id])
	}
	return out
}

// MessageListeners returns a snapshot in registration order.
func (r *Registry) MessageListeners() []MessageListener {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]MessageListener, 0, len(r.messages))
	for _, id := range sortedKeys(r.messages) {
		out = append(out, r.messages[id])
	}
	return out
}

// NotifyData delivers events to the current data listeners.
func (r *Registry) NotifyData(events []DataEvent) {
	for _, l := range r.DataListeners() {
		l.OnDataChanged(events)
	}
}

// NotifyMessage delivers ev to the current message listeners.
func (r *Registry) NotifyMessage(ev MessageEvent) {
	for _, l := range r.MessageListeners() {
		l.OnMessageReceived(ev)
	}
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
