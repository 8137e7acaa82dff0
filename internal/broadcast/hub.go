// Package broadcast implements the per-room SSE subscriber fan-out: registration with replace-by-pid semantics and identity-guarded
// unregistration. The periodic heartbeat is written by the SSE handler in
// internal/server, not by this package.
package broadcast

import (
	"encoding/json"
	"sync"
)

// Subscriber is one live SSE connection's delivery channel. Two
// subscribers are never identity-equal even if they share a (room, pid):
// registering a new one for the same pid replaces the old one, and only
// the exact same *Subscriber can unregister itself.
type Subscriber struct {
	pid string
	ch  chan []byte
}

// Hub owns every room's subscriber set.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]map[string]*Subscriber // code -> pid -> subscriber
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[string]*Subscriber)}
}

// Subscribe registers a fresh connection for (code, pid), replacing any
// prior connection under the same key, and returns it; pushes are read
// from its buffered Chan().
func (h *Hub) Subscribe(code, pid string) *Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()
	sub := &Subscriber{pid: pid, ch: make(chan []byte, 8)}
	if h.rooms[code] == nil {
		h.rooms[code] = make(map[string]*Subscriber)
	}
	h.rooms[code][pid] = sub
	return sub
}

// Unregister removes sub from (code, pid) only if it is still the
// currently-registered connection for that key,
// so a late-arriving teardown of a stale connection never evicts a
// reconnected newer one.
func (h *Hub) Unregister(code, pid string, sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.rooms[code]
	if !ok {
		return
	}
	if current, ok := subs[pid]; ok && current == sub {
		delete(subs, pid)
		close(sub.ch)
	}
	if len(subs) == 0 {
		delete(h.rooms, code)
	}
}

// Publish sends a per-recipient snapshot to every subscriber of code.
// Snapshots are per-pid, so buildFor is called once per
// subscriber with its pid. An update for a subscriber whose buffer is
// full is dropped rather than blocking the mutation path; the subscriber
// stays registered.
func (h *Hub) Publish(code string, buildFor func(pid string) interface{}) {
	h.mu.Lock()
	subs := h.rooms[code]
	targets := make([]*Subscriber, 0, len(subs))
	for _, s := range subs {
		targets = append(targets, s)
	}
	h.mu.Unlock()

	for _, s := range targets {
		payload, err := json.Marshal(buildFor(s.pid))
		if err != nil {
			continue
		}
		select {
		case s.ch <- payload:
		default:
			// Slow subscriber; drop this update. It will get a fresh full
			// snapshot on reconnect.
		}
	}
}

// PublishOne sends a single, already-built snapshot to one subscriber. Used
// to push the initial full snapshot immediately after an SSE connection is
// established. Like Publish, it drops the payload if the subscriber's
// buffer is full.
func (h *Hub) PublishOne(sub *Subscriber, snapshot interface{}) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	select {
	case sub.ch <- payload:
	default:
	}
}

// Chan exposes the subscriber's delivery channel for the HTTP handler's
// SSE loop.
func (s *Subscriber) Chan() <-chan []byte { return s.ch }
