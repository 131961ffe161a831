package mcp

import "sync"

// subscriberSet is the shared bookkeeping every Transport variant uses to
// satisfy OnMessage/OnError: an ordered, mutex-guarded slice of handlers
// with Subscription-based removal. Pulled out once instead of duplicated
// across transport_memory.go/transport_stdio.go/transport_sse.go.
type subscriberSet[H any] struct {
	mu       sync.Mutex
	handlers []*subEntry[H]
	nextID   uint64
}

type subEntry[H any] struct {
	id      uint64
	handler H
	removed bool
}

type subscription[H any] struct {
	set *subscriberSet[H]
	id  uint64
}

func (s *subscription[H]) Unsubscribe() {
	s.set.mu.Lock()
	defer s.set.mu.Unlock()
	for _, e := range s.set.handlers {
		if e.id == s.id {
			e.removed = true
		}
	}
}

func (s *subscriberSet[H]) add(h H) Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	entry := &subEntry[H]{id: s.nextID, handler: h}
	s.handlers = append(s.handlers, entry)
	return &subscription[H]{set: s, id: entry.id}
}

// snapshot returns the live handlers in registration order, compacting out
// removed entries.
func (s *subscriberSet[H]) snapshot() []H {
	s.mu.Lock()
	defer s.mu.Unlock()
	live := s.handlers[:0:0]
	out := make([]H, 0, len(s.handlers))
	for _, e := range s.handlers {
		if !e.removed {
			live = append(live, e)
			out = append(out, e.handler)
		}
	}
	s.handlers = live
	return out
}

func (s *subscriberSet[H]) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = nil
}
