package auth

import "sync"

// Notifier is an explicit session-change stream. Subscribers get the current
// state once on attach, then every sign-in and sign-out. Unsubscribing is the
// caller's responsibility on teardown.
type Notifier struct {
	mu      sync.Mutex
	next    int
	subs    map[int]chan *Session
	current *Session
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]chan *Session)}
}

// Subscribe returns a channel of session states (nil means signed out) and
// the unsubscribe func. The current state is delivered immediately.
func (n *Notifier) Subscribe() (<-chan *Session, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.next
	n.next++

	ch := make(chan *Session, 8)
	ch <- n.current
	n.subs[id] = ch

	unsubscribe := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if sub, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(sub)
		}
	}
	return ch, unsubscribe
}

// publish fans the new state out to all subscribers. A subscriber that has
// fallen behind its buffer misses intermediate states, never the stream.
func (n *Notifier) publish(s *Session) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.current = s
	for _, ch := range n.subs {
		select {
		case ch <- s:
		default:
		}
	}
}
