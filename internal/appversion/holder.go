package appversion

import "sync"

// Holder is a single-slot replay channel: subscribers get the latest
// status on subscribe and every later one. After Suppress it holds
// Suppressed and ignores publishes until the process restarts.
type Holder struct {
	mu         sync.Mutex
	current    *Status
	suppressed bool
	subs       map[int]chan Status
	nextID     int
}

// NewHolder creates an empty holder
func NewHolder() *Holder {
	return &Holder{subs: make(map[int]chan Status)}
}

// Publish replaces the held status. Ignored while suppressed.
func (h *Holder) Publish(s Status) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.suppressed {
		return
	}
	h.set(s)
}

// Suppress mutes version prompts for the rest of the process lifetime.
func (h *Holder) Suppress() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.suppressed {
		return
	}
	next := Status{State: Suppressed}
	if h.current != nil {
		next = *h.current
		next.State = Suppressed
	}
	h.set(next)
	h.suppressed = true
}

// must hold mu
func (h *Holder) set(s Status) {
	h.current = &s
	for _, ch := range h.subs {
		// Replace whatever the subscriber has not read yet
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}

// Current returns the held status, if any
func (h *Holder) Current() (Status, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == nil {
		return Status{}, false
	}
	return *h.current, true
}

// Subscribe returns a channel that replays the held status (if any) and
// then carries each new one. Slow readers only ever see the latest value.
func (h *Holder) Subscribe() (<-chan Status, func()) {
	ch := make(chan Status, 1)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	if h.current != nil {
		ch <- *h.current
	}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
}
