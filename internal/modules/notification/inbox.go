// README: In-process notification inbox with read flags.
package notification

import (
	"sync"

	"medride/internal/types"
)

const DefaultInboxSize = 500

// Inbox keeps the most recent notifications, dropping the oldest past its size.
type Inbox struct {
	mu    sync.RWMutex
	items []Notification
	size  int
}

func NewInbox(size int) *Inbox {
	if size <= 0 {
		size = DefaultInboxSize
	}
	return &Inbox{size: size}
}

func (b *Inbox) Add(n Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, n)
	if over := len(b.items) - b.size; over > 0 {
		b.items = append([]Notification(nil), b.items[over:]...)
	}
}

// List returns notifications newest first.
func (b *Inbox) List() []Notification {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Notification, 0, len(b.items))
	for i := len(b.items) - 1; i >= 0; i-- {
		out = append(out, b.items[i])
	}
	return out
}

func (b *Inbox) MarkRead(id types.ID) (Notification, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.items {
		if b.items[i].ID == id {
			b.items[i].Read = true
			return b.items[i], nil
		}
	}
	return Notification{}, ErrNotFound
}

func (b *Inbox) Unread() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, it := range b.items {
		if !it.Read {
			n++
		}
	}
	return n
}
