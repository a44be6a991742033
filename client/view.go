package client

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultLiveCap bounds the session-local live list.
	DefaultLiveCap = 50
	// DefaultDisplayCap bounds the merged view handed to the UI.
	DefaultDisplayCap = 20
)

// Notification is one entry in the client's merged notification view.
type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Module    string    `json:"module"`
	ActionURL string    `json:"action_url,omitempty"`
	Icon      string    `json:"icon,omitempty"`
	Color     string    `json:"color,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`

	durable bool
}

// Feed is a render-ready snapshot of the merged notification view.
type Feed struct {
	Items       []Notification
	UnreadCount int
}

// view holds the two source lists the merged feed is derived from: the
// session-local live stream and the last durable-store fetch.
type view struct {
	mu         sync.Mutex
	liveCap    int
	displayCap int
	live       []Notification // newest first
	durable    []Notification // newest first, as fetched
}

func newView(liveCap, displayCap int) *view {
	if liveCap <= 0 {
		liveCap = DefaultLiveCap
	}
	if displayCap <= 0 {
		displayCap = DefaultDisplayCap
	}
	return &view{liveCap: liveCap, displayCap: displayCap}
}

// ingestLive prepends a live event to the bounded local list, assigning it a
// locally-unique id. Oldest entries beyond the cap are dropped.
func (v *view) ingestLive(n Notification) {
	n.ID = uuid.NewString()
	n.Read = false
	n.durable = false

	v.mu.Lock()
	defer v.mu.Unlock()
	v.live = append([]Notification{n}, v.live...)
	if len(v.live) > v.liveCap {
		v.live = v.live[:v.liveCap]
	}
}

// setDurable replaces the durable-store list after a backfill fetch.
func (v *view) setDurable(items []Notification) {
	for i := range items {
		items[i].durable = true
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.durable = items
}

// snapshot merges the live and durable lists: live first, de-duplicated by
// (title, message) with the first occurrence winning, sorted newest first and
// truncated to the display cap. The unread count covers the whole merged set,
// not just the truncated window.
func (v *view) snapshot() Feed {
	v.mu.Lock()
	defer v.mu.Unlock()

	type contentKey struct{ title, message string }
	seen := make(map[contentKey]struct{}, len(v.live)+len(v.durable))
	merged := make([]Notification, 0, len(v.live)+len(v.durable))
	for _, n := range append(append([]Notification{}, v.live...), v.durable...) {
		k := contentKey{n.Title, n.Message}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		merged = append(merged, n)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.After(merged[j].Timestamp)
	})

	feed := Feed{}
	for _, n := range merged {
		if !n.Read {
			feed.UnreadCount++
		}
	}
	if len(merged) > v.displayCap {
		merged = merged[:v.displayCap]
	}
	feed.Items = merged
	return feed
}

// markRead flips one entry's read flag in place. It reports whether the entry
// was found and whether it originated from the durable store (and so needs a
// server-side markRead as well).
func (v *view) markRead(id string) (found, durable bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.live {
		if v.live[i].ID == id {
			v.live[i].Read = true
			return true, false
		}
	}
	for i := range v.durable {
		if v.durable[i].ID == id {
			v.durable[i].Read = true
			return true, true
		}
	}
	return false, false
}

// markAllRead flips every entry's read flag. Idempotent.
func (v *view) markAllRead() {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.live {
		v.live[i].Read = true
	}
	for i := range v.durable {
		v.durable[i].Read = true
	}
}
