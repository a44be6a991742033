package client

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(offset int) time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(offset) * time.Minute)
}

func TestView_LiveListBounded(t *testing.T) {
	v := newView(3, 10)
	for i := 0; i < 5; i++ {
		v.ingestLive(Notification{Title: fmt.Sprintf("t%d", i), Message: "m", Timestamp: ts(i)})
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	require.Len(t, v.live, 3)
	// Newest first; the two oldest were dropped.
	assert.Equal(t, "t4", v.live[0].Title)
	assert.Equal(t, "t2", v.live[2].Title)
}

func TestView_IngestAssignsIDAndUnread(t *testing.T) {
	v := newView(0, 0)
	v.ingestLive(Notification{Title: "a", Message: "b", Read: true, ID: "client-supplied"})

	feed := v.snapshot()
	require.Len(t, feed.Items, 1)
	assert.NotEqual(t, "client-supplied", feed.Items[0].ID)
	assert.False(t, feed.Items[0].Read, "live items always start unread")
	assert.Equal(t, 1, feed.UnreadCount)
}

func TestView_MergeDeduplicatesByContent(t *testing.T) {
	v := newView(0, 0)
	v.ingestLive(Notification{Title: "Exam posted", Message: "Math midterm", Timestamp: ts(2)})
	v.setDurable([]Notification{
		{ID: "d1", Title: "Exam posted", Message: "Math midterm", Timestamp: ts(1)},
		{ID: "d2", Title: "Fees due", Message: "Term 2", Timestamp: ts(0)},
	})

	feed := v.snapshot()
	require.Len(t, feed.Items, 2, "identical (title, message) pairs collapse to one entry")
	// The live copy wins (live items come first in the merge).
	assert.False(t, feed.Items[0].durable)
	assert.Equal(t, "Exam posted", feed.Items[0].Title)
	assert.Equal(t, "d2", feed.Items[1].ID)
}

func TestView_SnapshotSortsNewestFirstAndTruncates(t *testing.T) {
	v := newView(0, 2)
	v.setDurable([]Notification{
		{ID: "d1", Title: "a", Message: "1", Timestamp: ts(0)},
		{ID: "d2", Title: "b", Message: "2", Timestamp: ts(5)},
	})
	v.ingestLive(Notification{Title: "c", Message: "3", Timestamp: ts(3)})

	feed := v.snapshot()
	require.Len(t, feed.Items, 2)
	assert.Equal(t, "b", feed.Items[0].Title)
	assert.Equal(t, "c", feed.Items[1].Title)
	// Unread counting happens before truncation.
	assert.Equal(t, 3, feed.UnreadCount)
}

func TestView_MarkReadReportsOrigin(t *testing.T) {
	v := newView(0, 0)
	v.ingestLive(Notification{Title: "live", Message: "x", Timestamp: ts(1)})
	v.setDurable([]Notification{{ID: "d1", Title: "durable", Message: "y", Timestamp: ts(0)}})

	liveID := v.snapshot().Items[0].ID

	found, durable := v.markRead(liveID)
	assert.True(t, found)
	assert.False(t, durable)

	found, durable = v.markRead("d1")
	assert.True(t, found)
	assert.True(t, durable, "durable-origin items need a server-side markRead too")

	found, _ = v.markRead("missing")
	assert.False(t, found)

	assert.Equal(t, 0, v.snapshot().UnreadCount)
}

func TestView_MarkAllReadIdempotent(t *testing.T) {
	v := newView(0, 0)
	v.ingestLive(Notification{Title: "a", Message: "1", Timestamp: ts(0)})
	v.setDurable([]Notification{{ID: "d1", Title: "b", Message: "2", Timestamp: ts(1)}})

	v.markAllRead()
	assert.Equal(t, 0, v.snapshot().UnreadCount)
	v.markAllRead()
	assert.Equal(t, 0, v.snapshot().UnreadCount)
}
