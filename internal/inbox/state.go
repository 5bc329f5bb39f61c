// Package inbox holds the in-memory view of the notification feed: the
// displayed entries, the unread badge and the panel visibility.
package inbox

import (
	"sort"

	"github.com/nhle/milkfeed/internal/model"
)

// FeedState is the displayed notification list and its unread badge.
// It is owned by a single goroutine (the Bubble Tea update loop) and is
// not safe for concurrent use.
type FeedState struct {
	entries []model.Notification
	index   map[string]int
	badge   int
}

// NewFeedState returns an empty state with a zero badge.
func NewFeedState() *FeedState {
	return &FeedState{index: make(map[string]int)}
}

// RenderInitial replaces the displayed entries with records, newest first,
// and sets the badge to the number of unread records.
func (f *FeedState) RenderInitial(records []model.Notification) {
	entries := make([]model.Notification, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		entries = append(entries, r)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].ID > entries[j].ID
	})

	f.entries = entries
	f.reindex()

	f.badge = 0
	for _, e := range f.entries {
		if !e.IsRead {
			f.badge++
		}
	}
}

// RenderIncoming puts a live arrival on top. The badge grows by one when
// the record is unread. A record already displayed is ignored and false
// is returned.
func (f *FeedState) RenderIncoming(rec model.Notification) bool {
	if _, ok := f.index[rec.ID]; ok {
		return false
	}

	f.entries = append([]model.Notification{rec}, f.entries...)
	f.reindex()
	if !rec.IsRead {
		f.badge++
	}
	return true
}

// MarkRead flips the entry with the given ID to read. It returns true only
// when an unread entry changed; calling it again is a no-op.
func (f *FeedState) MarkRead(id string) bool {
	i, ok := f.index[id]
	if !ok || f.entries[i].IsRead {
		return false
	}

	f.entries[i].IsRead = true
	if f.badge > 0 {
		f.badge--
	}
	return true
}

// MarkAllRead marks every unread entry and returns the IDs it changed.
// The badge is zero afterwards.
func (f *FeedState) MarkAllRead() []string {
	var changed []string
	for i := range f.entries {
		if f.entries[i].IsRead {
			continue
		}
		f.entries[i].IsRead = true
		changed = append(changed, f.entries[i].ID)
	}
	f.badge = 0
	return changed
}

// Badge returns the unread count shown in the header.
func (f *FeedState) Badge() int { return f.badge }

// Len returns the number of displayed entries.
func (f *FeedState) Len() int { return len(f.entries) }

// Entries returns a copy of the displayed entries, newest first.
func (f *FeedState) Entries() []model.Notification {
	out := make([]model.Notification, len(f.entries))
	copy(out, f.entries)
	return out
}

// Unread returns the displayed entries that are not yet read.
func (f *FeedState) Unread() []model.Notification {
	var out []model.Notification
	for _, e := range f.entries {
		if !e.IsRead {
			out = append(out, e)
		}
	}
	return out
}

// At returns the entry at position i.
func (f *FeedState) At(i int) (model.Notification, bool) {
	if i < 0 || i >= len(f.entries) {
		return model.Notification{}, false
	}
	return f.entries[i], true
}

func (f *FeedState) reindex() {
	f.index = make(map[string]int, len(f.entries))
	for i, e := range f.entries {
		f.index[e.ID] = i
	}
}
