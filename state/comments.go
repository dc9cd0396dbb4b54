package state

import (
	"sync"

	"github.com/nikhilesh121/luvrix-realtime/wire"
)

// CommentTree is the locally cached comment tree for one content item.
// Merges are idempotent: re-delivered events land on the same state, and
// events for unknown ids are benign no-ops. Depth is exactly two levels;
// a reply whose parent is missing (deleted concurrently, or a late join)
// is dropped.
type CommentTree struct {
	mu    sync.RWMutex
	items []wire.Comment
}

// NewCommentTree returns an empty tree.
func NewCommentTree() *CommentTree {
	return &CommentTree{}
}

// Load replaces the tree with a fetched snapshot. Reply lists nested
// deeper than one level are flattened away to hold the depth invariant.
func (t *CommentTree) Load(snapshot []wire.Comment) {
	items := make([]wire.Comment, 0, len(snapshot))
	for _, c := range snapshot {
		top := c
		top.Replies = make([]wire.Comment, 0, len(c.Replies))
		for _, r := range c.Replies {
			r.Replies = nil
			top.Replies = append(top.Replies, r)
		}
		items = append(items, top)
	}
	t.mu.Lock()
	t.items = items
	t.mu.Unlock()
}

// ApplyAdded merges a comment.added event. Top-level comments are
// prepended (newest first), replies appended to their parent. Duplicate
// ids are suppressed; orphan replies are dropped. Returns whether the
// tree changed.
func (t *CommentTree) ApplyAdded(c wire.Comment) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !c.IsReply() {
		for i := range t.items {
			if t.items[i].ID == c.ID {
				return false
			}
		}
		c.Replies = nil
		t.items = append([]wire.Comment{c}, t.items...)
		return true
	}

	for i := range t.items {
		if t.items[i].ID != c.ParentID {
			continue
		}
		for j := range t.items[i].Replies {
			if t.items[i].Replies[j].ID == c.ID {
				return false
			}
		}
		c.Replies = nil
		t.items[i].Replies = append(t.items[i].Replies, c)
		return true
	}
	// Parent unknown: dropped, not an error.
	return false
}

// ApplyRemoved merges a comment.removed event. Removing a top-level
// comment drops its replies with it; otherwise the reply lists are
// scanned. Unknown ids are a no-op.
func (t *CommentTree) ApplyRemoved(commentID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.items {
		if t.items[i].ID == commentID {
			t.items = append(t.items[:i], t.items[i+1:]...)
			return true
		}
	}
	for i := range t.items {
		replies := t.items[i].Replies
		for j := range replies {
			if replies[j].ID == commentID {
				t.items[i].Replies = append(replies[:j], replies[j+1:]...)
				return true
			}
		}
	}
	return false
}

// ApplyLike merges a comment.like.updated event. The delivered count is
// absolute, not a delta.
func (t *CommentTree) ApplyLike(commentID string, likes int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.items {
		if t.items[i].ID == commentID {
			t.items[i].LikeCount = likes
			return true
		}
	}
	for i := range t.items {
		for j := range t.items[i].Replies {
			if t.items[i].Replies[j].ID == commentID {
				t.items[i].Replies[j].LikeCount = likes
				return true
			}
		}
	}
	return false
}

// List returns a deep copy of the tree for rendering.
func (t *CommentTree) List() []wire.Comment {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]wire.Comment, len(t.items))
	for i, c := range t.items {
		out[i] = c
		out[i].Replies = append([]wire.Comment(nil), c.Replies...)
	}
	return out
}

// Len returns the number of top-level comments.
func (t *CommentTree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

// Get looks a comment up by id, checking top-level entries first and then
// replies.
func (t *CommentTree) Get(commentID string) (wire.Comment, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for i := range t.items {
		if t.items[i].ID == commentID {
			c := t.items[i]
			c.Replies = append([]wire.Comment(nil), c.Replies...)
			return c, true
		}
	}
	for i := range t.items {
		for j := range t.items[i].Replies {
			if t.items[i].Replies[j].ID == commentID {
				return t.items[i].Replies[j], true
			}
		}
	}
	return wire.Comment{}, false
}
