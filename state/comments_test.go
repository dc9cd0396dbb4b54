package state

import (
	"fmt"
	"testing"

	"github.com/nikhilesh121/luvrix-realtime/wire"
)

func topLevel(id string) wire.Comment {
	return wire.Comment{ID: id, TargetID: "blog-1", TargetType: wire.TargetBlog, Content: "c-" + id}
}

func reply(id, parentID string) wire.Comment {
	c := topLevel(id)
	c.ParentID = parentID
	return c
}

func TestApplyAddedIdempotent(t *testing.T) {
	tree := NewCommentTree()

	if !tree.ApplyAdded(topLevel("c1")) {
		t.Fatal("first apply should change the tree")
	}
	if tree.ApplyAdded(topLevel("c1")) {
		t.Fatal("duplicate delivery should be suppressed")
	}
	if tree.Len() != 1 {
		t.Fatalf("expected 1 comment, got %d", tree.Len())
	}
}

func TestApplyRemovedIdempotent(t *testing.T) {
	tree := NewCommentTree()
	tree.ApplyAdded(topLevel("c1"))

	if !tree.ApplyRemoved("c1") {
		t.Fatal("first removal should change the tree")
	}
	if tree.ApplyRemoved("c1") {
		t.Fatal("second removal should be a no-op")
	}
	if tree.Len() != 0 {
		t.Fatalf("expected empty tree, got %d", tree.Len())
	}
}

func TestTreeIntegrityTwoLevels(t *testing.T) {
	tree := NewCommentTree()
	for i := 0; i < 3; i++ {
		tree.ApplyAdded(topLevel(fmt.Sprintf("c%d", i)))
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 2; j++ {
			tree.ApplyAdded(reply(fmt.Sprintf("r%d-%d", i, j), fmt.Sprintf("c%d", i)))
		}
	}

	items := tree.List()
	if len(items) != 3 {
		t.Fatalf("expected 3 top-level comments, got %d", len(items))
	}
	for _, c := range items {
		if len(c.Replies) != 2 {
			t.Errorf("comment %s: expected 2 replies, got %d", c.ID, len(c.Replies))
		}
		for _, r := range c.Replies {
			if r.ParentID != c.ID {
				t.Errorf("reply %s attached to wrong parent %s", r.ID, c.ID)
			}
			if len(r.Replies) != 0 {
				t.Errorf("reply %s must not have replies", r.ID)
			}
		}
	}
}

func TestTopLevelPrepended(t *testing.T) {
	tree := NewCommentTree()
	tree.ApplyAdded(topLevel("old"))
	tree.ApplyAdded(topLevel("new"))

	items := tree.List()
	if items[0].ID != "new" || items[1].ID != "old" {
		t.Errorf("expected newest first, got %s, %s", items[0].ID, items[1].ID)
	}
}

func TestOrphanReplyDropped(t *testing.T) {
	tree := NewCommentTree()
	tree.ApplyAdded(topLevel("c1"))

	if tree.ApplyAdded(reply("r1", "ghost")) {
		t.Fatal("orphan reply should not change the tree")
	}
	for _, c := range tree.List() {
		for _, r := range c.Replies {
			if r.ID == "r1" {
				t.Fatal("orphan reply must not appear anywhere")
			}
		}
	}
	if _, ok := tree.Get("r1"); ok {
		t.Fatal("orphan reply must not be findable")
	}
}

func TestParentRemovalCascades(t *testing.T) {
	tree := NewCommentTree()

	// End-to-end merge sequence for one room.
	tree.ApplyAdded(wire.Comment{ID: "c1", TargetID: "123", Content: "hi"})
	if tree.Len() != 1 {
		t.Fatalf("expected one top-level comment, got %d", tree.Len())
	}
	if replies := tree.List()[0].Replies; len(replies) != 0 {
		t.Fatalf("expected empty reply list, got %d", len(replies))
	}

	tree.ApplyAdded(wire.Comment{ID: "r1", ParentID: "c1", Content: "reply"})
	items := tree.List()
	if len(items[0].Replies) != 1 || items[0].Replies[0].ID != "r1" {
		t.Fatalf("expected exactly r1 under c1, got %+v", items[0].Replies)
	}

	tree.ApplyRemoved("c1")
	if tree.Len() != 0 {
		t.Fatal("removing the parent must cascade to its replies")
	}
	if _, ok := tree.Get("r1"); ok {
		t.Fatal("cascaded reply still findable")
	}
}

func TestRemoveReplyOnly(t *testing.T) {
	tree := NewCommentTree()
	tree.ApplyAdded(topLevel("c1"))
	tree.ApplyAdded(reply("r1", "c1"))
	tree.ApplyAdded(reply("r2", "c1"))

	if !tree.ApplyRemoved("r1") {
		t.Fatal("reply removal should change the tree")
	}
	items := tree.List()
	if len(items) != 1 || len(items[0].Replies) != 1 || items[0].Replies[0].ID != "r2" {
		t.Fatalf("unexpected tree after reply removal: %+v", items)
	}
}

func TestApplyLikeAbsolute(t *testing.T) {
	tree := NewCommentTree()
	tree.ApplyAdded(topLevel("c1"))
	tree.ApplyAdded(reply("r1", "c1"))

	tree.ApplyLike("c1", 4)
	tree.ApplyLike("r1", 2)
	// Re-delivery with a lower value wins: values are absolute.
	tree.ApplyLike("c1", 3)

	c, _ := tree.Get("c1")
	if c.LikeCount != 3 {
		t.Errorf("expected like count 3, got %d", c.LikeCount)
	}
	r, _ := tree.Get("r1")
	if r.LikeCount != 2 {
		t.Errorf("expected reply like count 2, got %d", r.LikeCount)
	}
	if tree.ApplyLike("ghost", 9) {
		t.Error("like for unknown id should be a no-op")
	}
}

func TestLoadFlattensDeepNesting(t *testing.T) {
	tree := NewCommentTree()
	snapshot := []wire.Comment{
		{
			ID: "c1",
			Replies: []wire.Comment{
				{ID: "r1", ParentID: "c1", Replies: []wire.Comment{{ID: "x", ParentID: "r1"}}},
			},
		},
	}
	tree.Load(snapshot)

	items := tree.List()
	if len(items[0].Replies) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(items[0].Replies))
	}
	if items[0].Replies[0].Replies != nil {
		t.Fatal("nested reply lists must be flattened away")
	}
}
