package state

import (
	"testing"
	"time"

	"github.com/nikhilesh121/luvrix-realtime/wire"
)

func typing(entity, actor, name string, on bool) wire.CommentTyping {
	return wire.CommentTyping{EntityID: entity, ActorID: actor, ActorName: name, IsTyping: on}
}

func TestTypingAddAndRemove(t *testing.T) {
	ts := NewTypingSets("me")

	ts.Apply(typing("blog-1", "u2", "Bea", true))
	ts.Apply(typing("blog-1", "u3", "Ana", true))

	typists := ts.List("blog-1")
	if len(typists) != 2 {
		t.Fatalf("expected 2 typists, got %d", len(typists))
	}
	if typists[0].ActorName != "Ana" || typists[1].ActorName != "Bea" {
		t.Errorf("expected name-sorted order, got %+v", typists)
	}

	ts.Apply(typing("blog-1", "u2", "Bea", false))
	typists = ts.List("blog-1")
	if len(typists) != 1 || typists[0].ActorID != "u3" {
		t.Errorf("expected only u3 left, got %+v", typists)
	}
}

func TestTypingSelfExcluded(t *testing.T) {
	ts := NewTypingSets("me")
	ts.Apply(typing("blog-1", "me", "Me", true))
	if got := ts.List("blog-1"); len(got) != 0 {
		t.Errorf("own echo must not appear in the set, got %+v", got)
	}
}

func TestTypingDuplicateStartRefreshes(t *testing.T) {
	ts := NewTypingSets("me")
	ts.Apply(typing("blog-1", "u2", "Bea", true))
	ts.Apply(typing("blog-1", "u2", "Bea", true))
	if got := ts.List("blog-1"); len(got) != 1 {
		t.Errorf("duplicate start must not duplicate the entry, got %+v", got)
	}
}

func TestTypingStopForUnknownActor(t *testing.T) {
	ts := NewTypingSets("me")
	ts.Apply(typing("blog-1", "u9", "Zed", false))
	if got := ts.List("blog-1"); len(got) != 0 {
		t.Errorf("stop for unknown actor must be a no-op, got %+v", got)
	}
}

func TestTypingRoomsIsolated(t *testing.T) {
	ts := NewTypingSets("me")
	ts.Apply(typing("blog-1", "u2", "Bea", true))
	ts.Apply(typing("manga-7", "u3", "Ana", true))

	if got := ts.List("blog-1"); len(got) != 1 || got[0].ActorID != "u2" {
		t.Errorf("blog-1 set leaked, got %+v", got)
	}
	if got := ts.List("manga-7"); len(got) != 1 || got[0].ActorID != "u3" {
		t.Errorf("manga-7 set leaked, got %+v", got)
	}
}

func TestTypingExpire(t *testing.T) {
	ts := NewTypingSets("me")
	ts.Apply(typing("blog-1", "u2", "Bea", true))

	if removed := ts.Expire(time.Now().Add(-time.Second)); removed != 0 {
		t.Fatalf("fresh entry evicted, removed=%d", removed)
	}
	if removed := ts.Expire(time.Now().Add(time.Second)); removed != 1 {
		t.Fatalf("stale entry survived, removed=%d", removed)
	}
	if got := ts.List("blog-1"); len(got) != 0 {
		t.Errorf("expected empty set after expiry, got %+v", got)
	}
}
