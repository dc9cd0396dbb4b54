package gateway

import (
	"testing"

	"github.com/nikhilesh121/luvrix-realtime/wire"
)

func drain(c *Client) [][]byte {
	var out [][]byte
	for {
		select {
		case frame := <-c.Send():
			out = append(out, frame)
		default:
			return out
		}
	}
}

func TestPublishReachesRoomMembers(t *testing.T) {
	hub := NewHub()
	a := hub.Register("u1")
	b := hub.Register("u2")
	c := hub.Register("u3")
	hub.Join(a, "blog:1")
	hub.Join(b, "blog:1")
	hub.Join(c, "blog:2")

	hub.PublishEvent("blog:1", &wire.ViewUpdated{EntityID: "1", Views: 3})

	if got := len(drain(a)); got != 1 {
		t.Errorf("member a: expected 1 frame, got %d", got)
	}
	if got := len(drain(b)); got != 1 {
		t.Errorf("member b: expected 1 frame, got %d", got)
	}
	if got := len(drain(c)); got != 0 {
		t.Errorf("non-member c: expected 0 frames, got %d", got)
	}
}

func TestLeaveStopsDelivery(t *testing.T) {
	hub := NewHub()
	a := hub.Register("u1")
	hub.Join(a, "blog:1")
	hub.Leave(a, "blog:1")

	hub.PublishEvent("blog:1", &wire.ViewUpdated{EntityID: "1", Views: 1})
	if got := len(drain(a)); got != 0 {
		t.Errorf("expected 0 frames after leave, got %d", got)
	}
	if hub.Members("blog:1") != 0 {
		t.Error("empty room must be dropped")
	}
}

func TestUnregisterDropsAllMemberships(t *testing.T) {
	hub := NewHub()
	a := hub.Register("u1")
	hub.Join(a, "blog:1")
	hub.Join(a, "user:u1")

	hub.Unregister(a)
	if hub.Members("blog:1") != 0 || hub.Members("user:u1") != 0 {
		t.Error("unregister must drop every membership")
	}
	// The send channel is closed; publishing afterwards must not panic.
	hub.PublishEvent("blog:1", &wire.ViewUpdated{EntityID: "1", Views: 1})
}

func TestHandleFrameControlAndRebroadcast(t *testing.T) {
	hub := NewHub()
	sender := hub.Register("u1")
	viewer := hub.Register("u2")

	join, _ := wire.Encode("", &wire.RoomJoin{Room: "blog:1"})
	hub.HandleFrame(sender, join)
	hub.HandleFrame(viewer, join)
	if hub.Members("blog:1") != 2 {
		t.Fatalf("expected 2 members, got %d", hub.Members("blog:1"))
	}

	event, _ := wire.Encode("blog:1", &wire.LikeUpdated{EntityID: "1", Likes: 2, ActorID: "u1", Action: wire.ActionLike})
	hub.HandleFrame(sender, event)

	// Rebroadcast reaches every member, the sender's own session included.
	if got := len(drain(viewer)); got != 1 {
		t.Errorf("viewer: expected 1 frame, got %d", got)
	}
	if got := len(drain(sender)); got != 1 {
		t.Errorf("sender: expected 1 frame, got %d", got)
	}

	leave, _ := wire.Encode("", &wire.RoomLeave{Room: "blog:1"})
	hub.HandleFrame(viewer, leave)
	if hub.Members("blog:1") != 1 {
		t.Errorf("expected 1 member after leave, got %d", hub.Members("blog:1"))
	}
}

func TestHandleFrameDropsJunk(t *testing.T) {
	hub := NewHub()
	c := hub.Register("u1")
	hub.Join(c, "blog:1")

	hub.HandleFrame(c, []byte("not json"))
	hub.HandleFrame(c, []byte(`{"type":"mystery.kind","payload":{}}`))
	// An event without a room has no fan-out target.
	roomless, _ := wire.Encode("", &wire.ViewUpdated{EntityID: "1", Views: 1})
	hub.HandleFrame(c, roomless)

	if got := len(drain(c)); got != 0 {
		t.Errorf("expected junk to be dropped, got %d frames", got)
	}
}

func TestPushToUser(t *testing.T) {
	hub := NewHub()
	c := hub.Register("u1")
	hub.Join(c, "user:u1")

	hub.PushToUser("u1", &wire.NotificationPushed{
		Notification: wire.Notification{Type: "comment.reply", Message: "new reply"},
	})
	frames := drain(c)
	if len(frames) != 1 {
		t.Fatalf("expected 1 pushed frame, got %d", len(frames))
	}
	ev, err := wire.Decode(frames[0])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Kind() != wire.KindNotificationPushed {
		t.Errorf("unexpected kind %s", ev.Kind())
	}
}
