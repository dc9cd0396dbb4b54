package gateway

import (
	"testing"

	"github.com/nikhilesh121/luvrix-realtime/wire"
)

func TestCounterBatchRoundTrip(t *testing.T) {
	frame, err := counterBatch("blog:b1", ContentCounter{
		TargetID:  "b1",
		Views:     42,
		Likes:     7,
		Favorites: 3,
	})
	if err != nil {
		t.Fatalf("build batch: %v", err)
	}

	ev, err := wire.Decode(frame)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	batch, ok := ev.(*wire.Batch)
	if !ok {
		t.Fatalf("expected *wire.Batch, got %T", ev)
	}
	if batch.Count != 3 || len(batch.Events) != 3 {
		t.Fatalf("expected 3 counter events, got %d", len(batch.Events))
	}

	for i := range batch.Events {
		inner, err := wire.DecodeEnvelope(&batch.Events[i])
		if err != nil {
			t.Fatalf("decode inner %d: %v", i, err)
		}
		switch counter := inner.(type) {
		case *wire.ViewUpdated:
			if counter.EntityID != "b1" || counter.Views != 42 {
				t.Errorf("bad view snapshot: %+v", counter)
			}
		case *wire.LikeUpdated:
			if counter.Likes != 7 {
				t.Errorf("bad like snapshot: %+v", counter)
			}
		case *wire.FavoriteUpdated:
			if counter.Favorites != 3 {
				t.Errorf("bad favorite snapshot: %+v", counter)
			}
		default:
			t.Errorf("unexpected event in batch: %T", inner)
		}
	}
}

func TestOnJoinHookFires(t *testing.T) {
	hub := NewHub()
	type joined struct {
		client *Client
		room   string
	}
	var calls []joined
	hub.OnJoin(func(c *Client, room string) {
		calls = append(calls, joined{client: c, room: room})
	})

	c := hub.Register("u1")
	hub.Join(c, "blog:1")
	join, _ := wire.Encode("", &wire.RoomJoin{Room: "manga:2"})
	hub.HandleFrame(c, join)

	if len(calls) != 2 {
		t.Fatalf("expected 2 hook calls, got %d", len(calls))
	}
	if calls[0].room != "blog:1" || calls[1].room != "manga:2" {
		t.Errorf("unexpected rooms: %+v", calls)
	}
	if calls[0].client != c || calls[1].client != c {
		t.Error("hook called with wrong client")
	}
}
