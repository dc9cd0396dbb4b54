// Package session wires the realtime client together: one Session per
// signed-in (or guest) browser-equivalent, owning the connection, the room
// memberships, the reconciled read models and the action entry points the
// rendering layer calls.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nikhilesh121/luvrix-realtime/api"
	"github.com/nikhilesh121/luvrix-realtime/notify"
	"github.com/nikhilesh121/luvrix-realtime/presence"
	"github.com/nikhilesh121/luvrix-realtime/realtime"
	"github.com/nikhilesh121/luvrix-realtime/state"
	"github.com/nikhilesh121/luvrix-realtime/wire"
)

// ErrSignedOut is returned by actions that need an authenticated user.
var ErrSignedOut = errors.New("session: not signed in")

// Config holds everything a session needs to reach the platform.
type Config struct {
	// GatewayURL is the realtime websocket endpoint.
	GatewayURL string
	// WakeURL lazily starts the realtime service; may be empty when the
	// gateway is always on.
	WakeURL string
	// APIBase is the root of the platform REST API.
	APIBase string
	// Token is the platform access token; empty for guest sessions.
	Token string

	// Store overrides the persistence client; tests inject fakes here.
	Store api.Store
	// RefreshInterval bounds notification staleness. Defaults to a minute.
	RefreshInterval time.Duration
}

type contentView struct {
	tree       *state.CommentTree
	targetType wire.TargetType
	room       string
}

// Session is the engagement sync layer for one client.
type Session struct {
	me    *api.Identity // nil for guests
	store api.Store

	conn  *realtime.Conn
	rooms *realtime.Rooms
	bus   *realtime.Dispatcher

	counters      *state.Counters
	typing        *presence.Tracker
	notifications *notify.Aggregator

	mu    sync.RWMutex
	views map[string]*contentView // keyed by target id

	stopRefresh func()
	stopSweep   func()
}

// New builds a session. It does not connect; call Connect, typically right
// after the hosting application boots.
func New(cfg Config) (*Session, error) {
	var me *api.Identity
	if cfg.Token != "" {
		id, err := api.IdentityFromToken(cfg.Token)
		if err != nil {
			return nil, fmt.Errorf("session: parse token: %w", err)
		}
		me = id
	}

	store := cfg.Store
	if store == nil {
		store = api.NewRESTStore(cfg.APIBase, cfg.Token)
	}

	personalRoom := ""
	selfID, selfName := "", ""
	if me != nil {
		personalRoom = realtime.PersonalRoom(me.ID)
		selfID, selfName = me.ID, me.Name
	}

	conn := realtime.NewConn(realtime.Config{
		URL:          cfg.GatewayURL,
		WakeURL:      cfg.WakeURL,
		Token:        cfg.Token,
		PersonalRoom: personalRoom,
	})
	bus := realtime.NewDispatcher(conn)

	s := &Session{
		me:            me,
		store:         store,
		conn:          conn,
		rooms:         realtime.NewRooms(conn),
		bus:           bus,
		counters:      state.NewCounters(selfID),
		typing:        presence.NewTracker(bus, selfID, selfName),
		notifications: notify.NewAggregator(store),
		views:         make(map[string]*contentView),
	}
	s.subscribe()
	conn.AddConnectedHandler(s.onReconnected)

	interval := cfg.RefreshInterval
	if interval <= 0 {
		interval = time.Minute
	}
	s.stopRefresh = s.notifications.StartRefresh(interval)
	s.stopSweep = s.typing.StartSweeper(2 * time.Second)
	return s, nil
}

// subscribe installs the merge handlers for every inbound event kind.
func (s *Session) subscribe() {
	s.bus.Subscribe(wire.KindViewUpdated, func(ev wire.Event) {
		s.counters.ApplyView(*ev.(*wire.ViewUpdated))
	})
	s.bus.Subscribe(wire.KindLikeUpdated, func(ev wire.Event) {
		s.counters.ApplyLike(*ev.(*wire.LikeUpdated))
	})
	s.bus.Subscribe(wire.KindFavoriteUpdated, func(ev wire.Event) {
		s.counters.ApplyFavorite(*ev.(*wire.FavoriteUpdated))
	})
	s.bus.Subscribe(wire.KindCommentAdded, func(ev wire.Event) {
		added := ev.(*wire.CommentAdded)
		if tree := s.treeFor(added.Comment.TargetID); tree != nil {
			tree.ApplyAdded(added.Comment)
		}
	})
	s.bus.Subscribe(wire.KindCommentRemoved, func(ev wire.Event) {
		removed := ev.(*wire.CommentRemoved)
		s.eachTree(func(tree *state.CommentTree) {
			tree.ApplyRemoved(removed.CommentID)
		})
	})
	s.bus.Subscribe(wire.KindCommentLikeUpdated, func(ev wire.Event) {
		liked := ev.(*wire.CommentLikeUpdated)
		s.eachTree(func(tree *state.CommentTree) {
			tree.ApplyLike(liked.CommentID, liked.Likes)
		})
	})
	s.bus.Subscribe(wire.KindCommentTyping, func(ev wire.Event) {
		s.typing.Apply(*ev.(*wire.CommentTyping))
	})
	s.bus.Subscribe(wire.KindNotificationPushed, func(ev wire.Event) {
		s.notifications.PushLive(ev.(*wire.NotificationPushed).Notification)
	})
	// follow.created is an announcement, not a notification: the gateway
	// persists the follow notification and pushes it as notification.pushed
	// on the followee's personal channel. Synthesizing a second live entry
	// here would double-apply a single follow.
}

func (s *Session) treeFor(targetID string) *state.CommentTree {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.views[targetID]; ok {
		return v.tree
	}
	return nil
}

func (s *Session) eachTree(fn func(*state.CommentTree)) {
	s.mu.RLock()
	trees := make([]*state.CommentTree, 0, len(s.views))
	for _, v := range s.views {
		trees = append(trees, v.tree)
	}
	s.mu.RUnlock()
	for _, t := range trees {
		fn(t)
	}
}

// Connect dials the gateway. Also resets the retry budget after the
// reconnect policy gave up.
func (s *Session) Connect(ctx context.Context) error {
	return s.conn.Connect(ctx)
}

// Close shuts the session down.
func (s *Session) Close() error {
	if s.stopRefresh != nil {
		s.stopRefresh()
	}
	if s.stopSweep != nil {
		s.stopSweep()
	}
	return s.conn.Close()
}

// Connected reports the connection state.
func (s *Session) Connected() bool { return s.conn.IsConnected() }

// OnStateChange registers a connection-state observer.
func (s *Session) OnStateChange(fn func(realtime.State)) { s.conn.OnStateChange(fn) }

// onReconnected refetches authoritative snapshots for everything the
// session has open. Missed events are never replayed; the refetch is what
// corrects drift.
func (s *Session) onReconnected() {
	s.mu.RLock()
	targets := make([]string, 0, len(s.views))
	types := make(map[string]wire.TargetType, len(s.views))
	for id, v := range s.views {
		targets = append(targets, id)
		types[id] = v.targetType
	}
	s.mu.RUnlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		for _, id := range targets {
			comments, err := s.store.Comments(ctx, id, types[id])
			if err != nil {
				log.Printf("session: snapshot refetch for %s: %v", id, err)
				continue
			}
			if tree := s.treeFor(id); tree != nil {
				tree.Load(comments)
			}
		}
		if err := s.notifications.Refresh(ctx); err != nil {
			log.Printf("session: notification refetch: %v", err)
		}
	}()
}

// OpenContent joins a content item's room and loads its snapshot. The view
// counter is incremented through the persistence API and the resulting
// absolute value broadcast to other viewers.
func (s *Session) OpenContent(ctx context.Context, targetType wire.TargetType, targetID string) error {
	room := realtime.RoomFor(targetType, targetID)

	s.mu.Lock()
	v, ok := s.views[targetID]
	if !ok {
		v = &contentView{
			tree:       state.NewCommentTree(),
			targetType: targetType,
			room:       room,
		}
		s.views[targetID] = v
	}
	s.mu.Unlock()

	s.rooms.Join(room)

	comments, err := s.store.Comments(ctx, targetID, targetType)
	if err != nil {
		return err
	}
	// Loaded into the captured tree: a concurrent CloseContent may have
	// unlinked the view already, which makes this load a harmless write to
	// a dropped tree rather than a nil dereference.
	v.tree.Load(comments)

	views, err := s.store.IncrementViews(ctx, targetID)
	if err != nil {
		// The counter stays at its last known value; the next broadcast
		// corrects it.
		log.Printf("session: increment views for %s: %v", targetID, err)
		return nil
	}
	s.counters.Set(state.CounterViews, targetID, views)
	s.bus.Emit(room, &wire.ViewUpdated{EntityID: targetID, Views: views})
	return nil
}

// CloseContent leaves the room and drops the local view state. Events for
// the room that are already in flight still merge harmlessly.
func (s *Session) CloseContent(targetType wire.TargetType, targetID string) {
	room := realtime.RoomFor(targetType, targetID)
	s.typing.StopTyping(room, targetID)
	s.rooms.Leave(room)

	s.mu.Lock()
	delete(s.views, targetID)
	s.mu.Unlock()
}

// Comments returns the reconciled comment tree for an open content item.
func (s *Session) Comments(targetID string) []wire.Comment {
	if tree := s.treeFor(targetID); tree != nil {
		return tree.List()
	}
	return nil
}

// SubmitComment creates a comment (or a reply when parentID is set),
// applies it optimistically and announces it to the room.
func (s *Session) SubmitComment(ctx context.Context, targetType wire.TargetType, targetID, content, parentID string) (wire.Comment, error) {
	if s.me == nil {
		return wire.Comment{}, ErrSignedOut
	}
	comment, err := s.store.CreateComment(ctx, api.NewComment{
		TargetID:   targetID,
		TargetType: targetType,
		Content:    content,
		ParentID:   parentID,
	})
	if err != nil {
		return wire.Comment{}, err
	}

	room := realtime.RoomFor(targetType, targetID)
	if tree := s.treeFor(targetID); tree != nil {
		tree.ApplyAdded(comment)
	}
	s.typing.StopTyping(room, targetID)
	s.bus.Emit(room, &wire.CommentAdded{Comment: comment})
	return comment, nil
}

// DeleteComment deletes the local user's comment and announces the
// removal.
func (s *Session) DeleteComment(ctx context.Context, targetType wire.TargetType, targetID, commentID string) error {
	if s.me == nil {
		return ErrSignedOut
	}
	if err := s.store.DeleteComment(ctx, commentID); err != nil {
		return err
	}
	if tree := s.treeFor(targetID); tree != nil {
		tree.ApplyRemoved(commentID)
	}
	s.bus.Emit(realtime.RoomFor(targetType, targetID), &wire.CommentRemoved{CommentID: commentID})
	return nil
}

// LikeComment registers a like on a comment and broadcasts the new count.
func (s *Session) LikeComment(ctx context.Context, targetType wire.TargetType, targetID, commentID string) error {
	if s.me == nil {
		return ErrSignedOut
	}
	likes, err := s.store.LikeComment(ctx, commentID)
	if err != nil {
		return err
	}
	if tree := s.treeFor(targetID); tree != nil {
		tree.ApplyLike(commentID, likes)
	}
	s.bus.Emit(realtime.RoomFor(targetType, targetID), &wire.CommentLikeUpdated{CommentID: commentID, Likes: likes})
	return nil
}

// Like likes a content item; Unlike reverses it. Both broadcast the
// authoritative count returned by the API.
func (s *Session) Like(ctx context.Context, targetType wire.TargetType, targetID string) error {
	return s.contentLike(ctx, targetType, targetID, wire.ActionLike)
}

func (s *Session) Unlike(ctx context.Context, targetType wire.TargetType, targetID string) error {
	return s.contentLike(ctx, targetType, targetID, wire.ActionUnlike)
}

func (s *Session) contentLike(ctx context.Context, targetType wire.TargetType, targetID, action string) error {
	if s.me == nil {
		return ErrSignedOut
	}
	var likes int
	var err error
	if action == wire.ActionLike {
		likes, err = s.store.LikeContent(ctx, targetID)
	} else {
		likes, err = s.store.UnlikeContent(ctx, targetID)
	}
	if err != nil {
		return err
	}
	ev := wire.LikeUpdated{EntityID: targetID, Likes: likes, ActorID: s.me.ID, Action: action}
	s.counters.ApplyLike(ev)
	s.bus.Emit(realtime.RoomFor(targetType, targetID), &ev)
	return nil
}

// Favorite favorites a content item; Unfavorite reverses it.
func (s *Session) Favorite(ctx context.Context, targetType wire.TargetType, targetID string) error {
	return s.contentFavorite(ctx, targetType, targetID, wire.ActionFavorite)
}

func (s *Session) Unfavorite(ctx context.Context, targetType wire.TargetType, targetID string) error {
	return s.contentFavorite(ctx, targetType, targetID, wire.ActionUnfavorite)
}

func (s *Session) contentFavorite(ctx context.Context, targetType wire.TargetType, targetID, action string) error {
	if s.me == nil {
		return ErrSignedOut
	}
	var favorites int
	var err error
	if action == wire.ActionFavorite {
		favorites, err = s.store.FavoriteContent(ctx, targetID)
	} else {
		favorites, err = s.store.UnfavoriteContent(ctx, targetID)
	}
	if err != nil {
		return err
	}
	ev := wire.FavoriteUpdated{EntityID: targetID, Favorites: favorites, ActorID: s.me.ID, Action: action}
	s.counters.ApplyFavorite(ev)
	s.bus.Emit(realtime.RoomFor(targetType, targetID), &ev)
	return nil
}

// Follow follows a user and announces it on their personal channel.
func (s *Session) Follow(ctx context.Context, userID string) error {
	if s.me == nil {
		return ErrSignedOut
	}
	if err := s.store.FollowUser(ctx, userID); err != nil {
		return err
	}
	s.bus.Emit(realtime.PersonalRoom(userID), &wire.FollowCreated{
		FollowerID:   s.me.ID,
		FollowerName: s.me.Name,
		FollowedID:   userID,
	})
	return nil
}

// Unfollow unfollows a user. No event is broadcast for unfollows.
func (s *Session) Unfollow(ctx context.Context, userID string) error {
	if s.me == nil {
		return ErrSignedOut
	}
	return s.store.UnfollowUser(ctx, userID)
}

// StartTyping signals the local user typing on a content item. Callers
// debounce input changes themselves.
func (s *Session) StartTyping(targetType wire.TargetType, targetID string) {
	s.typing.StartTyping(realtime.RoomFor(targetType, targetID), targetID)
}

// StopTyping clears the local user's typing indicator.
func (s *Session) StopTyping(targetType wire.TargetType, targetID string) {
	s.typing.StopTyping(realtime.RoomFor(targetType, targetID), targetID)
}

// Typing lists who is currently typing on a content item.
func (s *Session) Typing(targetID string) []state.Typist {
	return s.typing.ListFor(targetID)
}

// Views returns the cached view counter for an entity.
func (s *Session) Views(targetID string) (int, bool) {
	return s.counters.Value(state.CounterViews, targetID)
}

// Likes returns the cached like counter for an entity.
func (s *Session) Likes(targetID string) (int, bool) {
	return s.counters.Value(state.CounterLikes, targetID)
}

// Favorites returns the cached favorite counter for an entity.
func (s *Session) Favorites(targetID string) (int, bool) {
	return s.counters.Value(state.CounterFavorites, targetID)
}

// LikedByMe reports whether the local user has liked an entity.
func (s *Session) LikedByMe(targetID string) bool { return s.counters.LikedByMe(targetID) }

// FavoritedByMe reports whether the local user has favorited an entity.
func (s *Session) FavoritedByMe(targetID string) bool { return s.counters.FavoritedByMe(targetID) }

// Notifications exposes the aggregator read model.
func (s *Session) Notifications() *notify.Aggregator { return s.notifications }

// OpenNotifications refreshes counts immediately, called when the panel
// opens.
func (s *Session) OpenNotifications(ctx context.Context) error {
	return s.notifications.Refresh(ctx)
}
