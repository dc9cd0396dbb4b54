package gateway

import (
	"encoding/json"
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/nikhilesh121/luvrix-realtime/api"
	"github.com/nikhilesh121/luvrix-realtime/wire"
)

// Server is the reference gateway: the fan-out transport plus the
// persistence API the SDK consumes. Production runs these as separate
// services; the reference implementation keeps them in one process.
type Server struct {
	store *Store
	hub   *Hub
}

// NewServer wires a gateway around a store.
func NewServer(store *Store) *Server {
	s := &Server{store: store, hub: NewHub()}
	s.hub.OnJoin(s.sendCounterSnapshot)
	return s
}

// sendCounterSnapshot delivers the current counters of a content room to a
// client that just joined it, batched into one frame. Re-joins after a
// reconnect get the same snapshot, so counter drift is corrected without
// replaying missed events.
func (s *Server) sendCounterSnapshot(c *Client, room string) {
	parts := strings.SplitN(room, ":", 2)
	if len(parts) != 2 {
		return
	}
	switch wire.TargetType(parts[0]) {
	case wire.TargetBlog, wire.TargetManga:
	default:
		return
	}
	counter, err := s.store.Counters(parts[1])
	if err != nil {
		log.Printf("gateway: counter snapshot for %s: %v", room, err)
		return
	}
	frame, err := counterBatch(room, counter)
	if err != nil {
		log.Printf("gateway: counter snapshot for %s: %v", room, err)
		return
	}
	c.enqueue(frame)
}

// counterBatch packs a target's counters into one batch frame.
func counterBatch(room string, counter ContentCounter) ([]byte, error) {
	events := []wire.Event{
		&wire.ViewUpdated{EntityID: counter.TargetID, Views: counter.Views},
		&wire.LikeUpdated{EntityID: counter.TargetID, Likes: counter.Likes},
		&wire.FavoriteUpdated{EntityID: counter.TargetID, Favorites: counter.Favorites},
	}
	envelopes := make([]wire.Envelope, 0, len(events))
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return nil, err
		}
		envelopes = append(envelopes, wire.Envelope{Type: ev.Kind(), Payload: payload})
	}
	return wire.Encode(room, &wire.Batch{Events: envelopes, Count: len(envelopes)})
}

// Hub exposes the fan-out hub, mainly for tests.
func (s *Server) Hub() *Hub { return s.hub }

// Register mounts every route on a fiber app.
func (s *Server) Register(app *fiber.App) {
	app.Get("/realtime/wake", s.handleWake)

	app.Use("/realtime/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/realtime/ws", AuthRequired(), websocket.New(s.handleWS))

	app.Get("/api/comments", s.handleListComments)
	app.Post("/api/comments", AuthRequired(), s.handleCreateComment)
	app.Delete("/api/comments/:id", AuthRequired(), s.handleDeleteComment)
	app.Post("/api/comments/:id/like", AuthRequired(), s.handleLikeComment)

	app.Post("/api/content/:id/views", s.handleIncrementViews)
	app.Post("/api/content/:id/like", AuthRequired(), s.handleMark("like", true))
	app.Delete("/api/content/:id/like", AuthRequired(), s.handleMark("like", false))
	app.Post("/api/content/:id/favorite", AuthRequired(), s.handleMark("favorite", true))
	app.Delete("/api/content/:id/favorite", AuthRequired(), s.handleMark("favorite", false))

	app.Post("/api/users/:id/follow", AuthRequired(), s.handleFollow)
	app.Delete("/api/users/:id/follow", AuthRequired(), s.handleUnfollow)

	app.Get("/api/notifications", AuthRequired(), s.handleNotifications)
	app.Post("/api/notifications/:id/read", AuthRequired(), s.handleMarkRead)
	app.Post("/api/notifications/read-all", AuthRequired(), s.handleMarkAllRead)
}

// handleWake exists for the lazy-start contract: the managed runtime spins
// the service up on the first request, so the client pokes this endpoint
// once before dialing.
func (s *Server) handleWake(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleWS(conn *websocket.Conn) {
	userID, _ := conn.Locals("userID").(string)
	client := s.hub.Register(userID)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for frame := range client.Send() {
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		s.hub.HandleFrame(client, data)
	}
	s.hub.Unregister(client)
	<-done
}

func validateComment(in api.NewComment) string {
	if strings.TrimSpace(in.Content) == "" {
		return "content is required"
	}
	if len(in.Content) > 5000 {
		return "content exceeds 5000 characters"
	}
	if in.TargetID == "" {
		return "target_id is required"
	}
	switch in.TargetType {
	case wire.TargetBlog, wire.TargetManga:
	default:
		return "target_type must be blog or manga"
	}
	return ""
}

func (s *Server) handleCreateComment(c *fiber.Ctx) error {
	var in api.NewComment
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid_body", "Invalid request body")
	}
	if msg := validateComment(in); msg != "" {
		return badRequest(c, "invalid_comment", msg)
	}

	comment, err := s.store.CreateComment(in, localString(c, "userID"), localString(c, "userName"), localString(c, "userPhoto"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return notFound(c, "parent_not_found", "Parent comment not found")
		}
		log.Printf("gateway: create comment: %v", err)
		return internal(c, "create_comment_failed")
	}

	// Reply notifications are server-originated: persisted, then pushed
	// live on the parent author's personal channel.
	if comment.ParentID != "" {
		s.notifyReply(comment)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

func (s *Server) notifyReply(reply wire.Comment) {
	parent, err := s.store.commentByID(reply.ParentID)
	if err != nil || parent.AuthorID == reply.AuthorID {
		return
	}
	n, err := s.store.CreateNotification(parent.AuthorID, wire.Notification{
		Type:     "comment.reply",
		Category: wire.CategoryContent,
		Message:  reply.AuthorName + " replied to your comment",
		Link:     "/" + string(reply.TargetType) + "/" + reply.TargetID,
		Image:    reply.AuthorPhoto,
	})
	if err != nil {
		log.Printf("gateway: reply notification: %v", err)
		return
	}
	s.hub.PushToUser(parent.AuthorID, &wire.NotificationPushed{Notification: n})
}

func (s *Server) handleListComments(c *fiber.Ctx) error {
	targetID := c.Query("target_id")
	targetType := c.Query("target_type")
	if targetID == "" || targetType == "" {
		return badRequest(c, "missing_target", "target_id and target_type are required")
	}
	comments, err := s.store.Comments(targetID, targetType)
	if err != nil {
		log.Printf("gateway: list comments: %v", err)
		return internal(c, "list_comments_failed")
	}
	return c.JSON(fiber.Map{"comments": comments})
}

func (s *Server) handleDeleteComment(c *fiber.Ctx) error {
	err := s.store.DeleteComment(c.Params("id"), localString(c, "userID"))
	switch {
	case errors.Is(err, ErrNotFound):
		return notFound(c, "comment_not_found", "Comment not found")
	case errors.Is(err, ErrForbidden):
		return forbidden(c, "not_author", "Only the author can delete a comment")
	case err != nil:
		log.Printf("gateway: delete comment: %v", err)
		return internal(c, "delete_comment_failed")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleLikeComment(c *fiber.Ctx) error {
	likes, err := s.store.LikeComment(c.Params("id"), localString(c, "userID"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return notFound(c, "comment_not_found", "Comment not found")
		}
		log.Printf("gateway: like comment: %v", err)
		return internal(c, "like_comment_failed")
	}
	return c.JSON(fiber.Map{"likes": likes})
}

func (s *Server) handleIncrementViews(c *fiber.Ctx) error {
	views, err := s.store.IncrementViews(c.Params("id"))
	if err != nil {
		log.Printf("gateway: increment views: %v", err)
		return internal(c, "increment_views_failed")
	}
	return c.JSON(fiber.Map{"views": views})
}

func (s *Server) handleMark(kind string, on bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		count, err := s.store.SetMark(c.Params("id"), localString(c, "userID"), kind, on)
		if err != nil {
			log.Printf("gateway: %s content: %v", kind, err)
			return internal(c, kind+"_failed")
		}
		if kind == "favorite" {
			return c.JSON(fiber.Map{"favorites": count})
		}
		return c.JSON(fiber.Map{"likes": count})
	}
}

func (s *Server) handleFollow(c *fiber.Ctx) error {
	followerID := localString(c, "userID")
	followeeID := c.Params("id")
	if followeeID == followerID {
		return badRequest(c, "self_follow", "Cannot follow yourself")
	}
	if err := s.store.Follow(followerID, followeeID); err != nil {
		log.Printf("gateway: follow: %v", err)
		return internal(c, "follow_failed")
	}

	n, err := s.store.CreateNotification(followeeID, wire.Notification{
		Type:     "follow",
		Category: wire.CategoryFollows,
		Message:  localString(c, "userName") + " started following you",
		Link:     "/users/" + followerID,
		Image:    localString(c, "userPhoto"),
	})
	if err != nil {
		log.Printf("gateway: follow notification: %v", err)
	} else {
		s.hub.PushToUser(followeeID, &wire.NotificationPushed{Notification: n})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleUnfollow(c *fiber.Ctx) error {
	if err := s.store.Unfollow(localString(c, "userID"), c.Params("id")); err != nil {
		log.Printf("gateway: unfollow: %v", err)
		return internal(c, "unfollow_failed")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleNotifications(c *fiber.Ctx) error {
	page, err := s.store.Notifications(localString(c, "userID"), c.Query("category"), c.QueryInt("limit"))
	if err != nil {
		log.Printf("gateway: notifications: %v", err)
		return internal(c, "notifications_failed")
	}
	return c.JSON(page)
}

func (s *Server) handleMarkRead(c *fiber.Ctx) error {
	err := s.store.MarkNotificationRead(c.Params("id"), localString(c, "userID"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return notFound(c, "notification_not_found", "Notification not found")
		}
		log.Printf("gateway: mark read: %v", err)
		return internal(c, "mark_read_failed")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleMarkAllRead(c *fiber.Ctx) error {
	err := s.store.MarkAllNotificationsRead(localString(c, "userID"), c.Query("category"))
	if err != nil {
		log.Printf("gateway: mark all read: %v", err)
		return internal(c, "mark_all_read_failed")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
