package wire

// Event kind identifiers. The set is closed: inbound frames with a kind
// outside this list are dropped by the decoder.
const (
	KindViewUpdated        = "view.updated"
	KindLikeUpdated        = "like.updated"
	KindCommentAdded       = "comment.added"
	KindCommentRemoved     = "comment.removed"
	KindCommentLikeUpdated = "comment.like.updated"
	KindCommentTyping      = "comment.typing"
	KindFollowCreated      = "follow.created"
	KindFavoriteUpdated    = "favorite.updated"
	KindNotificationPushed = "notification.pushed"

	KindRoomJoin  = "room.join"
	KindRoomLeave = "room.leave"
	KindBatch     = "batch"
)

// Actions carried by counter events.
const (
	ActionLike       = "like"
	ActionUnlike     = "unlike"
	ActionFavorite   = "favorite"
	ActionUnfavorite = "unfavorite"
)

// Event is implemented by every wire payload type.
type Event interface {
	Kind() string
}

// ViewUpdated carries the authoritative view count for an entity.
type ViewUpdated struct {
	EntityID string `json:"entity_id"`
	Views    int    `json:"views"`
}

func (ViewUpdated) Kind() string { return KindViewUpdated }

// LikeUpdated carries the authoritative like count for an entity along with
// the actor whose like/unlike produced it.
type LikeUpdated struct {
	EntityID string `json:"entity_id"`
	Likes    int    `json:"likes"`
	ActorID  string `json:"actor_id"`
	Action   string `json:"action"` // like | unlike
}

func (LikeUpdated) Kind() string { return KindLikeUpdated }

// CommentAdded announces a new comment or reply.
type CommentAdded struct {
	Comment Comment `json:"comment"`
}

func (CommentAdded) Kind() string { return KindCommentAdded }

// CommentRemoved announces a deleted comment. Removing a top-level comment
// cascades to its replies on every receiver.
type CommentRemoved struct {
	CommentID string `json:"comment_id"`
}

func (CommentRemoved) Kind() string { return KindCommentRemoved }

// CommentLikeUpdated carries the authoritative like count for one comment.
type CommentLikeUpdated struct {
	CommentID string `json:"comment_id"`
	Likes     int    `json:"likes"`
}

func (CommentLikeUpdated) Kind() string { return KindCommentLikeUpdated }

// CommentTyping signals typing presence for a content item.
type CommentTyping struct {
	EntityID  string `json:"entity_id"`
	ActorID   string `json:"actor_id"`
	ActorName string `json:"actor_name"`
	IsTyping  bool   `json:"is_typing"`
}

func (CommentTyping) Kind() string { return KindCommentTyping }

// FollowCreated announces a new follow edge.
type FollowCreated struct {
	FollowerID   string `json:"follower_id"`
	FollowerName string `json:"follower_name"`
	FollowedID   string `json:"followed_id"`
}

func (FollowCreated) Kind() string { return KindFollowCreated }

// FavoriteUpdated carries the authoritative favorite count for an entity.
type FavoriteUpdated struct {
	EntityID  string `json:"entity_id"`
	Favorites int    `json:"favorites"`
	ActorID   string `json:"actor_id"`
	Action    string `json:"action"` // favorite | unfavorite
}

func (FavoriteUpdated) Kind() string { return KindFavoriteUpdated }

// NotificationPushed delivers a live notification on a personal channel.
type NotificationPushed struct {
	Notification Notification `json:"notification"`
}

func (NotificationPushed) Kind() string { return KindNotificationPushed }

// RoomJoin is a control frame subscribing the connection to a room.
type RoomJoin struct {
	Room string `json:"room"`
}

func (RoomJoin) Kind() string { return KindRoomJoin }

// RoomLeave is a control frame unsubscribing the connection from a room.
type RoomLeave struct {
	Room string `json:"room"`
}

func (RoomLeave) Kind() string { return KindRoomLeave }

// Batch wraps several envelopes in one frame. The gateway uses it to flush
// accumulated frames after a reconnect.
type Batch struct {
	Events []Envelope `json:"events"`
	Count  int        `json:"count"`
}

func (Batch) Kind() string { return KindBatch }
