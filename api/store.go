package api

import (
	"context"

	"github.com/nikhilesh121/luvrix-realtime/wire"
)

// NotificationPage is the result of one notification fetch.
type NotificationPage struct {
	Items          []wire.Notification `json:"items"`
	UnreadCount    int                 `json:"unread_count"`
	CategoryCounts map[string]int      `json:"category_counts"`
}

// NewComment is the input of a comment create call.
type NewComment struct {
	TargetID   string          `json:"target_id"`
	TargetType wire.TargetType `json:"target_type"`
	Content    string          `json:"content"`
	ParentID   string          `json:"parent_id,omitempty"`
}

// Store is the persistence collaborator. Every call is request/response
// against the platform API; the realtime layer mirrors its results but
// never owns them. Callers treat errors as a failed UI action; the
// optimistic local change, if any, is corrected by the next authoritative
// refetch rather than rolled back here.
type Store interface {
	CreateComment(ctx context.Context, in NewComment) (wire.Comment, error)
	Comments(ctx context.Context, targetID string, targetType wire.TargetType) ([]wire.Comment, error)
	DeleteComment(ctx context.Context, id string) error
	LikeComment(ctx context.Context, id string) (likes int, err error)

	IncrementViews(ctx context.Context, targetID string) (views int, err error)
	LikeContent(ctx context.Context, targetID string) (likes int, err error)
	UnlikeContent(ctx context.Context, targetID string) (likes int, err error)
	FavoriteContent(ctx context.Context, targetID string) (favorites int, err error)
	UnfavoriteContent(ctx context.Context, targetID string) (favorites int, err error)

	FollowUser(ctx context.Context, userID string) error
	UnfollowUser(ctx context.Context, userID string) error

	FetchNotifications(ctx context.Context, category string, limit int) (NotificationPage, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context, category string) error
}
