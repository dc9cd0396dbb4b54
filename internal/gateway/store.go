package gateway

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nikhilesh121/luvrix-realtime/api"
	"github.com/nikhilesh121/luvrix-realtime/wire"
)

var ErrNotFound = errors.New("gateway: not found")
var ErrForbidden = errors.New("gateway: not the author")

// CommentRecord is the persisted form of a comment.
type CommentRecord struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ParentID    string    `gorm:"type:varchar(36);index" json:"parent_id"`
	TargetID    string    `gorm:"type:varchar(64);index" json:"target_id"`
	TargetType  string    `gorm:"type:varchar(16)" json:"target_type"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	AuthorID    string    `gorm:"type:varchar(36);index" json:"author_id"`
	AuthorName  string    `gorm:"type:varchar(64)" json:"author_name"`
	AuthorPhoto string    `gorm:"type:varchar(255)" json:"author_photo"`
	LikeCount   int       `gorm:"default:0" json:"like_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// CommentLike enforces one like per user per comment.
type CommentLike struct {
	CommentID string    `gorm:"type:varchar(36);uniqueIndex:idx_comment_user" json:"comment_id"`
	UserID    string    `gorm:"type:varchar(36);uniqueIndex:idx_comment_user" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ContentCounter holds the authoritative counters of one content item.
type ContentCounter struct {
	TargetID  string `gorm:"type:varchar(64);primaryKey" json:"target_id"`
	Views     int    `gorm:"default:0" json:"views"`
	Likes     int    `gorm:"default:0" json:"likes"`
	Favorites int    `gorm:"default:0" json:"favorites"`
}

// ContentMark is a per-user like or favorite on a content item.
type ContentMark struct {
	TargetID  string    `gorm:"type:varchar(64);uniqueIndex:idx_mark" json:"target_id"`
	UserID    string    `gorm:"type:varchar(36);uniqueIndex:idx_mark" json:"user_id"`
	Kind      string    `gorm:"type:varchar(8);uniqueIndex:idx_mark" json:"kind"` // like | favorite
	CreatedAt time.Time `json:"created_at"`
}

// FollowRecord is one follow edge.
type FollowRecord struct {
	FollowerID string    `gorm:"type:varchar(36);uniqueIndex:idx_follow" json:"follower_id"`
	FolloweeID string    `gorm:"type:varchar(36);uniqueIndex:idx_follow" json:"followee_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// NotificationRecord is one persisted notification.
type NotificationRecord struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    string    `gorm:"type:varchar(36);index" json:"user_id"`
	Type      string    `gorm:"type:varchar(32)" json:"type"`
	Message   string    `gorm:"type:text" json:"message"`
	Link      string    `gorm:"type:varchar(255)" json:"link"`
	Image     string    `gorm:"type:varchar(255)" json:"image"`
	Category  string    `gorm:"type:varchar(16);index" json:"category"`
	Read      bool      `gorm:"default:false;index" json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the gateway's persistence layer.
type Store struct {
	db    *gorm.DB
	cache *Cache
}

// InitDB connects to postgres using the teacher DSN environment variables
// and migrates the engagement tables.
func InitDB() (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_SSLMODE"),
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(
		&CommentRecord{},
		&CommentLike{},
		&ContentCounter{},
		&ContentMark{},
		&FollowRecord{},
		&NotificationRecord{},
	); err != nil {
		return nil, err
	}
	return db, nil
}

// NewStore wraps a DB handle and an optional cache.
func NewStore(db *gorm.DB, cache *Cache) *Store {
	return &Store{db: db, cache: cache}
}

func (r *CommentRecord) toWire() wire.Comment {
	return wire.Comment{
		ID:          r.ID,
		ParentID:    r.ParentID,
		TargetID:    r.TargetID,
		TargetType:  wire.TargetType(r.TargetType),
		Content:     r.Content,
		AuthorID:    r.AuthorID,
		AuthorName:  r.AuthorName,
		AuthorPhoto: r.AuthorPhoto,
		CreatedAt:   r.CreatedAt,
		LikeCount:   r.LikeCount,
	}
}

// CreateComment persists a comment. A reply must reference an existing
// top-level comment; replies to replies are rejected to hold the two-level
// invariant at the source.
func (s *Store) CreateComment(in api.NewComment, authorID, authorName, authorPhoto string) (wire.Comment, error) {
	if in.ParentID != "" {
		var parent CommentRecord
		if err := s.db.Where("id = ?", in.ParentID).First(&parent).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return wire.Comment{}, ErrNotFound
			}
			return wire.Comment{}, err
		}
		if parent.ParentID != "" {
			return wire.Comment{}, fmt.Errorf("gateway: replies cannot be nested")
		}
	}

	rec := CommentRecord{
		ID:          uuid.NewString(),
		ParentID:    in.ParentID,
		TargetID:    in.TargetID,
		TargetType:  string(in.TargetType),
		Content:     in.Content,
		AuthorID:    authorID,
		AuthorName:  authorName,
		AuthorPhoto: authorPhoto,
		CreatedAt:   time.Now(),
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return wire.Comment{}, err
	}
	return rec.toWire(), nil
}

func (s *Store) commentByID(id string) (CommentRecord, error) {
	var rec CommentRecord
	err := s.db.Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return rec, ErrNotFound
	}
	return rec, err
}

// Comments returns the nested tree for a target, newest top-level first,
// replies oldest first.
func (s *Store) Comments(targetID, targetType string) ([]wire.Comment, error) {
	var records []CommentRecord
	err := s.db.
		Where("target_id = ? AND target_type = ?", targetID, targetType).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	var top []wire.Comment
	for _, r := range records {
		if r.ParentID == "" {
			// Newest first.
			top = append([]wire.Comment{r.toWire()}, top...)
		}
	}
	for i := range top {
		index[top[i].ID] = i
	}
	for _, r := range records {
		if r.ParentID == "" {
			continue
		}
		if i, ok := index[r.ParentID]; ok {
			top[i].Replies = append(top[i].Replies, r.toWire())
		}
	}
	return top, nil
}

// DeleteComment removes a comment and, for a top-level comment, its
// replies. Only the author may delete.
func (s *Store) DeleteComment(id, userID string) error {
	var rec CommentRecord
	if err := s.db.Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if rec.AuthorID != userID {
		return ErrForbidden
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if rec.ParentID == "" {
			if err := tx.Where("parent_id = ?", id).Delete(&CommentRecord{}).Error; err != nil {
				return err
			}
		}
		return tx.Where("id = ?", id).Delete(&CommentRecord{}).Error
	})
}

// LikeComment registers one like per user and returns the new count.
// Duplicate likes are idempotent no-ops.
func (s *Store) LikeComment(id, userID string) (int, error) {
	var rec CommentRecord
	if err := s.db.Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}

	res := s.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&CommentLike{CommentID: id, UserID: userID, CreatedAt: time.Now()})
	if res.Error != nil {
		return 0, res.Error
	}

	var likes int64
	if err := s.db.Model(&CommentLike{}).Where("comment_id = ?", id).Count(&likes).Error; err != nil {
		return 0, err
	}
	if err := s.db.Model(&CommentRecord{}).Where("id = ?", id).
		Update("like_count", likes).Error; err != nil {
		return 0, err
	}
	return int(likes), nil
}

// IncrementViews bumps the view counter and returns the new value.
func (s *Store) IncrementViews(targetID string) (int, error) {
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "target_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"views": gorm.Expr("content_counters.views + 1")}),
	}).Create(&ContentCounter{TargetID: targetID, Views: 1}).Error
	if err != nil {
		return 0, err
	}
	counter, err := s.counter(targetID)
	if err != nil {
		return 0, err
	}
	s.cache.SetCounters(targetID, counter)
	return counter.Views, nil
}

func (s *Store) counter(targetID string) (ContentCounter, error) {
	var c ContentCounter
	err := s.db.Where("target_id = ?", targetID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ContentCounter{TargetID: targetID}, nil
	}
	return c, err
}

// Counters returns the cached counters for a target, falling back to the
// database.
func (s *Store) Counters(targetID string) (ContentCounter, error) {
	if c, ok := s.cache.GetCounters(targetID); ok {
		return c, nil
	}
	c, err := s.counter(targetID)
	if err == nil {
		s.cache.SetCounters(targetID, c)
	}
	return c, err
}

// SetMark sets or clears a per-user like/favorite and returns the new
// count for that kind. Both directions are idempotent.
func (s *Store) SetMark(targetID, userID, kind string, on bool) (int, error) {
	if on {
		err := s.db.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&ContentMark{TargetID: targetID, UserID: userID, Kind: kind, CreatedAt: time.Now()}).Error
		if err != nil {
			return 0, err
		}
	} else {
		err := s.db.Where("target_id = ? AND user_id = ? AND kind = ?", targetID, userID, kind).
			Delete(&ContentMark{}).Error
		if err != nil {
			return 0, err
		}
	}

	var count int64
	if err := s.db.Model(&ContentMark{}).
		Where("target_id = ? AND kind = ?", targetID, kind).
		Count(&count).Error; err != nil {
		return 0, err
	}

	column := "likes"
	if kind == "favorite" {
		column = "favorites"
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "target_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{column: count}),
	}).Create(&ContentCounter{TargetID: targetID}).Error
	if err != nil {
		return 0, err
	}
	s.cache.InvalidateCounters(targetID)
	return int(count), nil
}

// Follow creates a follow edge, idempotently.
func (s *Store) Follow(followerID, followeeID string) error {
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&FollowRecord{FollowerID: followerID, FolloweeID: followeeID, CreatedAt: time.Now()}).Error
}

// Unfollow removes a follow edge; removing a missing edge is a no-op.
func (s *Store) Unfollow(followerID, followeeID string) error {
	return s.db.Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&FollowRecord{}).Error
}

// CreateNotification persists a notification for a user.
func (s *Store) CreateNotification(userID string, n wire.Notification) (wire.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	rec := NotificationRecord{
		ID:        n.ID,
		UserID:    userID,
		Type:      n.Type,
		Message:   n.Message,
		Link:      n.Link,
		Image:     n.Image,
		Category:  wire.CategoryOf(n),
		CreatedAt: n.CreatedAt,
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return wire.Notification{}, err
	}
	s.cache.InvalidateUnread(userID)
	n.Category = rec.Category
	return n, nil
}

// Notifications returns a page for one category plus the unread counters.
func (s *Store) Notifications(userID, category string, limit int) (api.NotificationPage, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	q := s.db.Where("user_id = ?", userID)
	if category != "" && category != wire.CategoryAll {
		q = q.Where("category = ?", category)
	}
	var records []NotificationRecord
	if err := q.Order("created_at DESC").Limit(limit).Find(&records).Error; err != nil {
		return api.NotificationPage{}, err
	}

	page := api.NotificationPage{Items: make([]wire.Notification, 0, len(records))}
	for _, r := range records {
		page.Items = append(page.Items, wire.Notification{
			ID:        r.ID,
			Type:      r.Type,
			Message:   r.Message,
			Link:      r.Link,
			Image:     r.Image,
			Category:  r.Category,
			CreatedAt: r.CreatedAt,
			Read:      r.Read,
		})
	}

	counts, unread, err := s.unreadCounts(userID)
	if err != nil {
		return api.NotificationPage{}, err
	}
	page.CategoryCounts = counts
	page.UnreadCount = unread
	if category != "" && category != wire.CategoryAll {
		page.UnreadCount = counts[category]
	}
	return page, nil
}

func (s *Store) unreadCounts(userID string) (map[string]int, int, error) {
	if counts, ok := s.cache.GetUnread(userID); ok {
		return counts, counts[wire.CategoryAll], nil
	}

	type row struct {
		Category string
		N        int
	}
	var rows []row
	err := s.db.Model(&NotificationRecord{}).
		Select("category, count(*) as n").
		Where("user_id = ? AND read = ?", userID, false).
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	counts := make(map[string]int, len(rows)+1)
	total := 0
	for _, r := range rows {
		counts[r.Category] = r.N
		total += r.N
	}
	counts[wire.CategoryAll] = total
	s.cache.SetUnread(userID, counts)
	return counts, total, nil
}

// MarkNotificationRead flips one notification's read flag.
func (s *Store) MarkNotificationRead(id, userID string) error {
	res := s.db.Model(&NotificationRecord{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.cache.InvalidateUnread(userID)
	return nil
}

// MarkAllNotificationsRead marks a category (or everything) read.
func (s *Store) MarkAllNotificationsRead(userID, category string) error {
	q := s.db.Model(&NotificationRecord{}).Where("user_id = ? AND read = ?", userID, false)
	if category != "" && category != wire.CategoryAll {
		q = q.Where("category = ?", category)
	}
	if err := q.Update("read", true).Error; err != nil {
		return err
	}
	s.cache.InvalidateUnread(userID)
	return nil
}
