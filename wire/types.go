package wire

import "time"

// TargetType identifies what kind of content an engagement event refers to.
type TargetType string

const (
	TargetBlog  TargetType = "blog"
	TargetManga TargetType = "manga"
)

// Comment is a single comment as carried on the wire and in snapshots.
// Nesting is exactly two levels: a top-level comment may carry Replies,
// a reply (ParentID set) never does.
type Comment struct {
	ID          string     `json:"id"`
	ParentID    string     `json:"parent_id,omitempty"`
	TargetID    string     `json:"target_id"`
	TargetType  TargetType `json:"target_type"`
	Content     string     `json:"content"`
	AuthorID    string     `json:"author_id"`
	AuthorName  string     `json:"author_name"`
	AuthorPhoto string     `json:"author_photo,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	LikeCount   int        `json:"like_count"`
	Replies     []Comment  `json:"replies,omitempty"`
}

// IsReply reports whether the comment is a second-level reply.
func (c *Comment) IsReply() bool {
	return c.ParentID != ""
}

// Notification categories. CategoryAll is the implicit aggregate.
const (
	CategoryAll     = "all"
	CategoryContent = "content"
	CategoryLikes   = "likes"
	CategoryFollows = "follows"
)

// Notification is a single notification, either pushed live over the wire
// or fetched from the persistence API.
type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Link      string    `json:"link,omitempty"`
	Image     string    `json:"image,omitempty"`
	Category  string    `json:"category,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Read      bool      `json:"read"`
}

// CategoryOf classifies a notification into one of the fixed categories,
// falling back to the type prefix when the category field is empty.
func CategoryOf(n Notification) string {
	if n.Category != "" {
		return n.Category
	}
	switch n.Type {
	case "follow", "follow.created":
		return CategoryFollows
	case "like", "like.content", "like.comment":
		return CategoryLikes
	default:
		return CategoryContent
	}
}
