package testutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nikhilesh121/luvrix-realtime/api"
	"github.com/nikhilesh121/luvrix-realtime/wire"
)

// TestSecret signs the tokens used across the test suites.
const TestSecret = "test-secret-123"

// SignToken builds a platform access token for a test user.
func SignToken(t *testing.T, userID, name string) string {
	t.Helper()
	claims := &api.Claims{
		UserID: userID,
		Name:   name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(TestSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

// Comment builds a test comment with default values.
func Comment(id, targetID, content string) wire.Comment {
	if id == "" {
		id = "c1"
	}
	if targetID == "" {
		targetID = "blog-1"
	}
	if content == "" {
		content = "test comment"
	}
	return wire.Comment{
		ID:         id,
		TargetID:   targetID,
		TargetType: wire.TargetBlog,
		Content:    content,
		AuthorID:   "u1",
		AuthorName: "Test User",
		CreatedAt:  time.Now(),
	}
}

// Reply builds a test reply attached to a parent comment.
func Reply(id, parentID, content string) wire.Comment {
	c := Comment(id, "", content)
	c.ParentID = parentID
	return c
}

// Notification builds a test notification with default values.
func Notification(id, category string) wire.Notification {
	if id == "" {
		id = "n1"
	}
	if category == "" {
		category = wire.CategoryContent
	}
	return wire.Notification{
		ID:        id,
		Type:      "comment.reply",
		Message:   "Someone replied to your comment",
		Category:  category,
		CreatedAt: time.Now(),
	}
}
