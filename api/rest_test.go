package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nikhilesh121/luvrix-realtime/wire"
)

type recordedRequest struct {
	method string
	path   string
	query  string
	auth   string
	body   []byte
}

func newTestStore(t *testing.T, status int, response interface{}) (*RESTStore, *recordedRequest) {
	t.Helper()
	rec := &recordedRequest{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.method = r.Method
		rec.path = r.URL.Path
		rec.query = r.URL.RawQuery
		rec.auth = r.Header.Get("Authorization")
		if r.Body != nil {
			var buf [4096]byte
			n, _ := r.Body.Read(buf[:])
			rec.body = buf[:n]
		}
		w.WriteHeader(status)
		if response != nil {
			json.NewEncoder(w).Encode(response)
		}
	}))
	t.Cleanup(ts.Close)
	return NewRESTStore(ts.URL, "tok-123"), rec
}

func TestCreateComment(t *testing.T) {
	store, rec := newTestStore(t, http.StatusOK, wire.Comment{ID: "c1", Content: "hello"})

	c, err := store.CreateComment(context.Background(), NewComment{
		TargetID:   "b1",
		TargetType: wire.TargetBlog,
		Content:    "hello",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.ID != "c1" {
		t.Errorf("expected created comment back, got %+v", c)
	}
	if rec.method != http.MethodPost || rec.path != "/api/comments" {
		t.Errorf("unexpected request: %s %s", rec.method, rec.path)
	}
	if rec.auth != "Bearer tok-123" {
		t.Errorf("missing bearer auth, got %q", rec.auth)
	}
	var sent NewComment
	if err := json.Unmarshal(rec.body, &sent); err != nil || sent.Content != "hello" {
		t.Errorf("bad request body %s: %v", rec.body, err)
	}
}

func TestCommentsQuery(t *testing.T) {
	store, rec := newTestStore(t, http.StatusOK, map[string]interface{}{
		"comments": []wire.Comment{{ID: "c1"}},
	})

	comments, err := store.Comments(context.Background(), "m7", wire.TargetManga)
	if err != nil {
		t.Fatalf("comments: %v", err)
	}
	if len(comments) != 1 || comments[0].ID != "c1" {
		t.Errorf("unexpected comments: %+v", comments)
	}
	if rec.query != "target_id=m7&target_type=manga" {
		t.Errorf("unexpected query: %s", rec.query)
	}
}

func TestContentMutations(t *testing.T) {
	cases := []struct {
		name   string
		call   func(s *RESTStore) error
		method string
		path   string
	}{
		{"delete comment", func(s *RESTStore) error {
			return s.DeleteComment(context.Background(), "c1")
		}, http.MethodDelete, "/api/comments/c1"},
		{"like comment", func(s *RESTStore) error {
			_, err := s.LikeComment(context.Background(), "c1")
			return err
		}, http.MethodPost, "/api/comments/c1/like"},
		{"increment views", func(s *RESTStore) error {
			_, err := s.IncrementViews(context.Background(), "b1")
			return err
		}, http.MethodPost, "/api/content/b1/views"},
		{"like content", func(s *RESTStore) error {
			_, err := s.LikeContent(context.Background(), "b1")
			return err
		}, http.MethodPost, "/api/content/b1/like"},
		{"unlike content", func(s *RESTStore) error {
			_, err := s.UnlikeContent(context.Background(), "b1")
			return err
		}, http.MethodDelete, "/api/content/b1/like"},
		{"favorite", func(s *RESTStore) error {
			_, err := s.FavoriteContent(context.Background(), "m1")
			return err
		}, http.MethodPost, "/api/content/m1/favorite"},
		{"unfavorite", func(s *RESTStore) error {
			_, err := s.UnfavoriteContent(context.Background(), "m1")
			return err
		}, http.MethodDelete, "/api/content/m1/favorite"},
		{"follow", func(s *RESTStore) error {
			return s.FollowUser(context.Background(), "u2")
		}, http.MethodPost, "/api/users/u2/follow"},
		{"unfollow", func(s *RESTStore) error {
			return s.UnfollowUser(context.Background(), "u2")
		}, http.MethodDelete, "/api/users/u2/follow"},
		{"mark read", func(s *RESTStore) error {
			return s.MarkNotificationRead(context.Background(), "n1")
		}, http.MethodPost, "/api/notifications/n1/read"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, rec := newTestStore(t, http.StatusOK, map[string]int{"likes": 1, "views": 1, "favorites": 1})
			if err := tc.call(store); err != nil {
				t.Fatalf("call: %v", err)
			}
			if rec.method != tc.method || rec.path != tc.path {
				t.Errorf("expected %s %s, got %s %s", tc.method, tc.path, rec.method, rec.path)
			}
		})
	}
}

func TestFetchNotifications(t *testing.T) {
	store, rec := newTestStore(t, http.StatusOK, NotificationPage{
		Items:       []wire.Notification{{ID: "n1"}},
		UnreadCount: 4,
	})

	page, err := store.FetchNotifications(context.Background(), wire.CategoryLikes, 10)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if page.UnreadCount != 4 || len(page.Items) != 1 {
		t.Errorf("unexpected page: %+v", page)
	}
	if rec.query != "category=likes&limit=10" {
		t.Errorf("unexpected query: %s", rec.query)
	}
}

func TestErrorEnvelope(t *testing.T) {
	store, _ := newTestStore(t, http.StatusForbidden, map[string]string{
		"error": "not the author",
		"code":  "FORBIDDEN",
	})

	err := store.DeleteComment(context.Background(), "c1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusForbidden || apiErr.Code != "FORBIDDEN" {
		t.Errorf("unexpected error: %+v", apiErr)
	}
}
