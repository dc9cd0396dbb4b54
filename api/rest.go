package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nikhilesh121/luvrix-realtime/wire"
)

// APIError is a non-2xx response from the platform API.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api: %d: %s", e.Status, e.Message)
}

// RESTStore implements Store against the platform's HTTP API.
type RESTStore struct {
	base  string
	token string
	hc    *http.Client
}

// NewRESTStore creates a client for the API rooted at base, authenticating
// with the given bearer token.
func NewRESTStore(base, token string) *RESTStore {
	return &RESTStore{
		base:  strings.TrimRight(base, "/"),
		token: token,
		hc:    &http.Client{Timeout: 15 * time.Second},
	}
}

// SetHTTPClient overrides the underlying HTTP client (used in tests).
func (s *RESTStore) SetHTTPClient(hc *http.Client) { s.hc = hc }

func (s *RESTStore) do(ctx context.Context, method, path string, body, out interface{}) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.base+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (s *RESTStore) CreateComment(ctx context.Context, in NewComment) (wire.Comment, error) {
	var c wire.Comment
	err := s.do(ctx, http.MethodPost, "/api/comments", in, &c)
	return c, err
}

func (s *RESTStore) Comments(ctx context.Context, targetID string, targetType wire.TargetType) ([]wire.Comment, error) {
	q := url.Values{}
	q.Set("target_id", targetID)
	q.Set("target_type", string(targetType))
	var out struct {
		Comments []wire.Comment `json:"comments"`
	}
	err := s.do(ctx, http.MethodGet, "/api/comments?"+q.Encode(), nil, &out)
	return out.Comments, err
}

func (s *RESTStore) DeleteComment(ctx context.Context, id string) error {
	return s.do(ctx, http.MethodDelete, "/api/comments/"+url.PathEscape(id), nil, nil)
}

func (s *RESTStore) LikeComment(ctx context.Context, id string) (int, error) {
	var out struct {
		Likes int `json:"likes"`
	}
	err := s.do(ctx, http.MethodPost, "/api/comments/"+url.PathEscape(id)+"/like", nil, &out)
	return out.Likes, err
}

func (s *RESTStore) IncrementViews(ctx context.Context, targetID string) (int, error) {
	var out struct {
		Views int `json:"views"`
	}
	err := s.do(ctx, http.MethodPost, "/api/content/"+url.PathEscape(targetID)+"/views", nil, &out)
	return out.Views, err
}

func (s *RESTStore) LikeContent(ctx context.Context, targetID string) (int, error) {
	var out struct {
		Likes int `json:"likes"`
	}
	err := s.do(ctx, http.MethodPost, "/api/content/"+url.PathEscape(targetID)+"/like", nil, &out)
	return out.Likes, err
}

func (s *RESTStore) UnlikeContent(ctx context.Context, targetID string) (int, error) {
	var out struct {
		Likes int `json:"likes"`
	}
	err := s.do(ctx, http.MethodDelete, "/api/content/"+url.PathEscape(targetID)+"/like", nil, &out)
	return out.Likes, err
}

func (s *RESTStore) FavoriteContent(ctx context.Context, targetID string) (int, error) {
	var out struct {
		Favorites int `json:"favorites"`
	}
	err := s.do(ctx, http.MethodPost, "/api/content/"+url.PathEscape(targetID)+"/favorite", nil, &out)
	return out.Favorites, err
}

func (s *RESTStore) UnfavoriteContent(ctx context.Context, targetID string) (int, error) {
	var out struct {
		Favorites int `json:"favorites"`
	}
	err := s.do(ctx, http.MethodDelete, "/api/content/"+url.PathEscape(targetID)+"/favorite", nil, &out)
	return out.Favorites, err
}

func (s *RESTStore) FollowUser(ctx context.Context, userID string) error {
	return s.do(ctx, http.MethodPost, "/api/users/"+url.PathEscape(userID)+"/follow", nil, nil)
}

func (s *RESTStore) UnfollowUser(ctx context.Context, userID string) error {
	return s.do(ctx, http.MethodDelete, "/api/users/"+url.PathEscape(userID)+"/follow", nil, nil)
}

func (s *RESTStore) FetchNotifications(ctx context.Context, category string, limit int) (NotificationPage, error) {
	q := url.Values{}
	if category != "" {
		q.Set("category", category)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var page NotificationPage
	err := s.do(ctx, http.MethodGet, "/api/notifications?"+q.Encode(), nil, &page)
	return page, err
}

func (s *RESTStore) MarkNotificationRead(ctx context.Context, id string) error {
	return s.do(ctx, http.MethodPost, "/api/notifications/"+url.PathEscape(id)+"/read", nil, nil)
}

func (s *RESTStore) MarkAllNotificationsRead(ctx context.Context, category string) error {
	q := url.Values{}
	if category != "" {
		q.Set("category", category)
	}
	return s.do(ctx, http.MethodPost, "/api/notifications/read-all?"+q.Encode(), nil, nil)
}
