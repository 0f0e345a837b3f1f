package routes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"

	"github.com/quillhub/quillhub-be/db"
	"github.com/quillhub/quillhub-be/db/memdb"
	"github.com/quillhub/quillhub-be/middleware"
	"github.com/quillhub/quillhub-be/model"
)

const (
	memberToken = "member-uid"
	adminToken  = "admin-uid"
)

// stubVerifier treats the bearer token itself as the firebase UID
type stubVerifier struct{}

func (stubVerifier) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	if idToken == "invalid" {
		return nil, errors.New("invalid token")
	}
	return &auth.Token{UID: idToken}, nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter(t *testing.T) (*gin.Engine, *memdb.Store, int64) {
	t.Helper()
	store := memdb.New()
	ctx := context.Background()
	for _, user := range []*model.User{
		{Id: memberToken, DisplayName: "member"},
		{Id: adminToken, DisplayName: "admin", IsAdmin: true},
	} {
		if err := store.CreateUser(ctx, user); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
	}
	postId, err := store.CreatePost(ctx, &db.CreatePost{Title: "a post", Status: model.PostStatusPublished})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	AddHealthCheckRoutes(&r.RouterGroup)
	AddCommentRoutes(&r.RouterGroup, store, stubVerifier{})
	AddPostRoutes(&r.RouterGroup, store, stubVerifier{})
	AddUserRoutes(&r.RouterGroup, store, stubVerifier{})
	return r, store, postId
}

func perform(r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != nil {
		encoded, _ := json.Marshal(body)
		reader = strings.NewReader(string(encoded))
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("malformed envelope %q: %v", w.Body.String(), err)
	}
	return env
}

func createComment(t *testing.T, r *gin.Engine, postId int64, content string) model.Comment {
	t.Helper()
	w := perform(r, http.MethodPut, "/comments", memberToken, gin.H{
		"postId":  postId,
		"content": content,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("create comment: status %v body %v", w.Code, w.Body.String())
	}
	var comment model.Comment
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &comment); err != nil {
		t.Fatalf("decode comment: %v", err)
	}
	return comment
}

func TestCreateCommentEndpoint(t *testing.T) {
	r, _, postId := setupRouter(t)

	comment := createComment(t, r, postId, "hello world")
	if comment.Content != "hello world" {
		t.Errorf("content = %q", comment.Content)
	}
	if comment.Author == nil || comment.Author.Id != memberToken {
		t.Errorf("author = %+v, want principal %v", comment.Author, memberToken)
	}
}

func TestCreateCommentSanitizesContent(t *testing.T) {
	r, _, postId := setupRouter(t)

	comment := createComment(t, r, postId, `hi <script>alert("xss")</script>there`)
	if strings.Contains(comment.Content, "<script>") {
		t.Errorf("script tag survived sanitization: %q", comment.Content)
	}
	if !strings.Contains(comment.Content, "hi") || !strings.Contains(comment.Content, "there") {
		t.Errorf("sanitization mangled content: %q", comment.Content)
	}
}

func TestAuthRequired(t *testing.T) {
	r, _, postId := setupRouter(t)

	cases := []struct {
		name  string
		token string
	}{
		{"no token", ""},
		{"invalid token", "invalid"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := perform(r, http.MethodPut, "/comments", tc.token, gin.H{
				"postId":  postId,
				"content": "hi",
			})
			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %v, want 401", w.Code)
			}
			if env := decodeEnvelope(t, w); env.Success {
				t.Error("error envelope claims success")
			}
		})
	}
}

func TestProfileRequired(t *testing.T) {
	r, _, postId := setupRouter(t)

	// valid firebase identity with no local profile
	w := perform(r, http.MethodPut, "/comments", "stranger-uid", gin.H{
		"postId":  postId,
		"content": "hi",
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %v, want 403", w.Code)
	}
}

func TestAdminGate(t *testing.T) {
	r, _, postId := setupRouter(t)
	comment := createComment(t, r, postId, "borderline")
	path := fmt.Sprintf("/comments/%d/moderate", comment.Id)
	body := gin.H{"status": "HIDDEN"}

	if w := perform(r, http.MethodPost, path, memberToken, body); w.Code != http.StatusForbidden {
		t.Errorf("member moderate status = %v, want 403", w.Code)
	}
	w := perform(r, http.MethodPost, path, adminToken, body)
	if w.Code != http.StatusOK {
		t.Fatalf("admin moderate status = %v body %v", w.Code, w.Body.String())
	}
	var moderated model.Comment
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &moderated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if moderated.Status != model.CommentStatusHidden {
		t.Errorf("status = %v, want HIDDEN", moderated.Status)
	}
}

func TestPublicListing(t *testing.T) {
	r, _, postId := setupRouter(t)
	createComment(t, r, postId, "visible to all")

	w := perform(r, http.MethodGet, "/comments", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %v", w.Code)
	}
	var page model.PaginatedComments
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if len(page.Items) != 1 || page.Metadata.Total != 1 {
		t.Errorf("page = %+v", page)
	}
}

func TestListingFilterValidation(t *testing.T) {
	r, _, _ := setupRouter(t)

	if w := perform(r, http.MethodGet, "/comments?status=BOGUS", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bogus status filter: code = %v, want 400", w.Code)
	}
	if w := perform(r, http.MethodGet, "/comments?isFlagged=maybe", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bogus bool filter: code = %v, want 400", w.Code)
	}
}

func TestNotFoundEnvelope(t *testing.T) {
	r, _, _ := setupRouter(t)

	w := perform(r, http.MethodGet, "/comments/999", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %v, want 404", w.Code)
	}
	env := decodeEnvelope(t, w)
	if env.Success || env.Message != "comment not found" {
		t.Errorf("envelope = %+v", env)
	}
}

func TestMalformedId(t *testing.T) {
	r, _, _ := setupRouter(t)

	if w := perform(r, http.MethodGet, "/comments/abc", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("status = %v, want 400", w.Code)
	}
}

func TestVoteEndpoints(t *testing.T) {
	r, _, postId := setupRouter(t)
	comment := createComment(t, r, postId, "vote me")

	w := perform(r, http.MethodPost, fmt.Sprintf("/comments/%d/like", comment.Id), adminToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("like status = %v", w.Code)
	}
	var liked model.Comment
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &liked); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if liked.Likes != 1 || len(liked.LikedBy) != 1 || liked.LikedBy[0] != adminToken {
		t.Errorf("after like: %+v", liked)
	}
}

func TestSoftDeleteEndpoint(t *testing.T) {
	r, _, postId := setupRouter(t)
	comment := createComment(t, r, postId, "fleeting")

	if w := perform(r, http.MethodDelete, fmt.Sprintf("/comments/%d", comment.Id), memberToken, nil); w.Code != http.StatusOK {
		t.Fatalf("soft delete status = %v", w.Code)
	}

	w := perform(r, http.MethodGet, fmt.Sprintf("/comments/%d", comment.Id), "", nil)
	var deleted model.Comment
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &deleted); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if deleted.Status != model.CommentStatusDeleted {
		t.Errorf("status = %v, want DELETED", deleted.Status)
	}
}

func TestHardDeleteRequiresAdmin(t *testing.T) {
	r, _, postId := setupRouter(t)
	comment := createComment(t, r, postId, "doomed")
	path := fmt.Sprintf("/comments/%d/hard", comment.Id)

	if w := perform(r, http.MethodDelete, path, memberToken, nil); w.Code != http.StatusForbidden {
		t.Errorf("member hard delete status = %v, want 403", w.Code)
	}
	if w := perform(r, http.MethodDelete, path, adminToken, nil); w.Code != http.StatusOK {
		t.Errorf("admin hard delete status = %v, want 200", w.Code)
	}
	if w := perform(r, http.MethodGet, fmt.Sprintf("/comments/%d", comment.Id), "", nil); w.Code != http.StatusNotFound {
		t.Errorf("comment still present after hard delete: %v", w.Code)
	}
}

func TestBulkModerateEndpoint(t *testing.T) {
	r, _, postId := setupRouter(t)
	a := createComment(t, r, postId, "a")
	b := createComment(t, r, postId, "b")

	w := perform(r, http.MethodPost, "/moderation/comments", adminToken, gin.H{
		"ids":    []int64{a.Id, b.Id, 999},
		"status": "PENDING_REVIEW",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("bulk moderate status = %v body %v", w.Code, w.Body.String())
	}

	listing := perform(r, http.MethodGet, "/comments?status=PENDING_REVIEW", "", nil)
	var page model.PaginatedComments
	if err := json.Unmarshal(decodeEnvelope(t, listing).Data, &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if page.Metadata.Total != 2 {
		t.Errorf("moderated total = %v, want 2", page.Metadata.Total)
	}
}

func TestCommentStatsEndpoint(t *testing.T) {
	r, _, postId := setupRouter(t)
	createComment(t, r, postId, "one")
	createComment(t, r, postId, "two")

	w := perform(r, http.MethodGet, fmt.Sprintf("/posts/%d/comments/stats", postId), "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stats status = %v", w.Code)
	}
	var stats model.CommentStats
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.TotalComments != 2 || stats.TopLevelComments != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestCreateUserProfile(t *testing.T) {
	r, store, _ := setupRouter(t)

	w := perform(r, http.MethodPut, "/users", "fresh-uid", gin.H{"displayName": "Fresh"})
	if w.Code != http.StatusOK {
		t.Fatalf("create profile status = %v body %v", w.Code, w.Body.String())
	}
	user, err := store.GetUser(context.Background(), "fresh-uid")
	if err != nil || user == nil {
		t.Fatalf("profile not persisted: %v %v", user, err)
	}
	if user.DisplayName != "Fresh" || user.Avatar == "" {
		t.Errorf("profile = %+v", user)
	}
}

func TestRequestIDPropagation(t *testing.T) {
	r, _, _ := setupRouter(t)

	w := perform(r, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %v", w.Code)
	}
	if w.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("response missing request id header")
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.RequestIDHeader, "given-id")
	echo := httptest.NewRecorder()
	r.ServeHTTP(echo, req)
	if got := echo.Header().Get(middleware.RequestIDHeader); got != "given-id" {
		t.Errorf("request id = %q, want caller's id echoed", got)
	}
}
