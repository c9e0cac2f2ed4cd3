package controllers_test

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumehq/plume/models"
)

func TestCreatePost(t *testing.T) {
	r, db := newTestApp(t)
	token, _ := registerUser(t, r, "author")
	community := seedCommunity(t, db, "General")

	t.Run("slug derives from title and stays unique", func(t *testing.T) {
		w := perform(r, http.MethodPost, "/posts", gin.H{
			"title":        "Hello World",
			"content":      "First post body",
			"community_id": community.ID,
			"tags":         []string{"Go", "  web  "},
		}, token)
		require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())

		post := decode(t, w)["post"].(map[string]interface{})
		slug, _ := post["slug"].(string)
		assert.Contains(t, slug, "hello-world")

		tags := post["tags"].([]interface{})
		names := make([]string, 0, len(tags))
		for _, tag := range tags {
			names = append(names, tag.(map[string]interface{})["name"].(string))
		}
		assert.ElementsMatch(t, []string{"go", "web"}, names)
	})

	t.Run("same title produces a different slug", func(t *testing.T) {
		id1 := createPost(t, r, token, community.ID, "Same Title", nil)
		id2 := createPost(t, r, token, community.ID, "Same Title", nil)

		var p1, p2 models.Post
		require.NoError(t, db.First(&p1, id1).Error)
		require.NoError(t, db.First(&p2, id2).Error)
		assert.NotEqual(t, p1.Slug, p2.Slug)
	})

	t.Run("requires auth", func(t *testing.T) {
		w := perform(r, http.MethodPost, "/posts", gin.H{
			"title":        "Anon",
			"content":      "body",
			"community_id": community.ID,
		}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown community is not found", func(t *testing.T) {
		w := perform(r, http.MethodPost, "/posts", gin.H{
			"title":        "Nope",
			"content":      "body",
			"community_id": 9999,
		}, token)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("empty title rejected", func(t *testing.T) {
		w := perform(r, http.MethodPost, "/posts", gin.H{
			"title":        "   ",
			"content":      "body",
			"community_id": community.ID,
		}, token)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("multipart form with cover image", func(t *testing.T) {
		w := performMultipart(r, http.MethodPost, "/posts", func(mw *multipart.Writer) {
			mw.WriteField("title", "With Cover")
			mw.WriteField("content", "body text")
			mw.WriteField("community_id", fmt.Sprintf("%d", community.ID))
			mw.WriteField("tags", "go,images")
			part, err := mw.CreatePart(textprotoHeader("cover_image", "cover.jpg", "image/jpeg"))
			require.NoError(t, err)
			part.Write([]byte("jpeg-bytes"))
		}, token)
		require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())

		post := decode(t, w)["post"].(map[string]interface{})
		cover, _ := post["cover_image_url"].(string)
		assert.Contains(t, cover, "https://cdn.test/")
		assert.Len(t, post["tags"].([]interface{}), 2)
	})

	t.Run("tags accepted as csv string", func(t *testing.T) {
		w := perform(r, http.MethodPost, "/posts", gin.H{
			"title":        "CSV Tags",
			"content":      "body",
			"community_id": community.ID,
			"tags":         "go, databases",
		}, token)
		require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())
		post := decode(t, w)["post"].(map[string]interface{})
		assert.Len(t, post["tags"].([]interface{}), 2)
	})
}

func TestGetPost(t *testing.T) {
	r, db := newTestApp(t)
	token, _ := registerUser(t, r, "reader")
	community := seedCommunity(t, db, "General")
	postID := createPost(t, r, token, community.ID, "Readable", []string{"go"})

	t.Run("anonymous read", func(t *testing.T) {
		w := perform(r, http.MethodGet, fmt.Sprintf("/posts/%d", postID), nil, "")
		require.Equal(t, http.StatusOK, w.Code)
		post := decode(t, w)["post"].(map[string]interface{})
		assert.Equal(t, "Readable", post["title"])
		assert.Equal(t, false, post["liked"])
	})

	t.Run("authed read carries viewer flags", func(t *testing.T) {
		w := perform(r, http.MethodPost, fmt.Sprintf("/posts/%d/like", postID), nil, token)
		require.Equal(t, http.StatusCreated, w.Code)

		w = perform(r, http.MethodGet, fmt.Sprintf("/posts/%d", postID), nil, token)
		require.Equal(t, http.StatusOK, w.Code)
		post := decode(t, w)["post"].(map[string]interface{})
		assert.Equal(t, true, post["liked"])
		assert.EqualValues(t, 1, post["like_count"])
	})

	t.Run("missing post is not found", func(t *testing.T) {
		w := perform(r, http.MethodGet, "/posts/424242", nil, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestUpdatePost(t *testing.T) {
	r, db := newTestApp(t)
	ownerToken, _ := registerUser(t, r, "owner")
	otherToken, _ := registerUser(t, r, "intruder")
	community := seedCommunity(t, db, "General")
	postID := createPost(t, r, ownerToken, community.ID, "Original Title", []string{"go", "web"})

	t.Run("non-owner is forbidden", func(t *testing.T) {
		w := perform(r, http.MethodPut, fmt.Sprintf("/posts/%d", postID), gin.H{
			"title": "Hijacked",
		}, otherToken)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("partial update keeps omitted fields", func(t *testing.T) {
		w := perform(r, http.MethodPut, fmt.Sprintf("/posts/%d", postID), gin.H{
			"title": "Renamed Title",
		}, ownerToken)
		require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

		var post models.Post
		require.NoError(t, db.Preload("Tags").First(&post, postID).Error)
		assert.Equal(t, "Renamed Title", post.Title)
		assert.Contains(t, post.Slug, "renamed-title")
		assert.NotEmpty(t, post.Content)
		assert.Len(t, post.Tags, 2)
	})

	t.Run("explicit empty tags clears them", func(t *testing.T) {
		w := perform(r, http.MethodPut, fmt.Sprintf("/posts/%d", postID), gin.H{
			"tags": []string{},
		}, ownerToken)
		require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

		var count int64
		require.NoError(t, db.Model(&models.PostTag{}).Where("post_id = ?", postID).Count(&count).Error)
		assert.EqualValues(t, 0, count)
	})
}

func TestDeletePost(t *testing.T) {
	r, db := newTestApp(t)
	ownerToken, _ := registerUser(t, r, "owner")
	otherToken, _ := registerUser(t, r, "other")
	community := seedCommunity(t, db, "General")

	t.Run("non-owner is forbidden", func(t *testing.T) {
		postID := createPost(t, r, ownerToken, community.ID, "Keep Me", nil)
		w := perform(r, http.MethodDelete, fmt.Sprintf("/posts/%d", postID), nil, otherToken)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("cascade leaves no orphans", func(t *testing.T) {
		postID := createPost(t, r, ownerToken, community.ID, "Doomed", []string{"go"})

		w := perform(r, http.MethodPost, fmt.Sprintf("/posts/%d/comments", postID), gin.H{
			"content": "a comment",
		}, otherToken)
		require.Equal(t, http.StatusCreated, w.Code)
		w = perform(r, http.MethodPost, fmt.Sprintf("/posts/%d/like", postID), nil, otherToken)
		require.Equal(t, http.StatusCreated, w.Code)
		w = perform(r, http.MethodPost, fmt.Sprintf("/posts/%d/save", postID), nil, otherToken)
		require.Equal(t, http.StatusCreated, w.Code)
		w = perform(r, http.MethodPost, fmt.Sprintf("/posts/%d/report", postID), gin.H{
			"reason": "spam",
		}, otherToken)
		require.Equal(t, http.StatusCreated, w.Code)

		w = perform(r, http.MethodDelete, fmt.Sprintf("/posts/%d", postID), nil, ownerToken)
		require.Equal(t, http.StatusOK, w.Code)

		for name, model := range map[string]interface{}{
			"comments":  &models.Comment{},
			"likes":     &models.Like{},
			"saves":     &models.SavedPost{},
			"reports":   &models.Report{},
			"tag links": &models.PostTag{},
		} {
			var count int64
			require.NoError(t, db.Model(model).Where("post_id = ?", postID).Count(&count).Error)
			assert.EqualValues(t, 0, count, "leftover %s", name)
		}
	})
}

func TestListPosts(t *testing.T) {
	r, db := newTestApp(t)
	token, _ := registerUser(t, r, "poster")
	likerToken, _ := registerUser(t, r, "liker")
	community := seedCommunity(t, db, "General")
	other := seedCommunity(t, db, "Other")

	oldID := createPost(t, r, token, community.ID, "Old Post", nil)
	newID := createPost(t, r, token, community.ID, "New Post", nil)
	otherID := createPost(t, r, token, other.ID, "Elsewhere", nil)

	// push one post outside the weekly window
	require.NoError(t, db.Model(&models.Post{}).Where("id = ?", oldID).
		Update("created_at", time.Now().AddDate(0, 0, -10)).Error)
	// the old post is the most liked
	w := perform(r, http.MethodPost, fmt.Sprintf("/posts/%d/like", oldID), nil, likerToken)
	require.Equal(t, http.StatusCreated, w.Code)

	ids := func(t *testing.T, path string) []uint {
		w := perform(r, http.MethodGet, path, nil, "")
		require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
		items := decode(t, w)["items"].([]interface{})
		out := make([]uint, 0, len(items))
		for _, item := range items {
			out = append(out, uint(item.(map[string]interface{})["id"].(float64)))
		}
		return out
	}

	t.Run("latest is newest first", func(t *testing.T) {
		got := ids(t, "/posts?sort=latest")
		require.Len(t, got, 3)
		assert.Equal(t, otherID, got[0])
		assert.Equal(t, oldID, got[2])
	})

	t.Run("top-week excludes posts outside the window", func(t *testing.T) {
		got := ids(t, "/posts?sort=top-week")
		assert.NotContains(t, got, oldID)
	})

	t.Run("top-all orders by likes then recency", func(t *testing.T) {
		got := ids(t, "/posts?sort=top-all")
		require.Len(t, got, 3)
		assert.Equal(t, oldID, got[0])
		assert.Equal(t, otherID, got[1])
		assert.Equal(t, newID, got[2])
	})

	t.Run("community filter", func(t *testing.T) {
		got := ids(t, fmt.Sprintf("/posts?community=%d", other.ID))
		assert.Equal(t, []uint{otherID}, got)
	})

	t.Run("invalid sort rejected", func(t *testing.T) {
		w := perform(r, http.MethodGet, "/posts?sort=bogus", nil, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("following feed requires auth", func(t *testing.T) {
		w := perform(r, http.MethodGet, "/posts?feed=following", nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("following feed only shows followed authors", func(t *testing.T) {
		w := perform(r, http.MethodGet, "/posts?feed=following", nil, likerToken)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, decode(t, w)["items"])

		var poster models.User
		require.NoError(t, db.Where("username = ?", "poster").First(&poster).Error)
		w = perform(r, http.MethodPost, fmt.Sprintf("/users/%d/follow", poster.ID), nil, likerToken)
		require.Equal(t, http.StatusCreated, w.Code)

		w = perform(r, http.MethodGet, "/posts?feed=following", nil, likerToken)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode(t, w)["items"], 3)
	})
}

func TestComments(t *testing.T) {
	r, db := newTestApp(t)
	token, _ := registerUser(t, r, "commenter")
	otherToken, _ := registerUser(t, r, "visitor")
	community := seedCommunity(t, db, "General")
	postID := createPost(t, r, token, community.ID, "Discussed", nil)
	otherPostID := createPost(t, r, token, community.ID, "Quiet", nil)

	var parentID uint
	t.Run("create and list", func(t *testing.T) {
		w := perform(r, http.MethodPost, fmt.Sprintf("/posts/%d/comments", postID), gin.H{
			"content": "first!",
		}, token)
		require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())
		comment := decode(t, w)["comment"].(map[string]interface{})
		parentID = uint(comment["id"].(float64))

		w = perform(r, http.MethodGet, fmt.Sprintf("/posts/%d/comments", postID), nil, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode(t, w)["comments"], 1)
	})

	t.Run("reply to a comment on the same post", func(t *testing.T) {
		w := perform(r, http.MethodPost, fmt.Sprintf("/posts/%d/comments", postID), gin.H{
			"content":   "welcome",
			"parent_id": parentID,
		}, otherToken)
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("parent from another post rejected", func(t *testing.T) {
		w := perform(r, http.MethodPost, fmt.Sprintf("/posts/%d/comments", otherPostID), gin.H{
			"content":   "misplaced",
			"parent_id": parentID,
		}, otherToken)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "parent comment belongs to a different post", errorMessage(t, w))
	})

	t.Run("only the author may delete", func(t *testing.T) {
		w := perform(r, http.MethodDelete, fmt.Sprintf("/comments/%d", parentID), nil, otherToken)
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = perform(r, http.MethodDelete, fmt.Sprintf("/comments/%d", parentID), nil, token)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
