package controllers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumehq/plume/models"
)

func TestListCommunities(t *testing.T) {
	r, db := newTestApp(t)
	seedCommunity(t, db, "Zel Last")
	first := seedCommunity(t, db, "Shown First")
	require.NoError(t, db.Model(first).Update("sort_order", -1).Error)

	inactive := seedCommunity(t, db, "Dormant")
	require.NoError(t, db.Model(inactive).Update("is_active", false).Error)

	w := perform(r, http.MethodGet, "/communities", nil, "")
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

	items := decode(t, w)["items"].([]interface{})
	require.Len(t, items, 3, "inactive communities stay listed")
	assert.Equal(t, "Shown First", items[0].(map[string]interface{})["title"])
}

func TestGetCommunity(t *testing.T) {
	r, db := newTestApp(t)
	token, _ := registerUser(t, r, "writer")
	community := seedCommunity(t, db, "Databases")
	createPost(t, r, token, community.ID, "Indexes Explained", nil)
	createPost(t, r, token, community.ID, "Query Plans", nil)

	t.Run("returns community with recent posts and counts", func(t *testing.T) {
		w := perform(r, http.MethodGet, "/communities/databases", nil, "")
		require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

		body := decode(t, w)
		got := body["community"].(map[string]interface{})
		assert.Equal(t, "Databases", got["title"])
		assert.EqualValues(t, 2, got["post_count"])
		assert.Len(t, body["posts"], 2)
	})

	t.Run("unknown slug is not found", func(t *testing.T) {
		w := perform(r, http.MethodGet, "/communities/nope", nil, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestCommunityPostCountExcludesDeleted(t *testing.T) {
	r, db := newTestApp(t)
	token, _ := registerUser(t, r, "writer")
	community := seedCommunity(t, db, "Shrinking")
	postID := createPost(t, r, token, community.ID, "Temporary", nil)

	w := perform(r, http.MethodDelete, fmt.Sprintf("/posts/%d", postID), nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	var got models.Community
	require.NoError(t, db.Model(&models.Community{}).
		Select("communities.*, (SELECT COUNT(*) FROM posts WHERE posts.community_id = communities.id) AS post_count").
		First(&got, community.ID).Error)
	assert.EqualValues(t, 0, got.PostCount)
}
