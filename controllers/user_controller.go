package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/plumehq/plume/models"
	"github.com/plumehq/plume/utils"
)

// UserController exposes public profiles and the follow graph.
type UserController struct {
	db *gorm.DB
}

// NewUserController creates a new UserController instance.
func NewUserController(db *gorm.DB) *UserController {
	return &UserController{db: db}
}

func (u *UserController) loadUser(ctx *gin.Context) (*models.User, bool) {
	var user models.User
	if err := u.db.First(&user, "id = ?", ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "user not found")
		} else {
			utils.Error(ctx, http.StatusInternalServerError, "failed to load user")
		}
		return nil, false
	}
	return &user, true
}

// GetUserPublic returns a public profile with follow and post counts.
func (u *UserController) GetUserPublic(ctx *gin.Context) {
	user, ok := u.loadUser(ctx)
	if !ok {
		return
	}

	var followers, following, posts int64
	u.db.Model(&models.Follow{}).Where("following_id = ?", user.ID).Count(&followers)
	u.db.Model(&models.Follow{}).Where("follower_id = ?", user.ID).Count(&following)
	u.db.Model(&models.Post{}).Where("user_id = ?", user.ID).Count(&posts)

	payload := publicUser(*user)
	payload["follower_count"] = followers
	payload["following_count"] = following
	payload["post_count"] = posts

	if viewerID, authed := getUserID(ctx); authed {
		var count int64
		u.db.Model(&models.Follow{}).
			Where("follower_id = ? AND following_id = ?", viewerID, user.ID).
			Count(&count)
		payload["followed"] = count > 0
	}

	utils.Success(ctx, gin.H{"user": payload})
}

// ListUserPosts returns a user's posts, newest first.
func (u *UserController) ListUserPosts(ctx *gin.Context) {
	user, ok := u.loadUser(ctx)
	if !ok {
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	query := u.db.Model(&models.Post{}).Where("posts.user_id = ?", user.ID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to count posts")
		return
	}

	var posts []models.Post
	err := query.Select(postListSelect).
		Preload("User").Preload("Community").Preload("Tags").
		Order("posts.created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&posts).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to list posts")
		return
	}

	utils.Success(ctx, gin.H{
		"items":      posts,
		"pagination": paginationPayload(page, pageSize, total),
	})
}

// FollowUser creates a follow relation. Duplicates are rejected by the
// database uniqueness constraint.
func (u *UserController) FollowUser(ctx *gin.Context) {
	target, ok := u.loadUser(ctx)
	if !ok {
		return
	}
	userID, _ := getUserID(ctx)
	if target.ID == userID {
		utils.Error(ctx, http.StatusBadRequest, "cannot follow yourself")
		return
	}

	follow := models.Follow{FollowerID: userID, FollowingID: target.ID}
	if err := u.db.Create(&follow).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Error(ctx, http.StatusBadRequest, "Already following user")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to follow user")
		return
	}
	utils.Created(ctx, gin.H{"following": true})
}

// UnfollowUser removes a follow relation; a missing relation is not-found.
func (u *UserController) UnfollowUser(ctx *gin.Context) {
	target, ok := u.loadUser(ctx)
	if !ok {
		return
	}
	userID, _ := getUserID(ctx)

	res := u.db.Where("follower_id = ? AND following_id = ?", userID, target.ID).Delete(&models.Follow{})
	if res.Error != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to unfollow user")
		return
	}
	if res.RowsAffected == 0 {
		utils.Error(ctx, http.StatusNotFound, "Not following user")
		return
	}
	utils.Success(ctx, gin.H{"following": false})
}

// ListFollowers returns the users following the given user.
func (u *UserController) ListFollowers(ctx *gin.Context) {
	u.listFollowSide(ctx, "follows.following_id", "follows.follower_id")
}

// ListFollowing returns the users the given user follows.
func (u *UserController) ListFollowing(ctx *gin.Context) {
	u.listFollowSide(ctx, "follows.follower_id", "follows.following_id")
}

func (u *UserController) listFollowSide(ctx *gin.Context, whereCol, joinCol string) {
	user, ok := u.loadUser(ctx)
	if !ok {
		return
	}

	var users []models.User
	err := u.db.
		Joins("JOIN follows ON "+joinCol+" = users.id").
		Where(whereCol+" = ?", user.ID).
		Order("follows.created_at DESC").
		Find(&users).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to list users")
		return
	}

	items := make([]gin.H, 0, len(users))
	for _, usr := range users {
		items = append(items, publicUser(usr))
	}
	utils.Success(ctx, gin.H{"items": items})
}
