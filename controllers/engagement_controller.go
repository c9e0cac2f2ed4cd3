package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/plumehq/plume/models"
	"github.com/plumehq/plume/utils"
)

// EngagementController handles likes, saved posts and post reports. The
// (user, post) uniqueness lives in the database; a duplicate concurrent
// insert comes back as gorm.ErrDuplicatedKey and is surfaced as a conflict.
type EngagementController struct {
	db *gorm.DB
}

// NewEngagementController creates a new EngagementController instance.
func NewEngagementController(db *gorm.DB) *EngagementController {
	return &EngagementController{db: db}
}

func (e *EngagementController) loadPost(ctx *gin.Context) (*models.Post, bool) {
	var post models.Post
	if err := e.db.First(&post, "id = ?", ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "post not found")
		} else {
			utils.Error(ctx, http.StatusInternalServerError, "failed to load post")
		}
		return nil, false
	}
	return &post, true
}

func (e *EngagementController) likeCount(postID uint) int64 {
	var count int64
	e.db.Model(&models.Like{}).Where("post_id = ?", postID).Count(&count)
	return count
}

// LikePost records a like. Liking the same post twice is a conflict, not a
// silent no-op.
func (e *EngagementController) LikePost(ctx *gin.Context) {
	post, ok := e.loadPost(ctx)
	if !ok {
		return
	}
	userID, _ := getUserID(ctx)

	like := models.Like{UserID: userID, PostID: post.ID}
	if err := e.db.Create(&like).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Error(ctx, http.StatusBadRequest, "Post already liked")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to like post")
		return
	}
	utils.Created(ctx, gin.H{"likes": e.likeCount(post.ID)})
}

// UnlikePost removes a like; a missing relation is not-found.
func (e *EngagementController) UnlikePost(ctx *gin.Context) {
	post, ok := e.loadPost(ctx)
	if !ok {
		return
	}
	userID, _ := getUserID(ctx)

	res := e.db.Where("user_id = ? AND post_id = ?", userID, post.ID).Delete(&models.Like{})
	if res.Error != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to unlike post")
		return
	}
	if res.RowsAffected == 0 {
		utils.Error(ctx, http.StatusNotFound, "Post not liked")
		return
	}
	utils.Success(ctx, gin.H{"likes": e.likeCount(post.ID)})
}

// CheckLike reports whether the caller has liked the post.
func (e *EngagementController) CheckLike(ctx *gin.Context) {
	post, ok := e.loadPost(ctx)
	if !ok {
		return
	}
	userID, _ := getUserID(ctx)

	var count int64
	e.db.Model(&models.Like{}).Where("user_id = ? AND post_id = ?", userID, post.ID).Count(&count)
	utils.Success(ctx, gin.H{"liked": count > 0})
}

// SavePost bookmarks a post with the same conflict semantics as LikePost.
func (e *EngagementController) SavePost(ctx *gin.Context) {
	post, ok := e.loadPost(ctx)
	if !ok {
		return
	}
	userID, _ := getUserID(ctx)

	saved := models.SavedPost{UserID: userID, PostID: post.ID}
	if err := e.db.Create(&saved).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Error(ctx, http.StatusBadRequest, "Post already saved")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to save post")
		return
	}
	utils.Created(ctx, gin.H{"saved": true})
}

// UnsavePost removes a bookmark; a missing relation is not-found.
func (e *EngagementController) UnsavePost(ctx *gin.Context) {
	post, ok := e.loadPost(ctx)
	if !ok {
		return
	}
	userID, _ := getUserID(ctx)

	res := e.db.Where("user_id = ? AND post_id = ?", userID, post.ID).Delete(&models.SavedPost{})
	if res.Error != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to unsave post")
		return
	}
	if res.RowsAffected == 0 {
		utils.Error(ctx, http.StatusNotFound, "Post not saved")
		return
	}
	utils.Success(ctx, gin.H{"saved": false})
}

// CheckSave reports whether the caller has saved the post.
func (e *EngagementController) CheckSave(ctx *gin.Context) {
	post, ok := e.loadPost(ctx)
	if !ok {
		return
	}
	userID, _ := getUserID(ctx)

	var count int64
	e.db.Model(&models.SavedPost{}).Where("user_id = ? AND post_id = ?", userID, post.ID).Count(&count)
	utils.Success(ctx, gin.H{"saved": count > 0})
}

// ListSavedPosts returns the caller's bookmarks, newest bookmark first.
func (e *EngagementController) ListSavedPosts(ctx *gin.Context) {
	userID, _ := getUserID(ctx)
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	query := e.db.Model(&models.Post{}).
		Joins("JOIN saved_posts ON saved_posts.post_id = posts.id").
		Where("saved_posts.user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to count saved posts")
		return
	}

	var posts []models.Post
	err := query.Select(postListSelect).
		Preload("User").Preload("Community").Preload("Tags").
		Order("saved_posts.created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&posts).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to list saved posts")
		return
	}

	for i := range posts {
		posts[i].Saved = true
	}
	utils.Success(ctx, gin.H{
		"items":      posts,
		"pagination": paginationPayload(page, pageSize, total),
	})
}

// ReportPost files a complaint about a post for the moderation queue.
func (e *EngagementController) ReportPost(ctx *gin.Context) {
	var req struct {
		Reason string `json:"reason" binding:"required"`
		Detail string `json:"detail"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "reason is required")
		return
	}

	post, ok := e.loadPost(ctx)
	if !ok {
		return
	}
	userID, _ := getUserID(ctx)

	report := models.Report{
		PostID:     post.ID,
		ReporterID: userID,
		Reason:     strings.TrimSpace(req.Reason),
		Detail:     strings.TrimSpace(req.Detail),
		Status:     models.ReportPending,
	}
	if err := e.db.Create(&report).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to file report")
		return
	}
	utils.Created(ctx, gin.H{"report": report})
}
