package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/plumehq/plume/models"
	"github.com/plumehq/plume/utils"
)

// communityListSelect derives per-community post counts.
const communityListSelect = "communities.*, " +
	"(SELECT COUNT(*) FROM posts WHERE posts.community_id = communities.id) AS post_count"

// CommunityController serves the public community surface. Management lives
// in the admin console.
type CommunityController struct {
	db *gorm.DB
}

// NewCommunityController creates a new CommunityController instance.
func NewCommunityController(db *gorm.DB) *CommunityController {
	return &CommunityController{db: db}
}

// ListCommunities returns all communities in sort order. The listing does
// not filter on the active flag; that flag only drives admin-console
// visibility controls.
func (c *CommunityController) ListCommunities(ctx *gin.Context) {
	cacheKey := "cache:communities:list"
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var communities []models.Community
	err := c.db.Model(&models.Community{}).
		Select(communityListSelect).
		Order("sort_order ASC, id ASC").
		Find(&communities).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to list communities")
		return
	}

	payload := gin.H{"items": communities}
	utils.CacheSetJSON(cacheKey, payload, time.Hour)
	utils.Success(ctx, payload)
}

// GetCommunity returns one community by slug together with its recent posts.
func (c *CommunityController) GetCommunity(ctx *gin.Context) {
	var community models.Community
	err := c.db.Model(&models.Community{}).
		Select(communityListSelect).
		Where("communities.slug = ?", ctx.Param("slug")).
		First(&community).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "community not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to load community")
		return
	}

	var posts []models.Post
	err = c.db.Model(&models.Post{}).
		Select(postListSelect).
		Where("posts.community_id = ?", community.ID).
		Preload("User").Preload("Tags").
		Order("posts.created_at DESC").
		Limit(20).
		Find(&posts).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to load community posts")
		return
	}

	utils.Success(ctx, gin.H{"community": community, "posts": posts})
}
