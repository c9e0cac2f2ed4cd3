package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/plumehq/plume/models"
	"github.com/plumehq/plume/utils"
)

// SearchController matches one query string against posts (title, body, tag
// names) and, independently, against users. The two result lists are never
// cross-ranked.
type SearchController struct {
	db *gorm.DB
}

// NewSearchController creates a new SearchController instance.
func NewSearchController(db *gorm.DB) *SearchController {
	return &SearchController{db: db}
}

// Search runs both matches for GET /search?q=.
func (s *SearchController) Search(ctx *gin.Context) {
	q := strings.TrimSpace(ctx.Query("q"))
	if q == "" {
		utils.Error(ctx, http.StatusBadRequest, "query is required")
		return
	}
	like := "%" + strings.ToLower(q) + "%"

	var posts []models.Post
	err := s.db.Model(&models.Post{}).
		Distinct("posts.*").
		Joins("LEFT JOIN post_tags ON post_tags.post_id = posts.id").
		Joins("LEFT JOIN tags ON tags.id = post_tags.tag_id").
		Where("LOWER(posts.title) LIKE ? OR LOWER(posts.content) LIKE ? OR LOWER(tags.name) LIKE ?", like, like, like).
		Preload("User").Preload("Community").Preload("Tags").
		Order("posts.created_at DESC").
		Limit(50).
		Find(&posts).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to search posts")
		return
	}

	var users []models.User
	err = s.db.
		Where("LOWER(username) LIKE ? OR LOWER(profession) LIKE ? OR LOWER(bio) LIKE ?", like, like, like).
		Order("username ASC").
		Limit(50).
		Find(&users).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to search users")
		return
	}

	userItems := make([]gin.H, 0, len(users))
	for _, u := range users {
		userItems = append(userItems, publicUser(u))
	}

	utils.Success(ctx, gin.H{
		"posts": posts,
		"users": userItems,
	})
}
