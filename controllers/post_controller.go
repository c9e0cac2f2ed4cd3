package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/plumehq/plume/models"
	"github.com/plumehq/plume/utils"
)

// postListSelect derives like and comment counts per row without storing
// them.
const postListSelect = "posts.*, " +
	"(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) AS like_count, " +
	"(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comment_count"

// PostController manages the post lifecycle and comments.
type PostController struct {
	db *gorm.DB
}

// NewPostController creates a new PostController instance.
func NewPostController(db *gorm.DB) *PostController {
	return &PostController{db: db}
}

type createPostInput struct {
	Title         string
	Content       string
	CommunityID   uint
	Tags          models.FlexibleTags
	CoverImageURL string
}

func (p *PostController) readCreateInput(ctx *gin.Context) (*createPostInput, bool) {
	in := &createPostInput{}

	if strings.HasPrefix(ctx.ContentType(), "multipart/form-data") {
		in.Title = ctx.PostForm("title")
		in.Content = ctx.PostForm("content")
		in.Tags = models.ParseTagString(ctx.PostForm("tags"))
		if v := strings.TrimSpace(ctx.PostForm("community_id")); v != "" {
			id, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				utils.Error(ctx, http.StatusBadRequest, "invalid community_id")
				return nil, false
			}
			in.CommunityID = uint(id)
		}
		if header, err := ctx.FormFile("cover_image"); err == nil {
			if err := validateImageHeader(header); err != nil {
				utils.Error(ctx, http.StatusBadRequest, err.Error())
				return nil, false
			}
			url, err := saveImageUpload(ctx, header)
			if err != nil {
				if utils.Sugar != nil {
					utils.Sugar.Warnf("cover upload failed err=%v", err)
				}
				utils.Error(ctx, http.StatusInternalServerError, "failed to store image")
				return nil, false
			}
			in.CoverImageURL = url
		}
		return in, true
	}

	var req struct {
		Title       string              `json:"title"`
		Content     string              `json:"content"`
		CommunityID uint                `json:"community_id"`
		Tags        models.FlexibleTags `json:"tags"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return nil, false
	}
	in.Title = req.Title
	in.Content = req.Content
	in.CommunityID = req.CommunityID
	in.Tags = req.Tags
	return in, true
}

// CreatePost creates a post with its tag links inside one transaction; any
// failure leaves no partial post behind.
func (p *PostController) CreatePost(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}

	in, ok := p.readCreateInput(ctx)
	if !ok {
		return
	}

	title := strings.TrimSpace(utils.Sanitize(in.Title))
	content := utils.Sanitize(in.Content)
	if title == "" || strings.TrimSpace(content) == "" {
		utils.Error(ctx, http.StatusBadRequest, "title and content are required")
		return
	}
	if in.CommunityID == 0 {
		utils.Error(ctx, http.StatusBadRequest, "community_id is required")
		return
	}

	var community models.Community
	if err := p.db.First(&community, in.CommunityID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "community not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to load community")
		return
	}

	post := models.Post{
		UserID:        userID,
		CommunityID:   &community.ID,
		Title:         title,
		Slug:          utils.MakePostSlug(title),
		Content:       content,
		CoverImageURL: in.CoverImageURL,
	}

	err := p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&post).Error; err != nil {
			return err
		}
		if len(in.Tags) > 0 {
			tags, err := getOrCreateTags(tx, in.Tags)
			if err != nil {
				return err
			}
			if err := tx.Model(&post).Association("Tags").Append(&tags); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to create post")
		return
	}

	if err := p.db.Preload("User").Preload("Community").Preload("Tags").First(&post, post.ID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to load post")
		return
	}
	utils.Created(ctx, gin.H{"post": post})
}

// ListPosts returns the feed with the requested sort mode. Sorting by likes
// breaks ties by newest first.
func (p *PostController) ListPosts(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	feed := ctx.DefaultQuery("feed", "forYou")
	sortMode := ctx.DefaultQuery("sort", "latest")
	userID, authed := getUserID(ctx)

	query := p.db.Model(&models.Post{})

	switch feed {
	case "forYou":
	case "following":
		if !authed {
			utils.Error(ctx, http.StatusUnauthorized, "authentication required for the following feed")
			return
		}
		query = query.Where("posts.user_id IN (SELECT following_id FROM follows WHERE follower_id = ?)", userID)
	default:
		utils.Error(ctx, http.StatusBadRequest, "invalid feed mode")
		return
	}

	if v := strings.TrimSpace(ctx.Query("community")); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, "invalid community filter")
			return
		}
		query = query.Where("posts.community_id = ?", uint(id))
	}

	now := time.Now()
	byLikes := false
	switch sortMode {
	case "latest":
	case "top-week":
		byLikes = true
		query = query.Where("posts.created_at >= ?", now.AddDate(0, 0, -7))
	case "top-month":
		byLikes = true
		query = query.Where("posts.created_at >= ?", now.AddDate(0, -1, 0))
	case "top-year":
		byLikes = true
		query = query.Where("posts.created_at >= ?", now.AddDate(-1, 0, 0))
	case "top-all":
		byLikes = true
	default:
		utils.Error(ctx, http.StatusBadRequest, "invalid sort mode")
		return
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to count posts")
		return
	}

	query = query.Select(postListSelect).Preload("User").Preload("Community").Preload("Tags")
	if byLikes {
		query = query.Order("like_count DESC, posts.created_at DESC")
	} else {
		query = query.Order("posts.created_at DESC")
	}

	var posts []models.Post
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).Find(&posts).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to list posts")
		return
	}
	p.attachViewerFlags(posts, userID)

	utils.Success(ctx, gin.H{
		"items":      posts,
		"pagination": paginationPayload(page, pageSize, total),
	})
}

// GetPost returns a single post. Anonymous responses are cached; responses
// carrying per-caller liked/saved flags are not.
func (p *PostController) GetPost(ctx *gin.Context) {
	postID := ctx.Param("id")
	userID, authed := getUserID(ctx)

	cacheKey := "cache:post:detail:" + postID
	if !authed {
		if b, ok := utils.CacheGetBytes(cacheKey); ok {
			ctx.Data(http.StatusOK, "application/json", b)
			return
		}
	}

	var post models.Post
	err := p.db.Select(postListSelect).
		Preload("User").Preload("Community").Preload("Tags").
		First(&post, "posts.id = ?", postID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to load post")
		return
	}

	if authed {
		post.Liked = p.hasRelation(&models.Like{}, userID, post.ID)
		post.Saved = p.hasRelation(&models.SavedPost{}, userID, post.ID)
	}

	payload := gin.H{"post": post}
	if !authed {
		utils.CacheSetJSON(cacheKey, payload, time.Hour)
	}
	utils.Success(ctx, payload)
}

// UpdatePost applies a partial update. Only fields present in the body are
// written; a present tags field atomically replaces the whole tag set.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	var req struct {
		Title         *string              `json:"title"`
		Content       *string              `json:"content"`
		CommunityID   *uint                `json:"community_id"`
		CoverImageURL *string              `json:"cover_image_url"`
		Tags          *models.FlexibleTags `json:"tags"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	post, ok := p.loadOwnedPost(ctx, false)
	if !ok {
		return
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		title := strings.TrimSpace(utils.Sanitize(*req.Title))
		if title == "" {
			utils.Error(ctx, http.StatusBadRequest, "title cannot be empty")
			return
		}
		updates["title"] = title
		updates["slug"] = utils.MakePostSlug(title)
	}
	if req.Content != nil {
		content := utils.Sanitize(*req.Content)
		if strings.TrimSpace(content) == "" {
			utils.Error(ctx, http.StatusBadRequest, "content cannot be empty")
			return
		}
		updates["content"] = content
	}
	if req.CommunityID != nil {
		var community models.Community
		if err := p.db.First(&community, *req.CommunityID).Error; err != nil {
			utils.Error(ctx, http.StatusNotFound, "community not found")
			return
		}
		updates["community_id"] = community.ID
	}
	if req.CoverImageURL != nil {
		updates["cover_image_url"] = strings.TrimSpace(*req.CoverImageURL)
	}

	err := p.db.Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(post).Updates(updates).Error; err != nil {
				return err
			}
		}
		if req.Tags != nil {
			if len(*req.Tags) == 0 {
				if err := tx.Model(post).Association("Tags").Clear(); err != nil {
					return err
				}
			} else {
				tags, err := getOrCreateTags(tx, *req.Tags)
				if err != nil {
					return err
				}
				if err := tx.Model(post).Association("Tags").Replace(&tags); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to update post")
		return
	}

	utils.InvalidateByPrefix("cache:post:detail:" + ctx.Param("id"))

	if err := p.db.Preload("User").Preload("Community").Preload("Tags").First(post, post.ID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to load post")
		return
	}
	utils.Success(ctx, gin.H{"post": post})
}

// DeletePost removes a post and all of its dependent rows. Owner or admin
// only.
func (p *PostController) DeletePost(ctx *gin.Context) {
	post, ok := p.loadOwnedPost(ctx, true)
	if !ok {
		return
	}

	err := p.db.Transaction(func(tx *gorm.DB) error {
		return deletePostCascade(tx, post.ID)
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to delete post")
		return
	}

	utils.InvalidateByPrefix("cache:post:detail:" + ctx.Param("id"))
	utils.Success(ctx, gin.H{"message": "post deleted"})
}

// loadOwnedPost loads the post from the path parameter and enforces the
// ownership rule: absence is not-found, a non-owner (optionally allowing
// admins) is forbidden.
func (p *PostController) loadOwnedPost(ctx *gin.Context, allowAdmin bool) (*models.Post, bool) {
	var post models.Post
	if err := p.db.First(&post, "id = ?", ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "post not found")
		} else {
			utils.Error(ctx, http.StatusInternalServerError, "failed to load post")
		}
		return nil, false
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	if post.UserID != userID && !(allowAdmin && isAdmin(ctx)) {
		utils.Error(ctx, http.StatusForbidden, "you do not own this post")
		return nil, false
	}
	return &post, true
}

// CreateComment adds a comment. A parent comment, when given, must belong to
// the same post.
func (p *PostController) CreateComment(ctx *gin.Context) {
	var req struct {
		Content  string `json:"content" binding:"required"`
		ParentID *uint  `json:"parent_id"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	content := utils.Sanitize(req.Content)
	if strings.TrimSpace(content) == "" {
		utils.Error(ctx, http.StatusBadRequest, "content cannot be empty")
		return
	}

	var post models.Post
	if err := p.db.First(&post, "id = ?", ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to load post")
		return
	}

	if req.ParentID != nil {
		var parent models.Comment
		if err := p.db.First(&parent, *req.ParentID).Error; err != nil {
			utils.Error(ctx, http.StatusNotFound, "parent comment not found")
			return
		}
		if parent.PostID != post.ID {
			utils.Error(ctx, http.StatusBadRequest, "parent comment belongs to a different post")
			return
		}
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}

	comment := models.Comment{
		PostID:   post.ID,
		UserID:   userID,
		ParentID: req.ParentID,
		Content:  content,
	}
	if err := p.db.Create(&comment).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to create comment")
		return
	}
	if err := p.db.Preload("User").First(&comment, comment.ID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to load comment")
		return
	}

	utils.InvalidateByPrefix("cache:post:detail:" + ctx.Param("id"))
	utils.Created(ctx, gin.H{"comment": comment})
}

// ListComments returns a post's comments oldest first.
func (p *PostController) ListComments(ctx *gin.Context) {
	var post models.Post
	if err := p.db.First(&post, "id = ?", ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to load post")
		return
	}

	var comments []models.Comment
	if err := p.db.Where("post_id = ?", post.ID).Preload("User").Order("created_at ASC").Find(&comments).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to list comments")
		return
	}
	utils.Success(ctx, gin.H{"comments": comments})
}

// DeleteComment removes a comment. Only its author may do so.
func (p *PostController) DeleteComment(ctx *gin.Context) {
	var comment models.Comment
	if err := p.db.First(&comment, "id = ?", ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "comment not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to load comment")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}
	if comment.UserID != userID {
		utils.Error(ctx, http.StatusForbidden, "you can only delete your own comment")
		return
	}

	if err := p.db.Delete(&comment).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to delete comment")
		return
	}
	utils.InvalidateByPrefix("cache:post:detail:" + strconv.Itoa(int(comment.PostID)))
	utils.Success(ctx, gin.H{"message": "comment deleted"})
}

// attachViewerFlags marks which posts the viewer has liked or saved.
func (p *PostController) attachViewerFlags(posts []models.Post, userID uint) {
	if userID == 0 || len(posts) == 0 {
		return
	}
	ids := make([]uint, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
	}

	liked := map[uint]bool{}
	var likes []models.Like
	if err := p.db.Where("user_id = ? AND post_id IN ?", userID, ids).Find(&likes).Error; err == nil {
		for _, l := range likes {
			liked[l.PostID] = true
		}
	}
	saved := map[uint]bool{}
	var saves []models.SavedPost
	if err := p.db.Where("user_id = ? AND post_id IN ?", userID, ids).Find(&saves).Error; err == nil {
		for _, s := range saves {
			saved[s.PostID] = true
		}
	}
	for i := range posts {
		posts[i].Liked = liked[posts[i].ID]
		posts[i].Saved = saved[posts[i].ID]
	}
}

func (p *PostController) hasRelation(model interface{}, userID, postID uint) bool {
	var count int64
	p.db.Model(model).Where("user_id = ? AND post_id = ?", userID, postID).Count(&count)
	return count > 0
}

// getOrCreateTags resolves tag names to rows, inserting missing ones.
func getOrCreateTags(tx *gorm.DB, names models.FlexibleTags) ([]models.Tag, error) {
	tags := make([]models.Tag, 0, len(names))
	for _, name := range names {
		var tag models.Tag
		if err := tx.Where("name = ?", name).FirstOrCreate(&tag, models.Tag{Name: name}).Error; err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// deletePostCascade removes a post together with its comments, likes, saved
// entries, reports and tag links so no orphans remain.
func deletePostCascade(tx *gorm.DB, postID uint) error {
	if err := tx.Where("post_id = ?", postID).Delete(&models.Comment{}).Error; err != nil {
		return err
	}
	if err := tx.Where("post_id = ?", postID).Delete(&models.Like{}).Error; err != nil {
		return err
	}
	if err := tx.Where("post_id = ?", postID).Delete(&models.SavedPost{}).Error; err != nil {
		return err
	}
	if err := tx.Where("post_id = ?", postID).Delete(&models.Report{}).Error; err != nil {
		return err
	}
	if err := tx.Where("post_id = ?", postID).Delete(&models.PostTag{}).Error; err != nil {
		return err
	}
	return tx.Delete(&models.Post{}, postID).Error
}
