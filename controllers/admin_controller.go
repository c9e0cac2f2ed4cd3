package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/plumehq/plume/config"
	"github.com/plumehq/plume/middleware"
	"github.com/plumehq/plume/models"
	"github.com/plumehq/plume/utils"
)

// AdminController backs the admin console: sessions, user moderation,
// content moderation, communities, reports, settings and the audit log.
type AdminController struct {
	db *gorm.DB
}

// NewAdminController creates a new AdminController instance.
func NewAdminController(db *gorm.DB) *AdminController {
	return &AdminController{db: db}
}

// audit appends an AdminLog row. Failures never abort the admin action,
// they are only logged.
func (a *AdminController) audit(ctx *gin.Context, action string, targetID *uint, detail string) {
	adminID, ok := getAdminID(ctx)
	if !ok {
		return
	}
	entry := models.AdminLog{
		AdminID:  adminID,
		Action:   action,
		TargetID: targetID,
		Detail:   detail,
		IP:       ctx.ClientIP(),
	}
	if err := a.db.Create(&entry).Error; err != nil && utils.Sugar != nil {
		utils.Sugar.Warnf("audit log write failed for action %s: %v", action, err)
	}
}

type adminLoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates an admin account and issues an opaque session token.
// Admin credentials never produce a JWT.
func (a *AdminController) Login(ctx *gin.Context) {
	var req adminLoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "email and password are required")
		return
	}

	var admin models.AdminUser
	err := a.db.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&admin).Error
	if err != nil || !utils.CheckPassword(admin.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if !admin.IsActive {
		utils.Error(ctx, http.StatusForbidden, "admin account is disabled")
		return
	}

	session := models.AdminSession{
		AdminID:   admin.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(time.Duration(config.Get().AdminSessionHours) * time.Hour),
	}
	if err := a.db.Create(&session).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to create session")
		return
	}

	now := time.Now()
	a.db.Model(&admin).Update("last_login_at", &now)

	a.audit(ctxWithAdmin(ctx, admin.ID), "admin.login", nil, "")
	utils.Success(ctx, gin.H{
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
		"user": gin.H{
			"id":       admin.ID,
			"username": admin.Username,
			"email":    admin.Email,
			"role":     models.RoleAdmin,
		},
	})
}

// ctxWithAdmin lets pre-middleware handlers (login) attribute audit rows.
func ctxWithAdmin(ctx *gin.Context, adminID uint) *gin.Context {
	ctx.Set(middleware.ContextAdminIDKey, adminID)
	return ctx
}

// Logout revokes the presented session token.
func (a *AdminController) Logout(ctx *gin.Context) {
	adminID, _ := getAdminID(ctx)
	if token := ctx.GetString(middleware.ContextAdminTokenKey); token != "" {
		a.db.Where("token = ?", token).Delete(&models.AdminSession{})
	} else {
		a.db.Where("admin_id = ?", adminID).Delete(&models.AdminSession{})
	}
	a.audit(ctx, "admin.logout", nil, "")
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Stats returns headline counts for the console dashboard.
func (a *AdminController) Stats(ctx *gin.Context) {
	var users, posts, comments, pendingReports int64
	a.db.Model(&models.User{}).Count(&users)
	a.db.Model(&models.Post{}).Count(&posts)
	a.db.Model(&models.Comment{}).Count(&comments)
	a.db.Model(&models.Report{}).Where("status = ?", models.ReportPending).Count(&pendingReports)

	since := time.Now().AddDate(0, 0, -7)
	var newUsers, newPosts int64
	a.db.Model(&models.User{}).Where("created_at >= ?", since).Count(&newUsers)
	a.db.Model(&models.Post{}).Where("created_at >= ?", since).Count(&newPosts)

	utils.Success(ctx, gin.H{
		"users":           users,
		"posts":           posts,
		"comments":        comments,
		"pending_reports": pendingReports,
		"new_users_week":  newUsers,
		"new_posts_week":  newPosts,
	})
}

// ListUsers returns a paginated user listing with optional username search.
func (a *AdminController) ListUsers(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	query := a.db.Model(&models.User{})
	if q := ctx.Query("q"); q != "" {
		pattern := "%" + q + "%"
		query = query.Where("username LIKE ? OR email LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to list users")
		return
	}

	var users []models.User
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&users).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to list users")
		return
	}

	items := make([]gin.H, 0, len(users))
	for _, u := range users {
		item := authedUser(u)
		item["banned"] = u.Banned
		items = append(items, item)
	}
	utils.Success(ctx, gin.H{"items": items, "pagination": paginationPayload(page, pageSize, total)})
}

type changeRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// ChangeUserRole updates a user's role within the allowed enum.
func (a *AdminController) ChangeUserRole(ctx *gin.Context) {
	var req changeRoleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || !models.ValidRole(req.Role) {
		utils.Error(ctx, http.StatusBadRequest, "invalid role")
		return
	}

	user, ok := a.loadUser(ctx)
	if !ok {
		return
	}

	if err := a.db.Model(user).Update("role", req.Role).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to update role")
		return
	}

	a.audit(ctx, "user.role", &user.ID, fmt.Sprintf("role set to %s", req.Role))
	user.Role = req.Role
	utils.Success(ctx, gin.H{"user": authedUser(*user)})
}

type banRequest struct {
	Banned *bool `json:"banned" binding:"required"`
}

// SetUserBan toggles a user's banned flag. Banned users keep their content
// but can no longer authenticate.
func (a *AdminController) SetUserBan(ctx *gin.Context) {
	var req banRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "banned flag is required")
		return
	}

	user, ok := a.loadUser(ctx)
	if !ok {
		return
	}

	if err := a.db.Model(user).Update("banned", *req.Banned).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to update user")
		return
	}

	action := "user.ban"
	if !*req.Banned {
		action = "user.unban"
	}
	a.audit(ctx, action, &user.ID, "")
	utils.Success(ctx, gin.H{"id": user.ID, "banned": *req.Banned})
}

// DeleteUser removes a user and everything the user produced. Posts cascade
// through the same path the public delete uses, so no orphan rows survive.
func (a *AdminController) DeleteUser(ctx *gin.Context) {
	user, ok := a.loadUser(ctx)
	if !ok {
		return
	}

	err := a.db.Transaction(func(tx *gorm.DB) error {
		var postIDs []uint
		if err := tx.Model(&models.Post{}).Where("user_id = ?", user.ID).Pluck("id", &postIDs).Error; err != nil {
			return err
		}
		for _, postID := range postIDs {
			if err := deletePostCascade(tx, postID); err != nil {
				return err
			}
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.SavedPost{}).Error; err != nil {
			return err
		}
		if err := tx.Where("follower_id = ? OR following_id = ?", user.ID, user.ID).Delete(&models.Follow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("reporter_id = ?", user.ID).Delete(&models.Report{}).Error; err != nil {
			return err
		}
		return tx.Delete(user).Error
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to delete user")
		return
	}

	a.audit(ctx, "user.delete", &user.ID, user.Username)
	utils.Success(ctx, gin.H{"message": "user deleted"})
}

func (a *AdminController) loadUser(ctx *gin.Context) (*models.User, bool) {
	var user models.User
	err := a.db.First(&user, "id = ?", ctx.Param("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "user not found")
		} else {
			utils.Error(ctx, http.StatusInternalServerError, "failed to load user")
		}
		return nil, false
	}
	return &user, true
}

// ListPosts is the console post listing, newest first.
func (a *AdminController) ListPosts(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	query := a.db.Model(&models.Post{})
	if q := ctx.Query("q"); q != "" {
		query = query.Where("title LIKE ?", "%"+q+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to list posts")
		return
	}

	var posts []models.Post
	err := query.Select(postListSelect).
		Preload("User").Preload("Community").
		Order("posts.created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&posts).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to list posts")
		return
	}

	utils.Success(ctx, gin.H{"items": posts, "pagination": paginationPayload(page, pageSize, total)})
}

// DeletePost removes any post regardless of ownership.
func (a *AdminController) DeletePost(ctx *gin.Context) {
	var post models.Post
	err := a.db.First(&post, "id = ?", ctx.Param("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "post not found")
		} else {
			utils.Error(ctx, http.StatusInternalServerError, "failed to load post")
		}
		return
	}

	err = a.db.Transaction(func(tx *gorm.DB) error {
		return deletePostCascade(tx, post.ID)
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to delete post")
		return
	}

	utils.InvalidateByPrefix("cache:post:")
	a.audit(ctx, "post.delete", &post.ID, post.Title)
	utils.Success(ctx, gin.H{"message": "post deleted"})
}

type communityInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
	SortOrder   *int    `json:"sort_order"`
}

// CreateCommunity adds a community. The slug derives from the title and must
// be unique.
func (a *AdminController) CreateCommunity(ctx *gin.Context) {
	var req communityInput
	if err := ctx.ShouldBindJSON(&req); err != nil || req.Title == nil || *req.Title == "" {
		utils.Error(ctx, http.StatusBadRequest, "community title is required")
		return
	}

	community := models.Community{
		Title:    *req.Title,
		Slug:     utils.Slugify(*req.Title),
		IsActive: true,
	}
	if req.Description != nil {
		community.Description = *req.Description
	}
	if req.IsActive != nil {
		community.IsActive = *req.IsActive
	}
	if req.SortOrder != nil {
		community.SortOrder = *req.SortOrder
	}

	if err := a.db.Create(&community).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Error(ctx, http.StatusConflict, "community already exists")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to create community")
		return
	}

	utils.InvalidateByPrefix("cache:communities:")
	a.audit(ctx, "community.create", &community.ID, community.Title)
	utils.Created(ctx, gin.H{"community": community})
}

// UpdateCommunity applies a partial update to a community. A title change
// regenerates the slug.
func (a *AdminController) UpdateCommunity(ctx *gin.Context) {
	community, ok := a.loadCommunity(ctx)
	if !ok {
		return
	}

	var req communityInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request body")
		return
	}

	updates := map[string]interface{}{}
	if req.Title != nil && *req.Title != "" {
		updates["title"] = *req.Title
		updates["slug"] = utils.Slugify(*req.Title)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.SortOrder != nil {
		updates["sort_order"] = *req.SortOrder
	}

	if len(updates) > 0 {
		if err := a.db.Model(community).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				utils.Error(ctx, http.StatusConflict, "community already exists")
				return
			}
			utils.Error(ctx, http.StatusInternalServerError, "failed to update community")
			return
		}
	}

	utils.InvalidateByPrefix("cache:communities:")
	a.audit(ctx, "community.update", &community.ID, community.Title)
	utils.Success(ctx, gin.H{"community": community})
}

// UploadCommunityImage attaches a cover image to a community.
func (a *AdminController) UploadCommunityImage(ctx *gin.Context) {
	community, ok := a.loadCommunity(ctx)
	if !ok {
		return
	}

	header, err := ctx.FormFile("image")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, "image file is required")
		return
	}
	if err := validateImageHeader(header); err != nil {
		utils.Error(ctx, http.StatusBadRequest, err.Error())
		return
	}

	url, err := saveImageUpload(ctx, header)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to store image")
		return
	}

	if err := a.db.Model(community).Update("image_url", url).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to update community")
		return
	}

	utils.InvalidateByPrefix("cache:communities:")
	a.audit(ctx, "community.image", &community.ID, url)
	utils.Success(ctx, gin.H{"image_url": url})
}

// DeleteCommunity removes a community. Its posts survive, detached from any
// community.
func (a *AdminController) DeleteCommunity(ctx *gin.Context) {
	community, ok := a.loadCommunity(ctx)
	if !ok {
		return
	}

	err := a.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Post{}).Where("community_id = ?", community.ID).
			Update("community_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(community).Error
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to delete community")
		return
	}

	utils.InvalidateByPrefix("cache:communities:")
	a.audit(ctx, "community.delete", &community.ID, community.Title)
	utils.Success(ctx, gin.H{"message": "community deleted"})
}

func (a *AdminController) loadCommunity(ctx *gin.Context) (*models.Community, bool) {
	var community models.Community
	err := a.db.First(&community, "id = ?", ctx.Param("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "community not found")
		} else {
			utils.Error(ctx, http.StatusInternalServerError, "failed to load community")
		}
		return nil, false
	}
	return &community, true
}

// ListReports returns the report queue, optionally filtered by status.
func (a *AdminController) ListReports(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	query := a.db.Model(&models.Report{})
	if status := ctx.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to list reports")
		return
	}

	var reports []models.Report
	err := query.Preload("Post").Preload("Reporter").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&reports).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to list reports")
		return
	}

	utils.Success(ctx, gin.H{"items": reports, "pagination": paginationPayload(page, pageSize, total)})
}

type resolveReportRequest struct {
	Status    string `json:"status" binding:"required"`
	AdminNote string `json:"admin_note"`
}

// ResolveReport moves a pending report to resolved or dismissed. Processed
// reports are immutable.
func (a *AdminController) ResolveReport(ctx *gin.Context) {
	var req resolveReportRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || !models.ValidReportTransition(req.Status) {
		utils.Error(ctx, http.StatusBadRequest, "status must be resolved or dismissed")
		return
	}

	var report models.Report
	err := a.db.First(&report, "id = ?", ctx.Param("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "report not found")
		} else {
			utils.Error(ctx, http.StatusInternalServerError, "failed to load report")
		}
		return
	}
	if report.Status != models.ReportPending {
		utils.Error(ctx, http.StatusBadRequest, "report has already been processed")
		return
	}

	updates := map[string]interface{}{"status": req.Status, "admin_note": req.AdminNote}
	if err := a.db.Model(&report).Updates(updates).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to update report")
		return
	}

	a.audit(ctx, "report."+req.Status, &report.ID, req.AdminNote)
	report.Status = req.Status
	report.AdminNote = req.AdminNote
	utils.Success(ctx, gin.H{"report": report})
}

// GetSettings returns every stored site setting as a key to value map.
func (a *AdminController) GetSettings(ctx *gin.Context) {
	var settings []models.SiteSetting
	if err := a.db.Find(&settings).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to load settings")
		return
	}

	out := gin.H{}
	for _, s := range settings {
		out[s.Key] = s.Value
	}
	utils.Success(ctx, gin.H{"settings": out})
}

// UpdateSettings upserts recognized setting keys. One unknown key rejects
// the whole request before anything is written.
func (a *AdminController) UpdateSettings(ctx *gin.Context) {
	var req map[string]string
	if err := ctx.ShouldBindJSON(&req); err != nil || len(req) == 0 {
		utils.Error(ctx, http.StatusBadRequest, "settings payload is required")
		return
	}

	for key, value := range req {
		if !models.KnownSettingKey(key) {
			utils.Error(ctx, http.StatusBadRequest, fmt.Sprintf("unknown setting key: %s", key))
			return
		}
		if err := models.ValidateSettingValue(key, value); err != nil {
			utils.Error(ctx, http.StatusBadRequest, err.Error())
			return
		}
	}

	err := a.db.Transaction(func(tx *gorm.DB) error {
		for key, value := range req {
			setting := models.SiteSetting{Key: key, Value: value}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "setting_key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&setting).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to save settings")
		return
	}

	a.audit(ctx, "settings.update", nil, fmt.Sprintf("%d keys", len(req)))
	utils.Success(ctx, gin.H{"message": "settings saved"})
}

// ListLogs returns the audit trail, newest first.
func (a *AdminController) ListLogs(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	query := a.db.Model(&models.AdminLog{})
	if action := ctx.Query("action"); action != "" {
		query = query.Where("action = ?", action)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to list logs")
		return
	}

	var logs []models.AdminLog
	err := query.Order("id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&logs).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to list logs")
		return
	}

	utils.Success(ctx, gin.H{"items": logs, "pagination": paginationPayload(page, pageSize, total)})
}
