package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/plumehq/plume/models"
	"github.com/plumehq/plume/utils"
)

const userTokenTTL = 72 * time.Hour

// AuthController handles registration, login and self-service profile
// endpoints for ordinary users.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates an AuthController.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

// Register creates a local account with a bcrypt password hash.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Username        string `json:"username" binding:"required,min=3,max=32"`
		Email           string `json:"email" binding:"required,email"`
		Password        string `json:"password" binding:"required"`
		ConfirmPassword string `json:"confirmPassword" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.Password != req.ConfirmPassword {
		utils.Error(ctx, http.StatusBadRequest, "passwords do not match")
		return
	}
	if len(req.Password) < 6 {
		utils.Error(ctx, http.StatusBadRequest, "password must be at least 6 characters")
		return
	}

	var existing models.User
	if err := a.db.Where("username = ? OR email = ?", req.Username, req.Email).First(&existing).Error; err == nil {
		utils.Error(ctx, http.StatusConflict, "username or email already taken")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         models.RoleUser,
	}
	if err := a.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Error(ctx, http.StatusConflict, "username or email already taken")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to create user")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Username, user.Role, userTokenTTL)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to generate token")
		return
	}

	utils.Created(ctx, gin.H{
		"token": token,
		"user":  authedUser(user),
	})
}

// Login verifies user credentials by email and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	var user models.User
	if err := a.db.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if user.Banned {
		utils.Error(ctx, http.StatusForbidden, "account is banned")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Username, user.Role, userTokenTTL)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to generate token")
		return
	}

	utils.Success(ctx, gin.H{
		"token": token,
		"user":  authedUser(user),
	})
}

// Me returns the authenticated user's own profile.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}
	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, "user not found")
		return
	}
	utils.Success(ctx, gin.H{"user": authedUser(user)})
}

// UpdateProfile applies a partial update: only fields present in the request
// body are written, omitted fields keep their prior value.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	var req struct {
		Bio        *string `json:"bio"`
		Profession *string `json:"profession"`
		Location   *string `json:"location"`
		Website    *string `json:"website"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}
	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, "user not found")
		return
	}

	updates := map[string]interface{}{}
	if req.Bio != nil {
		updates["bio"] = utils.Sanitize(*req.Bio)
	}
	if req.Profession != nil {
		updates["profession"] = strings.TrimSpace(*req.Profession)
	}
	if req.Location != nil {
		updates["location"] = strings.TrimSpace(*req.Location)
	}
	if req.Website != nil {
		updates["website"] = strings.TrimSpace(*req.Website)
	}
	if len(updates) > 0 {
		if err := a.db.Model(&user).Updates(updates).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, "failed to update profile")
			return
		}
	}

	utils.Success(ctx, gin.H{"user": authedUser(user)})
}

// UploadAvatar stores a profile image through the storage collaborator and
// records its public URL.
func (a *AuthController) UploadAvatar(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}

	header, err := ctx.FormFile("avatar")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, "no file uploaded")
		return
	}
	if err := validateImageHeader(header); err != nil {
		utils.Error(ctx, http.StatusBadRequest, err.Error())
		return
	}
	url, err := saveImageUpload(ctx, header)
	if err != nil {
		if utils.Sugar != nil {
			utils.Sugar.Warnf("avatar upload failed user=%d err=%v", userID, err)
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to store image")
		return
	}

	if err := a.db.Model(&models.User{}).Where("id = ?", userID).Update("avatar_url", url).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to update avatar")
		return
	}
	utils.Success(ctx, gin.H{"url": url})
}
