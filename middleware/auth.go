package middleware

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

const (
	// ContextUserIDKey stores the authenticated user ID in the Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username.
	ContextUsernameKey = "username"
	// ContextRoleKey stores the user's role as read from the database.
	ContextRoleKey = "role"
	// ContextAdminIDKey stores the authenticated admin ID on admin routes.
	ContextAdminIDKey = "admin_id"
	// ContextAdminTokenKey stores the opaque session token so logout can
	// revoke exactly the session that made the request.
	ContextAdminTokenKey = "admin_token"
)

func bearerToken(ctx *gin.Context) (string, bool) {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// AuthRequired ensures the request carries a valid user JWT. The role claim
// is only trusted after confirming against the database that the account
// still exists and is not banned.
func AuthRequired(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, ok := bearerToken(ctx)
		if !ok {
			utils.Error(ctx, http.StatusUnauthorized, "authorization required")
			ctx.Abort()
			return
		}

		claims, err := utils.ParseToken(token)
		if err != nil {
			utils.Error(ctx, http.StatusUnauthorized, "invalid or expired token")
			ctx.Abort()
			return
		}

		var user models.User
		if err := db.First(&user, claims.UserID).Error; err != nil {
			utils.Error(ctx, http.StatusUnauthorized, "invalid or expired token")
			ctx.Abort()
			return
		}
		if user.Banned {
			utils.Error(ctx, http.StatusForbidden, "account is banned")
			ctx.Abort()
			return
		}

		ctx.Set(ContextUserIDKey, user.ID)
		ctx.Set(ContextUsernameKey, user.Username)
		ctx.Set(ContextRoleKey, user.Role)
		ctx.Next()
	}
}

// OptionalAuth attaches identity when a valid token is present but never
// rejects an anonymous request.
func OptionalAuth(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, ok := bearerToken(ctx)
		if !ok {
			ctx.Next()
			return
		}
		claims, err := utils.ParseToken(token)
		if err != nil {
			ctx.Next()
			return
		}
		var user models.User
		if err := db.First(&user, claims.UserID).Error; err != nil || user.Banned {
			ctx.Next()
			return
		}
		ctx.Set(ContextUserIDKey, user.ID)
		ctx.Set(ContextUsernameKey, user.Username)
		ctx.Set(ContextRoleKey, user.Role)
		ctx.Next()
	}
}

// AdminRequired validates an opaque admin session token against the session
// table and the admin's active flag.
func AdminRequired(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, ok := bearerToken(ctx)
		if !ok {
			utils.Error(ctx, http.StatusUnauthorized, "authorization required")
			ctx.Abort()
			return
		}

		var session models.AdminSession
		err := db.Where("token = ? AND expires_at > ?", token, time.Now()).First(&session).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.Error(ctx, http.StatusUnauthorized, "invalid or expired session")
			} else {
				utils.Error(ctx, http.StatusInternalServerError, "internal server error")
			}
			ctx.Abort()
			return
		}

		var admin models.AdminUser
		if err := db.First(&admin, session.AdminID).Error; err != nil {
			utils.Error(ctx, http.StatusUnauthorized, "invalid or expired session")
			ctx.Abort()
			return
		}
		if !admin.IsActive {
			utils.Error(ctx, http.StatusForbidden, "admin account is disabled")
			ctx.Abort()
			return
		}

		ctx.Set(ContextAdminIDKey, admin.ID)
		ctx.Set(ContextAdminTokenKey, token)
		ctx.Set(ContextUsernameKey, admin.Username)
		ctx.Next()
	}
}
