package controllers

import (
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/plumehq/plume/middleware"
	"github.com/plumehq/plume/models"
	"github.com/plumehq/plume/utils"
)

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok
}

func getAdminID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextAdminIDKey)
	if !exists {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok
}

func isAdmin(ctx *gin.Context) bool {
	value, exists := ctx.Get(middleware.ContextRoleKey)
	if !exists {
		return false
	}
	role, _ := value.(string)
	return role == models.RoleAdmin
}

func parsePagination(pageStr, sizeStr string) (int, int) {
	page := 1
	pageSize := 10
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return page, pageSize
}

func paginationPayload(page, pageSize int, total int64) gin.H {
	return gin.H{
		"page":        page,
		"page_size":   pageSize,
		"total":       total,
		"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
	}
}

// publicUser strips credential and moderation fields from a user payload.
func publicUser(u models.User) gin.H {
	return gin.H{
		"id":         u.ID,
		"username":   u.Username,
		"role":       u.Role,
		"bio":        u.Bio,
		"profession": u.Profession,
		"location":   u.Location,
		"website":    u.Website,
		"avatar_url": u.AvatarURL,
		"created_at": u.CreatedAt,
	}
}

func authedUser(u models.User) gin.H {
	out := publicUser(u)
	out["email"] = u.Email
	return out
}

const maxImageSize = 10 * 1024 * 1024

// validateImageHeader rejects non-image or oversized uploads. Failures here
// are client errors.
func validateImageHeader(header *multipart.FileHeader) error {
	if header.Size > maxImageSize {
		return fmt.Errorf("file size exceeds 10MB")
	}
	if !strings.HasPrefix(header.Header.Get("Content-Type"), "image/") {
		return fmt.Errorf("only image uploads are accepted")
	}
	return nil
}

// saveImageUpload reads a validated multipart image file and hands it to the
// storage collaborator, returning the public URL.
func saveImageUpload(ctx *gin.Context, header *multipart.FileHeader) (string, error) {
	file, err := header.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageSize))
	if err != nil {
		return "", err
	}

	objectName := uuid.NewString() + strings.ToLower(filepath.Ext(header.Filename))
	return utils.GetStorage().Save(ctx.Request.Context(), objectName, data, header.Header.Get("Content-Type"))
}
