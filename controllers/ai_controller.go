package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/plumehq/plume/utils"
)

// AIController proxies content-assist requests to the generative-text
// provider. It holds no database state.
type AIController struct{}

// NewAIController creates a new AIController instance.
func NewAIController() *AIController {
	return &AIController{}
}

type assistRequest struct {
	Mode    string `json:"mode" binding:"required"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Assist generates title suggestions, tags, or a summary for a draft post.
func (a *AIController) Assist(ctx *gin.Context) {
	var req assistRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "mode is required")
		return
	}
	switch req.Mode {
	case utils.AssistTitle, utils.AssistTags, utils.AssistSummary:
	default:
		utils.Error(ctx, http.StatusBadRequest, "mode must be title, tags, or summary")
		return
	}
	if req.Title == "" && req.Content == "" {
		utils.Error(ctx, http.StatusBadRequest, "title or content is required")
		return
	}

	result, err := utils.GenerateAssist(ctx.Request.Context(), req.Mode, req.Title, req.Content)
	if err != nil {
		if errors.Is(err, utils.ErrAssistParse) {
			utils.Error(ctx, http.StatusInternalServerError, err.Error())
			return
		}
		if utils.Sugar != nil {
			utils.Sugar.Warnf("assist request failed: %v", err)
		}
		utils.Error(ctx, http.StatusInternalServerError, "assist service unavailable")
		return
	}

	utils.Success(ctx, gin.H{"result": result})
}
