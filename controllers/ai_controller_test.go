package controllers_test

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// Provider calls are exercised against the parse helpers in the utils
// package; here only input validation is covered.
func TestAssistValidation(t *testing.T) {
	r, _ := newTestApp(t)
	token, _ := registerUser(t, r, "drafter")

	t.Run("requires auth", func(t *testing.T) {
		w := perform(r, http.MethodPost, "/ai/assist", gin.H{
			"mode":  "title",
			"title": "draft",
		}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing mode rejected", func(t *testing.T) {
		w := perform(r, http.MethodPost, "/ai/assist", gin.H{
			"title": "draft",
		}, token)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown mode rejected", func(t *testing.T) {
		w := perform(r, http.MethodPost, "/ai/assist", gin.H{
			"mode":    "haiku",
			"content": "text",
		}, token)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("empty draft rejected", func(t *testing.T) {
		w := perform(r, http.MethodPost, "/ai/assist", gin.H{
			"mode": "summary",
		}, token)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
