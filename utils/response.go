package utils

import "github.com/gin-gonic/gin"

// Success writes a 200 response with the given payload.
func Success(ctx *gin.Context, data interface{}) {
	ctx.JSON(200, data)
}

// Created writes a 201 response with the given payload.
func Created(ctx *gin.Context, data interface{}) {
	ctx.JSON(201, data)
}

// Error writes the uniform error body {"error": message} with the given
// HTTP status.
func Error(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, gin.H{"error": message})
}
