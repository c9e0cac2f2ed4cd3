package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/plumehq/plume/config"
	"github.com/plumehq/plume/controllers"
	"github.com/plumehq/plume/middleware"
	"github.com/plumehq/plume/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.AccessLog())
	r.Use(middleware.Recovery())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	// Locally stored uploads are served straight from disk. With S3 storage
	// configured the URLs point elsewhere and this tree stays empty.
	if cfg.StorageEndpoint == "" {
		r.Static("/uploads", cfg.UploadDir)
	}

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db)
	userController := controllers.NewUserController(db)
	postController := controllers.NewPostController(db)
	engagementController := controllers.NewEngagementController(db)
	communityController := controllers.NewCommunityController(db)
	searchController := controllers.NewSearchController(db)
	aiController := controllers.NewAIController()
	adminController := controllers.NewAdminController(db)

	authGroup := r.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/me", middleware.AuthRequired(db), authController.Me)
	authGroup.PATCH("/profile", middleware.AuthRequired(db), authController.UpdateProfile)
	authGroup.POST("/avatar", middleware.AuthRequired(db), authController.UploadAvatar)

	users := r.Group("/users")
	users.GET("/:id", middleware.OptionalAuth(db), userController.GetUserPublic)
	users.GET("/:id/posts", middleware.OptionalAuth(db), userController.ListUserPosts)
	users.GET("/:id/followers", userController.ListFollowers)
	users.GET("/:id/following", userController.ListFollowing)
	users.POST("/:id/follow", middleware.AuthRequired(db), userController.FollowUser)
	users.DELETE("/:id/follow", middleware.AuthRequired(db), userController.UnfollowUser)

	posts := r.Group("/posts")
	posts.GET("", middleware.OptionalAuth(db), postController.ListPosts)
	posts.GET("/saved", middleware.AuthRequired(db), engagementController.ListSavedPosts)
	posts.GET("/:id", middleware.OptionalAuth(db), postController.GetPost)
	posts.POST("", middleware.AuthRequired(db), postController.CreatePost)
	posts.PUT("/:id", middleware.AuthRequired(db), postController.UpdatePost)
	posts.DELETE("/:id", middleware.AuthRequired(db), postController.DeletePost)

	posts.GET("/:id/comments", postController.ListComments)
	posts.POST("/:id/comments", middleware.AuthRequired(db), postController.CreateComment)
	r.DELETE("/comments/:id", middleware.AuthRequired(db), postController.DeleteComment)

	posts.POST("/:id/like", middleware.AuthRequired(db), engagementController.LikePost)
	posts.DELETE("/:id/like", middleware.AuthRequired(db), engagementController.UnlikePost)
	posts.GET("/:id/like/check", middleware.AuthRequired(db), engagementController.CheckLike)
	posts.POST("/:id/save", middleware.AuthRequired(db), engagementController.SavePost)
	posts.DELETE("/:id/save", middleware.AuthRequired(db), engagementController.UnsavePost)
	posts.GET("/:id/save/check", middleware.AuthRequired(db), engagementController.CheckSave)
	posts.POST("/:id/report", middleware.AuthRequired(db), engagementController.ReportPost)

	r.GET("/communities", communityController.ListCommunities)
	r.GET("/communities/:slug", communityController.GetCommunity)

	r.GET("/search", searchController.Search)

	r.POST("/ai/assist", middleware.AuthRequired(db), aiController.Assist)

	admin := r.Group("/admin")
	admin.POST("/login", middleware.RateLimitMiddleware(), adminController.Login)

	adminAuthed := admin.Group("")
	adminAuthed.Use(middleware.AdminRequired(db))
	adminAuthed.POST("/logout", adminController.Logout)
	adminAuthed.GET("/stats", adminController.Stats)
	adminAuthed.GET("/users", adminController.ListUsers)
	adminAuthed.PUT("/users/:id/role", adminController.ChangeUserRole)
	adminAuthed.PUT("/users/:id/ban", adminController.SetUserBan)
	adminAuthed.DELETE("/users/:id", adminController.DeleteUser)
	adminAuthed.GET("/posts", adminController.ListPosts)
	adminAuthed.DELETE("/posts/:id", adminController.DeletePost)
	adminAuthed.POST("/communities", adminController.CreateCommunity)
	adminAuthed.PUT("/communities/:id", adminController.UpdateCommunity)
	adminAuthed.POST("/communities/:id/image", adminController.UploadCommunityImage)
	adminAuthed.DELETE("/communities/:id", adminController.DeleteCommunity)
	adminAuthed.GET("/reports", adminController.ListReports)
	adminAuthed.PUT("/reports/:id", adminController.ResolveReport)
	adminAuthed.GET("/settings", adminController.GetSettings)
	adminAuthed.PUT("/settings", adminController.UpdateSettings)
	adminAuthed.GET("/logs", adminController.ListLogs)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, "route not found")
	})

	return r
}
