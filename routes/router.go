package routes

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/controllers"
	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/utils"
	"github.com/cppla/yatube/views"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, store utils.Store, renderer views.Renderer) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	errorController := controllers.NewErrorController(renderer)

	r := gin.New()
	r.RedirectTrailingSlash = true
	r.HandleMethodNotAllowed = false

	// Access log goes to its own rolling file; without GinPath it is discarded.
	accessLog := zap.NewNop()
	if cfg.GinPath != "" {
		gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg)
		if err != nil {
			utils.Sugar.Warnf("gin access log disabled: %v", err)
		} else {
			accessLog = gl
		}
	}
	r.Use(utils.Ginzap(accessLog, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(utils.Logger, true, errorController.InternalError))

	r.Use(middleware.CurrentUser(db, store))
	// Record PV after each request
	r.Use(middleware.PageViewRecorder(db))

	r.StaticFS("/static", views.Static())
	r.Static(strings.TrimSuffix(cfg.MediaURL, "/"), cfg.MediaRoot)

	postController := controllers.NewPostController(db, store, renderer)
	followController := controllers.NewFollowController(db, renderer)
	authController := controllers.NewAuthController(db, store, renderer)
	aboutController := controllers.NewAboutController(renderer)
	statsController := controllers.NewStatsController(db)

	r.GET("/", postController.Index)
	r.GET("/group/:slug/", postController.GroupPosts)
	r.GET("/profile/:username/", postController.Profile)
	r.GET("/posts/:id/", postController.PostDetail)

	loggedIn := r.Group("")
	loggedIn.Use(middleware.LoginRequired())
	loggedIn.GET("/create/", postController.CreatePostForm)
	loggedIn.POST("/create/", postController.CreatePost)
	loggedIn.GET("/posts/:id/edit/", postController.EditPostForm)
	loggedIn.POST("/posts/:id/edit/", postController.EditPost)
	loggedIn.POST("/posts/:id/delete/", postController.DeletePost)
	loggedIn.POST("/posts/:id/comment/", postController.AddComment)
	loggedIn.GET("/follow/", followController.FollowIndex)
	loggedIn.GET("/profile/:username/follow/", followController.ProfileFollow)
	loggedIn.GET("/profile/:username/unfollow/", followController.ProfileUnfollow)

	authGroup := r.Group("/auth")
	authGroup.GET("/login/", authController.LoginForm)
	authGroup.POST("/login/", middleware.RateLimit(cfg.RateLimitPerMinute), authController.Login)
	authGroup.GET("/signup/", authController.SignupForm)
	authGroup.POST("/signup/", middleware.RateLimit(cfg.RateLimitPerMinute), authController.Signup)
	authGroup.GET("/logout/", authController.LogoutForm)
	authGroup.POST("/logout/", authController.Logout)

	r.GET("/about/author/", aboutController.Author)
	r.GET("/about/tech/", aboutController.Tech)

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	api.Use(cors.New(corsCfg), middleware.RateLimit(cfg.RateLimitPerMinute))
	api.GET("/stats", statsController.GetStats)
	api.GET("/posts/:id/stats", statsController.GetPostStats)

	r.NoRoute(errorController.NotFound)

	return r
}
