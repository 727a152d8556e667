package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUserKey stores the loaded *models.User.
	ContextUserKey = "user"
	// ContextTokenKey stores the raw session token so logout can revoke it.
	ContextTokenKey = "token"

	// SessionCookie carries the signed session token.
	SessionCookie = "yatube_session"
	// LoginURL is where anonymous users are sent by LoginRequired.
	LoginURL = "/auth/login/"
)

// CurrentUser resolves the session cookie into the request context.
// Requests without a valid, unrevoked token continue anonymously.
func CurrentUser(db *gorm.DB, store utils.Store) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, err := ctx.Cookie(SessionCookie)
		if err != nil || strings.TrimSpace(token) == "" {
			ctx.Next()
			return
		}
		if utils.IsTokenBlacklisted(ctx.Request.Context(), store, token) {
			ctx.Next()
			return
		}
		claims, err := utils.ParseToken(config.Get().JWTSecret, token)
		if err != nil {
			ctx.Next()
			return
		}

		var user models.User
		if err := db.First(&user, claims.UserID).Error; err != nil {
			ctx.Next()
			return
		}

		ctx.Set(ContextUserIDKey, user.ID)
		ctx.Set(ContextUserKey, &user)
		ctx.Set(ContextTokenKey, token)
		ctx.Next()
	}
}

// LoginRequired redirects anonymous requests to the login page, keeping the requested path in next.
func LoginRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if _, ok := UserID(ctx); ok {
			ctx.Next()
			return
		}
		ctx.Redirect(http.StatusFound, LoginRedirect(ctx.Request.URL.RequestURI()))
		ctx.Abort()
	}
}

// LoginRedirect builds the login URL for next. Slashes stay readable: /auth/login/?next=/create/
func LoginRedirect(next string) string {
	return LoginURL + "?next=" + strings.ReplaceAll(url.QueryEscape(next), "%2F", "/")
}

// UserID returns the authenticated user's ID.
func UserID(ctx *gin.Context) (uint, bool) {
	v, ok := ctx.Get(ContextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id > 0
}

// User returns the authenticated user or nil.
func User(ctx *gin.Context) *models.User {
	v, ok := ctx.Get(ContextUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}
