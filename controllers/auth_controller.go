package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
	"github.com/cppla/yatube/views"
)

// AuthController handles signup, login and logout with a signed session cookie.
type AuthController struct {
	page
	db    *gorm.DB
	store utils.Store
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(db *gorm.DB, store utils.Store, renderer views.Renderer) *AuthController {
	return &AuthController{page: page{renderer: renderer}, db: db, store: store}
}

// LoginForm renders the login page.
func (a *AuthController) LoginForm(ctx *gin.Context) {
	a.render(ctx, http.StatusOK, "users/login.html", gin.H{
		"title": "Войти",
		"form":  newForm(),
		"next":  ctx.Query("next"),
	})
}

// Login verifies credentials, sets the session cookie and follows next when it is a local path.
func (a *AuthController) Login(ctx *gin.Context) {
	var in LoginInput
	form := bindForm(ctx, &in, "username")

	var user models.User
	if form.Valid() {
		err := a.db.Where("username = ?", strings.TrimSpace(in.Username)).First(&user).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			form.addError("", msgBadCredentials)
		case err != nil:
			a.serverError(ctx, err)
			return
		case !utils.CheckPassword(user.PasswordHash, in.Password):
			form.addError("", msgBadCredentials)
		}
	}
	if !form.Valid() {
		a.render(ctx, http.StatusOK, "users/login.html", gin.H{"title": "Войти", "form": form, "next": in.Next})
		return
	}

	cfg := config.Get()
	ttl := time.Duration(cfg.TokenTTLHours) * time.Hour
	token, err := utils.GenerateToken(cfg.JWTSecret, user.ID, user.Username, ttl)
	if err != nil {
		a.serverError(ctx, err)
		return
	}
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.SessionCookie, token, int(ttl.Seconds()), "/", "", ctx.Request.TLS != nil, true)
	utils.Sugar.Infow("user logged in", "user_id", user.ID)
	redirect(ctx, safeNext(in.Next))
}

// SignupForm renders the registration page.
func (a *AuthController) SignupForm(ctx *gin.Context) {
	a.render(ctx, http.StatusOK, "users/signup.html", gin.H{"title": "Регистрация", "form": newForm(), "fields": signupFields})
}

// Signup creates an account and sends the visitor to the index page.
func (a *AuthController) Signup(ctx *gin.Context) {
	var in SignupInput
	form := bindForm(ctx, &in, "first_name", "last_name", "username", "email")
	username := strings.TrimSpace(in.Username)
	if form.Error("username") == "" {
		var n int64
		if err := a.db.Model(&models.User{}).Where("username = ?", username).Count(&n).Error; err != nil {
			a.serverError(ctx, err)
			return
		}
		if n > 0 {
			form.addError("username", msgUsernameTaken)
		}
	}
	if !form.Valid() {
		a.render(ctx, http.StatusOK, "users/signup.html", gin.H{"title": "Регистрация", "form": form, "fields": signupFields})
		return
	}

	hash, err := utils.HashPassword(in.Password1)
	if err != nil {
		a.serverError(ctx, err)
		return
	}
	user := models.User{
		Username:     username,
		Email:        strings.TrimSpace(in.Email),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PasswordHash: hash,
	}
	if err := a.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			form.addError("username", msgUsernameTaken)
			a.render(ctx, http.StatusOK, "users/signup.html", gin.H{"title": "Регистрация", "form": form, "fields": signupFields})
			return
		}
		a.serverError(ctx, err)
		return
	}
	utils.Sugar.Infow("user registered", "user_id", user.ID, "username", user.Username)
	redirect(ctx, "/")
}

// LogoutForm asks for confirmation; only a POST ends the session.
func (a *AuthController) LogoutForm(ctx *gin.Context) {
	a.render(ctx, http.StatusOK, "users/logout.html", gin.H{"title": "Выход"})
}

// Logout revokes the session token until it would have expired and clears the cookie.
func (a *AuthController) Logout(ctx *gin.Context) {
	if v, ok := ctx.Get(middleware.ContextTokenKey); ok {
		token := v.(string)
		expiresAt := time.Now().Add(time.Duration(config.Get().TokenTTLHours) * time.Hour)
		if claims, err := utils.ParseToken(config.Get().JWTSecret, token); err == nil && claims.ExpiresAt != nil {
			expiresAt = claims.ExpiresAt.Time
		}
		utils.BlacklistToken(ctx.Request.Context(), a.store, token, expiresAt)
	}
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.SessionCookie, "", -1, "/", "", ctx.Request.TLS != nil, true)
	ctx.Set(middleware.ContextUserIDKey, uint(0))
	ctx.Set(middleware.ContextUserKey, nil)
	a.render(ctx, http.StatusOK, "users/logged_out.html", gin.H{"title": "Вы вышли"})
}

// safeNext keeps redirects on this site.
func safeNext(next string) string {
	if strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") && !strings.HasPrefix(next, "/\\") {
		return next
	}
	return "/"
}
