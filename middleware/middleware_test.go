package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.OpenDatabase(config.AppConfig{DBDriver: "sqlite", DBPath: filepath.Join(t.TempDir(), "test.db"), LogLevel: "silent"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := config.Migrate(db, models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestLoginRedirect(t *testing.T) {
	cases := map[string]string{
		"/create/":             "/auth/login/?next=/create/",
		"/posts/3/edit/":       "/auth/login/?next=/posts/3/edit/",
		"/follow/?page=2":      "/auth/login/?next=/follow/%3Fpage%3D2",
		"/profile/лев/follow/": "/auth/login/?next=/profile/%D0%BB%D0%B5%D0%B2/follow/",
	}
	for in, want := range cases {
		if got := LoginRedirect(in); got != want {
			t.Errorf("LoginRedirect(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCurrentUserAndLoginRequired(t *testing.T) {
	config.Set(config.AppConfig{JWTSecret: "test-secret", DBDriver: "sqlite"})
	db := openDB(t)
	store := utils.NewMemoryStore()
	user := models.User{Username: "auth"}
	db.Create(&user)

	r := gin.New()
	r.Use(CurrentUser(db, store))
	r.GET("/private/", LoginRequired(), func(c *gin.Context) {
		c.String(http.StatusOK, User(c).Username)
	})

	request := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/private/", nil)
		if token != "" {
			req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	if w := request(""); w.Code != http.StatusFound || w.Header().Get("Location") != "/auth/login/?next=/private/" {
		t.Fatalf("anonymous: %d %s", w.Code, w.Header().Get("Location"))
	}
	if w := request("not-a-token"); w.Code != http.StatusFound {
		t.Fatalf("garbage token let through: %d", w.Code)
	}

	token, _ := utils.GenerateToken("test-secret", user.ID, user.Username, time.Hour)
	if w := request(token); w.Code != http.StatusOK || w.Body.String() != "auth" {
		t.Fatalf("valid token: %d %q", w.Code, w.Body.String())
	}

	utils.BlacklistToken(context.Background(), store, token, time.Now().Add(time.Hour))
	if w := request(token); w.Code != http.StatusFound {
		t.Fatalf("revoked token let through: %d", w.Code)
	}

	ghost, _ := utils.GenerateToken("test-secret", 9999, "ghost", time.Hour)
	if w := request(ghost); w.Code != http.StatusFound {
		t.Fatalf("token of a missing user let through: %d", w.Code)
	}
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.POST("/auth/login/", RateLimit(4), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/v1/stats", RateLimit(4), func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func(method, path string) int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
		return w.Code
	}
	// burst is half the per-minute budget
	for i := 0; i < 2; i++ {
		if code := hit(http.MethodPost, "/auth/login/"); code != http.StatusOK {
			t.Fatalf("request %d limited early: %d", i, code)
		}
	}
	if code := hit(http.MethodPost, "/auth/login/"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", code)
	}

	hit(http.MethodGet, "/api/v1/stats")
	hit(http.MethodGet, "/api/v1/stats")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Content-Type") != "application/json; charset=utf-8" {
		t.Fatalf("api limit: %d %s", w.Code, w.Header().Get("Content-Type"))
	}
}

func TestPageViewRecorder(t *testing.T) {
	db := openDB(t)
	r := gin.New()
	r.Use(PageViewRecorder(db))
	r.GET("/posts/:id/", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/v1/stats", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/posts/:id/comment/", func(c *gin.Context) { c.Status(http.StatusFound) })

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/posts/1/", nil),
		httptest.NewRequest(http.MethodGet, "/posts/1/", nil),
		httptest.NewRequest(http.MethodGet, "/posts/2/", nil),
		httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil),
		httptest.NewRequest(http.MethodPost, "/posts/1/comment/", nil),
		httptest.NewRequest(http.MethodGet, "/missing/", nil),
	} {
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	var views []models.PageView
	db.Order("path ASC").Find(&views)
	if len(views) != 2 {
		t.Fatalf("expected 2 counted paths, got %+v", views)
	}
	if views[0].Path != "/posts/1/" || views[0].Count != 2 || views[1].Count != 1 {
		t.Fatalf("unexpected counts %+v", views)
	}
	if views[0].Day != time.Now().Format(models.PageViewDayLayout) {
		t.Fatalf("unexpected day %q", views[0].Day)
	}
}
