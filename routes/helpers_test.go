package routes

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
	"github.com/cppla/yatube/views"
)

type rendered struct {
	name string
	data gin.H
}

// recordingRenderer remembers which template rendered with which context.
type recordingRenderer struct {
	mu    sync.Mutex
	next  views.Renderer
	calls []rendered
}

func (r *recordingRenderer) Render(w io.Writer, name string, data any) error {
	h, _ := data.(gin.H)
	r.mu.Lock()
	r.calls = append(r.calls, rendered{name: name, data: h})
	r.mu.Unlock()
	return r.next.Render(w, name, data)
}

func (r *recordingRenderer) reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}

func (r *recordingRenderer) last(t *testing.T) rendered {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		t.Fatalf("nothing was rendered")
	}
	return r.calls[len(r.calls)-1]
}

type testApp struct {
	t        *testing.T
	cfg      config.AppConfig
	db       *gorm.DB
	store    *utils.MemoryStore
	renderer *recordingRenderer
	router   *gin.Engine
	// now drives the store's clock; tests move it to expire cached pages.
	now time.Time
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Set(config.AppConfig{
		JWTSecret:          "test-secret",
		DBDriver:           "sqlite",
		DBPath:             filepath.Join(dir, "test.db"),
		GinMode:            "test",
		MediaRoot:          filepath.Join(dir, "media"),
		LogLevel:           "silent",
		RateLimitPerMinute: 100000,
	})
	db, err := config.OpenDatabase(cfg)
	if err != nil {
		t.Fatalf("db open: %v", err)
	}
	if err := config.Migrate(db, models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	tpl, err := views.Load(cfg.MediaURL)
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	app := &testApp{
		t:        t,
		cfg:      cfg,
		db:       db,
		renderer: &recordingRenderer{next: tpl},
		now:      time.Now(),
	}
	app.store = utils.NewMemoryStoreWithClock(func() time.Time { return app.now })
	app.router = SetupRouter(db, app.store, app.renderer)
	return app
}

func (a *testApp) createUser(username string) *models.User {
	a.t.Helper()
	hash, err := utils.HashPassword("password123")
	if err != nil {
		a.t.Fatalf("hash: %v", err)
	}
	u := models.User{Username: username, PasswordHash: hash}
	if err := a.db.Create(&u).Error; err != nil {
		a.t.Fatalf("create user: %v", err)
	}
	return &u
}

func (a *testApp) createGroup(title, slug string) *models.Group {
	a.t.Helper()
	g := models.Group{Title: title, Slug: slug, Description: "Тестовое описание"}
	if err := a.db.Create(&g).Error; err != nil {
		a.t.Fatalf("create group: %v", err)
	}
	return &g
}

func (a *testApp) createPost(author *models.User, group *models.Group, text string) *models.Post {
	a.t.Helper()
	p := models.Post{AuthorID: author.ID, Text: text}
	if group != nil {
		p.GroupID = &group.ID
	}
	if err := a.db.Create(&p).Error; err != nil {
		a.t.Fatalf("create post: %v", err)
	}
	return &p
}

func (a *testApp) sessionCookie(user *models.User) *http.Cookie {
	a.t.Helper()
	token, err := utils.GenerateToken(a.cfg.JWTSecret, user.ID, user.Username, time.Hour)
	if err != nil {
		a.t.Fatalf("token: %v", err)
	}
	return &http.Cookie{Name: middleware.SessionCookie, Value: token}
}

func (a *testApp) serve(req *http.Request, user *models.User) *httptest.ResponseRecorder {
	if user != nil {
		req.AddCookie(a.sessionCookie(user))
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) get(path string, user *models.User) *httptest.ResponseRecorder {
	return a.serve(httptest.NewRequest(http.MethodGet, path, nil), user)
}

func (a *testApp) postForm(path string, form url.Values, user *models.User) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.serve(req, user)
}

func (a *testApp) postMultipart(path string, body *bytes.Buffer, contentType string, user *models.User) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	return a.serve(req, user)
}

func postURL(id uint, suffix string) string {
	return fmt.Sprintf("/posts/%d/%s", id, suffix)
}

func expectRedirect(t *testing.T, w *httptest.ResponseRecorder, location string) {
	t.Helper()
	if w.Code != http.StatusFound {
		t.Fatalf("expected 302 to %s, got %d", location, w.Code)
	}
	if got := w.Header().Get("Location"); got != location {
		t.Fatalf("expected redirect to %q, got %q", location, got)
	}
}

func pageOf(t *testing.T, r rendered) *utils.Page[models.Post] {
	t.Helper()
	page, ok := r.data["page_obj"].(*utils.Page[models.Post])
	if !ok {
		t.Fatalf("%s: page_obj missing or of type %T", r.name, r.data["page_obj"])
	}
	return page
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count %T: %v", model, err)
	}
	return n
}

func itoa(id uint) string {
	return fmt.Sprint(id)
}
