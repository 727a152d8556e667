package controllers

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/utils"
	"github.com/cppla/yatube/views"
)

const htmlContentType = "text/html; charset=utf-8"

// page is embedded by every HTML controller.
type page struct {
	renderer views.Renderer
}

// context adds the values every template expects to data.
func (p page) context(ctx *gin.Context, data gin.H) gin.H {
	if data == nil {
		data = gin.H{}
	}
	if user := middleware.User(ctx); user != nil {
		data["request_user"] = user
	}
	data["year"] = time.Now().Year()
	return data
}

func (p page) renderBytes(ctx *gin.Context, name string, data gin.H) ([]byte, error) {
	var buf bytes.Buffer
	if err := p.renderer.Render(&buf, name, p.context(ctx, data)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// render writes the named template with status. A failing template becomes a 500 page.
func (p page) render(ctx *gin.Context, status int, name string, data gin.H) {
	body, err := p.renderBytes(ctx, name, data)
	if err != nil {
		utils.Sugar.Errorf("render %s: %v", name, err)
		ctx.Data(http.StatusInternalServerError, "text/plain; charset=utf-8", []byte("internal server error"))
		ctx.Abort()
		return
	}
	ctx.Data(status, htmlContentType, body)
}

func (p page) notFound(ctx *gin.Context) {
	p.render(ctx, http.StatusNotFound, "core/404.html", gin.H{"path": ctx.Request.URL.Path})
	ctx.Abort()
}

func (p page) serverError(ctx *gin.Context, err error) {
	utils.Sugar.Errorf("%s %s: %v", ctx.Request.Method, ctx.Request.URL.Path, err)
	p.render(ctx, http.StatusInternalServerError, "core/500.html", nil)
	ctx.Abort()
}

// dbError maps a lookup failure to 404 or 500.
func (p page) dbError(ctx *gin.Context, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		p.notFound(ctx)
		return
	}
	p.serverError(ctx, err)
}

func redirect(ctx *gin.Context, location string) {
	ctx.Redirect(http.StatusFound, location)
	ctx.Abort()
}

// ErrorController renders the error pages for unmatched routes and recovered panics.
type ErrorController struct {
	page
}

// NewErrorController creates a new ErrorController instance.
func NewErrorController(renderer views.Renderer) *ErrorController {
	return &ErrorController{page: page{renderer: renderer}}
}

// NotFound renders core/404.html; unmatched API paths get the JSON envelope instead.
func (e *ErrorController) NotFound(ctx *gin.Context) {
	if isAPIPath(ctx.Request.URL.Path) {
		utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
		return
	}
	e.notFound(ctx)
}

// InternalError renders core/500.html.
func (e *ErrorController) InternalError(ctx *gin.Context) {
	if isAPIPath(ctx.Request.URL.Path) {
		utils.Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
		return
	}
	e.render(ctx, http.StatusInternalServerError, "core/500.html", nil)
}

func isAPIPath(path string) bool {
	return strings.HasPrefix(path, "/api/")
}
