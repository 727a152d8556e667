package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/yatube/views"
)

// AboutController serves the static about pages.
type AboutController struct {
	page
}

func NewAboutController(renderer views.Renderer) *AboutController {
	return &AboutController{page: page{renderer: renderer}}
}

func (a *AboutController) Author(ctx *gin.Context) {
	a.render(ctx, http.StatusOK, "about/author.html", gin.H{"title": "Об авторе"})
}

func (a *AboutController) Tech(ctx *gin.Context) {
	a.render(ctx, http.StatusOK, "about/tech.html", gin.H{"title": "Технологии"})
}
