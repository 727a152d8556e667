package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

// StatsController provides site statistics such as counts and today's page views.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetStats returns aggregate statistics for the site.
func (s *StatsController) GetStats(ctx *gin.Context) {
	var userCount, postCount, commentCount, groupCount, followCount, todayViews int64

	counts := []struct {
		model any
		dst   *int64
	}{
		{&models.User{}, &userCount},
		{&models.Post{}, &postCount},
		{&models.Comment{}, &commentCount},
		{&models.Group{}, &groupCount},
		{&models.Follow{}, &followCount},
	}
	for _, c := range counts {
		// Fallback to 0 instead of failing the whole endpoint
		if err := s.db.Model(c.model).Count(c.dst).Error; err != nil {
			utils.Sugar.Warnf("stats count %T: %v", c.model, err)
			*c.dst = 0
		}
	}

	today := time.Now().In(time.Local).Format(models.PageViewDayLayout)
	if err := s.db.Model(&models.PageView{}).
		Where("day = ?", today).
		Select("COALESCE(SUM(count),0)").
		Scan(&todayViews).Error; err != nil {
		todayViews = 0
	}

	utils.Success(ctx, gin.H{
		"user_count":       userCount,
		"post_count":       postCount,
		"comment_count":    commentCount,
		"group_count":      groupCount,
		"follow_count":     followCount,
		"today_page_views": todayViews,
	})
}

// GetPostStats returns page views and the comment count of one post.
func (s *StatsController) GetPostStats(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid post id")
		return
	}
	var post models.Post
	if err := s.db.Select("id").First(&post, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to load post")
		return
	}

	var pv int64
	path := "/posts/" + strconv.FormatUint(id, 10) + "/"
	if err := s.db.Model(&models.PageView{}).
		Where("path = ?", path).
		Select("COALESCE(SUM(count),0)").
		Scan(&pv).Error; err != nil {
		pv = 0
	}

	var commentsCount int64
	if err := s.db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&commentsCount).Error; err != nil {
		commentsCount = 0
	}

	utils.Success(ctx, gin.H{
		"post_id":        post.ID,
		"pv":             pv,
		"comments_count": commentsCount,
	})
}
