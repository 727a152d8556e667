package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
	"github.com/cppla/yatube/views"
)

// FollowController manages subscriptions and the personal feed.
type FollowController struct {
	page
	db *gorm.DB
}

// NewFollowController creates a new FollowController instance.
func NewFollowController(db *gorm.DB, renderer views.Renderer) *FollowController {
	return &FollowController{page: page{renderer: renderer}, db: db}
}

// FollowIndex renders posts of every author the current user follows.
func (f *FollowController) FollowIndex(ctx *gin.Context) {
	uid, _ := middleware.UserID(ctx)
	followed := f.db.Model(&models.Follow{}).Select("author_id").Where("user_id = ?", uid)
	query := f.db.Model(&models.Post{}).Where("author_id IN (?)", followed).Order("pub_date DESC, id DESC")

	posts, err := utils.Paginate[models.Post](query, ctx.Query("page"), perPage(), "Author", "Group")
	if err != nil {
		f.serverError(ctx, err)
		return
	}
	f.render(ctx, http.StatusOK, "posts/follow.html", gin.H{
		"title":    "Избранные авторы",
		"page_obj": posts,
		"follow":   true,
	})
}

// ProfileFollow subscribes the current user to an author. Repeats and self-follows are no-ops.
func (f *FollowController) ProfileFollow(ctx *gin.Context) {
	author, ok := f.loadAuthor(ctx)
	if !ok {
		return
	}
	uid, _ := middleware.UserID(ctx)
	if uid != author.ID {
		follow := models.Follow{UserID: uid, AuthorID: author.ID}
		err := f.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "author_id"}},
			DoNothing: true,
		}).Create(&follow).Error
		if err != nil {
			f.serverError(ctx, err)
			return
		}
	}
	redirect(ctx, "/profile/"+author.Username+"/")
}

// ProfileUnfollow removes the subscription if there is one.
func (f *FollowController) ProfileUnfollow(ctx *gin.Context) {
	author, ok := f.loadAuthor(ctx)
	if !ok {
		return
	}
	uid, _ := middleware.UserID(ctx)
	if err := f.db.Where("user_id = ? AND author_id = ?", uid, author.ID).Delete(&models.Follow{}).Error; err != nil {
		f.serverError(ctx, err)
		return
	}
	redirect(ctx, "/profile/"+author.Username+"/")
}

func (f *FollowController) loadAuthor(ctx *gin.Context) (*models.User, bool) {
	var author models.User
	if err := f.db.Where("username = ?", ctx.Param("username")).First(&author).Error; err != nil {
		f.dbError(ctx, err)
		return nil, false
	}
	return &author, true
}
