package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
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

// IndexCacheKey is the cache key of the anonymous first index page.
// Every other index variant is stored under a key with this prefix.
const IndexCacheKey = "index_page"

// PostController serves post pages: lists, detail, create, edit, delete and comments.
type PostController struct {
	page
	db    *gorm.DB
	store utils.Store
}

// NewPostController creates a new PostController instance.
func NewPostController(db *gorm.DB, store utils.Store, renderer views.Renderer) *PostController {
	return &PostController{page: page{renderer: renderer}, db: db, store: store}
}

// ClearIndexCache drops every cached index page.
func ClearIndexCache(ctx context.Context, store utils.Store) {
	store.DeletePrefix(ctx, IndexCacheKey)
}

// indexCacheKey names the cached index variant for a resolved page number,
// so any spelling of a page shares one entry.
func indexCacheKey(ctx *gin.Context, number int) string {
	key := IndexCacheKey
	if number > 1 {
		key += ":page=" + strconv.Itoa(number)
	}
	if uid, ok := middleware.UserID(ctx); ok {
		key += ":user=" + strconv.FormatUint(uint64(uid), 10)
	}
	return key
}

func perPage() int {
	return config.Get().PostsPerPage
}

// newestFirst is the base query of every post list.
func (p *PostController) newestFirst() *gorm.DB {
	return p.db.Model(&models.Post{}).Order("pub_date DESC, id DESC")
}

// Index renders all posts, newest first. The rendered page is cached for IndexCacheSeconds
// and writes never invalidate it.
func (p *PostController) Index(ctx *gin.Context) {
	var total int64
	if err := p.newestFirst().Count(&total).Error; err != nil {
		p.serverError(ctx, err)
		return
	}
	number, _ := utils.PageNumber(ctx.Query("page"), total, perPage())
	key := indexCacheKey(ctx, number)
	if body, ok := p.store.Get(ctx.Request.Context(), key); ok {
		ctx.Data(http.StatusOK, htmlContentType, body)
		return
	}

	posts, err := utils.Paginate[models.Post](p.newestFirst(), strconv.Itoa(number), perPage(), "Author", "Group")
	if err != nil {
		p.serverError(ctx, err)
		return
	}
	body, err := p.renderBytes(ctx, "posts/index.html", gin.H{"page_obj": posts, "index": true})
	if err != nil {
		p.serverError(ctx, err)
		return
	}
	ttl := time.Duration(config.Get().IndexCacheSeconds) * time.Second
	p.store.Set(ctx.Request.Context(), key, body, ttl)
	ctx.Data(http.StatusOK, htmlContentType, body)
}

// GroupPosts renders the posts of one group.
func (p *PostController) GroupPosts(ctx *gin.Context) {
	var group models.Group
	if err := p.db.Where("slug = ?", ctx.Param("slug")).First(&group).Error; err != nil {
		p.dbError(ctx, err)
		return
	}
	posts, err := utils.Paginate[models.Post](p.newestFirst().Where("group_id = ?", group.ID), ctx.Query("page"), perPage(), "Author", "Group")
	if err != nil {
		p.serverError(ctx, err)
		return
	}
	p.render(ctx, http.StatusOK, "posts/group_list.html", gin.H{
		"title":    "Записи сообщества " + group.Title,
		"group":    &group,
		"page_obj": posts,
	})
}

// Profile renders an author's posts and whether the current user follows them.
func (p *PostController) Profile(ctx *gin.Context) {
	var author models.User
	if err := p.db.Where("username = ?", ctx.Param("username")).First(&author).Error; err != nil {
		p.dbError(ctx, err)
		return
	}
	posts, err := utils.Paginate[models.Post](p.newestFirst().Where("author_id = ?", author.ID), ctx.Query("page"), perPage(), "Author", "Group")
	if err != nil {
		p.serverError(ctx, err)
		return
	}

	following := false
	uid, authenticated := middleware.UserID(ctx)
	if authenticated {
		var n int64
		if err := p.db.Model(&models.Follow{}).Where("user_id = ? AND author_id = ?", uid, author.ID).Count(&n).Error; err != nil {
			p.serverError(ctx, err)
			return
		}
		following = n > 0
	}

	p.render(ctx, http.StatusOK, "posts/profile.html", gin.H{
		"title":      "Профайл пользователя " + author.FullName(),
		"author":     &author,
		"page_obj":   posts,
		"following":  following,
		"can_follow": authenticated && uid != author.ID,
	})
}

// PostDetail renders one post with its comments and the comment form.
func (p *PostController) PostDetail(ctx *gin.Context) {
	post, ok := p.loadPost(ctx, "Author", "Group")
	if !ok {
		return
	}
	var comments []models.Comment
	if err := p.db.Preload("Author").Where("post_id = ?", post.ID).Order("created ASC, id ASC").Find(&comments).Error; err != nil {
		p.serverError(ctx, err)
		return
	}
	var postsCount int64
	if err := p.db.Model(&models.Post{}).Where("author_id = ?", post.AuthorID).Count(&postsCount).Error; err != nil {
		p.serverError(ctx, err)
		return
	}
	uid, _ := middleware.UserID(ctx)

	p.render(ctx, http.StatusOK, "posts/post_detail.html", gin.H{
		"title":       "Пост " + post.String(),
		"post":        post,
		"comments":    comments,
		"form":        newForm(),
		"posts_count": postsCount,
		"is_author":   uid != 0 && uid == post.AuthorID,
	})
}

// CreatePostForm renders an empty post form.
func (p *PostController) CreatePostForm(ctx *gin.Context) {
	form := newForm()
	if !p.attachGroups(ctx, form) {
		return
	}
	p.render(ctx, http.StatusOK, "posts/create_post.html", gin.H{"title": "Новый пост", "form": form, "is_edit": false})
}

// CreatePost validates the form and stores a new post owned by the current user.
func (p *PostController) CreatePost(ctx *gin.Context) {
	user := middleware.User(ctx)
	var in PostInput
	form := bindForm(ctx, &in, "heading", "text", "group")
	post := models.Post{
		Heading:  strings.TrimSpace(in.Heading),
		Text:     cleanText(form, "text", in.Text),
		GroupID:  resolveGroup(p.db, form, in.Group),
		AuthorID: user.ID,
	}
	if form.Valid() {
		post.Image = p.storeImage(ctx, form, user.ID)
	}
	if !form.Valid() {
		if !p.attachGroups(ctx, form) {
			return
		}
		p.render(ctx, http.StatusOK, "posts/create_post.html", gin.H{"title": "Новый пост", "form": form, "is_edit": false})
		return
	}

	if err := p.db.Create(&post).Error; err != nil {
		p.serverError(ctx, err)
		return
	}
	utils.Sugar.Infow("post created", "post_id", post.ID, "author", user.Username)
	redirect(ctx, "/profile/"+user.Username+"/")
}

// EditPostForm renders the post form filled with the current values.
func (p *PostController) EditPostForm(ctx *gin.Context) {
	post, ok := p.loadOwnPost(ctx)
	if !ok {
		return
	}
	form := newForm()
	form.set("heading", post.Heading)
	form.set("text", post.Text)
	if post.GroupID != nil {
		form.set("group", strconv.FormatUint(uint64(*post.GroupID), 10))
	}
	if !p.attachGroups(ctx, form) {
		return
	}
	p.render(ctx, http.StatusOK, "posts/create_post.html", gin.H{"title": "Редактировать пост", "form": form, "is_edit": true, "post": post})
}

// EditPost updates the author's post in place.
func (p *PostController) EditPost(ctx *gin.Context) {
	post, ok := p.loadOwnPost(ctx)
	if !ok {
		return
	}
	var in PostInput
	form := bindForm(ctx, &in, "heading", "text", "group")
	heading := strings.TrimSpace(in.Heading)
	text := cleanText(form, "text", in.Text)
	groupID := resolveGroup(p.db, form, in.Group)
	image := post.Image
	if form.Valid() {
		if rel := p.storeImage(ctx, form, post.AuthorID); rel != "" {
			image = rel
		} else if ctx.PostForm("image-clear") == "on" {
			image = ""
		}
	}
	if !form.Valid() {
		if !p.attachGroups(ctx, form) {
			return
		}
		p.render(ctx, http.StatusOK, "posts/create_post.html", gin.H{"title": "Редактировать пост", "form": form, "is_edit": true, "post": post})
		return
	}

	old := post.Image
	changes := models.Post{Heading: heading, Text: text, GroupID: groupID, Image: image}
	if err := p.db.Model(post).Select("heading", "text", "group_id", "image").Updates(&changes).Error; err != nil {
		p.serverError(ctx, err)
		return
	}
	if old != "" && old != image {
		if err := utils.ExpireUpload(p.db, old, time.Now()); err != nil {
			utils.Sugar.Warnf("expire replaced image %s: %v", old, err)
		}
	}
	redirect(ctx, fmt.Sprintf("/posts/%d/", post.ID))
}

// DeletePost removes the author's post together with its comments.
func (p *PostController) DeletePost(ctx *gin.Context) {
	post, ok := p.loadOwnPost(ctx)
	if !ok {
		return
	}
	err := p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(post).Error
	})
	if err != nil {
		p.serverError(ctx, err)
		return
	}
	if post.Image != "" {
		if err := utils.ExpireUpload(p.db, post.Image, time.Now()); err != nil {
			utils.Sugar.Warnf("expire image of deleted post %d: %v", post.ID, err)
		}
	}
	utils.Sugar.Infow("post deleted", "post_id", post.ID)
	redirect(ctx, "/profile/"+middleware.User(ctx).Username+"/")
}

// AddComment stores a comment from the current user. Invalid comments are dropped.
func (p *PostController) AddComment(ctx *gin.Context) {
	post, ok := p.loadPost(ctx)
	if !ok {
		return
	}
	var in CommentInput
	form := bindForm(ctx, &in, "text")
	text := cleanText(form, "text", in.Text)
	if form.Valid() {
		uid, _ := middleware.UserID(ctx)
		comment := models.Comment{PostID: post.ID, AuthorID: uid, Text: text}
		if err := p.db.Create(&comment).Error; err != nil {
			p.serverError(ctx, err)
			return
		}
	}
	redirect(ctx, fmt.Sprintf("/posts/%d/", post.ID))
}

func (p *PostController) loadPost(ctx *gin.Context, preloads ...string) (*models.Post, bool) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		p.notFound(ctx)
		return nil, false
	}
	q := p.db
	for _, rel := range preloads {
		q = q.Preload(rel)
	}
	var post models.Post
	if err := q.First(&post, id).Error; err != nil {
		p.dbError(ctx, err)
		return nil, false
	}
	return &post, true
}

// loadOwnPost loads the post and sends anyone but its author back to the post page.
func (p *PostController) loadOwnPost(ctx *gin.Context) (*models.Post, bool) {
	post, ok := p.loadPost(ctx)
	if !ok {
		return nil, false
	}
	if uid, _ := middleware.UserID(ctx); uid != post.AuthorID {
		redirect(ctx, fmt.Sprintf("/posts/%d/", post.ID))
		return nil, false
	}
	return post, true
}

func (p *PostController) attachGroups(ctx *gin.Context, form *Form) bool {
	groups, err := loadGroups(p.db)
	if err != nil {
		p.serverError(ctx, err)
		return false
	}
	form.Groups = groups
	return true
}

// storeImage saves the optional image upload and records it. It returns "" when nothing was stored.
func (p *PostController) storeImage(ctx *gin.Context, form *Form, ownerID uint) string {
	header, err := ctx.FormFile("image")
	if err != nil {
		return ""
	}
	cfg := config.Get()
	rel, size, err := utils.SaveImage(cfg.MediaRoot, header, int64(cfg.MaxImageSizeMB)<<20)
	switch {
	case errors.Is(err, utils.ErrImageTooLarge):
		form.addError("image", msgImageTooLarge)
		return ""
	case errors.Is(err, utils.ErrNotAnImage):
		form.addError("image", msgInvalidImage)
		return ""
	case err != nil:
		utils.Sugar.Errorf("save image: %v", err)
		form.addError("image", "Не удалось сохранить файл.")
		return ""
	}
	if err := p.db.Create(&models.UploadedFile{Path: rel, Size: size, OwnerID: ownerID}).Error; err != nil {
		utils.Sugar.Warnf("record upload %s: %v", rel, err)
	}
	return rel
}
