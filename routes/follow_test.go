package routes

import (
	"net/http"
	"testing"

	"github.com/cppla/yatube/models"
)

func TestFollowAndUnfollow(t *testing.T) {
	app := newTestApp(t)
	follower := app.createUser("follower")
	author := app.createUser("author")

	expectRedirect(t, app.get("/profile/author/follow/", follower), "/profile/author/")
	if n := countRows(t, app.db, &models.Follow{}); n != 1 {
		t.Fatalf("expected one follow, got %d", n)
	}
	var f models.Follow
	app.db.First(&f)
	if f.UserID != follower.ID || f.AuthorID != author.ID {
		t.Fatalf("unexpected follow %+v", f)
	}

	app.get("/profile/author/", follower)
	if following, _ := app.renderer.last(t).data["following"].(bool); !following {
		t.Fatalf("profile should report following")
	}

	// Following twice keeps a single edge.
	app.get("/profile/author/follow/", follower)
	if n := countRows(t, app.db, &models.Follow{}); n != 1 {
		t.Fatalf("duplicate follow stored")
	}

	expectRedirect(t, app.get("/profile/author/unfollow/", follower), "/profile/author/")
	if n := countRows(t, app.db, &models.Follow{}); n != 0 {
		t.Fatalf("unfollow kept the edge")
	}
	app.get("/profile/author/", follower)
	if following, _ := app.renderer.last(t).data["following"].(bool); following {
		t.Fatalf("profile still reports following")
	}
}

func TestCannotFollowSelf(t *testing.T) {
	app := newTestApp(t)
	user := app.createUser("auth")

	expectRedirect(t, app.get("/profile/auth/follow/", user), "/profile/auth/")
	if n := countRows(t, app.db, &models.Follow{}); n != 0 {
		t.Fatalf("self follow stored")
	}
	app.get("/profile/auth/", user)
	if canFollow, _ := app.renderer.last(t).data["can_follow"].(bool); canFollow {
		t.Fatalf("follow button offered on own profile")
	}
}

func TestFollowUnknownAuthor(t *testing.T) {
	app := newTestApp(t)
	user := app.createUser("auth")
	if w := app.get("/profile/nobody/follow/", user); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestFeedShowsFollowedAuthorsOnly(t *testing.T) {
	app := newTestApp(t)
	follower := app.createUser("follower")
	stranger := app.createUser("stranger")
	author := app.createUser("author")
	app.get("/profile/author/follow/", follower)

	app.createPost(author, nil, "Новый пост автора")

	app.get("/follow/", follower)
	page := pageOf(t, app.renderer.last(t))
	if page.Len() != 1 || page.Items[0].Text != "Новый пост автора" {
		t.Fatalf("post missing from follower feed: %+v", page.Items)
	}

	app.get("/follow/", stranger)
	if n := pageOf(t, app.renderer.last(t)).Len(); n != 0 {
		t.Fatalf("post leaked into a non-follower feed")
	}
}
