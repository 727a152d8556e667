package models

import "testing"

func TestPostString(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"Тестовый текст Тестовый текст", "Тестовый текст "},
		{"short", "short"},
		{"exactly15chars!", "exactly15chars!"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := (Post{Text: tc.text}).String(); got != tc.want {
			t.Errorf("Post{Text: %q}.String() = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestGroupString(t *testing.T) {
	g := Group{Title: "Тестовая группа", Slug: "test-slug"}
	if g.String() != g.Title {
		t.Fatalf("Group.String() = %q, want %q", g.String(), g.Title)
	}
}

func TestUserFullName(t *testing.T) {
	if got := (User{Username: "leo", FirstName: "Lev", LastName: "Tolstoy"}).FullName(); got != "Lev Tolstoy" {
		t.Fatalf("FullName = %q", got)
	}
	if got := (User{Username: "leo"}).FullName(); got != "leo" {
		t.Fatalf("FullName fallback = %q", got)
	}
}
