package models

import "time"

// PostTitleLength is how many characters of the text make up a post's string form.
const PostTitleLength = 15

// Post is a single authored entry, optionally published in a group with an image.
type Post struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	Heading  string    `gorm:"size:200" json:"heading"`
	Text     string    `gorm:"type:text;not null" json:"text"`
	PubDate  time.Time `gorm:"index;autoCreateTime" json:"pub_date"`
	AuthorID uint      `gorm:"index;not null" json:"author_id"`
	Author   User      `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	GroupID  *uint     `gorm:"index" json:"group_id"`
	Group    *Group    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"group,omitempty"`
	// Image is relative to the media root, empty when the post has none.
	Image    string    `gorm:"size:255" json:"image"`
	Comments []Comment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

func (p Post) String() string {
	r := []rune(p.Text)
	if len(r) > PostTitleLength {
		return string(r[:PostTitleLength])
	}
	return p.Text
}

// HasImage reports whether an image is attached.
func (p Post) HasImage() bool {
	return p.Image != ""
}
