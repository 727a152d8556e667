package models

import "time"

// UploadedFile records an image written under the media root.
// ExpireAt stays nil while a post references the file; the cleaner removes
// rows whose ExpireAt has passed together with the file.
type UploadedFile struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Path      string     `gorm:"size:255;uniqueIndex;not null" json:"path"` // relative to the media root
	Size      int64      `json:"size"`
	OwnerID   uint       `gorm:"index" json:"owner_id"`
	ExpireAt  *time.Time `gorm:"index" json:"expire_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
