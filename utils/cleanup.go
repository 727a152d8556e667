package utils

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/yatube/models"
)

// StartUploadCleaner periodically deletes media files whose UploadedFile row has expired.
// It stops when ctx is cancelled.
func StartUploadCleaner(ctx context.Context, db *gorm.DB, mediaRoot string, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := CleanExpiredUploads(db, mediaRoot, time.Now()); err != nil {
					Sugar.Warnf("upload cleaner failed: %v", err)
				} else if n > 0 {
					Sugar.Infof("upload cleaner removed %d files", n)
				}
			}
		}
	}()
}

// CleanExpiredUploads removes up to 100 expired files and their rows, returning how many rows were deleted.
func CleanExpiredUploads(db *gorm.DB, mediaRoot string, now time.Time) (int, error) {
	var items []models.UploadedFile
	if err := db.Where("expire_at IS NOT NULL AND expire_at <= ?", now).Limit(100).Find(&items).Error; err != nil {
		return 0, err
	}
	removed := 0
	for _, it := range items {
		if err := RemoveMedia(mediaRoot, it.Path); err != nil {
			Sugar.Warnf("upload cleaner remove %s: %v", it.Path, err)
		}
		// Remove row regardless of file deletion outcome
		if err := db.Delete(&models.UploadedFile{}, it.ID).Error; err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// ExpireUpload marks a stored file as orphaned so the cleaner picks it up.
func ExpireUpload(db *gorm.DB, rel string, at time.Time) error {
	if rel == "" {
		return nil
	}
	return db.Model(&models.UploadedFile{}).Where("path = ?", rel).Update("expire_at", at).Error
}
