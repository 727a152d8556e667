package models

import "time"

// PageViewDayLayout formats PageView.Day.
const PageViewDayLayout = "2006-01-02"

// PageView stores aggregated page view counts per day and path.
type PageView struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Day       string    `gorm:"index:idx_pv_day_path,unique;size:10;not null" json:"day"`
	Path      string    `gorm:"index;index:idx_pv_day_path,unique;size:255;not null" json:"path"`
	Count     int64     `gorm:"not null;default:0" json:"count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
