package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

var pvSkipPrefixes = []string{"/api/", "/static/", "/media/", "/auth/"}

// PageViewRecorder records page views per day and path.
func PageViewRecorder(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only successful GETs count.
		if c.Request.Method != "GET" {
			return
		}
		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}

		path := c.Request.URL.Path
		if path == "/health" || path == "/favicon.ico" {
			return
		}
		for _, p := range pvSkipPrefixes {
			if strings.HasPrefix(path, p) {
				return
			}
		}

		day := time.Now().In(time.Local).Format(models.PageViewDayLayout)

		// Atomic upsert to avoid duplicate key errors under concurrency
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "day"}, {Name: "path"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("count + 1"), "updated_at": time.Now()}),
		}).Create(&models.PageView{Day: day, Path: path, Count: 1}).Error
		if err != nil {
			utils.Sugar.Warnf("page view %s: %v", path, err)
		}
	}
}
