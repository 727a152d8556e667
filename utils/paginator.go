package utils

import (
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// PostsPerPage is the page size used when none is configured.
const PostsPerPage = 10

// Page is one slice of an ordered query.
type Page[T any] struct {
	Items    []T
	Number   int
	NumPages int
	Total    int64
}

// PageNumber resolves the requested page like a forgiving paginator:
// garbage or values below one give the first page, values past the end give the last page.
func PageNumber(raw string, total int64, perPage int) (number, numPages int) {
	if perPage <= 0 {
		perPage = PostsPerPage
	}
	numPages = int((total + int64(perPage) - 1) / int64(perPage))
	if numPages < 1 {
		numPages = 1
	}
	number = 1
	if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && n > 0 {
		number = n
	}
	if number > numPages {
		number = numPages
	}
	return number, numPages
}

// Paginate counts the query and loads the requested page into a Page.
// The query must already carry its filters and ordering; preloads apply to the page load only.
func Paginate[T any](query *gorm.DB, raw string, perPage int, preloads ...string) (*Page[T], error) {
	if perPage <= 0 {
		perPage = PostsPerPage
	}
	var total int64
	var model T
	if err := query.Session(&gorm.Session{}).Model(&model).Count(&total).Error; err != nil {
		return nil, err
	}
	number, numPages := PageNumber(raw, total, perPage)

	items := make([]T, 0, perPage)
	if total > 0 {
		q := query.Session(&gorm.Session{})
		for _, rel := range preloads {
			q = q.Preload(rel)
		}
		if err := q.Offset((number - 1) * perPage).Limit(perPage).Find(&items).Error; err != nil {
			return nil, err
		}
	}
	return &Page[T]{Items: items, Number: number, NumPages: numPages, Total: total}, nil
}

// Len returns the number of items on this page.
func (p *Page[T]) Len() int { return len(p.Items) }

func (p *Page[T]) HasPrevious() bool { return p.Number > 1 }

func (p *Page[T]) HasNext() bool { return p.Number < p.NumPages }

func (p *Page[T]) HasOtherPages() bool { return p.NumPages > 1 }

func (p *Page[T]) PreviousPageNumber() int { return p.Number - 1 }

func (p *Page[T]) NextPageNumber() int { return p.Number + 1 }

// PageRange lists every page number, for the paginator links.
func (p *Page[T]) PageRange() []int {
	r := make([]int, p.NumPages)
	for i := range r {
		r[i] = i + 1
	}
	return r
}
