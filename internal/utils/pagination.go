package utils

import (
	"strconv"

	"gorm.io/gorm"
)

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

type Page struct {
	Page    int
	PerPage int
}

// Meta is the pagination block of list responses.
type Meta struct {
	CurrentPage int   `json:"current_page"`
	LastPage    int   `json:"last_page"`
	Total       int64 `json:"total"`
	PerPage     int   `json:"per_page"`
}

// ParsePage reads page and per_page (or perPage) through get. Garbage falls
// back to defaults and per_page is clamped to 1..100.
func ParsePage(get func(string) string) Page {
	page, err := strconv.Atoi(get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	raw := get("per_page")
	if raw == "" {
		raw = get("perPage")
	}
	perPage, err := strconv.Atoi(raw)
	switch {
	case err != nil || perPage == 0:
		perPage = DefaultPerPage
	case perPage < 1:
		perPage = 1
	case perPage > MaxPerPage:
		perPage = MaxPerPage
	}

	return Page{Page: page, PerPage: perPage}
}

func (p Page) Offset() int { return (p.Page - 1) * p.PerPage }

// Meta builds the pagination block for total rows.
func (p Page) Meta(total int64) Meta {
	last := int((total + int64(p.PerPage) - 1) / int64(p.PerPage))
	return Meta{CurrentPage: p.Page, LastPage: last, Total: total, PerPage: p.PerPage}
}

// Paginate counts q and loads one page of it into out.
func Paginate[T any](q *gorm.DB, p Page, out *[]T) (Meta, error) {
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return Meta{}, err
	}
	if err := q.Session(&gorm.Session{}).Offset(p.Offset()).Limit(p.PerPage).Find(out).Error; err != nil {
		return Meta{}, err
	}
	if *out == nil {
		*out = []T{}
	}
	return p.Meta(total), nil
}
