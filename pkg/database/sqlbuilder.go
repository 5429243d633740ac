package database

import (
	"github.com/huandu/go-sqlbuilder"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// Page is a 1-based page request.
type Page struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// Normalize clamps the page into a usable range.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

func (p Page) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PageSize
}

// Apply adds LIMIT/OFFSET for the page to sb.
func (p Page) Apply(sb *sqlbuilder.SelectBuilder) {
	n := p.Normalize()
	sb.Limit(n.PageSize)
	sb.Offset(p.Offset())
}
