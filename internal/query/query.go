// Package query compiles ad-hoc catalog query parameters into a predicate
// and a deterministic pagination plan. It is pure: parsing and planning never
// touch storage.
package query

import (
	"net/url"
	"strconv"
	"strings"
)

// Defaults applied when limit or page are absent or not positive integers.
const (
	DefaultLimit = 10
	DefaultPage  = 1
)

// Sort orderings recognized on the price field. Any other value is ignored.
const (
	SortNone = ""
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Params are the raw, sanitized query parameters.
type Params struct {
	Limit int
	Page  int
	Sort  string
	Query string
}

// Parse extracts catalog query parameters from a URL query string.
// Non-positive or non-numeric limit/page fall back to the defaults; sort is
// lowercased and kept only when it is asc or desc.
func Parse(values url.Values) Params {
	p := Params{
		Limit: positiveInt(values.Get("limit"), DefaultLimit),
		Page:  positiveInt(values.Get("page"), DefaultPage),
		Query: values.Get("query"),
	}

	switch strings.ToLower(values.Get("sort")) {
	case SortAsc:
		p.Sort = SortAsc
	case SortDesc:
		p.Sort = SortDesc
	}

	return p
}

func positiveInt(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// Filter is the compiled predicate. Nil fields match everything.
type Filter struct {
	Category *string
	Status   *bool
	InStock  *bool
}

// Filter compiles the free-form query string into a predicate.
//
// A token containing ':' is split on the first colon into key:value. Keys
// category, status, and available/stock are recognized; an unrecognized key
// makes the whole token a category filter. Without a colon, the bare tokens
// for availability and the literals true/false are recognized; anything else
// filters by category.
func (p Params) Filter() Filter {
	q := strings.TrimSpace(p.Query)
	if q == "" {
		return Filter{}
	}

	if idx := strings.Index(q, ":"); idx >= 0 {
		key := strings.ToLower(strings.TrimSpace(q[:idx]))
		value := strings.TrimSpace(q[idx+1:])

		switch key {
		case "category":
			return Filter{Category: &value}
		case "status":
			status := value == "true"
			return Filter{Status: &status}
		case "available", "stock":
			inStock := value == "true"
			return Filter{InStock: &inStock}
		default:
			return Filter{Category: &q}
		}
	}

	switch strings.ToLower(q) {
	case "available", "instock", "in-stock", "stock":
		inStock := true
		return Filter{InStock: &inStock}
	case "unavailable", "outofstock", "out-of-stock", "sin-stock":
		inStock := false
		return Filter{InStock: &inStock}
	}

	if q == "true" || q == "false" {
		status := q == "true"
		return Filter{Status: &status}
	}

	return Filter{Category: &q}
}

// Plan is the pagination plan for a known total of matching entities.
type Plan struct {
	Total      int
	TotalPages int
	Page       int
	Skip       int
	HasPrev    bool
	HasNext    bool
	PrevPage   *int
	NextPage   *int
}

// Paginate computes the plan. TotalPages is 0 when nothing matches, else
// ceil(total/limit). A requested page beyond the last one is clamped down,
// never an error.
func Paginate(total int, p Params) Plan {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + limit - 1) / limit
	}

	page := p.Page
	if page <= 0 {
		page = DefaultPage
	}
	if totalPages > 0 && page > totalPages {
		page = totalPages
	}

	plan := Plan{
		Total:      total,
		TotalPages: totalPages,
		Page:       page,
		Skip:       (page - 1) * limit,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	}

	if plan.HasPrev {
		prev := page - 1
		plan.PrevPage = &prev
	}
	if plan.HasNext {
		next := page + 1
		plan.NextPage = &next
	}

	return plan
}

// Links builds prev/next navigation URLs against the given base, preserving
// limit, sort, and query while substituting only the page. A link is nil when
// no such page exists.
func Links(base string, p Params, plan Plan) (prev, next *string) {
	build := func(page int) *string {
		values := url.Values{}
		values.Set("limit", strconv.Itoa(p.Limit))
		if p.Sort != SortNone {
			values.Set("sort", p.Sort)
		}
		if p.Query != "" {
			values.Set("query", p.Query)
		}
		values.Set("page", strconv.Itoa(page))
		link := base + "?" + values.Encode()
		return &link
	}

	if plan.PrevPage != nil {
		prev = build(*plan.PrevPage)
	}
	if plan.NextPage != nil {
		next = build(*plan.NextPage)
	}
	return prev, next
}
