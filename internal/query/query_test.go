package query

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		rawQuery string
		want     Params
	}{
		{
			name:     "defaults when absent",
			rawQuery: "",
			want:     Params{Limit: 10, Page: 1},
		},
		{
			name:     "explicit values",
			rawQuery: "limit=5&page=3&sort=asc&query=shirts",
			want:     Params{Limit: 5, Page: 3, Sort: "asc", Query: "shirts"},
		},
		{
			name:     "sort lowercased",
			rawQuery: "sort=DESC",
			want:     Params{Limit: 10, Page: 1, Sort: "desc"},
		},
		{
			name:     "unrecognized sort ignored",
			rawQuery: "sort=price",
			want:     Params{Limit: 10, Page: 1},
		},
		{
			name:     "non-numeric limit and page fall back",
			rawQuery: "limit=abc&page=xyz",
			want:     Params{Limit: 10, Page: 1},
		},
		{
			name:     "non-positive limit and page fall back",
			rawQuery: "limit=0&page=-2",
			want:     Params{Limit: 10, Page: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.rawQuery)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Parse(values))
		})
	}
}

func TestParamsFilter(t *testing.T) {
	strPtr := func(s string) *string { return &s }
	boolPtr := func(b bool) *bool { return &b }

	tests := []struct {
		name  string
		query string
		want  Filter
	}{
		{name: "empty matches everything", query: "", want: Filter{}},
		{name: "whitespace only", query: "   ", want: Filter{}},
		{name: "category key", query: "category:hoodies", want: Filter{Category: strPtr("hoodies")}},
		{name: "status key true", query: "status:true", want: Filter{Status: boolPtr(true)}},
		{name: "status key anything else is false", query: "status:yes", want: Filter{Status: boolPtr(false)}},
		{name: "available key true", query: "available:true", want: Filter{InStock: boolPtr(true)}},
		{name: "stock key false", query: "stock:false", want: Filter{InStock: boolPtr(false)}},
		{name: "key is case insensitive", query: "CATEGORY:Caps", want: Filter{Category: strPtr("Caps")}},
		{name: "split on first colon only", query: "category:a:b", want: Filter{Category: strPtr("a:b")}},
		{name: "unrecognized key keeps whole token", query: "color:red", want: Filter{Category: strPtr("color:red")}},
		{name: "bare available", query: "available", want: Filter{InStock: boolPtr(true)}},
		{name: "bare instock", query: "InStock", want: Filter{InStock: boolPtr(true)}},
		{name: "bare in-stock", query: "in-stock", want: Filter{InStock: boolPtr(true)}},
		{name: "bare stock", query: "stock", want: Filter{InStock: boolPtr(true)}},
		{name: "bare unavailable", query: "unavailable", want: Filter{InStock: boolPtr(false)}},
		{name: "bare outofstock", query: "outofstock", want: Filter{InStock: boolPtr(false)}},
		{name: "bare out-of-stock", query: "out-of-stock", want: Filter{InStock: boolPtr(false)}},
		{name: "bare sin-stock", query: "sin-stock", want: Filter{InStock: boolPtr(false)}},
		{name: "bare true filters status", query: "true", want: Filter{Status: boolPtr(true)}},
		{name: "bare false filters status", query: "false", want: Filter{Status: boolPtr(false)}},
		{name: "anything else filters category", query: "hoodies", want: Filter{Category: strPtr("hoodies")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Params{Query: tt.query}
			assert.Equal(t, tt.want, p.Filter())
		})
	}
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name           string
		total          int
		params         Params
		wantTotalPages int
		wantPage       int
		wantSkip       int
		wantHasPrev    bool
		wantHasNext    bool
	}{
		{
			name:           "empty result set",
			total:          0,
			params:         Params{Limit: 10, Page: 1},
			wantTotalPages: 0,
			wantPage:       1,
		},
		{
			name:           "single partial page",
			total:          7,
			params:         Params{Limit: 10, Page: 1},
			wantTotalPages: 1,
			wantPage:       1,
		},
		{
			name:           "exact multiple of limit",
			total:          20,
			params:         Params{Limit: 10, Page: 1},
			wantTotalPages: 2,
			wantPage:       1,
			wantHasNext:    true,
		},
		{
			name:           "ceil rounds up",
			total:          21,
			params:         Params{Limit: 10, Page: 1},
			wantTotalPages: 3,
			wantPage:       1,
			wantHasNext:    true,
		},
		{
			name:           "middle page",
			total:          30,
			params:         Params{Limit: 10, Page: 2},
			wantTotalPages: 3,
			wantPage:       2,
			wantSkip:       10,
			wantHasPrev:    true,
			wantHasNext:    true,
		},
		{
			name:           "page beyond last clamps",
			total:          15,
			params:         Params{Limit: 10, Page: 99},
			wantTotalPages: 2,
			wantPage:       2,
			wantSkip:       10,
			wantHasPrev:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Paginate(tt.total, tt.params)

			assert.Equal(t, tt.total, plan.Total)
			assert.Equal(t, tt.wantTotalPages, plan.TotalPages)
			assert.Equal(t, tt.wantPage, plan.Page)
			assert.Equal(t, tt.wantSkip, plan.Skip)
			assert.Equal(t, tt.wantHasPrev, plan.HasPrev)
			assert.Equal(t, tt.wantHasNext, plan.HasNext)

			if tt.wantHasPrev {
				require.NotNil(t, plan.PrevPage)
				assert.Equal(t, tt.wantPage-1, *plan.PrevPage)
			} else {
				assert.Nil(t, plan.PrevPage)
			}
			if tt.wantHasNext {
				require.NotNil(t, plan.NextPage)
				assert.Equal(t, tt.wantPage+1, *plan.NextPage)
			} else {
				assert.Nil(t, plan.NextPage)
			}
		})
	}
}

func TestLinks(t *testing.T) {
	t.Run("preserves limit sort and query", func(t *testing.T) {
		params := Params{Limit: 5, Page: 2, Sort: "desc", Query: "category:caps"}
		plan := Paginate(30, params)

		prev, next := Links("/api/products", params, plan)

		require.NotNil(t, prev)
		require.NotNil(t, next)

		prevURL, err := url.Parse(*prev)
		require.NoError(t, err)
		assert.Equal(t, "/api/products", prevURL.Path)
		assert.Equal(t, "5", prevURL.Query().Get("limit"))
		assert.Equal(t, "desc", prevURL.Query().Get("sort"))
		assert.Equal(t, "category:caps", prevURL.Query().Get("query"))
		assert.Equal(t, "1", prevURL.Query().Get("page"))

		nextURL, err := url.Parse(*next)
		require.NoError(t, err)
		assert.Equal(t, "3", nextURL.Query().Get("page"))
	})

	t.Run("omits absent sort and query", func(t *testing.T) {
		params := Params{Limit: 10, Page: 1}
		plan := Paginate(25, params)

		prev, next := Links("/api/products", params, plan)

		assert.Nil(t, prev)
		require.NotNil(t, next)

		nextURL, err := url.Parse(*next)
		require.NoError(t, err)
		assert.False(t, nextURL.Query().Has("sort"))
		assert.False(t, nextURL.Query().Has("query"))
	})

	t.Run("nil on first and last pages", func(t *testing.T) {
		params := Params{Limit: 10, Page: 1}
		prev, next := Links("/api/products", params, Paginate(5, params))
		assert.Nil(t, prev)
		assert.Nil(t, next)
	})
}
